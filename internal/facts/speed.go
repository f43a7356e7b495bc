package facts

import "fmt"

// Speed is the timing bucket of a single answer.
type Speed string

const (
	SpeedFast   Speed = "fast"
	SpeedMedium Speed = "medium"
	SpeedSlow   Speed = "slow"
)

// Thresholds splits answer times into speed buckets. Fast is expected to be
// below Medium.
type Thresholds struct {
	Fast   float64 `json:"fast_seconds"`
	Medium float64 `json:"medium_seconds"`
}

// DefaultThresholds are used when no thresholds have been configured.
var DefaultThresholds = Thresholds{Fast: 5, Medium: 15}

// Classify buckets an answer time. Under Fast is fast, up to and including
// Medium is medium, anything longer is slow.
func Classify(seconds float64, th Thresholds) Speed {
	if seconds < th.Fast {
		return SpeedFast
	}
	if seconds <= th.Medium {
		return SpeedMedium
	}
	return SpeedSlow
}

// Validate checks that the thresholds are positive and ordered.
func (th Thresholds) Validate() error {
	if th.Fast <= 0 || th.Medium <= 0 {
		return fmt.Errorf("speed thresholds must be positive, got %v/%v", th.Fast, th.Medium)
	}
	if th.Fast >= th.Medium {
		return fmt.Errorf("fast threshold %v must be below medium threshold %v", th.Fast, th.Medium)
	}
	return nil
}

// ParseSpeed decodes a stored speed bucket. The empty string decodes to the
// empty Speed, used for cells that have never been answered.
func ParseSpeed(s string) (Speed, error) {
	switch sp := Speed(s); sp {
	case "", SpeedFast, SpeedMedium, SpeedSlow:
		return sp, nil
	}
	return "", fmt.Errorf("unknown speed bucket %q", s)
}
