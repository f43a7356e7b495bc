package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a failed request.
type Kind int

const (
	// KindUnavailable covers network failures and 5xx replies.
	KindUnavailable Kind = iota
	KindRateLimited
	// KindRejected is a 4xx other than 429: a bad key, model or parameter.
	KindRejected
	// KindInvalidOutput is a reply that is not JSON or fails the schema.
	KindInvalidOutput
	// KindTruncated is a reply cut off at MaxTokens.
	KindTruncated
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate limited"
	case KindRejected:
		return "rejected"
	case KindInvalidOutput:
		return "invalid output"
	case KindTruncated:
		return "truncated"
	default:
		return "unavailable"
	}
}

// Error is returned by every Provider in this package for vendor and
// output failures. Context errors are returned as is.
type Error struct {
	Kind   Kind
	Vendor string

	// Status is the HTTP status, zero when no reply arrived.
	Status int

	// RetryAfter is the wait a rate-limited vendor asked for, if any.
	RetryAfter time.Duration

	// Content is the offending reply for KindInvalidOutput and KindTruncated.
	Content json.RawMessage

	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("llm %s: %s", e.Vendor, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// fromStatus classifies a vendor SDK error by its HTTP status.
func fromStatus(vendor string, status int, err error) *Error {
	e := &Error{Vendor: vendor, Status: status, Err: err}
	switch {
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case status >= 400 && status < 500:
		e.Kind = KindRejected
	default:
		e.Kind = KindUnavailable
	}
	return e
}
