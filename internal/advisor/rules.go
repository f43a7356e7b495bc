package advisor

import (
	"fmt"

	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/mastery"
)

// Thresholds used by the default rules.
const (
	StrugglingMinAttempts = 5
	StrugglingMaxStreak   = 2
	LowMasteryRate        = 0.3
	SlowCellSeconds       = 15
	SlowCellShare         = 0.5
	SlowSessionSeconds    = 20
	LowAccuracy           = 70
	AccuracyDropPoints    = 10
)

const (
	recommendLowerGuardrail = "Consider lowering guardrail level to focus on basics"
	recommendMoreTime       = "Student needs more time to process problems - consider extending time limits"
	recommendReview         = "Review fundamental concepts before proceeding"
)

// Rule inspects the input and adds its findings to the analysis. Rules run
// independently; every applicable rule contributes.
type Rule interface {
	Name() string
	Apply(in *Input, a *Analysis)
}

// DefaultRules returns the standard rules in output order.
func DefaultRules() []Rule {
	return []Rule{
		&StrugglingFactRule{},
		&LowMasteryRule{},
		&SlowRegionRule{},
		&SlowAverageRule{},
		&SlowVsFastRule{},
		&LowAccuracyRule{},
		&DecliningAccuracyRule{},
	}
}

// Analyze runs the default rules.
func Analyze(in Input) Analysis {
	return RunRules(DefaultRules(), in)
}

// RunRules applies every rule to in.
func RunRules(rules []Rule, in Input) Analysis {
	if in.Grid == nil {
		in.Grid = mastery.NewGrid()
	}
	if _, err := mastery.ParseGuardrail(string(in.Guardrail)); err != nil {
		in.Guardrail = mastery.Guardrail12
	}

	a := Analysis{Confidence: ConfidenceMedium}
	for _, r := range rules {
		r.Apply(&in, &a)
	}
	return a
}

// regionCells returns the cells inside the guardrail, row-major.
func regionCells(in *Input) []mastery.Cell {
	n := in.Guardrail.Range()
	out := make([]mastery.Cell, 0, n*n)
	for m := 1; m <= n; m++ {
		for k := 1; k <= n; k++ {
			out = append(out, in.Grid.Cell(facts.New(m, k)))
		}
	}
	return out
}

// StrugglingFactRule names each fact that keeps being missed.
type StrugglingFactRule struct{}

func (r *StrugglingFactRule) Name() string { return "struggling-fact" }

func (r *StrugglingFactRule) Apply(in *Input, a *Analysis) {
	for _, c := range regionCells(in) {
		if c.Attempts > StrugglingMinAttempts && c.ConsecutiveCorrect < StrugglingMaxStreak {
			a.flag(fmt.Sprintf("%s multiplication", c.Fact))
			a.StrugglingFacts = append(a.StrugglingFacts, c.Fact)
		}
	}
}

// LowMasteryRule suggests a narrower guardrail when little of the region is
// mastered.
type LowMasteryRule struct{}

func (r *LowMasteryRule) Name() string { return "low-mastery" }

func (r *LowMasteryRule) Apply(in *Input, a *Analysis) {
	cells := regionCells(in)
	mastered := 0
	for _, c := range cells {
		if c.Mastered() {
			mastered++
		}
	}
	a.MasteryRate = float64(mastered) / float64(len(cells))

	if a.MasteryRate >= LowMasteryRate {
		return
	}
	a.flag("Low overall mastery rate")
	a.recommend(recommendLowerGuardrail)
	a.Confidence = ConfidenceHigh
	if down, ok := in.Guardrail.Down(); ok {
		a.SuggestedGuardrail = down
	}
}

// SlowRegionRule flags a region where most facts are answered slowly.
type SlowRegionRule struct{}

func (r *SlowRegionRule) Name() string { return "slow-region" }

func (r *SlowRegionRule) Apply(in *Input, a *Analysis) {
	cells := regionCells(in)
	slow := 0
	for _, c := range cells {
		if c.AverageTimeSeconds > SlowCellSeconds {
			slow++
		}
	}
	if float64(slow)/float64(len(cells)) > SlowCellShare {
		a.flag("Many problems taking too long")
	}
}

// SlowAverageRule flags a high mean answer time across recent sessions.
type SlowAverageRule struct{}

func (r *SlowAverageRule) Name() string { return "slow-average" }

func (r *SlowAverageRule) Apply(in *Input, a *Analysis) {
	if len(in.Sessions) == 0 {
		return
	}
	var sum float64
	for _, s := range in.Sessions {
		sum += s.AverageTimeSeconds
	}
	if sum/float64(len(in.Sessions)) > SlowSessionSeconds {
		a.flag("Average response time is too high")
		a.recommend(recommendMoreTime)
	}
}

// SlowVsFastRule flags sessions dominated by slow answers.
type SlowVsFastRule struct{}

func (r *SlowVsFastRule) Name() string { return "slow-vs-fast" }

func (r *SlowVsFastRule) Apply(in *Input, a *Analysis) {
	if len(in.Sessions) == 0 {
		return
	}
	var slow, fast float64
	for _, s := range in.Sessions {
		slow += float64(s.SlowAnswers)
		fast += float64(s.FastAnswers)
	}
	n := float64(len(in.Sessions))
	if slow/n > 2*(fast/n) {
		a.flag("Too many slow responses compared to fast ones")
	}
}

// LowAccuracyRule flags a weak most recent session.
type LowAccuracyRule struct{}

func (r *LowAccuracyRule) Name() string { return "low-accuracy" }

func (r *LowAccuracyRule) Apply(in *Input, a *Analysis) {
	if len(in.Sessions) < 2 {
		return
	}
	if in.Sessions[len(in.Sessions)-1].Accuracy < LowAccuracy {
		a.flag("Low accuracy rate")
		a.recommend(recommendReview)
	}
}

// DecliningAccuracyRule flags a sharp drop from the previous session.
type DecliningAccuracyRule struct{}

func (r *DecliningAccuracyRule) Name() string { return "declining-accuracy" }

func (r *DecliningAccuracyRule) Apply(in *Input, a *Analysis) {
	n := len(in.Sessions)
	if n < 2 {
		return
	}
	if in.Sessions[n-1].Accuracy < in.Sessions[n-2].Accuracy-AccuracyDropPoints {
		a.flag("Declining accuracy trend")
		a.recommend(recommendReview)
	}
}
