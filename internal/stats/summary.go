package stats

import (
	"math"

	"github.com/shopspring/decimal"

	"pulsepact/internal/domain"
)

// VariantStats aggregates the pacts of one variant.
type VariantStats struct {
	Variant   domain.Variant  `json:"type"`
	Count     int             `json:"count"`
	Active    int             `json:"active"`
	Completed int             `json:"completed"`
	Failed    int             `json:"failed"`
	Staked    decimal.Decimal `json:"staked"`
	// CompletionRate is completed / max(1, count) in percent.
	CompletionRate float64 `json:"completion_rate"`
	// SuccessRate is completed / (completed+failed) in percent, 0 when none finished.
	SuccessRate float64 `json:"success_rate"`
}

type Summary struct {
	Total           int             `json:"total"`
	Active          int             `json:"active"`
	Completed       int             `json:"completed"`
	Failed          int             `json:"failed"`
	TotalStaked     decimal.Decimal `json:"total_staked"`
	TotalGoal       decimal.Decimal `json:"total_goal"`
	OverallProgress float64         `json:"overall_progress"`
	Reputation      int             `json:"reputation"`
	ReputationLevel string          `json:"reputation_level"`
	Variants        []VariantStats  `json:"variants"`
}

func TotalStaked(pacts []domain.Pact) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range pacts {
		sum = sum.Add(p.StakedAmount)
	}
	return sum
}

func TotalGoal(pacts []domain.Pact) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range pacts {
		sum = sum.Add(p.TargetAmount)
	}
	return sum
}

// OverallProgress is total staked over total goal in percent, 0 with no goal.
func OverallProgress(pacts []domain.Pact) float64 {
	goal := TotalGoal(pacts)
	if !goal.IsPositive() {
		return 0
	}
	return TotalStaked(pacts).Div(goal).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// Reputation is 50 with no pacts, 70 while none has finished, and otherwise
// the rounded share of finished pacts that completed.
func Reputation(pacts []domain.Pact) int {
	if len(pacts) == 0 {
		return 50
	}
	var c, f int
	for _, p := range pacts {
		switch p.Status {
		case domain.StatusCompleted:
			c++
		case domain.StatusFailed:
			f++
		}
	}
	if c+f == 0 {
		return 70
	}
	return int(math.Round(float64(c) / float64(c+f) * 100))
}

func ReputationLevel(score int) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 70:
		return "Good"
	case score >= 50:
		return "Average"
	case score >= 30:
		return "Poor"
	}
	return "Very Poor"
}

func Summarize(pacts []domain.Pact) Summary {
	s := Summary{
		Total:           len(pacts),
		TotalStaked:     TotalStaked(pacts),
		TotalGoal:       TotalGoal(pacts),
		OverallProgress: OverallProgress(pacts),
		Reputation:      Reputation(pacts),
	}
	s.ReputationLevel = ReputationLevel(s.Reputation)
	byVariant := map[domain.Variant]*VariantStats{}
	for _, v := range domain.Variants {
		byVariant[v] = &VariantStats{Variant: v, Staked: decimal.Zero}
	}
	for _, p := range pacts {
		vs, ok := byVariant[p.Variant]
		if !ok {
			continue
		}
		vs.Count++
		vs.Staked = vs.Staked.Add(p.StakedAmount)
		switch p.Status {
		case domain.StatusCompleted:
			vs.Completed++
			s.Completed++
		case domain.StatusFailed:
			vs.Failed++
			s.Failed++
		default:
			vs.Active++
			s.Active++
		}
	}
	for _, v := range domain.Variants {
		vs := byVariant[v]
		vs.CompletionRate = float64(vs.Completed) / float64(max(1, vs.Count)) * 100
		if done := vs.Completed + vs.Failed; done > 0 {
			vs.SuccessRate = float64(vs.Completed) / float64(done) * 100
		}
		s.Variants = append(s.Variants, *vs)
	}
	return s
}
