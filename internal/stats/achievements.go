package stats

import (
	"math"

	"github.com/shopspring/decimal"

	"pulsepact/internal/domain"
)

// BigStakerThreshold is the total stake that completes the Big Staker badge.
var BigStakerThreshold = decimal.NewFromInt(10000)

type Achievement struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Progress    float64 `json:"progress"`
	Completed   bool    `json:"completed"`
}

func Achievements(pacts []domain.Pact) []Achievement {
	completed := 0
	variants := map[domain.Variant]struct{}{}
	for _, p := range pacts {
		if p.Completed() {
			completed++
		}
		variants[p.Variant] = struct{}{}
	}
	staked := TotalStaked(pacts)
	return []Achievement{
		binary("Pact Creator", "Create your first pact", len(pacts) > 0),
		binary("Goal Achiever", "Complete a pact successfully", completed > 0),
		{
			Name:        "Diversifier",
			Description: "Create three different types of pacts",
			Progress:    math.Min(100, float64(len(variants))/3*100),
			Completed:   len(variants) >= 3,
		},
		{
			Name:        "Big Staker",
			Description: "Stake over 10,000 ADA in total",
			Progress:    math.Min(100, staked.Div(BigStakerThreshold).Mul(decimal.NewFromInt(100)).InexactFloat64()),
			Completed:   staked.GreaterThanOrEqual(BigStakerThreshold),
		},
	}
}

func binary(name, desc string, done bool) Achievement {
	a := Achievement{Name: name, Description: desc, Completed: done}
	if done {
		a.Progress = 100
	}
	return a
}
