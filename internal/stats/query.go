package stats

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pulsepact/internal/domain"
)

var ErrInvalidQuery = errors.New("invalid pact query")

type SortOrder string

const (
	SortNewest       SortOrder = "newest"
	SortOldest       SortOrder = "oldest"
	SortAmountHigh   SortOrder = "amount-high"
	SortAmountLow    SortOrder = "amount-low"
	SortProgressHigh SortOrder = "progress-high"
	SortProgressLow  SortOrder = "progress-low"
)

// Query filters and orders a pact list. Zero values mean no filter and
// newest first.
type Query struct {
	Search  string
	Variant domain.Variant
	// Status is "", "all", or a domain.Status value.
	Status string
	Sort   SortOrder
}

func (q Query) Validate() error {
	if q.Variant != "" && q.Variant != "all" && !q.Variant.Valid() {
		return fmt.Errorf("%w: type %q", ErrInvalidQuery, q.Variant)
	}
	switch domain.Status(q.Status) {
	case "", "all", domain.StatusActive, domain.StatusCompleted, domain.StatusFailed:
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidQuery, q.Status)
	}
	switch q.Sort {
	case "", SortNewest, SortOldest, SortAmountHigh, SortAmountLow, SortProgressHigh, SortProgressLow:
	default:
		return fmt.Errorf("%w: sort %q", ErrInvalidQuery, q.Sort)
	}
	return nil
}

// Apply returns the matching pacts in the requested order. The input slice
// is not modified.
func (q Query) Apply(pacts []domain.Pact) []domain.Pact {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]domain.Pact, 0, len(pacts))
	for _, p := range pacts {
		if needle != "" && !strings.Contains(strings.ToLower(p.Title), needle) && !strings.Contains(strings.ToLower(p.Description), needle) {
			continue
		}
		if q.Variant != "" && q.Variant != "all" && p.Variant != q.Variant {
			continue
		}
		if q.Status != "" && q.Status != "all" && string(p.Status) != q.Status {
			continue
		}
		out = append(out, p)
	}
	var less func(a, b domain.Pact) bool
	switch q.Sort {
	case SortOldest:
		less = func(a, b domain.Pact) bool { return createdAt(a).Before(createdAt(b)) }
	case SortAmountHigh:
		less = func(a, b domain.Pact) bool { return a.TargetAmount.GreaterThan(b.TargetAmount) }
	case SortAmountLow:
		less = func(a, b domain.Pact) bool { return a.TargetAmount.LessThan(b.TargetAmount) }
	case SortProgressHigh:
		less = func(a, b domain.Pact) bool { return a.Progress().GreaterThan(b.Progress()) }
	case SortProgressLow:
		less = func(a, b domain.Pact) bool { return a.Progress().LessThan(b.Progress()) }
	default:
		less = func(a, b domain.Pact) bool { return createdAt(a).After(createdAt(b)) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func createdAt(p domain.Pact) time.Time {
	t, err := time.Parse(time.RFC3339, p.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
