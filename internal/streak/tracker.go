package streak

import (
	"time"

	"pulsepact/internal/domain"
)

// Tracker counts consecutive UTC days with app engagement.
type Tracker struct {
	state domain.Streak
}

func NewTracker(s domain.Streak) *Tracker {
	return &Tracker{state: s}
}

func (t *Tracker) State() domain.Streak { return t.state }

func today(now time.Time) string { return now.UTC().Format(domain.DateLayout) }

// CheckOnVisit applies the visit rule: the first visit records today, the
// next calendar day extends the streak, a longer gap restarts it at 1 and a
// same-day visit changes nothing. It reports whether state changed.
func (t *Tracker) CheckOnVisit(now time.Time) bool {
	day := today(now)
	last, err := time.Parse(domain.DateLayout, t.state.LastCheckIn)
	if t.state.LastCheckIn == "" || err != nil {
		t.state.LastCheckIn = day
		return true
	}
	cur, _ := time.Parse(domain.DateLayout, day)
	diff := int(cur.Sub(last).Hours() / 24)
	switch {
	case diff == 1:
		t.state.Count++
		t.state.LastCheckIn = day
	case diff > 1:
		t.state.Count = 1
		t.state.LastCheckIn = day
	default:
		// same day, or a check-in dated in the future
		return false
	}
	return true
}

// CreditForAction adds one day for an action (stake or completion) unless
// today, or a later day, was already recorded.
func (t *Tracker) CreditForAction(now time.Time) bool {
	day := today(now)
	cur, _ := time.Parse(domain.DateLayout, day)
	if last, err := time.Parse(domain.DateLayout, t.state.LastCheckIn); err == nil && !last.Before(cur) {
		return false
	}
	t.state.Count++
	t.state.LastCheckIn = day
	return true
}

func (t *Tracker) Reset() {
	t.state = domain.Streak{}
}
