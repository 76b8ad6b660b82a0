package stats

import (
	"time"

	"pulsepact/internal/domain"
)

const countdownWindow = 30 * 24 * time.Hour

type TimeLeft struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Expired bool `json:"expired"`
	// Remaining is the share of a 30-day window still ahead, 0-100.
	Remaining float64 `json:"remaining"`
}

// Countdown measures the time from now to the start of the deadline day (UTC).
func Countdown(deadline string, now time.Time) (TimeLeft, error) {
	due, err := time.Parse(domain.DateLayout, deadline)
	if err != nil {
		return TimeLeft{}, err
	}
	d := due.Sub(now)
	if d <= 0 {
		return TimeLeft{Expired: true}, nil
	}
	left := TimeLeft{
		Days:    int(d / (24 * time.Hour)),
		Hours:   int(d/time.Hour) % 24,
		Minutes: int(d/time.Minute) % 60,
		Seconds: int(d/time.Second) % 60,
	}
	left.Remaining = min(100, float64(d)/float64(countdownWindow)*100)
	return left, nil
}

// DueWithin lists active pacts whose deadline falls in [today, today+days].
func DueWithin(pacts []domain.Pact, now time.Time, days int) []domain.Pact {
	today, _ := time.Parse(domain.DateLayout, now.UTC().Format(domain.DateLayout))
	limit := today.AddDate(0, 0, days)
	var out []domain.Pact
	for _, p := range pacts {
		if !p.Active() {
			continue
		}
		due, err := time.Parse(domain.DateLayout, p.Deadline)
		if err != nil || due.Before(today) || due.After(limit) {
			continue
		}
		out = append(out, p)
	}
	return out
}
