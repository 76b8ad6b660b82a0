package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pulsepact/internal/domain"
	"pulsepact/internal/events"
	"pulsepact/internal/repo"
	"pulsepact/internal/stats"
)

type Reminder struct {
	PactID   string `json:"pact_id"`
	Title    string `json:"title"`
	Deadline string `json:"deadline"`
	DaysLeft int    `json:"days_left"`
}

// RemindDeadlines adds a deadline notification for each active pact due
// within the configured window. A pact is reminded at most once per UTC day.
func (e Engine) RemindDeadlines(ctx context.Context) ([]Reminder, error) {
	now := e.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var sent []Reminder
	err := e.update(ctx, func(tx *sql.Tx, st *state) error {
		for _, p := range stats.DueWithin(st.pacts.Pacts(), now, e.Config.Reminders.WindowDays) {
			seen, err := e.Repo.HasEventSince(ctx, tx, events.DeadlineReminded, p.ID, dayStart.Format(time.RFC3339))
			if err != nil {
				return err
			}
			if seen {
				continue
			}
			due, _ := time.Parse(domain.DateLayout, p.Deadline)
			days := int(due.Sub(dayStart).Hours() / 24)
			if _, err := st.notes.Add(domain.NotificationDeadline, "Upcoming Deadline", dueMessage(p.Title, days)); err != nil {
				return err
			}
			if err := e.appendEvent(ctx, tx, events.DeadlineReminded, "pact", p.ID, events.EventPayload{"days_left": days}); err != nil {
				return err
			}
			sent = append(sent, Reminder{PactID: p.ID, Title: p.Title, Deadline: p.Deadline, DaysLeft: days})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log().Info("deadline reminders", "sent", len(sent))
	return sent, nil
}

func dueMessage(title string, days int) string {
	switch days {
	case 0:
		return fmt.Sprintf("Your '%s' pact is due today.", title)
	case 1:
		return fmt.Sprintf("Your '%s' pact is due tomorrow.", title)
	}
	return fmt.Sprintf("Your '%s' pact is due in %d days.", title, days)
}

func (e Engine) ListEvents(ctx context.Context, limit int, cursor int64, f repo.EventFilters) ([]domain.Event, error) {
	return e.Repo.LatestEventsFrom(ctx, limit, cursor, f)
}
