package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"pulsepact/internal/engine"
	"pulsepact/internal/logger"
)

// Reminder is the engine surface the reminder job drives.
type Reminder interface {
	RemindDeadlines(ctx context.Context) ([]engine.Reminder, error)
}

// Scheduler runs the deadline reminder job on a cron schedule (UTC).
type Scheduler struct {
	cron     *cron.Cron
	reminder Reminder
	timeout  time.Duration
	log      *slog.Logger
}

// New registers the reminder job under spec, a standard five-field cron
// expression.
func New(r Reminder, spec string) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		reminder: r,
		timeout:  30 * time.Second,
		log:      logger.WithService("scheduler"),
	}
	if _, err := s.cron.AddFunc(spec, s.runJob); err != nil {
		return nil, fmt.Errorf("register reminder job %q: %w", spec, err)
	}
	s.log.Info("reminder job registered", "schedule", spec)
	return s, nil
}

func (s *Scheduler) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.RunNow(ctx); err != nil {
		s.log.Error("reminder job failed", "error", err)
	}
}

// RunNow executes the reminder job immediately.
func (s *Scheduler) RunNow(ctx context.Context) ([]engine.Reminder, error) {
	sent, err := s.reminder.RemindDeadlines(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("reminder job ran", "sent", len(sent))
	return sent, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// Next returns the next scheduled run, zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
