package notify

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pulsepact/internal/domain"
)

var (
	ErrNotFound    = errors.New("notification not found")
	ErrInvalidType = errors.New("invalid notification type")
)

// Log is a newest-first list of notifications.
type Log struct {
	NewID func() string
	Now   func() time.Time

	items []domain.Notification
}

func NewLog(items []domain.Notification) *Log {
	return &Log{items: append([]domain.Notification(nil), items...)}
}

func (l *Log) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *Log) newID() string {
	if l.NewID != nil {
		return l.NewID()
	}
	return uuid.NewString()
}

// Add prepends an unread notification stamped with the current time.
func (l *Log) Add(typ domain.NotificationType, title, message string) (domain.Notification, error) {
	if !typ.Valid() {
		return domain.Notification{}, fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}
	n := domain.Notification{
		ID:        l.newID(),
		Type:      typ,
		Title:     title,
		Message:   message,
		Timestamp: l.now().UTC().Format(time.RFC3339),
	}
	l.items = append([]domain.Notification{n}, l.items...)
	return n, nil
}

func (l *Log) MarkOneRead(id string) error {
	for i := range l.items {
		if l.items[i].ID == id {
			l.items[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (l *Log) MarkAllRead() {
	for i := range l.items {
		l.items[i].Read = true
	}
}

func (l *Log) Clear() { l.items = nil }

// FetchOrSeed loads three sample notifications when the log is empty.
func (l *Log) FetchOrSeed() bool {
	if len(l.items) > 0 {
		return false
	}
	now := l.now().UTC()
	l.items = []domain.Notification{
		{
			ID:        "1",
			Type:      domain.NotificationDeadline,
			Title:     "Upcoming Deadline",
			Message:   "Your 'Emergency Fund' pact is due in 3 days.",
			Timestamp: now.Add(-2 * time.Hour).Format(time.RFC3339),
		},
		{
			ID:        "2",
			Type:      domain.NotificationAchievement,
			Title:     "Achievement Unlocked!",
			Message:   "You've completed your first pact. Keep up the good work!",
			Timestamp: now.Add(-24 * time.Hour).Format(time.RFC3339),
			Read:      true,
		},
		{
			ID:        "3",
			Type:      domain.NotificationWarning,
			Title:     "Pact at Risk",
			Message:   "Your 'New Laptop' pact is falling behind schedule.",
			Timestamp: now.Add(-30 * time.Minute).Format(time.RFC3339),
		},
	}
	return true
}

func (l *Log) UnreadCount() int {
	n := 0
	for _, it := range l.items {
		if !it.Read {
			n++
		}
	}
	return n
}

func (l *Log) Len() int { return len(l.items) }

// Items returns a copy, newest first.
func (l *Log) Items() []domain.Notification {
	return append([]domain.Notification(nil), l.items...)
}
