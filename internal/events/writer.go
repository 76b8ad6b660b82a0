package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pulsepact/internal/repo"
)

// Event types appended by the engine.
const (
	PactCreated      = "pact.created"
	PactStaked       = "pact.staked"
	PactCompleted    = "pact.completed"
	PactFailed       = "pact.failed"
	PactsReset       = "pacts.reset"
	PactsSeeded      = "pacts.seeded"
	WalletCredited   = "wallet.credited"
	WalletRejected   = "wallet.insufficient_funds"
	NotifyRead       = "notification.read"
	NotifyReadAll    = "notification.read_all"
	NotifyCleared    = "notification.cleared"
	StreakChecked    = "streak.checked"
	StreakReset      = "streak.reset"
	CurrencyChanged  = "currency.changed"
	DeadlineReminded = "reminder.deadline"
)

type Writer struct {
	Now func() time.Time
}

type EventPayload map[string]any

// Append records an audit event inside q, normally the flow's transaction.
func (w Writer) Append(ctx context.Context, q repo.Querier, evtType, entityKind, entityID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = q.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,payload_json) VALUES (?,?,?,?,?)`,
		ts, evtType, entityKind, nullable(entityID), string(data))
	if err != nil {
		return fmt.Errorf("append %s event: %w", evtType, err)
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
