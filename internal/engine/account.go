package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"pulsepact/internal/currency"
	"pulsepact/internal/domain"
	"pulsepact/internal/events"
	"pulsepact/internal/pact"
)

// Snapshot is the whole persisted state as one document.
type Snapshot struct {
	Pacts         []domain.Pact             `json:"pacts"`
	Wallet        domain.Wallet             `json:"wallet"`
	Notifications []domain.Notification     `json:"notifications"`
	Unread        int                       `json:"unread"`
	Streak        domain.Streak             `json:"streak"`
	Currency      domain.CurrencyPreference `json:"currency"`
}

func snapshotOf(st *state) Snapshot {
	return Snapshot{
		Pacts:         st.pacts.Pacts(),
		Wallet:        st.wallet.Snapshot(),
		Notifications: st.notes.Items(),
		Unread:        st.notes.UnreadCount(),
		Streak:        st.streak.State(),
		Currency:      st.currency.State(),
	}
}

func (e Engine) State(ctx context.Context) (Snapshot, error) {
	st, err := e.view(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(st), nil
}

// Visit runs the app-open sequence: streak check plus seeding of empty pact
// and notification collections.
func (e Engine) Visit(ctx context.Context) (Snapshot, error) {
	var out Snapshot
	err := e.update(ctx, func(tx *sql.Tx, st *state) error {
		before := st.streak.State()
		if st.streak.CheckOnVisit(e.now()) {
			if err := e.appendEvent(ctx, tx, events.StreakChecked, "streak", "", events.EventPayload{
				"from": before.Count,
				"to":   st.streak.State().Count,
			}); err != nil {
				return err
			}
		}
		if st.pacts.FetchOrSeed() {
			if err := e.appendEvent(ctx, tx, events.PactsSeeded, "pact", "", events.EventPayload{"count": st.pacts.Len()}); err != nil {
				return err
			}
		}
		st.notes.FetchOrSeed()
		out = snapshotOf(st)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return out, nil
}

// AddFunds credits the wallet. A zero amount uses the configured top-up.
func (e Engine) AddFunds(ctx context.Context, amount decimal.Decimal) (domain.Wallet, error) {
	if amount.IsZero() {
		amount = e.Config.AddFundsAmount()
	}
	if !amount.IsPositive() {
		return domain.Wallet{}, fmt.Errorf("add funds: %w", pact.ErrInvalidAmount)
	}
	var out domain.Wallet
	err := e.update(ctx, func(tx *sql.Tx, st *state) error {
		if err := st.wallet.Credit(amount); err != nil {
			return err
		}
		out = st.wallet.Snapshot()
		return e.appendEvent(ctx, tx, events.WalletCredited, "wallet", "", events.EventPayload{
			"amount":  amount.String(),
			"balance": out.Balance.String(),
		})
	})
	if err != nil {
		return domain.Wallet{}, err
	}
	e.log().Info("funds added", "amount", amount.String())
	return out, nil
}

func (e Engine) Wallet(ctx context.Context) (domain.Wallet, error) {
	st, err := e.view(ctx)
	if err != nil {
		return domain.Wallet{}, err
	}
	return st.wallet.Snapshot(), nil
}

func (e Engine) Notifications(ctx context.Context) ([]domain.Notification, int, error) {
	st, err := e.view(ctx)
	if err != nil {
		return nil, 0, err
	}
	return st.notes.Items(), st.notes.UnreadCount(), nil
}

func (e Engine) MarkNotificationRead(ctx context.Context, id string) error {
	return e.update(ctx, func(tx *sql.Tx, st *state) error {
		if err := st.notes.MarkOneRead(id); err != nil {
			return err
		}
		return e.appendEvent(ctx, tx, events.NotifyRead, "notification", id, nil)
	})
}

func (e Engine) MarkAllNotificationsRead(ctx context.Context) error {
	return e.update(ctx, func(tx *sql.Tx, st *state) error {
		n := st.notes.UnreadCount()
		st.notes.MarkAllRead()
		return e.appendEvent(ctx, tx, events.NotifyReadAll, "notification", "", events.EventPayload{"count": n})
	})
}

func (e Engine) ClearNotifications(ctx context.Context) error {
	return e.update(ctx, func(tx *sql.Tx, st *state) error {
		n := st.notes.Len()
		st.notes.Clear()
		return e.appendEvent(ctx, tx, events.NotifyCleared, "notification", "", events.EventPayload{"count": n})
	})
}

func (e Engine) Streak(ctx context.Context) (domain.Streak, error) {
	st, err := e.view(ctx)
	if err != nil {
		return domain.Streak{}, err
	}
	return st.streak.State(), nil
}

// CheckStreak applies only the visit rule, without seeding.
func (e Engine) CheckStreak(ctx context.Context) (domain.Streak, error) {
	var out domain.Streak
	err := e.update(ctx, func(tx *sql.Tx, st *state) error {
		before := st.streak.State()
		changed := st.streak.CheckOnVisit(e.now())
		out = st.streak.State()
		if !changed {
			return nil
		}
		return e.appendEvent(ctx, tx, events.StreakChecked, "streak", "", events.EventPayload{"from": before.Count, "to": out.Count})
	})
	return out, err
}

func (e Engine) ResetStreak(ctx context.Context) error {
	return e.update(ctx, func(tx *sql.Tx, st *state) error {
		st.streak.Reset()
		return e.appendEvent(ctx, tx, events.StreakReset, "streak", "", nil)
	})
}

func (e Engine) Currency(ctx context.Context) (domain.CurrencyPreference, error) {
	st, err := e.view(ctx)
	if err != nil {
		return domain.CurrencyPreference{}, err
	}
	return st.currency.State(), nil
}

func (e Engine) ToggleCurrency(ctx context.Context) (domain.CurrencyPreference, error) {
	return e.changeCurrency(ctx, func(p *currency.Preference) error {
		p.Toggle()
		return nil
	})
}

func (e Engine) SetExchangeRate(ctx context.Context, rate decimal.Decimal) (domain.CurrencyPreference, error) {
	return e.changeCurrency(ctx, func(p *currency.Preference) error {
		return p.SetExchangeRate(rate)
	})
}

func (e Engine) changeCurrency(ctx context.Context, fn func(*currency.Preference) error) (domain.CurrencyPreference, error) {
	var out domain.CurrencyPreference
	err := e.update(ctx, func(tx *sql.Tx, st *state) error {
		if err := fn(st.currency); err != nil {
			return err
		}
		out = st.currency.State()
		return e.appendEvent(ctx, tx, events.CurrencyChanged, "currency", "", events.EventPayload{
			"currency":      string(out.Unit),
			"exchange_rate": out.ExchangeRate.String(),
		})
	})
	if err != nil {
		return domain.CurrencyPreference{}, err
	}
	return out, nil
}

// Formatter returns a formatter bound to the stored currency preference.
func (e Engine) Formatter(ctx context.Context) (func(decimal.Decimal) string, error) {
	st, err := e.view(ctx)
	if err != nil {
		return nil, err
	}
	return st.currency.Format, nil
}
