package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pulsepact/internal/config"
	"pulsepact/internal/currency"
	"pulsepact/internal/domain"
	"pulsepact/internal/events"
	"pulsepact/internal/logger"
	"pulsepact/internal/notify"
	"pulsepact/internal/pact"
	"pulsepact/internal/repo"
	"pulsepact/internal/streak"
	"pulsepact/internal/wallet"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// Engine runs every user-facing flow as one SQLite transaction over the
// persisted state snapshots.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
	NewID  func() string
	Log    *slog.Logger
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{},
		Config: cfg,
		Now:    time.Now,
		NewID:  uuid.NewString,
		Log:    logger.WithService("engine"),
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e Engine) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return logger.Get()
}

// state is the working set of a flow.
type state struct {
	pacts    *pact.Registry
	wallet   *wallet.Ledger
	notes    *notify.Log
	streak   *streak.Tracker
	currency *currency.Preference
}

func (e Engine) load(ctx context.Context, q repo.Querier) (*state, error) {
	var (
		pacts []domain.Pact
		notes []domain.Notification
		w     = domain.Wallet{Balance: e.Config.InitialBalance()}
		s     domain.Streak
		cur   = e.Config.DefaultCurrency()
	)
	loads := []struct {
		key string
		dst any
	}{
		{repo.KeyPacts, &pacts},
		{repo.KeyWallet, &w},
		{repo.KeyNotifications, &notes},
		{repo.KeyStreak, &s},
		{repo.KeyCurrency, &cur},
	}
	for _, l := range loads {
		if err := e.Repo.LoadSnapshot(ctx, q, l.key, l.dst); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}
	st := &state{
		pacts:    pact.NewRegistry(pacts),
		wallet:   wallet.NewLedger(w),
		notes:    notify.NewLog(notes),
		streak:   streak.NewTracker(s),
		currency: currency.NewPreference(cur),
	}
	st.pacts.Policy = e.Config.PactPolicy()
	st.pacts.Now, st.pacts.NewID = e.now, e.newID
	st.notes.Now, st.notes.NewID = e.now, e.newID
	return st, nil
}

func (e Engine) save(ctx context.Context, q repo.Querier, st *state) error {
	saves := []struct {
		key string
		v   any
	}{
		{repo.KeyPacts, st.pacts.Pacts()},
		{repo.KeyWallet, st.wallet.Snapshot()},
		{repo.KeyNotifications, st.notes.Items()},
		{repo.KeyStreak, st.streak.State()},
		{repo.KeyCurrency, st.currency.State()},
	}
	for _, s := range saves {
		if err := e.Repo.SaveSnapshot(ctx, q, s.key, s.v); err != nil {
			return err
		}
	}
	return nil
}

// committedError marks a flow error whose side effects (a warning
// notification) must still be committed.
type committedError struct{ err error }

func (c committedError) Error() string { return c.err.Error() }
func (c committedError) Unwrap() error { return c.err }

func commitAnyway(err error) error { return committedError{err: err} }

// update loads state inside a transaction, applies fn and commits the saved
// snapshots. Any error from fn rolls back unless wrapped by commitAnyway.
func (e Engine) update(ctx context.Context, fn func(tx *sql.Tx, st *state) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	st, err := e.load(ctx, tx)
	if err != nil {
		return err
	}
	ferr := fn(tx, st)
	var keep committedError
	if ferr != nil && !errors.As(ferr, &keep) {
		return ferr
	}
	if err := e.save(ctx, tx, st); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if ferr != nil {
		return keep.err
	}
	return nil
}

// view loads the current state without a transaction.
func (e Engine) view(ctx context.Context) (*state, error) {
	return e.load(ctx, e.DB)
}

func (e Engine) appendEvent(ctx context.Context, tx *sql.Tx, evtType, kind, id string, payload events.EventPayload) error {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	return w.Append(ctx, tx, evtType, kind, id, payload)
}

