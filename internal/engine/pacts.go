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
	"pulsepact/internal/stats"
)

const (
	insufficientTitle   = "Insufficient funds"
	insufficientMessage = "You don't have enough funds to stake this amount."
)

func ada(amount decimal.Decimal) string {
	return currency.FormatIn(domain.CurrencyADA, amount, decimal.NewFromInt(1))
}

// rejectFunds records the insufficient-funds warning and returns an error
// that still commits it.
func (e Engine) rejectFunds(ctx context.Context, tx *sql.Tx, st *state, pactID string, amount decimal.Decimal) error {
	if _, err := st.notes.Add(domain.NotificationWarning, insufficientTitle, insufficientMessage); err != nil {
		return err
	}
	if err := e.appendEvent(ctx, tx, events.WalletRejected, "pact", pactID, events.EventPayload{
		"amount":  amount.String(),
		"balance": st.wallet.Balance().String(),
	}); err != nil {
		return err
	}
	e.log().Warn("insufficient funds", "pact_id", pactID, "amount", amount.String(), "balance", st.wallet.Balance().String())
	return commitAnyway(fmt.Errorf("%w: balance %s, need %s", ErrInsufficientFunds, st.wallet.Balance(), amount))
}

// CreatePact validates the draft, debits its initial stake and appends the
// pact with a success notification.
func (e Engine) CreatePact(ctx context.Context, d pact.Draft) (domain.Pact, error) {
	d = d.WithDefaults()
	if err := d.Validate(); err != nil {
		return domain.Pact{}, err
	}
	var created domain.Pact
	err := e.update(ctx, func(tx *sql.Tx, st *state) error {
		stake, err := st.pacts.InitialStake(d)
		if err != nil {
			return err
		}
		if !st.wallet.Covers(stake) {
			return e.rejectFunds(ctx, tx, st, "", stake)
		}
		p, err := st.pacts.Create(d)
		if err != nil {
			return fmt.Errorf("create pact: %w", err)
		}
		if err := st.wallet.Debit(p.StakedAmount); err != nil {
			return err
		}
		msg := fmt.Sprintf("Your %s pact \"%s\" has been created successfully.", p.Variant, p.Title)
		if _, err := st.notes.Add(domain.NotificationSuccess, "Pact Created", msg); err != nil {
			return err
		}
		if err := e.appendEvent(ctx, tx, events.PactCreated, "pact", p.ID, events.EventPayload{
			"type":          string(p.Variant),
			"target_amount": p.TargetAmount.String(),
			"initial_stake": p.StakedAmount.String(),
		}); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return domain.Pact{}, err
	}
	e.log().Info("pact created", "pact_id", created.ID, "type", created.Variant)
	return created, nil
}

type StakeResult struct {
	Pact    domain.Pact     `json:"pact"`
	Applied decimal.Decimal `json:"applied"`
	Balance decimal.Decimal `json:"balance"`
	Streak  domain.Streak   `json:"streak"`
}

// Stake moves amount from the wallet into the pact. Publicly visible cause
// pacts record the stake as a contribution from the local user.
func (e Engine) Stake(ctx context.Context, id string, amount decimal.Decimal) (StakeResult, error) {
	if !amount.IsPositive() {
		return StakeResult{}, pact.ErrInvalidAmount
	}
	var res StakeResult
	err := e.update(ctx, func(tx *sql.Tx, st *state) error {
		p, err := st.pacts.Get(id)
		if err != nil {
			return err
		}
		applied, err := st.pacts.Applicable(id, amount)
		if err != nil {
			return err
		}
		if !st.wallet.Covers(applied) {
			return e.rejectFunds(ctx, tx, st, id, applied)
		}
		if p.Variant == domain.VariantCause && p.Cause != nil && p.Cause.PubliclyVisible {
			applied, err = st.pacts.ContributeToCause(id, amount, pact.SelfAddress)
		} else {
			applied, err = st.pacts.Stake(id, amount)
		}
		if err != nil {
			return err
		}
		if err := st.wallet.Debit(applied); err != nil {
			return err
		}
		msg := fmt.Sprintf("You've staked %s in \"%s\"", ada(applied), p.Title)
		if _, err := st.notes.Add(domain.NotificationSuccess, "Stake successful", msg); err != nil {
			return err
		}
		st.streak.CreditForAction(e.now())
		if err := e.appendEvent(ctx, tx, events.PactStaked, "pact", id, events.EventPayload{
			"requested": amount.String(),
			"applied":   applied.String(),
		}); err != nil {
			return err
		}
		res.Pact, _ = st.pacts.Get(id)
		res.Applied = applied
		res.Balance = st.wallet.Balance()
		res.Streak = st.streak.State()
		return nil
	})
	if err != nil {
		return StakeResult{}, err
	}
	e.log().Info("pact staked", "pact_id", id, "applied", res.Applied.String())
	return res, nil
}

type CompleteResult struct {
	Pact    domain.Pact     `json:"pact"`
	Reward  decimal.Decimal `json:"reward"`
	Balance decimal.Decimal `json:"balance"`
	Streak  domain.Streak   `json:"streak"`
}

// Complete marks the pact completed and credits the completion reward. The
// reward is paid once; completing an already completed pact pays nothing.
func (e Engine) Complete(ctx context.Context, id string) (CompleteResult, error) {
	var res CompleteResult
	err := e.update(ctx, func(tx *sql.Tx, st *state) error {
		before, err := st.pacts.Get(id)
		if err != nil {
			return err
		}
		if err := st.pacts.Complete(id); err != nil {
			return err
		}
		reward := decimal.Zero
		if !before.Completed() {
			reward = before.TargetAmount.Mul(e.Config.CompletionRate())
		}
		if err := st.wallet.Credit(reward); err != nil {
			return err
		}
		msg := fmt.Sprintf("Congratulations! You've completed \"%s\" and earned %s in rewards!", before.Title, ada(reward))
		if _, err := st.notes.Add(domain.NotificationAchievement, "Pact Completed! 🎉", msg); err != nil {
			return err
		}
		st.streak.CreditForAction(e.now())
		if err := e.appendEvent(ctx, tx, events.PactCompleted, "pact", id, events.EventPayload{
			"reward":      reward.String(),
			"prev_status": string(before.Status),
		}); err != nil {
			return err
		}
		res.Pact, _ = st.pacts.Get(id)
		res.Reward = reward
		res.Balance = st.wallet.Balance()
		res.Streak = st.streak.State()
		return nil
	})
	if err != nil {
		return CompleteResult{}, err
	}
	e.log().Info("pact completed", "pact_id", id, "reward", res.Reward.String())
	return res, nil
}

func (e Engine) Fail(ctx context.Context, id string) (domain.Pact, error) {
	var out domain.Pact
	err := e.update(ctx, func(tx *sql.Tx, st *state) error {
		before, err := st.pacts.Get(id)
		if err != nil {
			return err
		}
		if err := st.pacts.Fail(id); err != nil {
			return err
		}
		msg := fmt.Sprintf("Your pact \"%s\" has been marked as failed.", before.Title)
		if _, err := st.notes.Add(domain.NotificationWarning, "Pact Failed", msg); err != nil {
			return err
		}
		if err := e.appendEvent(ctx, tx, events.PactFailed, "pact", id, events.EventPayload{"prev_status": string(before.Status)}); err != nil {
			return err
		}
		out, _ = st.pacts.Get(id)
		return nil
	})
	if err != nil {
		return domain.Pact{}, err
	}
	e.log().Info("pact failed", "pact_id", id)
	return out, nil
}

// ResetPacts restores the seed collection. Wallet, streak and notifications
// are left alone.
func (e Engine) ResetPacts(ctx context.Context) ([]domain.Pact, error) {
	var out []domain.Pact
	err := e.update(ctx, func(tx *sql.Tx, st *state) error {
		st.pacts.Reset()
		out = st.pacts.Pacts()
		return e.appendEvent(ctx, tx, events.PactsReset, "pact", "", events.EventPayload{"count": len(out)})
	})
	if err != nil {
		return nil, err
	}
	e.log().Info("pacts reset", "count", len(out))
	return out, nil
}

func (e Engine) ListPacts(ctx context.Context, q stats.Query) ([]domain.Pact, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	st, err := e.view(ctx)
	if err != nil {
		return nil, err
	}
	return q.Apply(st.pacts.Pacts()), nil
}

type PactDetail struct {
	Pact     domain.Pact    `json:"pact"`
	TimeLeft stats.TimeLeft `json:"time_left"`
}

func (e Engine) GetPact(ctx context.Context, id string) (PactDetail, error) {
	st, err := e.view(ctx)
	if err != nil {
		return PactDetail{}, err
	}
	p, err := st.pacts.Get(id)
	if err != nil {
		return PactDetail{}, err
	}
	left, err := stats.Countdown(p.Deadline, e.now())
	if err != nil {
		return PactDetail{}, fmt.Errorf("pact %s deadline: %w", id, err)
	}
	return PactDetail{Pact: p, TimeLeft: left}, nil
}

type Report struct {
	Summary      stats.Summary       `json:"summary"`
	Achievements []stats.Achievement `json:"achievements"`
}

func (e Engine) Stats(ctx context.Context) (Report, error) {
	st, err := e.view(ctx)
	if err != nil {
		return Report{}, err
	}
	pacts := st.pacts.Pacts()
	return Report{Summary: stats.Summarize(pacts), Achievements: stats.Achievements(pacts)}, nil
}
