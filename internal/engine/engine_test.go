package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pulsepact/internal/config"
	"pulsepact/internal/db"
	"pulsepact/internal/domain"
	"pulsepact/internal/engine"
	"pulsepact/internal/events"
	"pulsepact/internal/migrate"
	"pulsepact/internal/pact"
	"pulsepact/internal/repo"
	"pulsepact/internal/stats"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

var day0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return day0 }
	n := 0
	eng.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	ctx := context.Background()
	if _, err := eng.Visit(ctx); err != nil {
		t.Fatalf("visit: %v", err)
	}
	return &testEnv{Engine: eng, Ctx: ctx}
}

func (env *testEnv) at(ts time.Time) {
	env.Engine.Now = func() time.Time { return ts }
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func mustPact(t *testing.T, env *testEnv, id string) domain.Pact {
	t.Helper()
	d, err := env.Engine.GetPact(env.Ctx, id)
	if err != nil {
		t.Fatalf("get pact %s: %v", id, err)
	}
	return d.Pact
}

func mustState(t *testing.T, env *testEnv) engine.Snapshot {
	t.Helper()
	s, err := env.Engine.State(env.Ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	return s
}

func TestVisitSeedsOnce(t *testing.T) {
	env := newTestEnv(t)
	s := mustState(t, env)
	if len(s.Pacts) != 9 || len(s.Notifications) != 3 {
		t.Fatalf("seeded %d pacts, %d notifications", len(s.Pacts), len(s.Notifications))
	}
	if !s.Wallet.Balance.Equal(dec(10000)) {
		t.Fatalf("initial balance %s", s.Wallet.Balance)
	}
	if s.Streak.Count != 0 || s.Streak.LastCheckIn != "2025-03-01" {
		t.Fatalf("streak %+v", s.Streak)
	}
	if s.Unread != 2 {
		t.Fatalf("unread %d", s.Unread)
	}
	if _, err := env.Engine.Stake(env.Ctx, "1", dec(10)); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Visit(env.Ctx); err != nil {
		t.Fatal(err)
	}
	if got := mustState(t, env); len(got.Pacts) != 9 || len(got.Notifications) != 4 {
		t.Fatalf("second visit reseeded: %d pacts, %d notifications", len(got.Pacts), len(got.Notifications))
	}
}

func TestStakeDebitsWalletAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.Engine.Stake(env.Ctx, "1", dec(500))
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	if !res.Applied.Equal(dec(500)) || !res.Balance.Equal(dec(9500)) || !res.Pact.StakedAmount.Equal(dec(3000)) {
		t.Fatalf("unexpected result %+v", res)
	}
	s := mustState(t, env)
	top := s.Notifications[0]
	if top.Type != domain.NotificationSuccess || top.Title != "Stake successful" || top.Message != `You've staked ADA 500 in "Emergency Fund"` {
		t.Fatalf("notification %+v", top)
	}
	// the visit already recorded today
	if s.Streak.Count != 0 {
		t.Fatalf("streak %+v", s.Streak)
	}
	env.at(day0.Add(24 * time.Hour))
	res, err = env.Engine.Stake(env.Ctx, "1", dec(100))
	if err != nil {
		t.Fatal(err)
	}
	if res.Streak.Count != 1 || res.Streak.LastCheckIn != "2025-03-02" {
		t.Fatalf("streak after next-day stake %+v", res.Streak)
	}
}

func TestStakeInsufficientFundsCommitsWarning(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Stake(env.Ctx, "1", dec(20000))
	if !errors.Is(err, engine.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	s := mustState(t, env)
	if !s.Wallet.Balance.Equal(dec(10000)) {
		t.Fatalf("balance changed: %s", s.Wallet.Balance)
	}
	if !mustPact(t, env, "1").StakedAmount.Equal(dec(2500)) {
		t.Fatalf("pact changed on rejected stake")
	}
	top := s.Notifications[0]
	if top.Type != domain.NotificationWarning || top.Title != "Insufficient funds" || top.Message != "You don't have enough funds to stake this amount." {
		t.Fatalf("warning not committed: %+v", top)
	}
}

func TestStakeUnknownPactRollsBack(t *testing.T) {
	env := newTestEnv(t)
	before, err := env.Engine.Repo.LatestEventID(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Stake(env.Ctx, "missing", dec(10)); !errors.Is(err, pact.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := env.Engine.Stake(env.Ctx, "1", dec(0)); !errors.Is(err, pact.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	after, _ := env.Engine.Repo.LatestEventID(env.Ctx)
	if after != before {
		t.Fatalf("events appended on failed stake")
	}
	if s := mustState(t, env); len(s.Notifications) != 3 {
		t.Fatalf("notification added on failed stake")
	}
}

func TestStakePublicCauseRecordsContribution(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.Stake(env.Ctx, "5", dec(100)); err != nil {
		t.Fatal(err)
	}
	p := mustPact(t, env, "5")
	if !p.StakedAmount.Equal(dec(850)) {
		t.Fatalf("staked %s", p.StakedAmount)
	}
	if p.Contributors[0].Address != pact.SelfAddress || !p.Contributors[0].Amount.Equal(dec(600)) {
		t.Fatalf("contributors %+v", p.Contributors)
	}
}

func TestOverstakeRejectPolicy(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Config.Policy.Overstake = "reject"
	if _, err := env.Engine.Stake(env.Ctx, "2", dec(801)); !errors.Is(err, pact.ErrOverstake) {
		t.Fatalf("expected ErrOverstake, got %v", err)
	}
	w, _ := env.Engine.Wallet(env.Ctx)
	if !w.Balance.Equal(dec(10000)) {
		t.Fatalf("rejected stake debited wallet")
	}
}

func TestOverstakeClampDebitsApplied(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Config.Policy.Overstake = "clamp"
	res, err := env.Engine.Stake(env.Ctx, "2", dec(1000))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Applied.Equal(dec(800)) || !res.Balance.Equal(dec(9200)) {
		t.Fatalf("clamp result %+v", res)
	}
}

func TestOverstakeClampChecksFundsAgainstApplied(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Config.Policy.Overstake = "clamp"
	res, err := env.Engine.Stake(env.Ctx, "2", dec(20000))
	if err != nil {
		t.Fatalf("clamped stake rejected: %v", err)
	}
	if !res.Applied.Equal(dec(800)) || !res.Balance.Equal(dec(9200)) {
		t.Fatalf("clamp result %+v", res)
	}
	if s := mustState(t, env); s.Notifications[0].Title == "Insufficient funds" {
		t.Fatalf("unexpected warning %+v", s.Notifications[0])
	}
}

func TestCreatePactInitialStakeFollowsOverstakePolicy(t *testing.T) {
	draft := pact.Draft{
		Title:        "Gadget fund",
		Description:  "Save for a new gadget",
		Variant:      domain.VariantSolo,
		TargetAmount: dec(1000),
		InitialStake: dec(5000),
		Deadline:     "2025-09-01",
	}

	env := newTestEnv(t)
	env.Engine.Config.Policy.Overstake = "reject"
	if _, err := env.Engine.CreatePact(env.Ctx, draft); !errors.Is(err, pact.ErrOverstake) {
		t.Fatalf("expected ErrOverstake, got %v", err)
	}
	s := mustState(t, env)
	if len(s.Pacts) != 9 || !s.Wallet.Balance.Equal(dec(10000)) {
		t.Fatalf("rejected create left pacts %d, balance %s", len(s.Pacts), s.Wallet.Balance)
	}

	env = newTestEnv(t)
	env.Engine.Config.Policy.Overstake = "clamp"
	p, err := env.Engine.CreatePact(env.Ctx, draft)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !p.StakedAmount.Equal(dec(1000)) {
		t.Fatalf("staked %s", p.StakedAmount)
	}
	if s := mustState(t, env); !s.Wallet.Balance.Equal(dec(9000)) {
		t.Fatalf("balance %s", s.Wallet.Balance)
	}
}

func TestCompleteCreditsRewardOnce(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.Engine.Complete(env.Ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Reward.Equal(dec(500)) || !res.Balance.Equal(dec(10500)) || !res.Pact.Completed() {
		t.Fatalf("complete result %+v", res)
	}
	s := mustState(t, env)
	if s.Notifications[0].Title != "Pact Completed! 🎉" {
		t.Fatalf("notification %+v", s.Notifications[0])
	}
	res, err = env.Engine.Complete(env.Ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Reward.IsZero() || !res.Balance.Equal(dec(10500)) {
		t.Fatalf("second completion paid again: %+v", res)
	}
}

func TestFailThenCompleteLastWins(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.Fail(env.Ctx, "2")
	if err != nil || !p.Failed() {
		t.Fatalf("fail: %v %+v", err, p)
	}
	if s := mustState(t, env); s.Notifications[0].Message != `Your pact "New Laptop" has been marked as failed.` {
		t.Fatalf("notification %+v", s.Notifications[0])
	}
	res, err := env.Engine.Complete(env.Ctx, "2")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Pact.Completed() || res.Pact.Failed() {
		t.Fatalf("status %s", res.Pact.Status)
	}
}

func TestEnforceTargetOnComplete(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Config.Policy.EnforceTargetOnComplete = true
	if _, err := env.Engine.Complete(env.Ctx, "1"); !errors.Is(err, pact.ErrTargetNotReached) {
		t.Fatalf("expected ErrTargetNotReached, got %v", err)
	}
}

func TestCreatePact(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.CreatePact(env.Ctx, pact.Draft{
		Title:        "Bike fund",
		Description:  "Save for a commuter bike",
		Variant:      domain.VariantSolo,
		TargetAmount: dec(800),
		InitialStake: dec(300),
		Deadline:     "2025-09-01",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Solo == nil || p.Solo.Category != "General" || !p.Active() {
		t.Fatalf("pact %+v", p)
	}
	s := mustState(t, env)
	if len(s.Pacts) != 10 || s.Pacts[9].ID != p.ID {
		t.Fatalf("pact not appended")
	}
	if !s.Wallet.Balance.Equal(dec(9700)) {
		t.Fatalf("balance %s", s.Wallet.Balance)
	}
	if s.Notifications[0].Message != `Your solo pact "Bike fund" has been created successfully.` {
		t.Fatalf("notification %+v", s.Notifications[0])
	}
}

func TestCreatePactRejections(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreatePact(env.Ctx, pact.Draft{Title: "x", Variant: domain.VariantSolo})
	var ve *pact.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = env.Engine.CreatePact(env.Ctx, pact.Draft{
		Title: "Big house", Description: "Deposit for a bigger house", Variant: domain.VariantSolo,
		TargetAmount: dec(50000), InitialStake: dec(20000), Deadline: "2026-01-01",
	})
	if !errors.Is(err, engine.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	s := mustState(t, env)
	if len(s.Pacts) != 9 || s.Notifications[0].Title != "Insufficient funds" {
		t.Fatalf("pacts %d, top notification %+v", len(s.Pacts), s.Notifications[0])
	}
}

func TestEndToEndProgressAndReputation(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.ResetPacts(env.Ctx); err != nil {
		t.Fatal(err)
	}
	p, err := env.Engine.CreatePact(env.Ctx, pact.Draft{
		Title: "Camera", Description: "Save for a mirrorless camera", Variant: domain.VariantSolo,
		TargetAmount: dec(1000), Deadline: "2025-12-01",
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := env.Engine.Stake(env.Ctx, p.ID, dec(200))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Pact.Progress().Equal(dec(20)) {
		t.Fatalf("progress %s", res.Pact.Progress())
	}
	res, err = env.Engine.Stake(env.Ctx, p.ID, dec(800))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Pact.Progress().Equal(dec(100)) || !res.Pact.Active() {
		t.Fatalf("full pact %+v", res.Pact)
	}
	before, _ := env.Engine.Stats(env.Ctx)
	if _, err := env.Engine.Complete(env.Ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	after, _ := env.Engine.Stats(env.Ctx)
	if before.Summary.Reputation != 75 || after.Summary.Reputation != 80 {
		t.Fatalf("reputation %d -> %d", before.Summary.Reputation, after.Summary.Reputation)
	}
}

func TestResetPactsKeepsWallet(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.Stake(env.Ctx, "1", dec(1000)); err != nil {
		t.Fatal(err)
	}
	pacts, err := env.Engine.ResetPacts(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pacts) != 9 || !pacts[0].StakedAmount.Equal(dec(2500)) {
		t.Fatalf("reset pacts %+v", pacts[0])
	}
	w, _ := env.Engine.Wallet(env.Ctx)
	if !w.Balance.Equal(dec(9000)) {
		t.Fatalf("balance %s", w.Balance)
	}
}

func TestAddFundsDefaultsToConfiguredAmount(t *testing.T) {
	env := newTestEnv(t)
	w, err := env.Engine.AddFunds(env.Ctx, decimal.Zero)
	if err != nil || !w.Balance.Equal(dec(11000)) {
		t.Fatalf("add funds: %v %s", err, w.Balance)
	}
	if _, err := env.Engine.AddFunds(env.Ctx, dec(-5)); !errors.Is(err, pact.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestNotificationFlows(t *testing.T) {
	env := newTestEnv(t)
	if err := env.Engine.MarkNotificationRead(env.Ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if _, unread, _ := env.Engine.Notifications(env.Ctx); unread != 1 {
		t.Fatalf("unread %d", unread)
	}
	if err := env.Engine.MarkNotificationRead(env.Ctx, "nope"); err == nil {
		t.Fatalf("expected not found")
	}
	if err := env.Engine.MarkAllNotificationsRead(env.Ctx); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.ClearNotifications(env.Ctx); err != nil {
		t.Fatal(err)
	}
	if items, unread, _ := env.Engine.Notifications(env.Ctx); len(items) != 0 || unread != 0 {
		t.Fatalf("after clear: %d items, %d unread", len(items), unread)
	}
}

func TestStreakFlows(t *testing.T) {
	env := newTestEnv(t)
	env.at(day0.Add(24 * time.Hour))
	s, err := env.Engine.CheckStreak(env.Ctx)
	if err != nil || s.Count != 1 {
		t.Fatalf("next day check: %v %+v", err, s)
	}
	env.at(day0.Add(4 * 24 * time.Hour))
	s, _ = env.Engine.CheckStreak(env.Ctx)
	if s.Count != 1 || s.LastCheckIn != "2025-03-05" {
		t.Fatalf("after gap %+v", s)
	}
	if err := env.Engine.ResetStreak(env.Ctx); err != nil {
		t.Fatal(err)
	}
	if s, _ := env.Engine.Streak(env.Ctx); s != (domain.Streak{}) {
		t.Fatalf("reset %+v", s)
	}
}

func TestCurrencyFlows(t *testing.T) {
	env := newTestEnv(t)
	c, err := env.Engine.ToggleCurrency(env.Ctx)
	if err != nil || c.Unit != domain.CurrencyNGN {
		t.Fatalf("toggle: %v %+v", err, c)
	}
	if _, err := env.Engine.SetExchangeRate(env.Ctx, decimal.Zero); err == nil {
		t.Fatalf("expected rate error")
	}
	if _, err := env.Engine.SetExchangeRate(env.Ctx, dec(1600)); err != nil {
		t.Fatal(err)
	}
	format, err := env.Engine.Formatter(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := format(dec(10)); got != "₦16,000" {
		t.Fatalf("format %q", got)
	}
}

func TestRemindDeadlinesOncePerDay(t *testing.T) {
	env := newTestEnv(t)
	env.at(time.Date(2025, 6, 28, 9, 0, 0, 0, time.UTC))
	sent, err := env.Engine.RemindDeadlines(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sent) != 1 || sent[0].PactID != "5" || sent[0].DaysLeft != 2 {
		t.Fatalf("sent %+v", sent)
	}
	s := mustState(t, env)
	if s.Notifications[0].Type != domain.NotificationDeadline || s.Notifications[0].Message != "Your 'Charity Marathon' pact is due in 2 days." {
		t.Fatalf("notification %+v", s.Notifications[0])
	}

	env.at(time.Date(2025, 6, 28, 18, 0, 0, 0, time.UTC))
	if sent, _ := env.Engine.RemindDeadlines(env.Ctx); len(sent) != 0 {
		t.Fatalf("reminded twice on one day: %+v", sent)
	}
	env.at(time.Date(2025, 6, 29, 9, 0, 0, 0, time.UTC))
	if sent, _ := env.Engine.RemindDeadlines(env.Ctx); len(sent) != 1 || sent[0].DaysLeft != 1 {
		t.Fatalf("next day reminder %+v", sent)
	}
}

func TestEventsLog(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.Stake(env.Ctx, "1", dec(5)); err != nil {
		t.Fatal(err)
	}
	evts, err := env.Engine.ListEvents(env.Ctx, 10, 0, repo.EventFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) == 0 || evts[0].Type != events.PactStaked || evts[0].EntityID != "1" {
		t.Fatalf("events %+v", evts)
	}
}

func TestListPactsQuery(t *testing.T) {
	env := newTestEnv(t)
	got, err := env.Engine.ListPacts(env.Ctx, stats.Query{Status: "active", Sort: stats.SortAmountLow})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 || got[0].ID != "5" {
		t.Fatalf("active pacts %+v", got)
	}
	if _, err := env.Engine.ListPacts(env.Ctx, stats.Query{Sort: "sideways"}); !errors.Is(err, stats.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}
