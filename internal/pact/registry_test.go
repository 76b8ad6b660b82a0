package pact_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pulsepact/internal/domain"
	"pulsepact/internal/pact"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newRegistry(t *testing.T) *pact.Registry {
	t.Helper()
	r := pact.NewRegistry(nil)
	n := 0
	r.NewID = func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	}
	r.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	if !r.FetchOrSeed() {
		t.Fatalf("expected seed on empty registry")
	}
	return r
}

func soloDraft() pact.Draft {
	return pact.Draft{
		Title:        "Bike fund",
		Description:  "Save for a commuter bike",
		Variant:      domain.VariantSolo,
		TargetAmount: dec(800),
		InitialStake: dec(100),
		Deadline:     "2025-09-01",
	}.WithDefaults()
}

func TestFetchOrSeedOnlyWhenEmpty(t *testing.T) {
	r := newRegistry(t)
	if r.Len() != 9 {
		t.Fatalf("expected 9 seeded pacts, got %d", r.Len())
	}
	if _, err := r.Create(soloDraft()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.FetchOrSeed() {
		t.Fatalf("seed must not run on a non-empty registry")
	}
	if r.Len() != 10 {
		t.Fatalf("expected 10 pacts, got %d", r.Len())
	}
}

func TestCreateAppendsActivePact(t *testing.T) {
	r := newRegistry(t)
	p, err := r.Create(soloDraft())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID != "new-1" || p.Status != domain.StatusActive {
		t.Fatalf("unexpected pact %+v", p)
	}
	if p.CreatedAt != "2025-03-01T12:00:00Z" {
		t.Fatalf("created_at %q", p.CreatedAt)
	}
	if p.Solo == nil || p.Solo.Category != pact.DefaultCategory {
		t.Fatalf("expected default category, got %+v", p.Solo)
	}
	all := r.Pacts()
	if all[len(all)-1].ID != p.ID {
		t.Fatalf("new pact must be appended last")
	}
}

func TestCreateRequiresTerms(t *testing.T) {
	r := newRegistry(t)
	d := pact.Draft{
		Title:        "Shared rent",
		Description:  "Pay the shared rent deposit",
		Variant:      domain.VariantDuo,
		TargetAmount: dec(1000),
		Deadline:     "2025-09-01",
	}
	if _, err := r.Create(d); !errors.Is(err, pact.ErrIncompleteDraft) {
		t.Fatalf("expected ErrIncompleteDraft, got %v", err)
	}
	if r.Len() != 9 {
		t.Fatalf("failed create must not append")
	}
}

func TestStakeAccumulates(t *testing.T) {
	r := newRegistry(t)
	before, _ := r.Get("1")
	for _, a := range []int64{100, 250, 50} {
		if _, err := r.Stake("1", dec(a)); err != nil {
			t.Fatalf("stake: %v", err)
		}
	}
	after, _ := r.Get("1")
	if !after.StakedAmount.Equal(before.StakedAmount.Add(dec(400))) {
		t.Fatalf("expected %s, got %s", before.StakedAmount.Add(dec(400)), after.StakedAmount)
	}
}

func TestStakeRejectsNonPositive(t *testing.T) {
	r := newRegistry(t)
	for _, a := range []int64{0, -5} {
		if _, err := r.Stake("1", dec(a)); !errors.Is(err, pact.ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", a, err)
		}
	}
}

func TestUnknownIDIsNotFound(t *testing.T) {
	r := newRegistry(t)
	snapshot := r.Pacts()
	if _, err := r.Stake("nope", dec(10)); !errors.Is(err, pact.ErrNotFound) {
		t.Fatalf("stake: %v", err)
	}
	if err := r.Complete("nope"); !errors.Is(err, pact.ErrNotFound) {
		t.Fatalf("complete: %v", err)
	}
	if err := r.Fail("nope"); !errors.Is(err, pact.ErrNotFound) {
		t.Fatalf("fail: %v", err)
	}
	if _, err := r.ContributeToCause("nope", dec(10), "someone"); !errors.Is(err, pact.ErrNotFound) {
		t.Fatalf("contribute: %v", err)
	}
	after := r.Pacts()
	for i := range snapshot {
		if !snapshot[i].StakedAmount.Equal(after[i].StakedAmount) || snapshot[i].Status != after[i].Status {
			t.Fatalf("collection changed on unknown id")
		}
	}
}

func TestCompleteAndFailLastWins(t *testing.T) {
	r := newRegistry(t)
	if err := r.Complete("2"); err != nil {
		t.Fatal(err)
	}
	if err := r.Fail("2"); err != nil {
		t.Fatal(err)
	}
	p, _ := r.Get("2")
	if p.Status != domain.StatusFailed || p.Completed() {
		t.Fatalf("expected failed only, got %s", p.Status)
	}
	if err := r.Complete("2"); err != nil {
		t.Fatal(err)
	}
	p, _ = r.Get("2")
	if !p.Completed() || p.Failed() || p.Active() {
		t.Fatalf("expected completed only, got %s", p.Status)
	}
}

func TestEnforceTargetOnComplete(t *testing.T) {
	r := newRegistry(t)
	r.Policy.EnforceTargetOnComplete = true
	if err := r.Complete("1"); !errors.Is(err, pact.ErrTargetNotReached) {
		t.Fatalf("expected ErrTargetNotReached, got %v", err)
	}
	if _, err := r.Stake("1", dec(2500)); err != nil {
		t.Fatal(err)
	}
	if err := r.Complete("1"); err != nil {
		t.Fatalf("complete at target: %v", err)
	}
}

func TestOverstakePolicies(t *testing.T) {
	// pact 2: target 2000, staked 1200
	r := newRegistry(t)
	applied, err := r.Stake("2", dec(1000))
	if err != nil || !applied.Equal(dec(1000)) {
		t.Fatalf("allow: applied %s err %v", applied, err)
	}
	p, _ := r.Get("2")
	if !p.Progress().Equal(dec(110)) || !p.DisplayProgress().Equal(dec(100)) {
		t.Fatalf("progress %s display %s", p.Progress(), p.DisplayProgress())
	}

	r = newRegistry(t)
	r.Policy.Overstake = pact.OverstakeClamp
	applied, err = r.Stake("2", dec(1000))
	if err != nil || !applied.Equal(dec(800)) {
		t.Fatalf("clamp: applied %s err %v", applied, err)
	}
	if _, err := r.Stake("2", dec(1)); !errors.Is(err, pact.ErrOverstake) {
		t.Fatalf("clamp at target: %v", err)
	}

	r = newRegistry(t)
	r.Policy.Overstake = pact.OverstakeReject
	if _, err := r.Stake("2", dec(801)); !errors.Is(err, pact.ErrOverstake) {
		t.Fatalf("reject: %v", err)
	}
	if _, err := r.Stake("2", dec(800)); err != nil {
		t.Fatalf("reject exact fill: %v", err)
	}
}

func TestCreateInitialStakeUnderPolicy(t *testing.T) {
	d := soloDraft()
	d.InitialStake = dec(1200)

	r := newRegistry(t)
	r.Policy.Overstake = pact.OverstakeReject
	if _, err := r.Create(d); !errors.Is(err, pact.ErrOverstake) {
		t.Fatalf("expected ErrOverstake, got %v", err)
	}
	if r.Len() != 9 {
		t.Fatalf("rejected create appended a pact")
	}

	r.Policy.Overstake = pact.OverstakeClamp
	p, err := r.Create(d)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !p.StakedAmount.Equal(dec(800)) {
		t.Fatalf("staked %s, want 800", p.StakedAmount)
	}
}

func TestApplicableLeavesPactUntouched(t *testing.T) {
	r := newRegistry(t)
	r.Policy.Overstake = pact.OverstakeClamp
	got, err := r.Applicable("2", dec(5000))
	if err != nil || !got.Equal(dec(800)) {
		t.Fatalf("applicable %s, %v", got, err)
	}
	if p, _ := r.Get("2"); !p.StakedAmount.Equal(dec(1200)) {
		t.Fatalf("staked changed to %s", p.StakedAmount)
	}
	if _, err := r.Applicable("missing", dec(1)); !errors.Is(err, pact.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestContributeToCauseMergesByAddress(t *testing.T) {
	r := newRegistry(t)
	if _, err := r.ContributeToCause("5", dec(100), pact.SelfAddress); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ContributeToCause("5", dec(40), "addr1qx...new1"); err != nil {
		t.Fatal(err)
	}
	p, _ := r.Get("5")
	if !p.StakedAmount.Equal(dec(890)) {
		t.Fatalf("staked %s", p.StakedAmount)
	}
	if len(p.Contributors) != 3 {
		t.Fatalf("expected 3 contributors, got %d", len(p.Contributors))
	}
	if !p.Contributors[0].Amount.Equal(dec(600)) {
		t.Fatalf("self contribution %s", p.Contributors[0].Amount)
	}
	if p.Contributors[2].Address != "addr1qx...new1" || !p.Contributors[2].Amount.Equal(dec(40)) {
		t.Fatalf("new contributor %+v", p.Contributors[2])
	}
}

func TestResetRestoresSeed(t *testing.T) {
	r := newRegistry(t)
	if _, err := r.Create(soloDraft()); err != nil {
		t.Fatal(err)
	}
	if err := r.Fail("1"); err != nil {
		t.Fatal(err)
	}
	r.Reset()
	if r.Len() != 9 {
		t.Fatalf("expected 9 pacts after reset, got %d", r.Len())
	}
	p, _ := r.Get("1")
	if !p.Active() {
		t.Fatalf("pact 1 should be active after reset")
	}
}

func TestPactsReturnsCopies(t *testing.T) {
	r := newRegistry(t)
	all := r.Pacts()
	all[4].Contributors[0].Amount = dec(1)
	all[0].Title = "changed"
	p, _ := r.Get("5")
	if !p.Contributors[0].Amount.Equal(dec(500)) {
		t.Fatalf("registry state leaked through Pacts")
	}
}

func TestParseOverstakePolicy(t *testing.T) {
	cases := map[string]pact.OverstakePolicy{"": pact.OverstakeAllow, "Clamp": pact.OverstakeClamp, " reject ": pact.OverstakeReject}
	for in, want := range cases {
		got, err := pact.ParseOverstakePolicy(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %q err %v", in, got, err)
		}
	}
	if _, err := pact.ParseOverstakePolicy("cap"); !errors.Is(err, pact.ErrUnknownOverstake) {
		t.Fatalf("expected ErrUnknownOverstake, got %v", err)
	}
}
