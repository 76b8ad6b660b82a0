package pact

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pulsepact/internal/domain"
)

var (
	ErrNotFound         = errors.New("pact not found")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrIncompleteDraft  = errors.New("pact draft incomplete")
	ErrOverstake        = errors.New("stake exceeds pact target")
	ErrTargetNotReached = errors.New("pact target not reached")
	ErrUnknownOverstake = errors.New("unknown overstake policy")
)

// OverstakePolicy controls stakes that would push staked past target.
type OverstakePolicy string

const (
	OverstakeAllow  OverstakePolicy = "allow"
	OverstakeClamp  OverstakePolicy = "clamp"
	OverstakeReject OverstakePolicy = "reject"
)

func ParseOverstakePolicy(s string) (OverstakePolicy, error) {
	switch p := OverstakePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return OverstakeAllow, nil
	case OverstakeAllow, OverstakeClamp, OverstakeReject:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOverstake, s)
}

type Policy struct {
	Overstake OverstakePolicy
	// EnforceTargetOnComplete makes Complete refuse pacts below target.
	EnforceTargetOnComplete bool
}

// Registry owns the pact collection. Operations either apply fully or
// return an error without touching the collection.
type Registry struct {
	Policy Policy
	NewID  func() string
	Now    func() time.Time

	pacts []domain.Pact
}

// NewRegistry returns a registry over a copy of pacts.
func NewRegistry(pacts []domain.Pact) *Registry {
	r := &Registry{}
	r.pacts = cloneAll(pacts)
	return r
}

func (r *Registry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Registry) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}

// Pacts returns a copy of the collection in insertion order.
func (r *Registry) Pacts() []domain.Pact { return cloneAll(r.pacts) }

func (r *Registry) Len() int { return len(r.pacts) }

func (r *Registry) Get(id string) (domain.Pact, error) {
	i := r.index(id)
	if i < 0 {
		return domain.Pact{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return clonePact(r.pacts[i]), nil
}

// FetchOrSeed loads the seed set when the registry is empty and reports
// whether it did.
func (r *Registry) FetchOrSeed() bool {
	if len(r.pacts) > 0 {
		return false
	}
	r.pacts = Seed()
	return true
}

// Create appends a pact built from d. Only presence is checked here; run
// d.Validate first.
func (r *Registry) Create(d Draft) (domain.Pact, error) {
	if d.Title == "" || d.Description == "" || d.Deadline == "" || !d.Variant.Valid() || d.TargetAmount.IsZero() {
		return domain.Pact{}, ErrIncompleteDraft
	}
	stake, err := r.InitialStake(d)
	if err != nil {
		return domain.Pact{}, err
	}
	p := domain.Pact{
		ID:           r.newID(),
		Title:        d.Title,
		Description:  d.Description,
		Variant:      d.Variant,
		TargetAmount: d.TargetAmount,
		StakedAmount: stake,
		Deadline:     d.Deadline,
		Status:       domain.StatusActive,
		CreatedAt:    r.now().UTC().Format(time.RFC3339),
	}
	switch d.Variant {
	case domain.VariantSolo:
		terms := domain.SoloTerms{}
		if d.Solo != nil {
			terms = *d.Solo
		}
		p.Solo = &terms
	case domain.VariantDuo:
		if d.Duo == nil {
			return domain.Pact{}, fmt.Errorf("%w: duo terms missing", ErrIncompleteDraft)
		}
		terms := *d.Duo
		p.Duo = &terms
	case domain.VariantCause:
		if d.Cause == nil {
			return domain.Pact{}, fmt.Errorf("%w: cause terms missing", ErrIncompleteDraft)
		}
		terms := *d.Cause
		p.Cause = &terms
	case domain.VariantBorrow:
		if d.Borrow == nil {
			return domain.Pact{}, fmt.Errorf("%w: loan terms missing", ErrIncompleteDraft)
		}
		terms := *d.Borrow
		p.Borrow = &terms
	}
	if len(d.Contributors) > 0 {
		p.Contributors = append([]domain.Contributor(nil), d.Contributors...)
		for i := range p.Contributors {
			if p.Contributors[i].Address == SelfAddress && p.Contributors[i].Amount.GreaterThan(stake) {
				p.Contributors[i].Amount = stake
			}
		}
	}
	r.pacts = append(r.pacts, p)
	return clonePact(p), nil
}

// InitialStake returns the part of d's initial stake the overstake policy
// lets onto a new pact.
func (r *Registry) InitialStake(d Draft) (decimal.Decimal, error) {
	if d.InitialStake.IsZero() {
		return decimal.Zero, nil
	}
	return r.applicable(domain.Pact{TargetAmount: d.TargetAmount}, d.InitialStake)
}

// Stake adds amount to the pact's staked amount and returns the amount
// actually applied, which differs from amount only under OverstakeClamp.
func (r *Registry) Stake(id string, amount decimal.Decimal) (decimal.Decimal, error) {
	i := r.index(id)
	if i < 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	applied, err := r.applicable(r.pacts[i], amount)
	if err != nil {
		return decimal.Zero, err
	}
	r.pacts[i].StakedAmount = r.pacts[i].StakedAmount.Add(applied)
	return applied, nil
}

// ContributeToCause stakes amount on behalf of address. Repeat contributions
// from one address accumulate into its existing entry.
func (r *Registry) ContributeToCause(id string, amount decimal.Decimal, address string) (decimal.Decimal, error) {
	i := r.index(id)
	if i < 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	applied, err := r.applicable(r.pacts[i], amount)
	if err != nil {
		return decimal.Zero, err
	}
	p := &r.pacts[i]
	p.StakedAmount = p.StakedAmount.Add(applied)
	for j := range p.Contributors {
		if p.Contributors[j].Address == address {
			p.Contributors[j].Amount = p.Contributors[j].Amount.Add(applied)
			return applied, nil
		}
	}
	p.Contributors = append(p.Contributors, domain.Contributor{Address: address, Amount: applied})
	return applied, nil
}

// Applicable reports how much of amount a Stake on id would apply under the
// overstake policy, without changing the pact.
func (r *Registry) Applicable(id string, amount decimal.Decimal) (decimal.Decimal, error) {
	i := r.index(id)
	if i < 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.applicable(r.pacts[i], amount)
}

func (r *Registry) applicable(p domain.Pact, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	next := p.StakedAmount.Add(amount)
	switch r.Policy.Overstake {
	case OverstakeReject:
		if next.GreaterThan(p.TargetAmount) {
			return decimal.Zero, fmt.Errorf("%w: %s staked of %s", ErrOverstake, p.StakedAmount, p.TargetAmount)
		}
	case OverstakeClamp:
		room := p.TargetAmount.Sub(p.StakedAmount)
		if !room.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: target %s already met", ErrOverstake, p.TargetAmount)
		}
		return decimal.Min(amount, room), nil
	}
	return amount, nil
}

// Complete marks the pact completed. Staked >= target is only checked when
// the policy enforces it.
func (r *Registry) Complete(id string) error {
	i := r.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p := r.pacts[i]
	if r.Policy.EnforceTargetOnComplete && p.StakedAmount.LessThan(p.TargetAmount) {
		return fmt.Errorf("%w: %s of %s", ErrTargetNotReached, p.StakedAmount, p.TargetAmount)
	}
	r.pacts[i].Status = domain.StatusCompleted
	return nil
}

func (r *Registry) Fail(id string) error {
	i := r.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.pacts[i].Status = domain.StatusFailed
	return nil
}

// Reset replaces the whole collection with the seed set.
func (r *Registry) Reset() {
	r.pacts = Seed()
}

func (r *Registry) index(id string) int {
	for i := range r.pacts {
		if r.pacts[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(in []domain.Pact) []domain.Pact {
	if in == nil {
		return nil
	}
	out := make([]domain.Pact, len(in))
	for i, p := range in {
		out[i] = clonePact(p)
	}
	return out
}

func clonePact(p domain.Pact) domain.Pact {
	if p.Solo != nil {
		t := *p.Solo
		p.Solo = &t
	}
	if p.Duo != nil {
		t := *p.Duo
		p.Duo = &t
	}
	if p.Cause != nil {
		t := *p.Cause
		p.Cause = &t
	}
	if p.Borrow != nil {
		t := *p.Borrow
		p.Borrow = &t
	}
	if p.Contributors != nil {
		p.Contributors = append([]domain.Contributor(nil), p.Contributors...)
	}
	return p
}
