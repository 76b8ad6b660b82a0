package pact

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"pulsepact/internal/domain"
)

// SelfAddress is the contributor address recorded for the local user.
const SelfAddress = "Your Address"

// DefaultCategory is applied to solo pacts created without a category.
const DefaultCategory = "General"

const (
	minTitleLen       = 3
	minDescriptionLen = 10
	minAddressLen     = 10
)

var ErrInvalidDraft = errors.New("invalid pact draft")

// FieldError describes a single rejected draft field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string { return e.Field + ": " + e.Message }

// ValidationError collects every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidDraft, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDraft }

// Draft is the input for creating a pact. Exactly the term pointer matching
// Variant should be set.
type Draft struct {
	Title        string
	Description  string
	Variant      domain.Variant
	TargetAmount decimal.Decimal
	InitialStake decimal.Decimal
	Deadline     string

	Solo   *domain.SoloTerms
	Duo    *domain.DuoTerms
	Cause  *domain.CauseTerms
	Borrow *domain.BorrowTerms

	Contributors []domain.Contributor
}

// Validate applies the input-layer field rules. It returns a *ValidationError
// listing every failing field, or nil.
func (d Draft) Validate() error {
	var errs []FieldError
	add := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}
	if utf8.RuneCountInString(strings.TrimSpace(d.Title)) < minTitleLen {
		add("title", fmt.Sprintf("must be at least %d characters", minTitleLen))
	}
	if utf8.RuneCountInString(strings.TrimSpace(d.Description)) < minDescriptionLen {
		add("description", fmt.Sprintf("must be at least %d characters", minDescriptionLen))
	}
	if !d.Variant.Valid() {
		add("type", "must be one of solo, duo, cause, borrow")
	}
	if !d.TargetAmount.IsPositive() {
		add("target_amount", "must be positive")
	}
	if d.InitialStake.IsNegative() {
		add("initial_stake", "must be positive or zero")
	}
	if _, err := time.Parse(domain.DateLayout, d.Deadline); err != nil {
		add("deadline", "must be a date in YYYY-MM-DD form")
	}
	switch d.Variant {
	case domain.VariantDuo:
		if d.Duo == nil {
			add("duo", "partner terms are required")
			break
		}
		if utf8.RuneCountInString(d.Duo.PartnerAddress) < minAddressLen {
			add("partner_address", fmt.Sprintf("must be at least %d characters", minAddressLen))
		}
		if d.Duo.SplitRatio < 1 || d.Duo.SplitRatio > 99 {
			add("split_ratio", "must be between 1 and 99")
		}
	case domain.VariantCause:
		if d.Cause == nil {
			add("cause", "cause terms are required")
			break
		}
		if utf8.RuneCountInString(d.Cause.CauseAddress) < minAddressLen {
			add("cause_address", fmt.Sprintf("must be at least %d characters", minAddressLen))
		}
	case domain.VariantBorrow:
		if d.Borrow == nil {
			add("borrow", "loan terms are required")
			break
		}
		if utf8.RuneCountInString(d.Borrow.LenderAddress) < minAddressLen {
			add("lender_address", fmt.Sprintf("must be at least %d characters", minAddressLen))
		}
		if d.Borrow.InterestRate.IsNegative() || d.Borrow.InterestRate.GreaterThan(decimal.NewFromInt(100)) {
			add("interest_rate", "must be between 0 and 100")
		}
		if d.Borrow.CollateralAmount.IsNegative() {
			add("collateral_amount", "must be positive or zero")
		}
		if !d.Borrow.RepaymentSchedule.Valid() {
			add("repayment_schedule", "must be one of weekly, biweekly, monthly")
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// WithDefaults fills the values the create form derives on submit: the solo
// category, the cause's first contributor and the loan's total repayment.
// Term pointers for other variants are dropped.
func (d Draft) WithDefaults() Draft {
	out := d
	out.Solo, out.Duo, out.Cause, out.Borrow = nil, nil, nil, nil
	switch d.Variant {
	case domain.VariantSolo:
		terms := domain.SoloTerms{}
		if d.Solo != nil {
			terms = *d.Solo
		}
		if strings.TrimSpace(terms.Category) == "" {
			terms.Category = DefaultCategory
		}
		out.Solo = &terms
	case domain.VariantDuo:
		if d.Duo != nil {
			terms := *d.Duo
			out.Duo = &terms
		}
	case domain.VariantCause:
		if d.Cause != nil {
			terms := *d.Cause
			out.Cause = &terms
		}
		if len(out.Contributors) == 0 {
			out.Contributors = []domain.Contributor{{Address: SelfAddress, Amount: d.InitialStake}}
		}
	case domain.VariantBorrow:
		if d.Borrow != nil {
			terms := *d.Borrow
			terms.TotalRepayment = domain.TotalRepayment(d.TargetAmount, terms.InterestRate)
			out.Borrow = &terms
		}
	}
	return out
}
