package domain

import (
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used for deadlines and check-ins.
const DateLayout = "2006-01-02"

type Variant string

const (
	VariantSolo   Variant = "solo"
	VariantDuo    Variant = "duo"
	VariantCause  Variant = "cause"
	VariantBorrow Variant = "borrow"
)

// Variants lists every pact variant in display order.
var Variants = []Variant{VariantSolo, VariantDuo, VariantCause, VariantBorrow}

func (v Variant) Valid() bool {
	switch v {
	case VariantSolo, VariantDuo, VariantCause, VariantBorrow:
		return true
	}
	return false
}

// Status is the lifecycle state of a pact. Active is the only non-terminal state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Cadence string

const (
	CadenceWeekly   Cadence = "weekly"
	CadenceBiweekly Cadence = "biweekly"
	CadenceMonthly  Cadence = "monthly"
)

func (c Cadence) Valid() bool {
	switch c {
	case CadenceWeekly, CadenceBiweekly, CadenceMonthly:
		return true
	}
	return false
}

type Contributor struct {
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
}

type SoloTerms struct {
	Category string `json:"category,omitempty"`
}

type DuoTerms struct {
	PartnerAddress string `json:"partner_address"`
	// SplitRatio is the creator's share in percent, 1-99.
	SplitRatio int `json:"split_ratio"`
}

type CauseTerms struct {
	CauseAddress    string `json:"cause_address"`
	PubliclyVisible bool   `json:"publicly_visible"`
}

type BorrowTerms struct {
	LenderAddress     string          `json:"lender_address"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	CollateralAmount  decimal.Decimal `json:"collateral_amount"`
	RepaymentSchedule Cadence         `json:"repayment_schedule"`
	TotalRepayment    decimal.Decimal `json:"total_repayment"`
}

// Pact is a goal-bound financial commitment. Exactly one of the variant
// term pointers is set, matching Variant.
type Pact struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Variant      Variant         `json:"type"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	StakedAmount decimal.Decimal `json:"staked_amount"`
	Deadline     string          `json:"deadline"`
	Status       Status          `json:"status"`
	CreatedAt    string          `json:"created_at"`

	Solo   *SoloTerms   `json:"solo,omitempty"`
	Duo    *DuoTerms    `json:"duo,omitempty"`
	Cause  *CauseTerms  `json:"cause,omitempty"`
	Borrow *BorrowTerms `json:"borrow,omitempty"`

	Contributors []Contributor `json:"contributors,omitempty"`
}

func (p Pact) Active() bool    { return p.Status == StatusActive }
func (p Pact) Completed() bool { return p.Status == StatusCompleted }
func (p Pact) Failed() bool    { return p.Status == StatusFailed }

var hundred = decimal.NewFromInt(100)

// Progress is staked/target in percent. It may exceed 100 when over-staked.
func (p Pact) Progress() decimal.Decimal {
	if !p.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	return p.StakedAmount.Div(p.TargetAmount).Mul(hundred)
}

// DisplayProgress is Progress clamped to [0, 100].
func (p Pact) DisplayProgress() decimal.Decimal {
	pr := p.Progress()
	if pr.GreaterThan(hundred) {
		return hundred
	}
	if pr.IsNegative() {
		return decimal.Zero
	}
	return pr
}

// TotalRepayment is principal * (1 + interest/100).
func TotalRepayment(principal, interestRate decimal.Decimal) decimal.Decimal {
	return principal.Mul(decimal.NewFromInt(1).Add(interestRate.Div(hundred)))
}

type NotificationType string

const (
	NotificationSuccess     NotificationType = "success"
	NotificationWarning     NotificationType = "warning"
	NotificationDeadline    NotificationType = "deadline"
	NotificationAchievement NotificationType = "achievement"
	NotificationInfo        NotificationType = "info"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationSuccess, NotificationWarning, NotificationDeadline, NotificationAchievement, NotificationInfo:
		return true
	}
	return false
}

type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp string           `json:"timestamp"`
	Read      bool             `json:"read"`
}

type Wallet struct {
	Balance decimal.Decimal `json:"balance"`
}

// Streak counts consecutive engagement days. LastCheckIn is empty until the
// first visit.
type Streak struct {
	Count       int    `json:"streak"`
	LastCheckIn string `json:"last_check_in,omitempty"`
}

type CurrencyUnit string

const (
	CurrencyADA CurrencyUnit = "ADA"
	CurrencyNGN CurrencyUnit = "NGN"
)

func (u CurrencyUnit) Valid() bool {
	return u == CurrencyADA || u == CurrencyNGN
}

type CurrencyPreference struct {
	Unit CurrencyUnit `json:"currency"`
	// ExchangeRate is NGN per ADA.
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
