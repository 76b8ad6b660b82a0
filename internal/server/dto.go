package server

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"pulsepact/internal/domain"
	"pulsepact/internal/engine"
	"pulsepact/internal/pact"
	"pulsepact/internal/stats"
)

// Request payloads. Amounts arrive as JSON numbers in ADA.

type SoloTermsRequest struct {
	Category string `json:"category,omitempty"`
}

type DuoTermsRequest struct {
	PartnerAddress string `json:"partner_address"`
	SplitRatio     int    `json:"split_ratio"`
}

type CauseTermsRequest struct {
	CauseAddress    string `json:"cause_address"`
	// PubliclyVisible defaults to true when omitted.
	PubliclyVisible *bool `json:"publicly_visible,omitempty"`
}

type BorrowTermsRequest struct {
	LenderAddress     string  `json:"lender_address"`
	InterestRate      float64 `json:"interest_rate"`
	CollateralAmount  float64 `json:"collateral_amount,omitempty"`
	RepaymentSchedule string  `json:"repayment_schedule" enum:"weekly,biweekly,monthly"`
}

type CreatePactRequest struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Type         string              `json:"type" enum:"solo,duo,cause,borrow"`
	TargetAmount float64             `json:"target_amount"`
	InitialStake float64             `json:"initial_stake,omitempty"`
	Deadline     string              `json:"deadline" example:"2025-12-31"`
	Solo         *SoloTermsRequest   `json:"solo,omitempty"`
	Duo          *DuoTermsRequest    `json:"duo,omitempty"`
	Cause        *CauseTermsRequest  `json:"cause,omitempty"`
	Borrow       *BorrowTermsRequest `json:"borrow,omitempty"`
}

type AmountRequest struct {
	Amount float64 `json:"amount"`
}

type OptionalAmountRequest struct {
	Amount float64 `json:"amount,omitempty"`
}

type ExchangeRateRequest struct {
	Rate float64 `json:"rate"`
}

func (r CreatePactRequest) draft() pact.Draft {
	d := pact.Draft{
		Title:        r.Title,
		Description:  r.Description,
		Variant:      domain.Variant(r.Type),
		TargetAmount: decimal.NewFromFloat(r.TargetAmount),
		InitialStake: decimal.NewFromFloat(r.InitialStake),
		Deadline:     r.Deadline,
	}
	if r.Solo != nil {
		d.Solo = &domain.SoloTerms{Category: r.Solo.Category}
	}
	if r.Duo != nil {
		d.Duo = &domain.DuoTerms{PartnerAddress: r.Duo.PartnerAddress, SplitRatio: r.Duo.SplitRatio}
	}
	if r.Cause != nil {
		public := true
		if r.Cause.PubliclyVisible != nil {
			public = *r.Cause.PubliclyVisible
		}
		d.Cause = &domain.CauseTerms{CauseAddress: r.Cause.CauseAddress, PubliclyVisible: public}
	}
	if r.Borrow != nil {
		d.Borrow = &domain.BorrowTerms{
			LenderAddress:     r.Borrow.LenderAddress,
			InterestRate:      decimal.NewFromFloat(r.Borrow.InterestRate),
			CollateralAmount:  decimal.NewFromFloat(r.Borrow.CollateralAmount),
			RepaymentSchedule: domain.Cadence(r.Borrow.RepaymentSchedule),
		}
	}
	return d
}

// Response payloads. Amounts are decimal strings.

type ContributorResponse struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type BorrowTermsResponse struct {
	LenderAddress     string `json:"lender_address"`
	InterestRate      string `json:"interest_rate"`
	CollateralAmount  string `json:"collateral_amount"`
	RepaymentSchedule string `json:"repayment_schedule"`
	TotalRepayment    string `json:"total_repayment"`
}

type PactResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Type         string                `json:"type"`
	TargetAmount string                `json:"target_amount"`
	StakedAmount string                `json:"staked_amount"`
	Progress     float64               `json:"progress"`
	Deadline     string                `json:"deadline"`
	Status       string                `json:"status"`
	CreatedAt    string                `json:"created_at"`
	Solo         *domain.SoloTerms     `json:"solo,omitempty"`
	Duo          *domain.DuoTerms      `json:"duo,omitempty"`
	Cause        *domain.CauseTerms    `json:"cause,omitempty"`
	Borrow       *BorrowTermsResponse  `json:"borrow,omitempty"`
	Contributors []ContributorResponse `json:"contributors,omitempty"`
}

type PactDetailResponse struct {
	Pact     PactResponse   `json:"pact"`
	TimeLeft stats.TimeLeft `json:"time_left"`
}

type WalletResponse struct {
	Balance string `json:"balance"`
}

type StakeResponse struct {
	Pact    PactResponse  `json:"pact"`
	Applied string        `json:"applied"`
	Balance string        `json:"balance"`
	Streak  domain.Streak `json:"streak"`
}

type CompleteResponse struct {
	Pact    PactResponse  `json:"pact"`
	Reward  string        `json:"reward"`
	Balance string        `json:"balance"`
	Streak  domain.Streak `json:"streak"`
}

type NotificationsResponse struct {
	Items  []domain.Notification `json:"items"`
	Unread int                   `json:"unread"`
}

type CurrencyResponse struct {
	Currency     string `json:"currency"`
	ExchangeRate string `json:"exchange_rate"`
}

type VariantStatsResponse struct {
	Type           string  `json:"type"`
	Count          int     `json:"count"`
	Active         int     `json:"active"`
	Completed      int     `json:"completed"`
	Failed         int     `json:"failed"`
	Staked         string  `json:"staked"`
	CompletionRate float64 `json:"completion_rate"`
	SuccessRate    float64 `json:"success_rate"`
}

type StatsResponse struct {
	Total           int                    `json:"total"`
	Active          int                    `json:"active"`
	Completed       int                    `json:"completed"`
	Failed          int                    `json:"failed"`
	TotalStaked     string                 `json:"total_staked"`
	TotalGoal       string                 `json:"total_goal"`
	OverallProgress float64                `json:"overall_progress"`
	Reputation      int                    `json:"reputation"`
	ReputationLevel string                 `json:"reputation_level"`
	Variants        []VariantStatsResponse `json:"variants"`
	Achievements    []stats.Achievement    `json:"achievements"`
}

type StateResponse struct {
	Pacts         []PactResponse        `json:"pacts"`
	Wallet        WalletResponse        `json:"wallet"`
	Notifications []domain.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
	Streak        domain.Streak         `json:"streak"`
	Currency      CurrencyResponse      `json:"currency"`
}

type RemindersResponse struct {
	Items []engine.Reminder `json:"items"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	Payload    map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Conversion helpers

func pactResponse(p domain.Pact) PactResponse {
	res := PactResponse{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Type:         string(p.Variant),
		TargetAmount: p.TargetAmount.String(),
		StakedAmount: p.StakedAmount.String(),
		Progress:     p.DisplayProgress().InexactFloat64(),
		Deadline:     p.Deadline,
		Status:       string(p.Status),
		CreatedAt:    p.CreatedAt,
		Solo:         p.Solo,
		Duo:          p.Duo,
		Cause:        p.Cause,
	}
	if b := p.Borrow; b != nil {
		res.Borrow = &BorrowTermsResponse{
			LenderAddress:     b.LenderAddress,
			InterestRate:      b.InterestRate.String(),
			CollateralAmount:  b.CollateralAmount.String(),
			RepaymentSchedule: string(b.RepaymentSchedule),
			TotalRepayment:    b.TotalRepayment.String(),
		}
	}
	for _, c := range p.Contributors {
		res.Contributors = append(res.Contributors, ContributorResponse{Address: c.Address, Amount: c.Amount.String()})
	}
	return res
}

func mapPacts(items []domain.Pact) []PactResponse {
	out := make([]PactResponse, 0, len(items))
	for _, p := range items {
		out = append(out, pactResponse(p))
	}
	return out
}

func currencyResponse(c domain.CurrencyPreference) CurrencyResponse {
	return CurrencyResponse{Currency: string(c.Unit), ExchangeRate: c.ExchangeRate.String()}
}

func notificationsOrEmpty(items []domain.Notification) []domain.Notification {
	if items == nil {
		return []domain.Notification{}
	}
	return items
}

func statsResponse(r engine.Report) StatsResponse {
	s := r.Summary
	res := StatsResponse{
		Total:           s.Total,
		Active:          s.Active,
		Completed:       s.Completed,
		Failed:          s.Failed,
		TotalStaked:     s.TotalStaked.String(),
		TotalGoal:       s.TotalGoal.String(),
		OverallProgress: s.OverallProgress,
		Reputation:      s.Reputation,
		ReputationLevel: s.ReputationLevel,
		Achievements:    r.Achievements,
	}
	for _, v := range s.Variants {
		res.Variants = append(res.Variants, VariantStatsResponse{
			Type:           string(v.Variant),
			Count:          v.Count,
			Active:         v.Active,
			Completed:      v.Completed,
			Failed:         v.Failed,
			Staked:         v.Staked.String(),
			CompletionRate: v.CompletionRate,
			SuccessRate:    v.SuccessRate,
		})
	}
	return res
}

func stateResponse(s engine.Snapshot) StateResponse {
	return StateResponse{
		Pacts:         mapPacts(s.Pacts),
		Wallet:        WalletResponse{Balance: s.Wallet.Balance.String()},
		Notifications: notificationsOrEmpty(s.Notifications),
		Unread:        s.Unread,
		Streak:        s.Streak,
		Currency:      currencyResponse(s.Currency),
	}
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}
