package pact_test

import (
	"errors"
	"testing"

	"pulsepact/internal/domain"
	"pulsepact/internal/pact"
)

func fieldNames(err error) map[string]bool {
	var ve *pact.ValidationError
	out := map[string]bool{}
	if errors.As(err, &ve) {
		for _, f := range ve.Fields {
			out[f.Field] = true
		}
	}
	return out
}

func TestValidateAcceptsCompleteDrafts(t *testing.T) {
	drafts := []pact.Draft{
		soloDraft(),
		{
			Title: "Flat deposit", Description: "Deposit for the shared flat", Variant: domain.VariantDuo,
			TargetAmount: dec(3000), Deadline: "2025-11-30",
			Duo: &domain.DuoTerms{PartnerAddress: "addr1partner0001", SplitRatio: 50},
		},
		{
			Title: "Park cleanup", Description: "Community park cleanup supplies", Variant: domain.VariantCause,
			TargetAmount: dec(500), InitialStake: dec(50), Deadline: "2025-06-01",
			Cause: &domain.CauseTerms{CauseAddress: "addr1cause00001", PubliclyVisible: true},
		},
		{
			Title: "Shop loan", Description: "Working capital for the shop", Variant: domain.VariantBorrow,
			TargetAmount: dec(5000), Deadline: "2026-01-31",
			Borrow: &domain.BorrowTerms{LenderAddress: "addr1lender0001", InterestRate: dec(8), RepaymentSchedule: domain.CadenceMonthly},
		},
	}
	for _, d := range drafts {
		if err := d.Validate(); err != nil {
			t.Fatalf("%s: %v", d.Title, err)
		}
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	d := pact.Draft{
		Title:        "ab",
		Description:  "short",
		Variant:      domain.VariantBorrow,
		TargetAmount: dec(0),
		InitialStake: dec(-1),
		Deadline:     "31/12/2025",
		Borrow: &domain.BorrowTerms{
			LenderAddress:     "short",
			InterestRate:      dec(101),
			CollateralAmount:  dec(-1),
			RepaymentSchedule: "daily",
		},
	}
	err := d.Validate()
	if !errors.Is(err, pact.ErrInvalidDraft) {
		t.Fatalf("expected ErrInvalidDraft, got %v", err)
	}
	got := fieldNames(err)
	for _, f := range []string{"title", "description", "target_amount", "initial_stake", "deadline", "lender_address", "interest_rate", "collateral_amount", "repayment_schedule"} {
		if !got[f] {
			t.Errorf("missing field error for %s", f)
		}
	}
}

func TestValidateDuoSplitBounds(t *testing.T) {
	for _, ratio := range []int{0, 100} {
		d := pact.Draft{
			Title: "Flat deposit", Description: "Deposit for the shared flat", Variant: domain.VariantDuo,
			TargetAmount: dec(3000), Deadline: "2025-11-30",
			Duo: &domain.DuoTerms{PartnerAddress: "addr1partner0001", SplitRatio: ratio},
		}
		if !fieldNames(d.Validate())["split_ratio"] {
			t.Fatalf("ratio %d should be rejected", ratio)
		}
	}
}

func TestWithDefaults(t *testing.T) {
	cause := pact.Draft{
		Variant:      domain.VariantCause,
		InitialStake: dec(75),
		Cause:        &domain.CauseTerms{CauseAddress: "addr1cause00001"},
		Solo:         &domain.SoloTerms{Category: "stray"},
	}.WithDefaults()
	if cause.Solo != nil {
		t.Fatalf("non-matching terms must be dropped")
	}
	if len(cause.Contributors) != 1 || cause.Contributors[0].Address != pact.SelfAddress || !cause.Contributors[0].Amount.Equal(dec(75)) {
		t.Fatalf("contributors %+v", cause.Contributors)
	}

	loan := pact.Draft{
		Variant:      domain.VariantBorrow,
		TargetAmount: dec(5000),
		Borrow:       &domain.BorrowTerms{InterestRate: dec(8)},
	}.WithDefaults()
	if !loan.Borrow.TotalRepayment.Equal(dec(5400)) {
		t.Fatalf("total repayment %s", loan.Borrow.TotalRepayment)
	}
}
