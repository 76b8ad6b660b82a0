package pact

import (
	"github.com/shopspring/decimal"

	"pulsepact/internal/domain"
)

const sampleAddress = "addr1qxy8rzd5h5gqgdkgwak2vxnp0zucsq6qvj2qnxvl7lsdhnktp3mzl85lh9cxvj5s8zlj4ztzy52n8krmf2nx7fy8qxsqvz2a9c"

func amt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// Seed returns the fixed demo collection used on first run and by Reset.
// Every call builds a fresh copy.
func Seed() []domain.Pact {
	return []domain.Pact{
		{
			ID:           "1",
			Title:        "Emergency Fund",
			Description:  "Build a 3-month emergency fund for unexpected expenses",
			Variant:      domain.VariantSolo,
			Solo:         &domain.SoloTerms{Category: "Emergency"},
			TargetAmount: amt(5000),
			StakedAmount: amt(2500),
			Deadline:     "2025-12-31",
			Status:       domain.StatusActive,
			CreatedAt:    "2025-01-01T00:00:00Z",
		},
		{
			ID:           "2",
			Title:        "New Laptop",
			Description:  "Save for a new development laptop",
			Variant:      domain.VariantSolo,
			Solo:         &domain.SoloTerms{Category: "Electronics"},
			TargetAmount: amt(2000),
			StakedAmount: amt(1200),
			Deadline:     "2025-08-15",
			Status:       domain.StatusActive,
			CreatedAt:    "2025-01-02T00:00:00Z",
		},
		{
			ID:           "3",
			Title:        "Vacation Fund",
			Description:  "Save for summer vacation",
			Variant:      domain.VariantSolo,
			Solo:         &domain.SoloTerms{Category: "Vacation"},
			TargetAmount: amt(3000),
			StakedAmount: amt(3000),
			Deadline:     "2025-05-01",
			Status:       domain.StatusCompleted,
			CreatedAt:    "2025-01-03T00:00:00Z",
		},
		{
			ID:           "4",
			Title:        "Home Renovation",
			Description:  "Joint fund with partner for home renovation project",
			Variant:      domain.VariantDuo,
			Duo:          &domain.DuoTerms{PartnerAddress: sampleAddress, SplitRatio: 60},
			TargetAmount: amt(10000),
			StakedAmount: amt(4500),
			Deadline:     "2025-10-15",
			Status:       domain.StatusActive,
			CreatedAt:    "2025-01-04T00:00:00Z",
		},
		{
			ID:           "5",
			Title:        "Charity Marathon",
			Description:  "Fundraising for local charity marathon",
			Variant:      domain.VariantCause,
			Cause:        &domain.CauseTerms{CauseAddress: sampleAddress, PubliclyVisible: true},
			TargetAmount: amt(1500),
			StakedAmount: amt(750),
			Deadline:     "2025-06-30",
			Status:       domain.StatusActive,
			CreatedAt:    "2025-01-05T00:00:00Z",
			Contributors: []domain.Contributor{
				{Address: SelfAddress, Amount: amt(500)},
				{Address: "addr1qx...7fyu", Amount: amt(250)},
			},
		},
		{
			ID:           "6",
			Title:        "Wedding Fund",
			Description:  "Save for wedding expenses with partner",
			Variant:      domain.VariantDuo,
			Duo:          &domain.DuoTerms{PartnerAddress: sampleAddress, SplitRatio: 50},
			TargetAmount: amt(8000),
			StakedAmount: amt(8000),
			Deadline:     "2025-01-15",
			Status:       domain.StatusCompleted,
			CreatedAt:    "2025-01-06T00:00:00Z",
		},
		{
			ID:           "7",
			Title:        "Car Repair",
			Description:  "Emergency fund for car repairs",
			Variant:      domain.VariantSolo,
			Solo:         &domain.SoloTerms{Category: "Vehicle"},
			TargetAmount: amt(1200),
			StakedAmount: amt(600),
			Deadline:     "2025-03-10",
			Status:       domain.StatusFailed,
			CreatedAt:    "2025-01-07T00:00:00Z",
		},
		{
			ID:          "8",
			Title:       "Business Expansion Loan",
			Description: "Loan to expand my small business",
			Variant:     domain.VariantBorrow,
			Borrow: &domain.BorrowTerms{
				LenderAddress:     sampleAddress,
				InterestRate:      amt(8),
				CollateralAmount:  amt(2000),
				RepaymentSchedule: domain.CadenceMonthly,
				TotalRepayment:    amt(5400),
			},
			TargetAmount: amt(5000),
			StakedAmount: amt(2000),
			Deadline:     "2025-09-30",
			Status:       domain.StatusActive,
			CreatedAt:    "2025-01-08T00:00:00Z",
		},
		{
			ID:           "9",
			Title:        "Education Fund",
			Description:  "Community fund for local school supplies",
			Variant:      domain.VariantCause,
			Cause:        &domain.CauseTerms{CauseAddress: sampleAddress, PubliclyVisible: true},
			TargetAmount: amt(3000),
			StakedAmount: amt(3000),
			Deadline:     "2025-07-15",
			Status:       domain.StatusCompleted,
			CreatedAt:    "2025-01-09T00:00:00Z",
			Contributors: []domain.Contributor{
				{Address: SelfAddress, Amount: amt(1000)},
				{Address: "addr1qx...7fyu", Amount: amt(500)},
				{Address: "addr1qx...8gtz", Amount: amt(750)},
				{Address: "addr1qx...9ktz", Amount: amt(750)},
			},
		},
	}
}
