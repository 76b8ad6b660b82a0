package currency

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"pulsepact/internal/domain"
)

// DefaultExchangeRate is NGN per ADA.
var DefaultExchangeRate = decimal.NewFromInt(1500)

var (
	ErrInvalidRate = errors.New("exchange rate must be positive")
	ErrInvalidUnit = errors.New("unknown currency unit")
)

func Default() domain.CurrencyPreference {
	return domain.CurrencyPreference{Unit: domain.CurrencyADA, ExchangeRate: DefaultExchangeRate}
}

// Preference holds the display unit and the NGN/ADA rate. Amounts are
// always stored in ADA; NGN is a display conversion only.
type Preference struct {
	state domain.CurrencyPreference
}

func NewPreference(p domain.CurrencyPreference) *Preference {
	if !p.Unit.Valid() {
		p.Unit = domain.CurrencyADA
	}
	if !p.ExchangeRate.IsPositive() {
		p.ExchangeRate = DefaultExchangeRate
	}
	return &Preference{state: p}
}

func (p *Preference) State() domain.CurrencyPreference { return p.state }

func (p *Preference) Toggle() domain.CurrencyUnit {
	if p.state.Unit == domain.CurrencyADA {
		p.state.Unit = domain.CurrencyNGN
	} else {
		p.state.Unit = domain.CurrencyADA
	}
	return p.state.Unit
}

func (p *Preference) SetUnit(u domain.CurrencyUnit) error {
	if !u.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidUnit, u)
	}
	p.state.Unit = u
	return nil
}

func (p *Preference) SetExchangeRate(rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidRate, rate)
	}
	p.state.ExchangeRate = rate
	return nil
}

// Format renders an ADA amount in the preferred unit.
func (p *Preference) Format(amount decimal.Decimal) string {
	return FormatIn(p.state.Unit, amount, p.state.ExchangeRate)
}

// FormatIn renders ADA with up to two decimals ("ADA 1,234.5") and NGN as the
// converted amount rounded to whole naira ("₦1,851,750").
func FormatIn(unit domain.CurrencyUnit, amount, rate decimal.Decimal) string {
	sign := ""
	if unit == domain.CurrencyNGN {
		v := amount.Mul(rate).Round(0)
		if v.IsNegative() {
			sign, v = "-", v.Neg()
		}
		return sign + "₦" + humanize.Comma(v.IntPart())
	}
	v := amount.Round(2)
	if v.IsNegative() {
		sign, v = "-", v.Neg()
	}
	return sign + "ADA " + humanize.Commaf(v.InexactFloat64())
}
