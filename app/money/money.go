// Package money holds the immutable amount + currency value used for every
// gateway-facing quantity.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrInvalidCurrency  = errors.New("currency must be 3 letters")
)

// Currencies whose minor unit is not 1/100. Everything else uses two decimals.
var minorUnitExponents = map[string]int32{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "ISK": 0, "JPY": 0, "KMF": 0, "KRW": 0,
	"PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0, "XOF": 0, "XPF": 0,
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
}

type Money struct {
	amount   decimal.Decimal
	currency string
}

func New(amount decimal.Decimal, currency string) (Money, error) {
	currency = NormalizeCurrency(currency)
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{amount: amount, currency: currency}, nil
}

// FromMinorUnits builds a value from an integer count of the currency's minor unit (cents).
func FromMinorUnits(units int64, currency string) (Money, error) {
	currency = NormalizeCurrency(currency)
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{
		amount:   decimal.New(units, -exponent(currency)),
		currency: currency,
	}, nil
}

func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

func (m Money) Amount() decimal.Decimal { return m.amount }

func (m Money) Currency() string { return m.currency }

// Exponent is the number of decimals in the currency's minor unit.
func (m Money) Exponent() int32 { return exponent(m.currency) }

// MinorUnits rounds half-up to the currency's minor unit.
func (m Money) MinorUnits() int64 {
	return m.amount.Shift(exponent(m.currency)).Round(0).IntPart()
}

func (m Money) IsZero() bool { return m.amount.IsZero() }

func (m Money) IsPositive() bool { return m.amount.IsPositive() }

func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

func (m Money) Cmp(other Money) (int, error) {
	if m.currency != other.currency {
		return 0, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return m.amount.Cmp(other.amount), nil
}

func (m Money) String() string {
	return m.amount.StringFixed(exponent(m.currency)) + " " + m.currency
}

func exponent(currency string) int32 {
	if e, ok := minorUnitExponents[currency]; ok {
		return e
	}
	return 2
}
