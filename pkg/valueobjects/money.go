package valueobjects

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wayfarer-app/wayfarer-backend/errors"
)

// Currency represents a valid ISO 4217 currency code.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	KRW Currency = "KRW"
	VND Currency = "VND"
)

// minorUnitDigits maps supported currencies to their number of minor-unit
// digits. Zero-decimal currencies (JPY, KRW, VND) have no subunit.
var minorUnitDigits = map[Currency]int32{
	USD: 2,
	EUR: 2,
	GBP: 2,
	JPY: 0,
	KRW: 0,
	VND: 0,
}

// Money is a monetary value held as an integer count of minor currency units
// (cents, pence). All arithmetic stays in integers so split calculations
// never accumulate rounding drift.
type Money struct {
	minorUnits int64
	currency   Currency
}

// NewMoney creates a Money value from minor units with currency validation.
func NewMoney(minorUnits int64, currency Currency) (*Money, error) {
	if !IsValidCurrency(currency) {
		return nil, errors.ValidationFailed(
			"invalid currency",
			fmt.Sprintf("currency %s is not supported", currency),
		)
	}
	if minorUnits < 0 {
		return nil, errors.ValidationFailed(
			"invalid amount",
			"amount cannot be negative",
		)
	}
	return &Money{minorUnits: minorUnits, currency: currency}, nil
}

// NewMoneyFromString parses a display amount like "123.45" into minor units
// for the given currency.
func NewMoneyFromString(amount string, currency string) (*Money, error) {
	curr := Currency(strings.ToUpper(currency))
	if !IsValidCurrency(curr) {
		return nil, errors.ValidationFailed(
			"invalid currency",
			fmt.Sprintf("currency %s is not supported", curr),
		)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, errors.ValidationFailed("invalid amount format", err.Error())
	}

	digits := minorUnitDigits[curr]
	if d.Exponent() < -digits {
		return nil, errors.ValidationFailed(
			"invalid amount",
			fmt.Sprintf("amount cannot have more than %d decimal places for %s", digits, curr),
		)
	}

	scaled := d.Shift(digits)
	if !scaled.IsInteger() {
		return nil, errors.ValidationFailed("invalid amount", "amount does not scale to whole minor units")
	}
	return NewMoney(scaled.IntPart(), curr)
}

// MinorUnits returns the amount as an integer count of minor units.
func (m Money) MinorUnits() int64 {
	return m.minorUnits
}

// Currency returns the currency code.
func (m Money) Currency() Currency {
	return m.currency
}

// Add adds two monetary values of the same currency.
func (m Money) Add(other Money) (*Money, error) {
	if m.currency != other.currency {
		return nil, errors.ValidationFailed(
			ErrCurrencyMismatch,
			fmt.Sprintf("cannot add %s to %s", other.currency, m.currency),
		)
	}
	return &Money{minorUnits: m.minorUnits + other.minorUnits, currency: m.currency}, nil
}

// Split divides money into n parts that sum exactly to the original amount,
// distributing any remainder one minor unit at a time from the front.
func (m Money) Split(n int) ([]*Money, error) {
	if n <= 0 {
		return nil, errors.ValidationFailed(
			"invalid split",
			"number of parts must be positive",
		)
	}

	base := m.minorUnits / int64(n)
	remainder := m.minorUnits % int64(n)

	result := make([]*Money, n)
	for i := 0; i < n; i++ {
		part := base
		if int64(i) < remainder {
			part++
		}
		result[i] = &Money{minorUnits: part, currency: m.currency}
	}
	return result, nil
}

func (m Money) IsZero() bool {
	return m.minorUnits == 0
}

func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.minorUnits == other.minorUnits
}

// String renders the amount in display units, e.g. "123.45 USD".
func (m Money) String() string {
	digits := minorUnitDigits[m.currency]
	d := decimal.NewFromInt(m.minorUnits).Shift(-digits)
	return fmt.Sprintf("%s %s", d.StringFixed(digits), m.currency)
}

// IsValidCurrency reports whether the currency is supported.
func IsValidCurrency(currency Currency) bool {
	_, ok := minorUnitDigits[currency]
	return ok
}

const (
	ErrInvalidAmount    = "INVALID_AMOUNT"
	ErrInvalidCurrency  = "INVALID_CURRENCY"
	ErrCurrencyMismatch = "CURRENCY_MISMATCH"
)
