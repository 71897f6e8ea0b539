// Package money converts between euro strings and integer cents and applies
// commission rates with a single rounding rule.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidRate   = errors.New("commission rate must be within [0, 1]")
)

var one = decimal.NewFromInt(1)

// Parse converts a euro string such as "12.50" into cents. Values with more
// than two decimal places are rejected rather than rounded.
func Parse(value string) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q has more than two decimal places", ErrInvalidAmount, value)
	}
	if !cents.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, value)
	}
	return cents.IntPart(), nil
}

// ParsePositive is Parse restricted to amounts greater than zero.
func ParsePositive(value string) (int64, error) {
	cents, err := Parse(value)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, fmt.Errorf("%w: %q must be greater than zero", ErrInvalidAmount, value)
	}
	return cents, nil
}

// Format renders cents as a euro string with two decimals.
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ParseRate parses a commission rate and checks it lies within [0, 1].
func ParseRate(value string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidRate, value)
	}
	if err := ValidateRate(rate); err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}

// ValidateRate checks a rate lies within [0, 1].
func ValidateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(one) {
		return fmt.Errorf("%w: got %s", ErrInvalidRate, rate.String())
	}
	return nil
}

// ApplyRate returns cents × rate rounded half away from zero to whole cents.
func ApplyRate(cents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(rate).Round(0).IntPart()
}

// Split divides gross into the commission kept by the platform and the net
// paid to the payee. The two parts always sum to gross.
func Split(gross int64, rate decimal.Decimal) (commission, net int64) {
	commission = ApplyRate(gross, rate)
	return commission, gross - commission
}

// HourlyGross returns rate × hours in cents, rounded to whole cents.
func HourlyGross(rateCents int64, hours decimal.Decimal) int64 {
	return decimal.NewFromInt(rateCents).Mul(hours).Round(0).IntPart()
}
