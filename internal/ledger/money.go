// Package ledger holds the money value types used by the marketplace and the
// commission split applied when a listing is settled.  Amounts are decimal
// values with two fractional digits; floats never touch a balance.
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a money value.
type Amount = decimal.Decimal

// CentPlaces is the number of fractional digits kept for stored amounts.
const CentPlaces = 2

// MaxAmount is the largest amount a DECIMAL(14,2) column holds.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// DefaultCommissionRate is the platform fee applied when no rate is configured.
var DefaultCommissionRate = decimal.RequireFromString("0.05")

// ErrInvalidRate is returned when a commission rate falls outside [0, 1).
var ErrInvalidRate = errors.New("commission rate must be within [0, 1)")

// ErrInvalidAmount is returned when an amount cannot be parsed or is negative.
var ErrInvalidAmount = errors.New("invalid amount")

// Split is the result of applying a commission rate to a settlement total.
// Commission + Net always equals Total.
type Split struct {
	Total      decimal.Decimal
	Rate       decimal.Decimal
	Commission decimal.Decimal
	Net        decimal.Decimal
}

// NewRate parses and validates a commission rate such as "0.05".
func NewRate(s string) (decimal.Decimal, error) {
	r, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}
	if err := ValidateRate(r); err != nil {
		return decimal.Zero, err
	}
	return r, nil
}

// ValidateRate checks that r is usable as a commission rate.
func ValidateRate(r decimal.Decimal) error {
	if r.IsNegative() || r.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return ErrInvalidRate
	}
	return nil
}

// Commission splits total into the platform commission and the seller's net
// amount.  The commission is rounded half away from zero to cents and the
// net amount is derived from it so no cent is lost or created.
func Commission(total, rate decimal.Decimal) Split {
	total = Round(total)
	fee := Round(total.Mul(rate))
	return Split{
		Total:      total,
		Rate:       rate,
		Commission: fee,
		Net:        total.Sub(fee),
	}
}

// Round normalises an amount to cents.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(CentPlaces)
}

// InRange reports whether d, once rounded to cents, is storable.
func InRange(d decimal.Decimal) bool {
	return !Round(d).GreaterThan(MaxAmount)
}

// ParseAmount parses a non-negative money amount and rounds it to cents.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	if !InRange(d) {
		return decimal.Zero, fmt.Errorf("%w: %q exceeds %s", ErrInvalidAmount, s, MaxAmount)
	}
	return Round(d), nil
}

// MinNextBid is the smallest amount a new bid must reach.
func MinNextBid(currentHighest, increment decimal.Decimal) decimal.Decimal {
	return currentHighest.Add(increment)
}
