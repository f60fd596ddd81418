package domain

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// MinorUnitScale is the number of decimal places between naira and kobo.
const MinorUnitScale = 2

var (
	// ErrAmountNotPositive is returned for zero or negative amounts.
	ErrAmountNotPositive = errors.New("amount must be positive")
	// ErrAmountOverflow is returned when an amount does not fit in int64 minor units.
	ErrAmountOverflow = errors.New("amount out of range")
)

// maxMajorMagnitude bounds the integer digits of a major amount; anything longer
// cannot fit in int64 minor units.
const maxMajorMagnitude = 18

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// ToMinorUnits converts a major-unit amount (e.g. 20.005 naira) into exact minor units.
// Rounding is half away from zero at the minor-unit boundary and happens exactly once.
func ToMinorUnits(major decimal.Decimal) (int64, error) {
	if major.IsZero() {
		return 0, nil
	}
	// |major| < 10^magnitude. Bound it before Shift/Round so an input like 1e30000000
	// never expands into a huge coefficient.
	magnitude := int64(major.NumDigits()) + int64(major.Exponent())
	if magnitude > maxMajorMagnitude {
		return 0, ErrAmountOverflow
	}
	if magnitude < -MinorUnitScale {
		return 0, nil
	}

	minor := major.Shift(MinorUnitScale).Round(0)
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return 0, ErrAmountOverflow
	}
	return minor.IntPart(), nil
}

// ToPositiveMinorUnits is ToMinorUnits plus the amount > 0 precondition shared by
// transfers and deposits.
func ToPositiveMinorUnits(major decimal.Decimal) (int64, error) {
	minor, err := ToMinorUnits(major)
	if err != nil {
		return 0, err
	}
	if minor <= 0 {
		return 0, ErrAmountNotPositive
	}
	return minor, nil
}

// FormatMajor renders minor units as a fixed two-place major-unit string ("50.00").
func FormatMajor(minor int64) string {
	return decimal.New(minor, -MinorUnitScale).StringFixed(MinorUnitScale)
}
