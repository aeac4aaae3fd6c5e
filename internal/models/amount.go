package models

import "github.com/shopspring/decimal"

// AmountScale is the number of decimal places a record amount may carry.
// Amounts are stored as whole hundredths.
const AmountScale = 2

// MaxAmount is the largest amount a single record may hold.
var MaxAmount = decimal.New(1, 12)

// ValidateAmount reports whether d can be stored as a record amount.
func ValidateAmount(d decimal.Decimal) error {
	switch {
	case !d.IsPositive():
		return Invalid("amount", "must be greater than zero")
	case d.GreaterThan(MaxAmount):
		return Invalid("amount", "must not exceed "+MaxAmount.String())
	case !d.Shift(AmountScale).IsInteger():
		return Invalid("amount", "must have at most 2 decimal places")
	}
	return nil
}

// MinorUnits returns d in hundredths. d must have passed ValidateAmount.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Shift(AmountScale).IntPart()
}

// AmountFromMinor converts hundredths back to an amount.
func AmountFromMinor(n int64) decimal.Decimal {
	return decimal.New(n, -AmountScale)
}
