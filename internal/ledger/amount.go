package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"saku/internal/models"
)

// ParseAmount reads a positive amount typed by the user. A comma is accepted
// as the decimal separator and an "Rp" prefix is ignored.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.EqualFold(s[:2], "rp") {
		s = strings.TrimSpace(s[2:])
	}
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return decimal.Zero, models.Invalid("amount", "is required")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, models.Invalid("amount", "must be a number")
	}
	if err := models.ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
