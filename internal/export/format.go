package export

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"saku/internal/models"
)

var monthNames = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

var shortMonthNames = [...]string{
	"Jan", "Feb", "Mar", "Apr", "Mei", "Jun",
	"Jul", "Agu", "Sep", "Okt", "Nov", "Des",
}

// MonthName returns the Indonesian name of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return m.String()
	}
	return monthNames[m-1]
}

// FormatDate renders d as "5 Mar 2024".
func FormatDate(d models.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.Format("2") + " " + shortMonthNames[d.Month()-1] + " " + d.Format("2006")
}

// FormatRupiah renders an amount as "Rp 1.000.000" or "-Rp 12.500,5".
func FormatRupiah(d decimal.Decimal) string {
	neg := d.IsNegative()
	d = d.Abs().Round(2)

	whole := d.Truncate(0)
	s := groupThousands(whole.String())
	if frac := d.Sub(whole); !frac.IsZero() {
		digits := strings.TrimRight(frac.StringFixed(2)[2:], "0")
		s += "," + digits
	}

	if neg {
		return "-Rp " + s
	}
	return "Rp " + s
}

// FormatSigned renders a record amount with a sign for its direction.
func FormatSigned(amount decimal.Decimal, direction models.Direction) string {
	if direction == models.Expense {
		return "-" + FormatRupiah(amount.Abs())
	}
	return "+" + FormatRupiah(amount.Abs())
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
