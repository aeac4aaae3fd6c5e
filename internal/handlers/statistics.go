package handlers

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"saku/internal/export"
	"saku/internal/models"

	"github.com/shopspring/decimal"
)

// TransactionItem is a transaction formatted for display.
type TransactionItem struct {
	ID       int64
	Date     string
	Category string
	Amount   string
	Note     string
}

// CategoryShare is one category's part of the month's spending.
type CategoryShare struct {
	Category   string
	Total      decimal.Decimal
	Count      int
	Percentage decimal.Decimal
}

// BillItem is an active reminder due in the viewed month.
type BillItem struct {
	ID       int64
	BillName string
	Due      string
}

// SummaryView is the data behind saku summary.
type SummaryView struct {
	Year           int
	Month          time.Month
	MonthName      string
	Summary        models.MonthSummary
	Spending       []CategoryShare
	Transactions   []TransactionItem
	Bills          []BillItem
	PrevYear       int
	PrevMonth      time.Month
	NextYear       int
	NextMonth      time.Month
	IsCurrentMonth bool
}

// BuildSummary gathers everything shown for one month of the user's ledger.
func (h *Handlers) BuildSummary(ctx context.Context, userID int64, year int, month time.Month) (SummaryView, error) {
	summary, err := h.app.Ledger.MonthlySummary(ctx, userID, year, month)
	if err != nil {
		return SummaryView{}, err
	}
	txs, err := h.app.Ledger.MonthTransactions(ctx, userID, year, month)
	if err != nil {
		return SummaryView{}, err
	}
	from, to := models.MonthRange(year, month)
	due, err := h.app.Reminders.DueBetween(ctx, userID, from, to)
	if err != nil {
		return SummaryView{}, err
	}

	bills := make([]BillItem, 0, len(due))
	for _, r := range due {
		bills = append(bills, BillItem{ID: r.ID, BillName: r.BillName, Due: export.FormatDate(r.DueDate)})
	}

	// Calculate previous and next month
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)
	now := h.now()

	return SummaryView{
		Year:           year,
		Month:          month,
		MonthName:      export.MonthName(month),
		Summary:        summary,
		Spending:       spendingByCategory(txs),
		Transactions:   transactionItems(txs),
		Bills:          bills,
		PrevYear:       prev.Year(),
		PrevMonth:      prev.Month(),
		NextYear:       next.Year(),
		NextMonth:      next.Month(),
		IsCurrentMonth: year == now.Year() && month == now.Month(),
	}, nil
}

// spendingByCategory totals the expenses per category, largest first.
func spendingByCategory(txs []models.Transaction) []CategoryShare {
	byName := make(map[string]*CategoryShare)
	total := decimal.Zero
	for _, t := range txs {
		if t.Direction != models.Expense {
			continue
		}
		share, ok := byName[t.Category]
		if !ok {
			share = &CategoryShare{Category: t.Category}
			byName[t.Category] = share
		}
		share.Total = share.Total.Add(t.Amount)
		share.Count++
		total = total.Add(t.Amount)
	}

	shares := make([]CategoryShare, 0, len(byName))
	for _, s := range byName {
		if total.IsPositive() {
			s.Percentage = s.Total.Div(total).Mul(decimal.NewFromInt(100)).Round(1)
		}
		shares = append(shares, *s)
	}
	sort.Slice(shares, func(i, j int) bool {
		if c := shares[i].Total.Cmp(shares[j].Total); c != 0 {
			return c > 0
		}
		return shares[i].Category < shares[j].Category
	})
	return shares
}

func transactionItems(txs []models.Transaction) []TransactionItem {
	items := make([]TransactionItem, 0, len(txs))
	for _, t := range txs {
		note := "-"
		if t.Note != nil && *t.Note != "" {
			note = *t.Note
		}
		items = append(items, TransactionItem{
			ID:       t.ID,
			Date:     export.FormatDate(t.Date),
			Category: t.Category,
			Amount:   export.FormatSigned(t.Amount, t.Direction),
			Note:     note,
		})
	}
	return items
}

// Summary prints a month's totals, spending split, transactions and bills.
func (h *Handlers) Summary(ctx context.Context, args []string) error {
	fs := h.flagSet("summary")
	monthFlag := fs.String("month", "", "Month as YYYY-MM (default current)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := h.user()
	if err != nil {
		return err
	}
	year, month, err := h.month(*monthFlag)
	if err != nil {
		return err
	}
	view, err := h.BuildSummary(ctx, user.ID, year, month)
	if err != nil {
		return err
	}
	h.printSummary(view)
	return nil
}

func (h *Handlers) printSummary(v SummaryView) {
	fmt.Fprintf(h.stdout, "%s %d\n", v.MonthName, v.Year)
	w := tabwriter.NewWriter(h.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Income\t%s\n", export.FormatRupiah(v.Summary.Income))
	fmt.Fprintf(w, "  Expense\t%s\n", export.FormatRupiah(v.Summary.Expense))
	fmt.Fprintf(w, "  Balance\t%s\n", export.FormatRupiah(v.Summary.Balance))
	w.Flush()

	if len(v.Spending) > 0 {
		fmt.Fprintln(h.stdout, "\nSpending by category")
		w = tabwriter.NewWriter(h.stdout, 0, 0, 2, ' ', 0)
		for _, s := range v.Spending {
			fmt.Fprintf(w, "  %s\t%s\t%s%%\t%d\n", s.Category, export.FormatRupiah(s.Total), s.Percentage.StringFixed(1), s.Count)
		}
		w.Flush()
	}

	fmt.Fprintln(h.stdout, "\nTransactions")
	if len(v.Transactions) == 0 {
		fmt.Fprintln(h.stdout, "  none")
	} else {
		h.printTransactions(v.Transactions)
	}

	if len(v.Bills) > 0 {
		fmt.Fprintln(h.stdout, "\nBills due")
		w = tabwriter.NewWriter(h.stdout, 0, 0, 2, ' ', 0)
		for _, b := range v.Bills {
			fmt.Fprintf(w, "  #%d\t%s\t%s\n", b.ID, b.Due, b.BillName)
		}
		w.Flush()
	}

	fmt.Fprintf(h.stdout, "\n< saku summary -month %04d-%02d", v.PrevYear, int(v.PrevMonth))
	if !v.IsCurrentMonth {
		fmt.Fprintf(h.stdout, "    saku summary -month %04d-%02d >", v.NextYear, int(v.NextMonth))
	}
	fmt.Fprintln(h.stdout)
}

func (h *Handlers) printTransactions(items []TransactionItem) {
	w := tabwriter.NewWriter(h.stdout, 0, 0, 2, ' ', 0)
	for _, t := range items {
		fmt.Fprintf(w, "  #%d\t%s\t%s\t%s\t%s\n", t.ID, t.Date, t.Category, t.Amount, t.Note)
	}
	w.Flush()
}
