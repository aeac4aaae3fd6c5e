package export

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"saku/internal/models"
)

// ErrEmptyReport is returned when the month has no transactions to print.
var ErrEmptyReport = errors.New("no transactions in this month")

//go:embed templates/report.html
var templateFS embed.FS

var reportTemplate = template.Must(template.New("report.html").Funcs(template.FuncMap{
	"monthName": MonthName,
	"rupiah":    FormatRupiah,
	"signed":    FormatSigned,
	"date":      FormatDate,
	"note": func(n *string) string {
		if n == nil || *n == "" {
			return "-"
		}
		return *n
	},
}).ParseFS(templateFS, "templates/report.html"))

// Source supplies the month data of a report.
type Source interface {
	MonthlySummary(ctx context.Context, userID int64, year int, month time.Month) (models.MonthSummary, error)
	MonthTransactions(ctx context.Context, userID int64, year int, month time.Month) ([]models.Transaction, error)
}

// Report is a fully formed month table ready to render.
type Report struct {
	Year         int
	Month        time.Month
	Summary      models.MonthSummary
	Transactions []models.Transaction
	GeneratedAt  time.Time
}

// Build gathers the summary and transactions of one month.
func Build(ctx context.Context, src Source, userID int64, year int, month time.Month) (Report, error) {
	r := Report{Year: year, Month: month, GeneratedAt: time.Now()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := src.MonthlySummary(ctx, userID, year, month)
		if err != nil {
			return err
		}
		r.Summary = summary
		return nil
	})
	g.Go(func() error {
		txs, err := src.MonthTransactions(ctx, userID, year, month)
		if err != nil {
			return err
		}
		r.Transactions = txs
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("build report: %w", err)
	}

	if len(r.Transactions) == 0 {
		return Report{}, ErrEmptyReport
	}
	return r, nil
}

// FileName returns the name WriteFile uses for r.
func FileName(r Report) string {
	return fmt.Sprintf("Ringkasan_Transaksi_%d_%d.html", int(r.Month), r.Year)
}

// RenderHTML writes r as an HTML document.
func RenderHTML(w io.Writer, r Report) error {
	return reportTemplate.Execute(w, r)
}

// WriteFile renders r into dir and returns the file's path.
func WriteFile(dir string, r Report) (string, error) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, r); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(dir, FileName(r))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
