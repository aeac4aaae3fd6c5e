package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"

	applog "saku/internal/log"
	"saku/internal/models"
)

// DefaultRecentLimit is how many transactions the home view shows.
const DefaultRecentLimit = 5

// Store is the part of the persistent store the ledger reads and writes.
type Store interface {
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	MonthTotals(ctx context.Context, userID int64, year int, month time.Month) (income, expense decimal.Decimal, err error)
	RecentRecords(ctx context.Context, userID int64, limit int) ([]models.Transaction, error)
	RecordsBetween(ctx context.Context, userID int64, from, to models.Date) ([]models.Transaction, error)
	InsertRecord(ctx context.Context, r models.Record) (*models.Record, error)
	DeleteRecord(ctx context.Context, userID, id int64) error
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	ListCategories(ctx context.Context, direction models.Direction) ([]models.Category, error)
}

// NewTransaction is the input of AddTransaction.
type NewTransaction struct {
	UserID     int64
	CategoryID int64
	Amount     decimal.Decimal
	Direction  models.Direction
	Note       string
	Date       models.Date
}

// Service answers the ledger questions the app asks.
type Service struct {
	store       Store
	recentLimit int
	logger      *applog.Logger
}

// NewService creates a ledger service. recentLimit <= 0 means DefaultRecentLimit.
func NewService(store Store, recentLimit int, logger *applog.Logger) *Service {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Service{
		store:       store,
		recentLimit: recentLimit,
		logger:      logger.WithComponent(applog.ComponentLedger),
	}
}

// CurrentBalance returns total income minus total expense for the user.
func (s *Service) CurrentBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	balance, err := s.store.Balance(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("current balance: %w", err)
	}
	return balance, nil
}

// MonthlySummary returns the income and expense totals of one calendar month.
func (s *Service) MonthlySummary(ctx context.Context, userID int64, year int, month time.Month) (models.MonthSummary, error) {
	if month < time.January || month > time.December {
		return models.MonthSummary{}, models.Invalid("month", "must be between 1 and 12")
	}
	income, expense, err := s.store.MonthTotals(ctx, userID, year, month)
	if err != nil {
		return models.MonthSummary{}, fmt.Errorf("monthly summary: %w", err)
	}
	return models.MonthSummary{
		Year:    year,
		Month:   month,
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
	}, nil
}

// RecentTransactions returns the most recently created transactions, newest
// first. limit <= 0 uses the configured default.
func (s *Service) RecentTransactions(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = s.recentLimit
	}
	txs, err := s.store.RecentRecords(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	return txs, nil
}

// MonthTransactions returns every transaction dated in the month, latest date first.
func (s *Service) MonthTransactions(ctx context.Context, userID int64, year int, month time.Month) ([]models.Transaction, error) {
	if month < time.January || month > time.December {
		return nil, models.Invalid("month", "must be between 1 and 12")
	}
	from, to := models.MonthRange(year, month)
	txs, err := s.store.RecordsBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("month transactions: %w", err)
	}
	return txs, nil
}

// AddTransaction validates t and stores it as a record.
func (s *Service) AddTransaction(ctx context.Context, t NewTransaction) (models.Record, error) {
	if err := models.ValidateAmount(t.Amount); err != nil {
		return models.Record{}, err
	}
	if !t.Direction.Valid() {
		return models.Record{}, models.Invalid("direction", "must be income or expense")
	}
	if t.Date.IsZero() {
		return models.Record{}, models.Invalid("date", "is required")
	}

	category, err := s.store.GetCategory(ctx, t.CategoryID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Record{}, fmt.Errorf("category %d: %w", t.CategoryID, models.ErrNotFound)
		}
		return models.Record{}, fmt.Errorf("add transaction: %w", err)
	}
	if category.Direction != t.Direction {
		return models.Record{}, models.Invalid("direction",
			fmt.Sprintf("category %q is for %s", category.Name, category.Direction))
	}

	var note *string
	if trimmed := strings.TrimSpace(t.Note); trimmed != "" {
		note = &trimmed
	}

	record, err := s.store.InsertRecord(ctx, models.Record{
		UserID:     t.UserID,
		CategoryID: t.CategoryID,
		Amount:     t.Amount,
		Direction:  t.Direction,
		Note:       note,
		Date:       t.Date,
	})
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return models.Record{}, err
		}
		return models.Record{}, fmt.Errorf("add transaction: %w", err)
	}

	fields := applog.NewFields().
		WithOperation(applog.OpCreate).
		WithUser(t.UserID).
		WithRecord(record.ID, record.CategoryID, string(record.Direction), record.Amount.String(), record.Date.String())
	s.logger.InfoContext(ctx, "transaction added", fields.ToSlice()...)
	return *record, nil
}

// DeleteTransaction removes one of the user's records. When nothing matched
// it returns ErrNotFound, which callers may ignore.
func (s *Service) DeleteTransaction(ctx context.Context, userID, recordID int64) error {
	err := s.store.DeleteRecord(ctx, userID, recordID)
	if errors.Is(err, models.ErrNotFound) {
		s.logger.DebugContext(ctx, "delete matched no record",
			applog.FieldOperation, applog.OpDelete,
			applog.FieldUserID, userID,
			applog.FieldRecordID, recordID)
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "transaction deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldUserID, userID,
		applog.FieldRecordID, recordID)
	return nil
}

// CategoriesByDirection lists the categories of one direction ordered by name.
func (s *Service) CategoriesByDirection(ctx context.Context, direction models.Direction) ([]models.Category, error) {
	if !direction.Valid() {
		return nil, models.Invalid("direction", "must be income or expense")
	}
	categories, err := s.store.ListCategories(ctx, direction)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// CategoryNotFoundError is returned by ResolveCategory when no name matches.
type CategoryNotFoundError struct {
	Name        string
	Direction   models.Direction
	Suggestions []string
}

func (e *CategoryNotFoundError) Error() string {
	msg := fmt.Sprintf("no %s category named %q", e.Direction, e.Name)
	if len(e.Suggestions) > 0 {
		msg += "; did you mean " + strings.Join(e.Suggestions, ", ") + "?"
	}
	return msg
}

func (e *CategoryNotFoundError) Is(target error) bool {
	return target == models.ErrNotFound
}

const maxSuggestions = 3

// ResolveCategory finds the category of the given direction whose name
// matches name, ignoring case.
func (s *Service) ResolveCategory(ctx context.Context, direction models.Direction, name string) (models.Category, error) {
	categories, err := s.CategoriesByDirection(ctx, direction)
	if err != nil {
		return models.Category{}, err
	}

	name = strings.TrimSpace(name)
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}

	type candidate struct {
		name string
		dist int
	}
	query := strings.ToLower(name)
	candidates := make([]candidate, 0, len(categories))
	for _, c := range categories {
		candidates = append(candidates, candidate{c.Name, levenshtein.ComputeDistance(query, strings.ToLower(c.Name))})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	var suggestions []string
	for _, c := range candidates {
		if len(suggestions) == maxSuggestions {
			break
		}
		suggestions = append(suggestions, c.name)
	}
	return models.Category{}, &CategoryNotFoundError{Name: name, Direction: direction, Suggestions: suggestions}
}
