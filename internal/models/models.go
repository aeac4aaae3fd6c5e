package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the flow of money a category or record represents.
type Direction string

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == Income || d == Expense
}

// ParseDirection converts user input into a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", Invalid("direction", fmt.Sprintf("must be %q or %q", Income, Expense))
	}
	return d, nil
}

// User represents a user account.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	PhotoURI     *string   `json:"photo_uri,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Category is a named bucket with a fixed direction.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Direction Direction `json:"direction"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// Record represents a single ledger entry.
type Record struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	CategoryID int64           `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Direction  Direction       `json:"direction"`
	Note       *string         `json:"note,omitempty"`
	Date       Date            `json:"date"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Signed returns the amount as it contributes to a balance.
func (r Record) Signed() decimal.Decimal {
	if r.Direction == Expense {
		return r.Amount.Neg()
	}
	return r.Amount
}

// Transaction is a record joined with the name of its category.
type Transaction struct {
	Record
	Category string `json:"category"`
}

// MonthSummary holds the income and expense totals of one calendar month.
type MonthSummary struct {
	Year    int             `json:"year"`
	Month   time.Month      `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// Reminder marks the due date of a bill.
type Reminder struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	BillName       string    `json:"bill_name"`
	DueDate        Date      `json:"due_date"`
	Active         bool      `json:"active"`
	ScheduleHandle *string   `json:"schedule_handle,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProfileUpdate lists the profile fields to change. Nil fields are left alone.
// ClearPhoto removes the photo and takes precedence over PhotoURI.
type ProfileUpdate struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	PhotoURI   *string `json:"photo_uri,omitempty"`
	ClearPhoto bool    `json:"clear_photo,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.PhotoURI == nil && !u.ClearPhoto
}
