package handlers

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"saku/internal/app"
	"saku/internal/config"
	"saku/internal/models"
	"saku/internal/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var fixedNow = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.Local)

// HandlersTestSuite drives commands against a real app in a temp dir.
type HandlersTestSuite struct {
	suite.Suite
	ctx    context.Context
	dir    string
	app    *app.App
	h      *Handlers
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// SetupTest runs before each test
func (suite *HandlersTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.dir = suite.T().TempDir()

	cfg := config.Config{
		Database:  config.DatabaseConfig{Path: filepath.Join(suite.dir, "saku.db"), QueryTimeout: 5 * time.Second},
		Session:   config.SessionConfig{Path: filepath.Join(suite.dir, "session.json")},
		Auth:      config.AuthConfig{Hasher: "sha256"},
		Ledger:    config.LedgerConfig{RecentLimit: 5},
		Reminders: config.RemindersConfig{Backend: config.BackendLocal, LeadTime: 24 * time.Hour},
		Export:    config.ExportConfig{Dir: suite.dir},
		Log:       config.LogConfig{Level: "error", Format: "text"},
	}
	a, err := app.New(suite.ctx, cfg, app.Options{
		Slot: session.NewMemorySlot(),
		Now:  func() time.Time { return fixedNow },
	})
	require.NoError(suite.T(), err, "failed to open app")
	suite.app = a
	suite.useStdin("")
}

// TearDownTest runs after each test
func (suite *HandlersTestSuite) TearDownTest() {
	if suite.app != nil {
		suite.app.Close()
	}
}

func (suite *HandlersTestSuite) useStdin(input string) {
	suite.stdout = new(bytes.Buffer)
	suite.stderr = new(bytes.Buffer)
	suite.h = New(suite.app, strings.NewReader(input), suite.stdout, suite.stderr)
	suite.h.now = func() time.Time { return fixedNow }
}

// run executes one command and returns what it printed.
func (suite *HandlersTestSuite) run(args ...string) (string, error) {
	suite.stdout.Reset()
	err := suite.h.Run(suite.ctx, args)
	return suite.stdout.String(), err
}

func (suite *HandlersTestSuite) mustRun(args ...string) string {
	out, err := suite.run(args...)
	require.NoError(suite.T(), err, "saku %s", strings.Join(args, " "))
	return out
}

func (suite *HandlersTestSuite) registerAlice() {
	suite.mustRun("register", "-name", "Alice", "-email", "alice@x.com", "-password", "secret1")
}

func (suite *HandlersTestSuite) TestRegisterLoginLogout() {
	out := suite.mustRun("register", "-name", "Alice", "-email", "alice@x.com", "-password", "secret1")
	assert.Contains(suite.T(), out, "Welcome, Alice")

	out = suite.mustRun("whoami")
	assert.Contains(suite.T(), out, "alice@x.com")

	out = suite.mustRun("logout")
	assert.Contains(suite.T(), out, "Logged out.")

	_, err := suite.run("whoami")
	assert.ErrorIs(suite.T(), err, models.ErrNoSession)

	_, err = suite.run("login", "-email", "alice@x.com", "-password", "wrong12")
	assert.ErrorIs(suite.T(), err, models.ErrInvalidCredentials)

	out = suite.mustRun("login", "-email", "alice@x.com", "-password", "secret1")
	assert.Contains(suite.T(), out, "Logged in as Alice")
}

func (suite *HandlersTestSuite) TestRegisterDuplicateEmail() {
	suite.registerAlice()
	_, err := suite.run("register", "-name", "Bob", "-email", "alice@x.com", "-password", "other12")
	assert.ErrorIs(suite.T(), err, models.ErrDuplicateEmail)
}

func (suite *HandlersTestSuite) TestPasswordsArePrompted() {
	suite.useStdin("secret1\nsecret1\nsecret2\n")

	out := suite.mustRun("register", "-name", "Alice", "-email", "alice@x.com")
	assert.Contains(suite.T(), out, "Password: ")

	out = suite.mustRun("passwd")
	assert.Contains(suite.T(), out, "Current password: ")
	assert.Contains(suite.T(), out, "Password changed.")

	suite.mustRun("logout")
	suite.mustRun("login", "-email", "alice@x.com", "-password", "secret2")
}

func (suite *HandlersTestSuite) TestProfile() {
	suite.registerAlice()

	out := suite.mustRun("profile", "-name", "Alice B", "-photo", "file:///tmp/a.png")
	assert.Contains(suite.T(), out, "Alice B")
	assert.Contains(suite.T(), out, "file:///tmp/a.png")

	out = suite.mustRun("profile", "-photo", "")
	assert.NotContains(suite.T(), out, "Photo:")
	user, err := suite.app.Store.GetUserByEmail(suite.ctx, "alice@x.com")
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), user.PhotoURI, "an empty -photo removes the stored photo")

	_, err = suite.run("profile")
	assert.ErrorIs(suite.T(), err, models.ErrValidation)

	_, err = suite.run("profile", "-email", "not-an-email")
	assert.ErrorIs(suite.T(), err, models.ErrValidation)
}

func (suite *HandlersTestSuite) TestAliceMonth() {
	suite.registerAlice()

	out := suite.mustRun("add", "-type", "income", "-category", "gaji", "-amount", "1000000", "-date", "2024-05-01")
	assert.Contains(suite.T(), out, "+Rp 1.000.000 Gaji on 1 Mei 2024")
	suite.mustRun("add", "-category", "Makan", "-amount", "50000", "-date", "2024-05-02", "-note", "nasi padang")

	out = suite.mustRun("balance")
	assert.Equal(suite.T(), "Balance: Rp 950.000\n", out)

	out = suite.mustRun("summary", "-month", "2024-05")
	assert.Contains(suite.T(), out, "Mei 2024")
	assert.Contains(suite.T(), out, "Rp 1.000.000")
	assert.Contains(suite.T(), out, "Rp 950.000")
	assert.Contains(suite.T(), out, "100.0%")
	assert.Contains(suite.T(), out, "nasi padang")
	assert.Contains(suite.T(), out, "< saku summary -month 2024-04")
	assert.NotContains(suite.T(), out, "2024-06 >", "no next link for the current month")

	out = suite.mustRun("summary", "-month", "2024-04")
	assert.Contains(suite.T(), out, "none")
	assert.Contains(suite.T(), out, "saku summary -month 2024-05 >")

	out = suite.mustRun("recent", "-n", "1")
	assert.Contains(suite.T(), out, "Makan")
	assert.NotContains(suite.T(), out, "Gaji")
}

func (suite *HandlersTestSuite) TestAddRejectsBadInput() {
	suite.registerAlice()

	_, err := suite.run("add", "-category", "Makn", "-amount", "50000")
	assert.ErrorIs(suite.T(), err, models.ErrNotFound)
	assert.ErrorContains(suite.T(), err, "Makan")

	_, err = suite.run("add", "-category", "Makan", "-amount", "-5")
	assert.ErrorIs(suite.T(), err, models.ErrValidation)

	_, err = suite.run("add", "-type", "transfer", "-category", "Makan", "-amount", "5")
	assert.ErrorIs(suite.T(), err, models.ErrValidation)

	_, err = suite.run("add", "-type", "income", "-category", "Makan", "-amount", "5")
	assert.ErrorIs(suite.T(), err, models.ErrNotFound, "Makan is not an income category")
}

func (suite *HandlersTestSuite) TestDelete() {
	suite.registerAlice()
	suite.mustRun("add", "-category", "Makan", "-amount", "50000")

	out := suite.mustRun("delete", "1")
	assert.Contains(suite.T(), out, "Deleted #1.")

	out = suite.mustRun("delete", "1")
	assert.Contains(suite.T(), out, "No transaction #1.")

	_, err := suite.run("delete", "abc")
	assert.ErrorIs(suite.T(), err, models.ErrValidation)
}

func (suite *HandlersTestSuite) TestCategories() {
	out := suite.mustRun("categories", "-type", "income")
	assert.Contains(suite.T(), out, "Gaji")
	assert.NotContains(suite.T(), out, "Makan")

	out = suite.mustRun("categories")
	assert.Contains(suite.T(), out, "Makan")
}

func (suite *HandlersTestSuite) TestExport() {
	suite.registerAlice()

	out := suite.mustRun("export", "-month", "2024-05")
	assert.Contains(suite.T(), out, "No transactions to export.")

	suite.mustRun("add", "-category", "Makan", "-amount", "50000", "-date", "2024-05-02")
	out = suite.mustRun("export", "-month", "2024-05")
	path := filepath.Join(suite.dir, "Ringkasan_Transaksi_5_2024.html")
	assert.Contains(suite.T(), out, path)
	assert.FileExists(suite.T(), path)
}

func (suite *HandlersTestSuite) TestReminders() {
	suite.registerAlice()

	out := suite.mustRun("remind", "add", "-bill", "Kos", "-due", "2024-05-20")
	assert.Contains(suite.T(), out, "Reminder #1 set for Kos due 20 Mei 2024.")

	out = suite.mustRun("remind", "list")
	assert.Contains(suite.T(), out, "Kos")
	assert.Contains(suite.T(), out, "scheduled")

	out = suite.mustRun("summary")
	assert.Contains(suite.T(), out, "Bills due")

	out = suite.mustRun("remind", "off", "1")
	assert.Contains(suite.T(), out, "turned off")

	out = suite.mustRun("remind", "list")
	assert.Contains(suite.T(), out, "No active reminders.")

	_, err := suite.run("remind", "off", "7")
	assert.ErrorIs(suite.T(), err, models.ErrNotFound)

	_, err = suite.run("remind", "snooze")
	assert.ErrorIs(suite.T(), err, models.ErrValidation)
}

func (suite *HandlersTestSuite) TestPastDueReminderIsKeptUnscheduled() {
	suite.registerAlice()

	out := suite.mustRun("remind", "add", "-bill", "Listrik", "-due", "2024-05-01")
	assert.Contains(suite.T(), out, "No notification could be scheduled")

	out = suite.mustRun("remind", "list")
	assert.Contains(suite.T(), out, "not scheduled")
}

func (suite *HandlersTestSuite) TestWatchStopsWhenCancelled() {
	suite.registerAlice()
	suite.mustRun("remind", "add", "-bill", "Kos", "-due", "2024-05-20")

	ctx, cancel := context.WithTimeout(suite.ctx, 300*time.Millisecond)
	defer cancel()
	suite.stdout.Reset()
	require.NoError(suite.T(), suite.h.Run(ctx, []string{"watch"}))
	assert.Contains(suite.T(), suite.stdout.String(), "Watching 1 reminder(s)")
	assert.Contains(suite.T(), suite.stdout.String(), "Stopped.")
	assert.Equal(suite.T(), 1, suite.app.LocalScheduler().Pending())
}

func (suite *HandlersTestSuite) TestUsage() {
	_, err := suite.run()
	assert.ErrorIs(suite.T(), err, flag.ErrHelp)
	assert.Contains(suite.T(), suite.stderr.String(), "Usage: saku <command>")

	_, err = suite.run("fly")
	assert.ErrorIs(suite.T(), err, ErrUnknownCommand)
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func TestSpendingByCategory(t *testing.T) {
	expense := func(category string, amount int64) models.Transaction {
		return models.Transaction{
			Record:   models.Record{Amount: decimal.NewFromInt(amount), Direction: models.Expense},
			Category: category,
		}
	}
	txs := []models.Transaction{
		expense("Makan", 50000),
		expense("Transportasi", 25000),
		expense("Makan", 25000),
		{Record: models.Record{Amount: decimal.NewFromInt(1000000), Direction: models.Income}, Category: "Gaji"},
	}

	shares := spendingByCategory(txs)
	require.Len(t, shares, 2)
	assert.Equal(t, "Makan", shares[0].Category)
	assert.Equal(t, 2, shares[0].Count)
	assert.Equal(t, "75.0", shares[0].Percentage.StringFixed(1))
	assert.Equal(t, "25.0", shares[1].Percentage.StringFixed(1))
}
