package handlers

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"saku/internal/app"
	"saku/internal/export"
	"saku/internal/ledger"
	"saku/internal/models"

	"golang.org/x/term"
)

// ErrUnknownCommand is returned by Run for a command it does not know.
var ErrUnknownCommand = errors.New("unknown command")

// Handlers runs saku commands against an opened App.
type Handlers struct {
	app    *app.App
	stdin  io.Reader
	lines  *bufio.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

// New creates handlers reading prompts from stdin and writing to stdout.
// Flag errors and usage go to stderr.
func New(a *app.App, stdin io.Reader, stdout, stderr io.Writer) *Handlers {
	return &Handlers{
		app:    a,
		stdin:  stdin,
		lines:  bufio.NewReader(stdin),
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

type command struct {
	summary string
	run     func(h *Handlers, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"register":   {"create an account and log in", (*Handlers).Register},
	"login":      {"log in with email and password", (*Handlers).Login},
	"logout":     {"end the current session", (*Handlers).Logout},
	"whoami":     {"show the logged-in user", (*Handlers).WhoAmI},
	"profile":    {"change name, email or photo", (*Handlers).Profile},
	"passwd":     {"change password", (*Handlers).Passwd},
	"add":        {"record income or an expense", (*Handlers).Add},
	"delete":     {"delete a transaction by id", (*Handlers).Delete},
	"balance":    {"show the current balance", (*Handlers).Balance},
	"recent":     {"list the latest transactions", (*Handlers).Recent},
	"summary":    {"show a month's totals and transactions", (*Handlers).Summary},
	"categories": {"list categories", (*Handlers).Categories},
	"remind":     {"manage bill reminders (add, list, off)", (*Handlers).Remind},
	"export":     {"write a month's report as HTML", (*Handlers).Export},
	"watch":      {"keep reminders armed until interrupted", (*Handlers).Watch},
}

// Run restores the saved session and executes the command named by args[0].
func (h *Handlers) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		h.Usage()
		return flag.ErrHelp
	}

	cmd, ok := commands[args[0]]
	if !ok {
		h.Usage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}

	if _, _, err := h.app.Session.Restore(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return cmd.run(h, ctx, args[1:])
}

// Usage lists the commands on stderr.
func (h *Handlers) Usage() {
	Usage(h.stderr)
}

// Usage writes the command list to out.
func Usage(out io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "Usage: saku [-config <file>] [-db <db_path>] <command> [flags]")
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%s\n", name, commands[name].summary)
	}
	w.Flush()
}

func (h *Handlers) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("saku "+name, flag.ContinueOnError)
	fs.SetOutput(h.stderr)
	return fs
}

// user returns the logged-in user or an error telling how to log in.
func (h *Handlers) user() (models.User, error) {
	user, err := h.app.Session.RequireUser()
	if err != nil {
		return models.User{}, fmt.Errorf("%w; run saku login first", err)
	}
	return user, nil
}

// Register creates an account and starts a session for it.
func (h *Handlers) Register(ctx context.Context, args []string) error {
	fs := h.flagSet("register")
	name := fs.String("name", "", "Full name")
	email := fs.String("email", "", "Email address")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := h.password(*passwordFlag, "Password: ")
	if err != nil {
		return err
	}

	user, err := h.app.Auth.Register(ctx, *name, *email, password)
	if err != nil {
		return err
	}
	if err := h.app.Session.Establish(ctx, user); err != nil {
		return err
	}
	fmt.Fprintf(h.stdout, "Account created. Welcome, %s!\n", user.Name)
	return nil
}

// Login checks credentials and starts a session.
func (h *Handlers) Login(ctx context.Context, args []string) error {
	fs := h.flagSet("login")
	email := fs.String("email", "", "Email address")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := h.password(*passwordFlag, "Password: ")
	if err != nil {
		return err
	}

	user, err := h.app.Auth.Login(ctx, *email, password)
	if err != nil {
		return err
	}
	if err := h.app.Session.Establish(ctx, user); err != nil {
		return err
	}
	fmt.Fprintf(h.stdout, "Logged in as %s.\n", user.Name)
	return nil
}

// Logout ends the current session.
func (h *Handlers) Logout(ctx context.Context, args []string) error {
	if _, ok := h.app.Session.Current(); !ok {
		fmt.Fprintln(h.stdout, "Not logged in.")
		return nil
	}
	if err := h.app.Session.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(h.stdout, "Logged out.")
	return nil
}

// WhoAmI prints the logged-in user's profile.
func (h *Handlers) WhoAmI(ctx context.Context, args []string) error {
	user, err := h.user()
	if err != nil {
		return err
	}
	h.printProfile(user)
	return nil
}

func (h *Handlers) printProfile(user models.User) {
	w := tabwriter.NewWriter(h.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", user.Name)
	fmt.Fprintf(w, "Email:\t%s\n", user.Email)
	if user.PhotoURI != nil {
		fmt.Fprintf(w, "Photo:\t%s\n", *user.PhotoURI)
	}
	fmt.Fprintf(w, "Member since:\t%s\n", export.FormatDate(models.DateOf(user.CreatedAt.Local())))
	w.Flush()
}

// Profile changes the fields given on the command line. An empty -photo
// removes the photo.
func (h *Handlers) Profile(ctx context.Context, args []string) error {
	fs := h.flagSet("profile")
	name := fs.String("name", "", "New full name")
	email := fs.String("email", "", "New email address")
	photo := fs.String("photo", "", "Photo location; empty removes it")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var update models.ProfileUpdate
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			update.Name = name
		case "email":
			update.Email = email
		case "photo":
			if *photo == "" {
				update.ClearPhoto = true
			} else {
				update.PhotoURI = photo
			}
		}
	})
	if update.Empty() {
		return models.Invalid("profile", "nothing to change; use -name, -email or -photo")
	}

	user, err := h.app.Session.ApplyProfileUpdate(ctx, update)
	if err != nil {
		return err
	}
	fmt.Fprintln(h.stdout, "Profile updated.")
	h.printProfile(user)
	return nil
}

// Passwd changes the logged-in user's password.
func (h *Handlers) Passwd(ctx context.Context, args []string) error {
	fs := h.flagSet("passwd")
	oldFlag := fs.String("old", "", "Current password (optional, will prompt if omitted)")
	newFlag := fs.String("new", "", "New password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := h.user()
	if err != nil {
		return err
	}
	oldPassword, err := h.password(*oldFlag, "Current password: ")
	if err != nil {
		return err
	}
	newPassword, err := h.password(*newFlag, "New password: ")
	if err != nil {
		return err
	}

	if err := h.app.Auth.ChangePassword(ctx, user.ID, oldPassword, newPassword); err != nil {
		return err
	}
	fmt.Fprintln(h.stdout, "Password changed.")
	return nil
}

// Add records a transaction in a category named on the command line.
func (h *Handlers) Add(ctx context.Context, args []string) error {
	fs := h.flagSet("add")
	kind := fs.String("type", string(models.Expense), "income or expense")
	categoryName := fs.String("category", "", "Category name")
	amountFlag := fs.String("amount", "", "Amount, e.g. 50000 or 12500,50")
	note := fs.String("note", "", "Optional note")
	dateFlag := fs.String("date", "", "Date as YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := h.user()
	if err != nil {
		return err
	}
	direction, err := models.ParseDirection(*kind)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*categoryName) == "" {
		return models.Invalid("category", "is required")
	}
	amount, err := ledger.ParseAmount(*amountFlag)
	if err != nil {
		return err
	}
	date := h.today()
	if *dateFlag != "" {
		if date, err = models.ParseDate(*dateFlag); err != nil {
			return models.Invalid("date", "must look like 2024-05-01")
		}
	}

	category, err := h.app.Ledger.ResolveCategory(ctx, direction, *categoryName)
	if err != nil {
		return err
	}

	record, err := h.app.Ledger.AddTransaction(ctx, ledger.NewTransaction{
		UserID:     user.ID,
		CategoryID: category.ID,
		Amount:     amount,
		Direction:  direction,
		Note:       *note,
		Date:       date,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(h.stdout, "Saved #%d: %s %s on %s\n", record.ID,
		export.FormatSigned(record.Amount, record.Direction), category.Name, export.FormatDate(record.Date))
	return nil
}

// Delete removes one of the user's transactions. A missing id is reported
// but is not an error.
func (h *Handlers) Delete(ctx context.Context, args []string) error {
	fs := h.flagSet("delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return models.Invalid("id", "usage: saku delete <id>")
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return models.Invalid("id", "must be a positive number")
	}

	user, err := h.user()
	if err != nil {
		return err
	}
	err = h.app.Ledger.DeleteTransaction(ctx, user.ID, id)
	switch {
	case errors.Is(err, models.ErrNotFound):
		fmt.Fprintf(h.stdout, "No transaction #%d.\n", id)
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(h.stdout, "Deleted #%d.\n", id)
	return nil
}

// Balance prints total income minus total expense.
func (h *Handlers) Balance(ctx context.Context, args []string) error {
	user, err := h.user()
	if err != nil {
		return err
	}
	balance, err := h.app.Ledger.CurrentBalance(ctx, user.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(h.stdout, "Balance: %s\n", export.FormatRupiah(balance))
	return nil
}

// Recent lists the latest transactions.
func (h *Handlers) Recent(ctx context.Context, args []string) error {
	fs := h.flagSet("recent")
	limit := fs.Int("n", 0, "How many to show (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := h.user()
	if err != nil {
		return err
	}
	txs, err := h.app.Ledger.RecentTransactions(ctx, user.ID, *limit)
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		fmt.Fprintln(h.stdout, "No transactions yet.")
		return nil
	}
	h.printTransactions(transactionItems(txs))
	return nil
}

// Categories lists the categories of one direction, or both.
func (h *Handlers) Categories(ctx context.Context, args []string) error {
	fs := h.flagSet("categories")
	kind := fs.String("type", "", "income or expense (default both)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		categories []models.Category
		err        error
	)
	if *kind == "" {
		categories, err = h.app.Store.AllCategories(ctx)
	} else {
		var d models.Direction
		if d, err = models.ParseDirection(*kind); err != nil {
			return err
		}
		categories, err = h.app.Ledger.CategoriesByDirection(ctx, d)
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(h.stdout, 0, 0, 2, ' ', 0)
	for _, c := range categories {
		fmt.Fprintf(w, "%s\t%s\n", c.Direction, c.Name)
	}
	return w.Flush()
}

// Export writes the month's report to the export directory.
func (h *Handlers) Export(ctx context.Context, args []string) error {
	fs := h.flagSet("export")
	monthFlag := fs.String("month", "", "Month as YYYY-MM (default current)")
	dir := fs.String("dir", h.app.Config.Export.Dir, "Directory to write the report to")
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

	report, err := export.Build(ctx, h.app.Ledger, user.ID, year, month)
	if errors.Is(err, export.ErrEmptyReport) {
		fmt.Fprintln(h.stdout, "No transactions to export.")
		return nil
	}
	if err != nil {
		return err
	}
	path, err := export.WriteFile(*dir, report)
	if err != nil {
		return err
	}
	fmt.Fprintf(h.stdout, "Report saved to %s\n", path)
	return nil
}

// Watch re-arms the user's active reminders and blocks until ctx is done.
// With a broker backend the reminders are handed over and Watch returns.
func (h *Handlers) Watch(ctx context.Context, args []string) error {
	user, err := h.user()
	if err != nil {
		return err
	}
	armed, err := h.app.Reminders.Reschedule(ctx, user.ID)
	if err != nil {
		return err
	}

	if h.app.LocalScheduler() == nil {
		fmt.Fprintf(h.stdout, "Handed %d reminder(s) to the broker.\n", armed)
		return nil
	}
	fmt.Fprintf(h.stdout, "Watching %d reminder(s). Press Ctrl+C to stop.\n", armed)
	<-ctx.Done()
	fmt.Fprintln(h.stdout, "Stopped.")
	return nil
}

func (h *Handlers) today() models.Date {
	return models.DateOf(h.now())
}

// month parses YYYY-MM, defaulting to the current month.
func (h *Handlers) month(s string) (int, time.Month, error) {
	if s == "" {
		now := h.now()
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, models.Invalid("month", "must look like 2024-05")
	}
	return t.Year(), t.Month(), nil
}

func (h *Handlers) password(given, prompt string) (string, error) {
	if given != "" {
		return given, nil
	}
	fmt.Fprint(h.stdout, prompt)
	password, err := h.readPassword()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(h.stdout) // Print newline after password input
	return password, nil
}

func (h *Handlers) readPassword() (string, error) {
	// Check if stdin is a terminal
	if f, ok := h.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	line, err := h.lines.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
