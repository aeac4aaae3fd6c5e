package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"saku/internal/app"
	"saku/internal/config"
	"saku/internal/export"
	"saku/internal/handlers"
	applog "saku/internal/log"
	"saku/internal/reminders"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("saku", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { handlers.Usage(stderr) }

	configPath := fs.String("config", "", "Path to config file")
	dbPath := fs.String("db", "", "Path to database file (overrides config)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		handlers.Usage(stderr)
		return flag.ErrHelp
	}

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger := applog.New(applog.Config{
		Level:  applog.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: stderr,
	})
	applog.SetDefault(logger)

	a, err := app.New(ctx, cfg, app.Options{
		Logger: logger,
		Notifier: func(_ context.Context, n reminders.Notification) {
			fmt.Fprintf(stdout, "Reminder: %s is due %s\n", n.BillName, export.FormatDate(n.Due))
		},
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer a.Close()

	return handlers.New(a, stdin, stdout, stderr).Run(ctx, fs.Args())
}
