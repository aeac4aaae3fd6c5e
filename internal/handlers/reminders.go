package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"saku/internal/export"
	"saku/internal/models"
)

// Remind dispatches the reminder subcommands add, list and off.
func (h *Handlers) Remind(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return models.Invalid("remind", "usage: saku remind add|list|off")
	}
	user, err := h.user()
	if err != nil {
		return err
	}

	switch args[0] {
	case "add":
		return h.remindAdd(ctx, user, args[1:])
	case "list":
		return h.remindList(ctx, user)
	case "off":
		return h.remindOff(ctx, user, args[1:])
	default:
		return models.Invalid("remind", fmt.Sprintf("unknown subcommand %q", args[0]))
	}
}

func (h *Handlers) remindAdd(ctx context.Context, user models.User, args []string) error {
	fs := h.flagSet("remind add")
	bill := fs.String("bill", "", "Bill name")
	dueFlag := fs.String("due", "", "Due date as YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	due, err := models.ParseDate(*dueFlag)
	if err != nil {
		return models.Invalid("due", "must look like 2024-05-01")
	}

	r, err := h.app.Reminders.Create(ctx, user.ID, *bill, due)
	if err != nil {
		return err
	}
	fmt.Fprintf(h.stdout, "Reminder #%d set for %s due %s.\n", r.ID, r.BillName, export.FormatDate(r.DueDate))
	if r.ScheduleHandle == nil {
		fmt.Fprintln(h.stdout, "No notification could be scheduled for it.")
	}
	return nil
}

func (h *Handlers) remindList(ctx context.Context, user models.User) error {
	rs, err := h.app.Reminders.Active(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(rs) == 0 {
		fmt.Fprintln(h.stdout, "No active reminders.")
		return nil
	}

	w := tabwriter.NewWriter(h.stdout, 0, 0, 2, ' ', 0)
	for _, r := range rs {
		state := "scheduled"
		if r.ScheduleHandle == nil {
			state = "not scheduled"
		}
		fmt.Fprintf(w, "  #%d\t%s\t%s\t%s\n", r.ID, export.FormatDate(r.DueDate), r.BillName, state)
	}
	return w.Flush()
}

func (h *Handlers) remindOff(ctx context.Context, user models.User, args []string) error {
	if len(args) != 1 {
		return models.Invalid("id", "usage: saku remind off <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return models.Invalid("id", "must be a positive number")
	}

	err = h.app.Reminders.Deactivate(ctx, user.ID, id)
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("reminder #%d: %w", id, err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(h.stdout, "Reminder #%d turned off.\n", id)
	return nil
}
