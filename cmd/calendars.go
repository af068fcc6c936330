package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/teemow/drivelog/internal/calendar"
	"github.com/teemow/drivelog/internal/ui"
)

func newCalendarsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calendars",
		Short: "List the account's calendars",
		Long: `List every calendar of the account. The calendar drives are logged to is
marked, so you can check that it exists before tracking.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			term := ui.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout())
			return runCalendars(cmd.Context(), term)
		},
	}
}

func runCalendars(ctx context.Context, term *ui.Terminal) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	a, err := newApp(ctx, cfg, logger, appOptions{Terminal: term})
	if err != nil {
		return err
	}
	defer a.Close()

	calendars, err := ui.RunWithProgress(ctx, term, "Getting calendars",
		func(ctx context.Context) ([]calendar.CalendarInfo, error) {
			return a.tracker.Calendars(ctx, cfg.Account)
		})
	if err != nil {
		return report(term, err)
	}

	printCalendars(term.Out(), calendars, a.tracker.CalendarTitle())
	return nil
}

func printCalendars(w io.Writer, calendars []calendar.CalendarInfo, title string) {
	if len(calendars) == 0 {
		fmt.Fprintln(w, "No calendars found.")
		return
	}

	drives, found := calendar.FindByTitle(calendars, title)

	fmt.Fprintln(w, ui.TitleStyle.Render(fmt.Sprintf("%d calendars", len(calendars))))
	for _, c := range calendars {
		line := c.Summary
		if c.Primary {
			line += ui.DimStyle.Render(" (primary)")
		}
		if found && c.ID == drives.ID {
			line = ui.HighlightStyle.Render("* ") + line + ui.DimStyle.Render(" <- drives")
		} else {
			line = "  " + line
		}
		fmt.Fprintln(w, line)
	}

	if !found {
		fmt.Fprintln(w)
		ui.Notify(w, ui.LevelWarning, "No calendar titled %q", title)
	}
}
