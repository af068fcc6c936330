package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/drivelog/internal/tracker"
	"github.com/teemow/drivelog/internal/ui"
)

const dateLayout = "2006-01-02"

type trackOptions struct {
	km      float64
	date    string
	lat     float64
	lon     float64
	address string
}

func newTrackCmd() *cobra.Command {
	var opts trackOptions

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Log a drive to the Driving calendar",
		Long: `Log a drive as an all-day event in your Driving calendar.

The event is titled "<km> km, <address>", where the address is looked up
from the position the drive ended at. Pass --address to skip the lookup.`,
		Example: `  drivelog track --km 42 --lat 52.52 --lon 13.405
  drivelog track --km 12.5 --date 2026-03-01 --address "Main St 1, Springfield"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("km") {
				return fmt.Errorf("--km is required")
			}
			if opts.address == "" && (!cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon")) {
				return fmt.Errorf("--lat and --lon are required unless --address is given")
			}
			term := ui.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout())
			return runTrack(cmd.Context(), term, opts)
		},
	}

	cmd.Flags().Float64Var(&opts.km, "km", 0, "Distance driven in kilometres")
	cmd.Flags().StringVar(&opts.date, "date", "", "Date of the drive, YYYY-MM-DD (default: today)")
	cmd.Flags().Float64Var(&opts.lat, "lat", 0, "Latitude where the drive ended")
	cmd.Flags().Float64Var(&opts.lon, "lon", 0, "Longitude where the drive ended")
	cmd.Flags().StringVar(&opts.address, "address", "", "Comma separated address to use instead of a lookup")

	return cmd
}

func (o trackOptions) drive(acct string) (tracker.Drive, error) {
	d := tracker.Drive{
		Account:    acct,
		Kilometers: o.km,
		Latitude:   o.lat,
		Longitude:  o.lon,
	}
	if o.date != "" {
		date, err := time.ParseInLocation(dateLayout, o.date, time.Local)
		if err != nil {
			return tracker.Drive{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", o.date)
		}
		d.Date = date
	}
	return d, nil
}

func runTrack(ctx context.Context, term *ui.Terminal, opts trackOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	drive, err := opts.drive(cfg.Account)
	if err != nil {
		return err
	}

	geocoder, err := newGeocoder(cfg.Geocode, opts.address, nil, logger)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger, appOptions{Terminal: term, Geocoder: geocoder})
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := ui.RunWithProgress(ctx, term, "Getting calendar, and GPS",
		func(ctx context.Context) (tracker.Result, error) {
			return a.tracker.Track(ctx, drive)
		})
	if err != nil {
		return report(term, err)
	}

	level, msg := describeTrack(result, a.tracker.CalendarTitle())
	ui.Notify(term.Out(), level, "%s", msg)
	return nil
}

// describeTrack turns a Track result into a notification.
func describeTrack(res tracker.Result, title string) (ui.Level, string) {
	switch res.Outcome {
	case tracker.OutcomeCreated:
		return ui.LevelSuccess, fmt.Sprintf("Logged %q to %s", res.Title, res.Calendar.Summary)
	case tracker.OutcomeNotFound:
		return ui.LevelWarning, fmt.Sprintf("No calendar titled %q; create it in Google Calendar first", title)
	case tracker.OutcomeNoAddress:
		return ui.LevelWarning, "No address found for this position; nothing was logged"
	case tracker.OutcomeCancelled:
		return ui.LevelInfo, "Cancelled"
	default:
		return ui.LevelError, fmt.Sprintf("Unexpected result %q", res.Outcome)
	}
}
