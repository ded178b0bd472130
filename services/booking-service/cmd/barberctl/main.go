package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/md-rashed-zaman/barbershop/libs/config"
	"github.com/md-rashed-zaman/barbershop/libs/runtime"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/export"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/storage"
	"github.com/spf13/cobra"
)

func main() {
	_ = config.LoadDotEnv()
	if err := newRootCmd(time.Now).Execute(); err != nil {
		os.Exit(1)
	}
}

type cliOptions struct {
	file     string
	timezone string
	now      func() time.Time
}

func (o *cliOptions) service() (*booking.Service, error) {
	loc := time.Local
	if o.timezone != "" && o.timezone != "Local" {
		l, err := time.LoadLocation(o.timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", o.timezone, err)
		}
		loc = l
	}
	// Store warnings go to stderr so "export --out -" keeps stdout clean.
	store := storage.NewFileStore(o.file, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	return booking.NewService(store, nil, nil, runtime.DiscardLogger(), booking.Config{
		Location: loc,
		Now:      o.now,
	})
}

func newRootCmd(now func() time.Time) *cobra.Command {
	opts := &cliOptions{now: now}
	root := &cobra.Command{
		Use:          "barberctl",
		Short:        "Inspect and export barbershop bookings from the local file store",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.file, "file", config.String("BOOKINGS_FILE", "data/bookings.json"), "Path to the bookings JSON file")
	root.PersistentFlags().StringVar(&opts.timezone, "tz", config.String("BOOKING_TIMEZONE", "Local"), "Shop timezone (IANA name)")

	root.AddCommand(newCatalogCmd(), newSlotsCmd(opts), newBookingsCmd(opts))
	return root
}

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List barbers and services",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "BARBER\tNAME")
			for _, b := range catalog.Barbers() {
				fmt.Fprintf(tw, "%s\t%s\n", b.ID, b.Name)
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "SERVICE\tNAME\tMINUTES")
			for _, s := range catalog.Services() {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", s.ID, s.Name, s.DurationMinutes)
			}
			return tw.Flush()
		},
	}
}

func newSlotsCmd(opts *cliOptions) *cobra.Command {
	var barberID, date string
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Show open slots for a barber on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			if date == "" {
				date = svc.Today()
			}
			slots, err := svc.Slots(cmd.Context(), barberID, date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(slots) == 0 {
				fmt.Fprintln(out, "no open slots")
				return nil
			}
			for _, s := range slots {
				fmt.Fprintln(out, s)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&barberID, "barber", "", "Barber id (see catalog)")
	cmd.Flags().StringVar(&date, "date", "", "Date YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("barber")
	return cmd
}

func newBookingsCmd(opts *cliOptions) *cobra.Command {
	var filter model.Filter
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List or export stored bookings",
	}
	cmd.PersistentFlags().StringVar(&filter.Date, "date", "", "Only bookings on this date")
	cmd.PersistentFlags().StringVar(&filter.BarberID, "barber", "", "Only bookings for this barber")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print bookings sorted by date and time",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			bookings, err := svc.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printBookings(cmd.OutOrStdout(), bookings)
		},
	}

	var out string
	exp := &cobra.Command{
		Use:   "export",
		Short: "Write bookings as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			bookings, err := svc.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if out == "-" {
				return export.WriteCSV(cmd.OutOrStdout(), bookings)
			}
			if len(bookings) == 0 {
				return export.ErrNothingToExport
			}
			if out == "" {
				out = export.FileName(svc.Today(), filter)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.WriteCSV(f, bookings); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bookings to %s\n", len(bookings), out)
			return nil
		},
	}
	exp.Flags().StringVar(&out, "out", "", `Output file ("-" for stdout, default bookings_<today>...csv)`)

	cmd.AddCommand(list, exp)
	return cmd
}

func printBookings(w io.Writer, bookings []model.Booking) error {
	if len(bookings) == 0 {
		_, err := fmt.Fprintln(w, "no bookings")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTIME\tBARBER\tSERVICE\tNAME\tPHONE\tEMAIL")
	for _, b := range bookings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s %s\t%s\t%s\n",
			b.Date, b.Time, catalog.BarberName(b.BarberID), catalog.ServiceName(b.ServiceID),
			b.FirstName, b.LastName, b.Phone, b.Email)
	}
	return tw.Flush()
}
