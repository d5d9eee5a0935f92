package main

import (
	"fmt"
	"os"
	"strconv"

	"railctl/cmd/railctl/cli"
	"railctl/internal/binding"
	"railctl/internal/booking"
	"railctl/internal/errors"
	"railctl/internal/resources"

	"github.com/spf13/cobra"
)

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Search trips and buy tickets as the signed-in passenger account",
	}
	cmd.AddCommand(
		newBookSearchCmd(a),
		newBookBuyCmd(a),
		newBookTicketsCmd(a),
		newBookPassengersCmd(a),
	)
	return cmd
}

func (a *app) booking() (*booking.Service, error) {
	c, err := a.apiClient()
	if err != nil {
		return nil, err
	}
	return booking.New(c), nil
}

type searchFlags struct {
	from, to, date string
}

func (f *searchFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "departure station (name or part of it)")
	cmd.Flags().StringVar(&f.to, "to", "", "arrival station (name or part of it)")
	cmd.Flags().StringVar(&f.date, "date", "", "travel date, YYYY-MM-DD")
}

func (f *searchFlags) query() (resources.ScheduleSearch, error) {
	q := resources.ScheduleSearch{From: f.from, To: f.to}
	if f.date != "" {
		d, err := binding.ParseTime(f.date)
		if err != nil {
			return q, errors.NewValidationError("date", "date: invalid value", err)
		}
		q.Date = d
	}
	return q, nil
}

func newBookSearchCmd(a *app) *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find trips between two stations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.query()
			if err != nil {
				return err
			}
			svc, err := a.booking()
			if err != nil {
				return err
			}
			trips, err := svc.Search(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(trips) == 0 {
				cli.PrintWarning(out, "no trips found")
				return nil
			}
			rows := make([][]string, len(trips))
			for i, sc := range trips {
				rows[i] = []string{
					strconv.FormatInt(sc.ID, 10),
					booking.Describe(sc),
					sc.ArrivalTime.Format("2006-01-02 15:04"),
					sc.BasePrice.StringFixed(2),
				}
			}
			fmt.Fprintln(out, cli.Table([]string{"trip", "route", "arrives", "price"}, rows))
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newBookBuyCmd(a *app) *cobra.Command {
	var (
		f           searchFlags
		tripID      int64
		passengerID int64
		seatID      int64
		receipt     string
	)
	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Buy a ticket on a trip found by search",
		Long: `Buy a ticket on a trip found by search. Without --passenger or --seat
the available choices are listed instead.`,
		Example: `  railctl book buy --from Northgate --to Harbor --trip 2 --passenger 2 --seat 5 --receipt ticket.pdf`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.query()
			if err != nil {
				return err
			}
			svc, err := a.booking()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			trip, err := svc.Find(ctx, q, tripID)
			if err != nil {
				return err
			}
			opts, err := svc.Prepare(ctx, trip)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if passengerID == 0 || seatID == 0 {
				printChoices(cmd, opts)
				return nil
			}
			order, err := opts.Order(passengerID, seatID)
			if err != nil {
				return err
			}
			if !a.confirm(cmd, order.Summary()) {
				cli.PrintWarning(out, "cancelled")
				return nil
			}
			ticket, err := svc.Buy(ctx, order)
			if err != nil {
				return err
			}
			cli.PrintSuccess(out, fmt.Sprintf("ticket %d paid", ticket.ID))

			if receipt != "" {
				if ticket.Schedule == nil {
					ticket.Schedule = &order.Schedule
				}
				if ticket.Passenger == nil {
					ticket.Passenger = &order.Passenger
				}
				if ticket.Seat == nil {
					ticket.Seat = &order.Seat
				}
				return writeReceipt(cmd, receipt, ticket)
			}
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().Int64Var(&tripID, "trip", 0, "trip id from search")
	cmd.Flags().Int64Var(&passengerID, "passenger", 0, "one of your passengers")
	cmd.Flags().Int64Var(&seatID, "seat", 0, "an available seat")
	cmd.Flags().StringVar(&receipt, "receipt", "", "write a PDF e-ticket to this file")
	cmd.MarkFlagRequired("trip")
	return cmd
}

func printChoices(cmd *cobra.Command, opts booking.Options) {
	out := cmd.OutOrStdout()
	cli.PrintHeader(out, booking.Describe(opts.Schedule))

	if len(opts.Passengers) == 0 {
		cli.PrintWarning(out, "you have no passengers yet; add one with `railctl book passengers add`")
	} else {
		rows := make([][]string, len(opts.Passengers))
		for i, p := range opts.Passengers {
			rows[i] = []string{strconv.FormatInt(p.ID, 10), p.FullName(), p.PassportSeries + " " + p.PassportNumber}
		}
		fmt.Fprintln(out, cli.Table([]string{"passenger", "name", "passport"}, rows))
	}

	if len(opts.Seats) == 0 {
		cli.PrintWarning(out, "no seats left on this trip")
		return
	}
	rows := make([][]string, len(opts.Seats))
	for i, s := range opts.Seats {
		car := "-"
		if s.Car != nil {
			car = s.Car.CarNumber
		}
		rows[i] = []string{strconv.FormatInt(s.ID, 10), car, s.SeatNumber}
	}
	fmt.Fprintln(out, cli.Table([]string{"seat", "car", "number"}, rows))
	cli.PrintInfo(out, "choose with --passenger and --seat")
}

func writeReceipt(cmd *cobra.Command, path string, t resources.Ticket) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create receipt")
	}
	if err := booking.WriteReceipt(f, t); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close receipt")
	}
	cli.PrintSuccess(cmd.OutOrStdout(), "receipt written to "+path)
	return nil
}

func newBookTicketsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tickets",
		Short: "List the tickets bought for your passengers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.booking()
			if err != nil {
				return err
			}
			tickets, err := svc.Tickets(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tickets) == 0 {
				cli.PrintInfo(out, "no tickets")
				return nil
			}
			rows := make([][]string, len(tickets))
			for i, t := range tickets {
				trip, who, seat := "-", "-", "-"
				if t.Schedule != nil {
					trip = booking.Describe(*t.Schedule)
				}
				if t.Passenger != nil {
					who = t.Passenger.FullName()
				}
				if t.Seat != nil {
					seat = t.Seat.SeatNumber
				}
				rows[i] = []string{strconv.FormatInt(t.ID, 10), trip, who, seat, string(t.TicketStatus), t.Price.StringFixed(2)}
			}
			fmt.Fprintln(out, cli.Table([]string{"ticket", "trip", "passenger", "seat", "status", "price"}, rows))
			return nil
		},
	}
}

func newBookPassengersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passengers",
		Short: "List the passengers on your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.booking()
			if err != nil {
				return err
			}
			ps, err := svc.Passengers(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ps) == 0 {
				cli.PrintInfo(out, "no passengers")
				return nil
			}
			rows := make([][]string, len(ps))
			for i, p := range ps {
				rows[i] = []string{strconv.FormatInt(p.ID, 10), p.FullName(), p.BirthDate.String(), p.PassportSeries + " " + p.PassportNumber}
			}
			fmt.Fprintln(out, cli.Table([]string{"passenger", "name", "born", "passport"}, rows))
			return nil
		},
	}
	cmd.AddCommand(newBookAddPassengerCmd(a))
	return cmd
}

func newBookAddPassengerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "add key=value...",
		Short:   "Add a passenger to your account",
		Example: `  railctl book passengers add firstName=Kira lastName=Lebedeva birthDate=2001-07-09 passportSeries=4520 passportNumber=111222`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := binding.ParsePairs(args)
			if err != nil {
				return err
			}
			var in resources.PassengerInput
			if err := binding.Decode(&in, values); err != nil {
				return err
			}
			svc, err := a.booking()
			if err != nil {
				return err
			}
			p, err := svc.AddPassenger(cmd.Context(), in)
			if err != nil {
				return err
			}
			cli.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("passenger %d added: %s", p.ID, p.FullName()))
			return nil
		},
	}
}
