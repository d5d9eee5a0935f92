package main

import (
	"fmt"
	"strconv"

	"railctl/cmd/railctl/cli"
	"railctl/internal/binding"
	"railctl/internal/errors"
	"railctl/internal/resources"

	"github.com/spf13/cobra"
)

func newTicketsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "Ticket reports",
	}
	cmd.AddCommand(newReturnedCmd(a))
	return cmd
}

func newReturnedCmd(a *app) *cobra.Command {
	var (
		f    resources.ReturnedTicketsFilter
		date string
	)
	cmd := &cobra.Command{
		Use:     "returned",
		Short:   "Count returned tickets by trip, route or departure date",
		Example: `  railctl tickets returned --route 2 --date 2026-12-01`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				d, err := binding.ParseTime(date)
				if err != nil {
					return errors.NewValidationError("departureDate", "departureDate: invalid value", err)
				}
				f.DepartureDate = d
			}
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			n, err := resources.ReturnedTickets(cmd.Context(), c, f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().Int64Var(&f.ScheduleID, "schedule", 0, "trip id")
	cmd.Flags().Int64Var(&f.RouteID, "route", 0, "route id")
	cmd.Flags().StringVar(&date, "date", "", "departure date, YYYY-MM-DD")
	return cmd
}

func newTrainsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trains",
		Short: "Train reports",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "personnel <train-id>",
		Short: "List the employees who serviced a train",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			staff, err := resources.TrainPersonnel(cmd.Context(), c, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(staff) == 0 {
				cli.PrintInfo(out, "nobody has serviced train "+args[0])
				return nil
			}
			rows := make([][]string, len(staff))
			for i, e := range staff {
				position := "-"
				if e.Position != nil {
					position = e.Position.Name
				}
				rows[i] = []string{strconv.FormatInt(e.ID, 10), e.FullName(), position}
			}
			fmt.Fprintln(out, cli.Table([]string{"id", "employee", "position"}, rows))
			return nil
		},
	})
	return cmd
}
