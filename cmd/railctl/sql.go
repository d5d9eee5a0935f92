package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"railctl/cmd/railctl/cli"
	"railctl/internal/errors"
	"railctl/internal/sqlconsole"

	"github.com/spf13/cobra"
)

func newSQLCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Run read-only SQL reports against the operations database",
		Long: `Run read-only SQL reports against the operations database configured
under sql.driver and sql.dsn. Only a single SELECT or WITH statement is accepted.`,
	}
	cmd.AddCommand(newSQLPresetsCmd(), newSQLRunCmd(a))
	return cmd
}

func newSQLPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the canned reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, len(sqlconsole.Presets))
			for i, p := range sqlconsole.Presets {
				rows[i] = []string{strconv.Itoa(p.ID), p.Name}
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.Table([]string{"preset", "report"}, rows))
			return nil
		},
	}
}

func newSQLRunCmd(a *app) *cobra.Command {
	var (
		preset  int
		maxRows int
	)
	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Run a query or a preset",
		Example: `  railctl sql run --preset 4
  railctl sql run "SELECT name FROM stations ORDER BY name"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			switch {
			case preset != 0 && query != "":
				return errors.NewValidationError("preset", "give either a query or --preset, not both", nil)
			case preset != 0:
				p, ok := sqlconsole.PresetByID(preset)
				if !ok {
					return errors.NewValidationError("preset", fmt.Sprintf("no preset %d; see `railctl sql presets`", preset), nil)
				}
				query = p.Query
			}
			if _, err := sqlconsole.Guard(query); err != nil {
				return err
			}

			db, err := sqlconsole.Open(a.cfg.SQL.Driver, a.cfg.SQL.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := sqlconsole.New(db, maxRows).Run(cmd.Context(), query)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(res.Rows) > 0 {
				fmt.Fprintln(out, cli.Table(res.Columns, res.Rows))
			}
			summary := fmt.Sprintf("%d rows in %s", len(res.Rows), res.Elapsed.Round(time.Millisecond))
			if res.Truncated {
				summary += fmt.Sprintf(" (truncated at %d)", maxRows)
			}
			cli.PrintInfo(out, summary)
			return nil
		},
	}
	cmd.Flags().IntVarP(&preset, "preset", "p", 0, "run a canned report by number")
	cmd.Flags().IntVar(&maxRows, "max-rows", 500, "keep at most this many rows (0 for all)")
	return cmd
}
