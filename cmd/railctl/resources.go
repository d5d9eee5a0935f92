package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"railctl/cmd/railctl/cli"
	"railctl/internal/binding"
	"railctl/internal/console"
	"railctl/internal/errors"
	"railctl/internal/export"

	"github.com/spf13/cobra"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError("id", fmt.Sprintf("invalid id %q", s), err)
	}
	return id, nil
}

// load applies the key=value criteria and waits for list and count.
func load(c console.Console, pairs []string) (console.View, error) {
	if len(pairs) > 0 {
		values, err := binding.ParsePairs(pairs)
		if err != nil {
			return console.View{}, err
		}
		if err := c.SetFilterValues(values); err != nil {
			return console.View{}, err
		}
	} else {
		c.Refresh()
	}
	c.Wait()
	v := c.View()
	if v.ListErr != nil {
		return v, v.ListErr
	}
	return v, nil
}

func records(v console.View) []any {
	out := make([]any, len(v.Rows))
	for i, r := range v.Rows {
		out[i] = r.Record
	}
	return out
}

func newResourcesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resources [pattern]",
		Short: "List the managed collections, optionally matching a glob such as 'route*'",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}
			ds, err := a.registry.Match(pattern)
			if err != nil {
				return err
			}
			if len(ds) == 0 {
				cli.PrintWarning(cmd.OutOrStdout(), "no collection matches "+pattern)
				return nil
			}
			rows := make([][]string, 0, len(ds))
			for _, d := range ds {
				rows = append(rows, []string{d.Name, d.Group, strings.Join(d.Filters, " "), strings.Join(d.Depends, " ")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.Table([]string{"collection", "group", "filters", "references"}, rows))
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var asJSON, wide bool
	cmd := &cobra.Command{
		Use:   "list <resource> [key=value...]",
		Short: "List records matching filter criteria",
		Example: `  railctl list employees departmentId=3 isActive=true
  railctl list schedules departureTimeFrom=2026-12-01 --wide`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			v, err := load(c, args[1:])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				c.ShowListJSON()
				fmt.Fprintln(out, c.View().JSON)
				return nil
			}
			printList(out, v, wide)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw records as JSON")
	cmd.Flags().BoolVarP(&wide, "wide", "w", false, "print every field")
	return cmd
}

func printList(out io.Writer, v console.View, wide bool) {
	if len(v.Rows) > 0 {
		if wide {
			t := export.FromRecords(v.Resource, records(v))
			fmt.Fprintln(out, cli.Table(t.Columns, t.Rows))
		} else {
			rows := make([][]string, len(v.Rows))
			for i, r := range v.Rows {
				rows[i] = []string{strconv.FormatInt(r.ID, 10), r.Label}
			}
			fmt.Fprintln(out, cli.Table([]string{"id", v.Noun}, rows))
		}
	}
	summary := fmt.Sprintf("%d of %d %s", len(v.Rows), v.Count, v.Resource)
	if v.Query != "" {
		summary += " matching " + v.Query
	}
	cli.PrintInfo(out, summary)
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count <resource> [key=value...]",
		Short: "Count records matching filter criteria",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			v, err := load(c, args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.Count)
			return nil
		},
	}
}

func newNamesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "names <resource>",
		Short: "Print the display names of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.registry.Lookup(args[0])
			if err != nil {
				return err
			}
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			names, err := d.ListNames(cmd.Context(), c)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <resource> <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			_, c, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.SelectID(cmd.Context(), id); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				if err := c.ShowJSON(); err != nil {
					return err
				}
				fmt.Fprintln(out, c.View().JSON)
				return nil
			}
			v := c.View()
			pairs := make([][2]string, len(v.Detail))
			for i, f := range v.Detail {
				pairs[i] = [2]string{f.Name, f.Value}
			}
			fmt.Fprintln(out, cli.DrawBox(cli.Fields(pairs)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw record as JSON")
	return cmd
}

// openForm waits for the form to open and warns about references that
// could not be loaded.
func openForm(cmd *cobra.Command, c console.Console) error {
	c.Wait()
	v := c.View()
	if v.Mode != console.Creating && v.Mode != console.Editing {
		if v.ModalErr != nil {
			return v.ModalErr
		}
		return errors.New("form did not open")
	}
	if len(v.FailedDeps) > 0 {
		cli.PrintWarning(cmd.ErrOrStderr(), "could not load "+strings.Join(v.FailedDeps, ", ")+"; references to them are not checked")
	}
	return nil
}

// settle shows the pending mutation, asks for confirmation and runs it.
func (a *app) settle(cmd *cobra.Command, c console.Console) error {
	out := cmd.OutOrStdout()
	v := c.View()
	if v.Pending == nil {
		return errors.New("nothing to confirm")
	}
	cli.PrintHeader(out, v.Pending.Title)
	fmt.Fprintln(out, v.Pending.Message)
	for _, ch := range v.Pending.Changes {
		fmt.Fprintln(out, "  • "+ch)
	}

	if !a.confirm(cmd, "Proceed?") {
		c.Cancel()
		cli.PrintWarning(out, "cancelled")
		return nil
	}
	if err := c.Confirm(); err != nil {
		return err
	}
	c.Wait()
	v = c.View()
	if v.ModalErr != nil {
		return v.ModalErr
	}
	cli.PrintSuccess(out, v.Notice)
	return nil
}

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "create <resource> key=value...",
		Short:   "Create a record after confirmation",
		Example: `  railctl create employees firstName=Kira lastName=Lebedeva hireDate=2026-10-01 positionId=3 salary=35000`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := binding.ParsePairs(args[1:])
			if err != nil {
				return err
			}
			_, c, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.RequestCreate(); err != nil {
				return err
			}
			if err := openForm(cmd, c); err != nil {
				return err
			}
			if err := c.SubmitValues(values); err != nil {
				return err
			}
			return a.settle(cmd, c)
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <resource> <id> key=value...",
		Short: "Change fields of a record after confirmation; key= clears a field",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			values, err := binding.ParsePairs(args[2:])
			if err != nil {
				return err
			}
			_, c, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.SelectID(cmd.Context(), id); err != nil {
				return err
			}
			if err := c.RequestEdit(); err != nil {
				return err
			}
			if err := openForm(cmd, c); err != nil {
				return err
			}
			if err := c.SubmitValues(values); err != nil {
				return err
			}
			return a.settle(cmd, c)
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete a record after confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			_, c, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.SelectID(cmd.Context(), id); err != nil {
				return err
			}
			if err := c.RequestDelete(); err != nil {
				return err
			}
			return a.settle(cmd, c)
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export <resource> [key=value...]",
		Short: "Export the filtered records as JSON or an Excel workbook",
		Example: `  railctl export tickets ticketStatus=returned --format xlsx -o returned.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			d, c, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			v, err := load(c, args[1:])
			if err != nil {
				return err
			}
			t := export.FromRecords(d.Name, records(v))

			if output == "" || output == "-" {
				return export.Write(cmd.OutOrStdout(), f, t)
			}
			file, err := os.Create(output)
			if err != nil {
				return errors.Wrap(err, "create export file")
			}
			if err := export.Write(file, f, t); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return errors.Wrap(err, "close export file")
			}
			cli.PrintSuccess(cmd.ErrOrStderr(), fmt.Sprintf("exported %d %s to %s", len(t.Rows), d.Name, output))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
