package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MartinRitsberg/ParemInfo/internal/core"
	"github.com/MartinRitsberg/ParemInfo/internal/tabular"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the store with the sheets of a workbook or CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("%w: %w", core.ErrFileRead, err)
			}
			defer f.Close()

			res, err := a.service.Import(a.context(cmd), filepath.Base(args[0]), f)
			if err != nil {
				return cliError(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d sheet(s) from %s\n", res.SheetCount, res.FileName)
			for _, name := range res.Sheets {
				fmt.Fprintf(out, "  %s\n", name)
			}
			if res.Clients > 0 {
				fmt.Fprintf(out, "%d client(s)\n", res.Clients)
			}
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var name, dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the editable dataset to an xlsx file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.Export.Dir
			}
			path, err := a.service.ExportFile(a.context(cmd), dir, name)
			if err != nil {
				return cliError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "output", "o", "", "file name (.xlsx is added when missing)")
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default EXPORT_DIR)")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "show [sheets|clients|dataset]",
		Short:     "Print stored sheets, clients or the editable dataset",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"sheets", "clients", "dataset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			what := "sheets"
			if len(args) == 1 {
				what = args[0]
			}
			ctx := a.context(cmd)
			out := cmd.OutOrStdout()

			switch what {
			case "clients":
				clients, err := a.service.Clients(ctx)
				if err != nil {
					return cliError(err)
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tID CODE")
				for _, c := range clients {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.DisplayName(), c.Field(core.ColIDCode))
				}
				return tw.Flush()

			case "dataset":
				view := a.service.Dataset()
				if err := view.Load(ctx); err != nil {
					return cliError(err)
				}
				rows := view.Rows()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No data")
					return nil
				}
				return printRows(out, rows[0].Columns(), rows)

			default:
				infos, err := a.service.Sheets(ctx)
				if err != nil {
					return cliError(err)
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "SHEET\tROWS\tCOLUMNS")
				for _, s := range infos {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name, s.Rows, strings.Join(s.Columns, ", "))
				}
				return tw.Flush()
			}
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	var (
		row    int
		column string
		value  string
	)

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Set one cell of the editable dataset and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			view := a.service.Dataset()
			if err := view.Load(ctx); err != nil {
				return cliError(err)
			}
			if err := view.EditCell(row, column, value); err != nil {
				return cliError(err)
			}
			if err := view.Save(ctx); err != nil {
				return cliError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Row %d %s = %q\n", row, column, value)
			return nil
		},
	}
	cmd.Flags().IntVar(&row, "row", 0, "zero-based row index")
	cmd.Flags().StringVar(&column, "column", "", "column name")
	cmd.Flags().StringVar(&value, "value", "", "new cell text")
	cmd.MarkFlagRequired("row")
	cmd.MarkFlagRequired("column")
	return cmd
}

func newLoadCSVCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load-csv <file>",
		Short: "Replace the editable dataset with a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("%w: %w", core.ErrFileRead, err)
			}
			defer f.Close()

			view := a.service.Dataset()
			if err := view.LoadCSV(a.context(cmd), f); err != nil {
				return cliError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d row(s)\n", len(view.Rows()))
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset deletes all stored data; pass --yes to confirm")
			}
			if err := a.service.Reset(a.context(cmd)); err != nil {
				return cliError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Store reset")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}

func printRows(w io.Writer, columns []string, rows []tabular.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "#\t%s\n", strings.Join(columns, "\t"))
	for i, row := range rows {
		vals := make([]string, len(columns))
		for j, col := range columns {
			c, _ := row.Get(col)
			vals[j] = c.String()
		}
		fmt.Fprintf(tw, "%d\t%s\n", i, strings.Join(vals, "\t"))
	}
	return tw.Flush()
}

// cliError adds the user message and code to err.
func cliError(err error) error {
	msg := core.MapError(err)
	return fmt.Errorf("%s (Code: %s): %w", msg.Message, msg.Code, err)
}
