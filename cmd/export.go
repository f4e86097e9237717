package main

import (
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/salaheddineelazouti/Projet-innovation/internal/export"
	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
	"github.com/salaheddineelazouti/Projet-innovation/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export orders to XLSX or CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		filter, err := exportFilter(cmd)
		if err != nil {
			return err
		}

		write, err := exportWriter(format)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		orders, err := st.ListOrders(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "export: list orders")
		}

		var w io.Writer = os.Stdout
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return eris.Wrap(err, "export: create output")
			}
			defer f.Close() //nolint:errcheck
			w = f
		}
		if err := write(w, orders); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("format", format),
			zap.Int("orders", len(orders)),
			zap.String("output", output),
		)
		return nil
	},
}

func exportWriter(format string) (func(io.Writer, []model.Order) error, error) {
	switch format {
	case "xlsx":
		return export.WriteXLSX, nil
	case "csv":
		return export.WriteCSV, nil
	default:
		return nil, eris.Errorf("unsupported export format %q (xlsx or csv)", format)
	}
}

func exportFilter(cmd *cobra.Command) (store.OrderFilter, error) {
	status, _ := cmd.Flags().GetString("status")
	source, _ := cmd.Flags().GetString("source")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	limit, _ := cmd.Flags().GetInt("limit")

	f := store.OrderFilter{
		Status: model.OrderStatus(status),
		Source: model.Source(source),
		Limit:  limit,
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, eris.Errorf("invalid status %q", status)
	}
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return f, eris.Wrap(err, "invalid --from date")
		}
		f.From = t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return f, eris.Wrap(err, "invalid --to date")
		}
		f.To = t.AddDate(0, 0, 1)
	}
	return f, nil
}

func addExportFlags(c *cobra.Command) {
	c.Flags().String("format", "xlsx", "output format: xlsx or csv")
	c.Flags().StringP("output", "o", "", "output file (default stdout)")
	c.Flags().String("status", "", "filter by status (pending, validated, rejected)")
	c.Flags().String("source", "", "filter by source (email, whatsapp, api)")
	c.Flags().String("from", "", "orders created on or after this date (YYYY-MM-DD)")
	c.Flags().String("to", "", "orders created on or before this date (YYYY-MM-DD)")
	c.Flags().Int("limit", 10000, "max number of orders")
}

func init() {
	addExportFlags(exportCmd)
	rootCmd.AddCommand(exportCmd)
}
