package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-dashboard/internal/dashboard"
	"github.com/sells-group/disclosure-dashboard/internal/export"
	"github.com/sells-group/disclosure-dashboard/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the dashboard to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		out, _ := cmd.Flags().GetString("out")
		orderName, _ := cmd.Flags().GetString("order")

		order, err := store.ParseOrder(orderName)
		if err != nil {
			return err
		}
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		view, err := dashboard.Load(ctx, st, order)
		if err != nil {
			return err
		}
		if err := export.SaveXLSX(out, view); err != nil {
			return err
		}

		zap.L().Info("dashboard exported",
			zap.String("path", out),
			zap.Int("companies", len(view.Companies)),
			zap.Int("columns", len(view.Columns)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "dashboard.xlsx", "output file")
	exportCmd.Flags().String("order", string(store.OrderAlphabetical), "row order: alphabetical or recent")
	rootCmd.AddCommand(exportCmd)
}
