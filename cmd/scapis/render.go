package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/henrybloomingdale/scapis-dashboard/internal/dashboard"
	"github.com/henrybloomingdale/scapis-dashboard/internal/dataset"
)

// now is replaced in tests.
var now = time.Now

var renderCmd = &cobra.Command{
	Use:   "render [data] [html]",
	Short: "Render the JSON document into a static HTML dashboard",
	Long: `Reads the publications document (default ` + dataset.DefaultPath + `) and writes a
single self-contained HTML page (default ` + dashboard.DefaultOutput + `) with the data embedded.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataPath := argOr(args, 0, dataset.DefaultPath)
		htmlPath := argOr(args, 1, dashboard.DefaultOutput)
		logger.Info("generating dashboard", zap.String("data", dataPath), zap.String("html", htmlPath))

		doc, err := dataset.Load(dataPath)
		if err != nil {
			return err
		}
		html, summary, err := dashboard.Page(doc, now())
		if err != nil {
			return err
		}
		if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
			return fmt.Errorf("writing dashboard: %w", err)
		}

		logger.Info("dashboard generated",
			zap.Int("publications", summary.Count),
			zap.String("years", summary.YearRange()),
			zap.Int("size_kb", len(html)/1024))
		return nil
	},
}
