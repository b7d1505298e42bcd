package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/henrybloomingdale/scapis-dashboard/internal/dataset"
	"github.com/henrybloomingdale/scapis-dashboard/internal/output"
)

var (
	flagRIS string
	flagCSV string
)

var exportCmd = &cobra.Command{
	Use:   "export [data]",
	Short: "Export publications to RIS or CSV",
	Long:  `Writes the records of a publications document to citation-manager (RIS) and/or spreadsheet (CSV) files.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagRIS == "" && flagCSV == "" {
			return fmt.Errorf("nothing to export: pass --ris and/or --csv")
		}
		doc, err := dataset.Load(argOr(args, 0, dataset.DefaultPath))
		if err != nil {
			return err
		}
		if err := output.Export(doc.Publications, output.ExportConfig{RISFile: flagRIS, CSVFile: flagCSV}); err != nil {
			return err
		}
		logger.Info("exported publications",
			zap.Int("publications", len(doc.Publications)),
			zap.String("ris", flagRIS),
			zap.String("csv", flagCSV))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&flagRIS, "ris", "", "Write RIS to this file")
	exportCmd.Flags().StringVar(&flagCSV, "csv", "", "Write CSV to this file")
}
