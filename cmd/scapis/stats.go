package main

import (
	"github.com/spf13/cobra"

	"github.com/henrybloomingdale/scapis-dashboard/internal/dataset"
	"github.com/henrybloomingdale/scapis-dashboard/internal/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats [data]",
	Short: "Summarize a publications document",
	Long:  `Prints counts, the year range, abstract coverage, topic distribution and the top journals of a publications document.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutputFlags(); err != nil {
			return err
		}
		doc, err := dataset.Load(argOr(args, 0, dataset.DefaultPath))
		if err != nil {
			return err
		}
		return output.FormatStats(cmd.OutOrStdout(), output.Summarize(doc.Publications), outputCfg())
	},
}
