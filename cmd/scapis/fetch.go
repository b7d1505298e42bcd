package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/henrybloomingdale/scapis-dashboard/internal/collector"
	"github.com/henrybloomingdale/scapis-dashboard/internal/config"
	"github.com/henrybloomingdale/scapis-dashboard/internal/dataset"
	"github.com/henrybloomingdale/scapis-dashboard/internal/eutils"
	"github.com/henrybloomingdale/scapis-dashboard/internal/ncbi"
	"github.com/henrybloomingdale/scapis-dashboard/internal/output"
	"github.com/henrybloomingdale/scapis-dashboard/internal/pubs"
	"github.com/henrybloomingdale/scapis-dashboard/internal/scapis"
	"github.com/henrybloomingdale/scapis-dashboard/internal/topics"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [output]",
	Short: "Collect publications into a JSON document",
	Long: `Searches PubMed for SCAPIS publications, fetches their details in batches,
adds publications listed only on the SCAPIS website, classifies them by topic
and writes the result (default ` + dataset.DefaultPath + `).

Source failures are logged and skipped; the command succeeds even when no
publication was found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutputFlags(); err != nil {
			return err
		}
		path := argOr(args, 0, dataset.DefaultPath)

		cfg, err := config.Load(settings)
		if err != nil {
			return err
		}
		c, err := newCollector(cfg)
		if err != nil {
			return err
		}

		doc, st, err := c.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("collection aborted: %w", err)
		}
		if err := dataset.Write(path, doc); err != nil {
			return err
		}
		logger.Info("saved publications",
			zap.String("path", path),
			zap.String("run_id", st.RunID),
			zap.Int("total", st.Total))

		return output.FormatStats(cmd.OutOrStdout(), output.Summarize(doc.Publications), outputCfg())
	},
}

func newCollector(cfg config.Config) (*collector.Collector, error) {
	classifier := topics.Default
	if cfg.TopicsFile != "" {
		tbl, err := topics.LoadFile(cfg.TopicsFile)
		if err != nil {
			return nil, err
		}
		classifier = tbl
	}

	base := ncbi.NewBaseClient(append(cfg.ClientOptions(), ncbi.WithLogger(logger))...)
	pm := eutils.NewClientWithBase(base)
	pm.BatchSize = cfg.BatchSize
	pm.BatchDelay = cfg.BatchDelay

	opts := []collector.Option{
		collector.WithQuery(cfg.Query, cfg.RetMax),
		collector.WithClassifier(classifier),
		collector.WithDuplicate(pubs.SameTitlePrefix),
		collector.WithLogger(logger),
	}
	if !cfg.SkipSecondary {
		opts = append(opts, collector.WithSecondary(scapis.NewClient(base, cfg.SecondaryURL)))
	}
	return collector.New(pm, opts...), nil
}
