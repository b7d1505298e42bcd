// Command scapis collects SCAPIS publications and renders the dashboard.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/henrybloomingdale/scapis-dashboard/internal/config"
	"github.com/henrybloomingdale/scapis-dashboard/internal/logging"
	"github.com/henrybloomingdale/scapis-dashboard/internal/output"
)

var (
	flagConfig  string
	flagVerbose bool
	flagJSON    bool
	flagHuman   bool

	settings *viper.Viper
	logger   = zap.NewNop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scapis",
	Short: "SCAPIS publications dashboard",
	Long: `Collects SCAPIS publications from PubMed and the SCAPIS website into a JSON
document, and renders that document into a static, self-contained HTML dashboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(flagVerbose)
		if err != nil {
			return err
		}

		settings = viper.New()
		config.Setup(settings, flagConfig)
		used, err := config.ReadFile(settings, flagConfig != "")
		if err != nil {
			return err
		}
		if used != "" {
			logger.Debug("using config file", zap.String("path", used))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./scapis.yaml or ~/.config/scapis/scapis.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug messages, including retries")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print statistics as structured JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagHuman, "human", "H", false, "Rich colorful terminal output")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
}

func outputCfg() output.OutputConfig {
	return output.OutputConfig{
		JSON:  flagJSON,
		Human: flagHuman,
	}
}

// argOr returns args[i] when present, otherwise def.
func argOr(args []string, i int, def string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return def
}

func validateOutputFlags() error {
	if flagJSON && flagHuman {
		return fmt.Errorf("--json and --human are mutually exclusive")
	}
	return nil
}
