package main

import (
	"fmt"

	"github.com/akolanti/LayoutAPI/internal/config"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
	"github.com/spf13/cobra"
)

var (
	cfgFile       string
	configManager *config.Manager
)

var rootCmd = &cobra.Command{
	Use:   "layoutapi",
	Short: "PDF layout analysis service",
	Long: `Layout API detects the layout segments of PDF documents (titles, text,
tables, formulas, pictures...) and returns them in reading order.

Commands:
  serve            run the HTTP API and the background worker pool
  analyze          analyse one PDF from the command line
  download-models  fetch the layout model and embedding checkpoint`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cm, err := config.NewManager(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		configManager = cm
		logger_i.Init(cm.Get().Log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.layoutapi/config.yaml)",
	)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(downloadModelsCmd)
}
