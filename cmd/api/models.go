package main

import (
	"github.com/akolanti/LayoutAPI/internal/modelstore"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
	"github.com/spf13/cobra"
)

var downloadModelName string

var downloadModelsCmd = &cobra.Command{
	Use:   "download-models",
	Short: "Download the layout model and the embedding checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configManager.Get()
		if downloadModelName != "" {
			cfg.Model.Name = downloadModelName
		}
		logger := logger_i.NewLogger("cli")
		if modelstore.AreModelsDownloaded(cfg) {
			logger.Info("Models already present", "path", cfg.Paths.Models)
			return nil
		}
		if err := modelstore.DownloadModels(cmd.Context(), cfg); err != nil {
			return err
		}
		logger.Info("Models downloaded", "path", cfg.Paths.Models)
		return nil
	},
}

func init() {
	downloadModelsCmd.Flags().StringVar(&downloadModelName, "model", "", "layout model name (default from model.name)")
}
