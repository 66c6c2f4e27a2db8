package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akolanti/LayoutAPI/internal/layout"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	analyzeFormat  string
	analyzeXml     string
	analyzeKeepPDF bool
	outputFormat   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.pdf>",
	Short: "Analyse one PDF and print its segments",
	Long: `Run the layout pipeline on a local PDF without starting the server.

Examples:
  layoutapi analyze paper.pdf
  layoutapi analyze paper.pdf --format markdown -o yaml
  layoutapi analyze paper.pdf --xml paper.xml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logger_i.NewLogger("cli")
		cfg := configManager.Get()
		if err := cfg.EnsureDirs(); err != nil {
			return err
		}

		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		service, _ := newLayoutService(cfg)
		segments, err := service.AnalyzePDF(cmd.Context(), layout.Request{
			Content:          content,
			FileName:         filepath.Base(args[0]),
			XmlFileName:      analyzeXml,
			ExtractionFormat: analyzeFormat,
			KeepPDF:          analyzeKeepPDF,
			OnStage: func(stage layout.Stage) {
				logger.Debug("stage", "name", string(stage))
			},
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch outputFormat {
		case "yaml":
			enc := yaml.NewEncoder(out)
			defer enc.Close()
			return enc.Encode(segments)
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(segments)
		default:
			return fmt.Errorf("unknown output format %q", outputFormat)
		}
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "", "table extraction format: markdown, html or latex")
	analyzeCmd.Flags().StringVar(&analyzeXml, "xml", "", "save the extracted text layer under this name")
	analyzeCmd.Flags().BoolVar(&analyzeKeepPDF, "keep-pdf", false, "keep the temporary copy of the PDF")
	analyzeCmd.Flags().StringVarP(&outputFormat, "output", "o", "json", "output format: json or yaml")
}
