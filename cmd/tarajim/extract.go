package main

import (
	"github.com/spf13/cobra"

	"github.com/msalhab/tarajim/internal/cli"
	"github.com/msalhab/tarajim/internal/pipeline"
	"github.com/msalhab/tarajim/internal/providers"
)

var (
	extractPattern  string
	extractProvider string
	extractWorkers  int
)

var extractCmd = &cobra.Command{
	Use:   "extract <book-id> <pdf>",
	Short: "Run the full extraction pipeline on a PDF",
	Long: `Extract structured author records from a biographical collection PDF.

Records land in ~/.tarajim/books/<book-id>/, one JSON file per author, plus
an index.json manifest. Re-running the same book skips entries that already
have a record, so an interrupted run can be resumed by running the same
command again.

Examples:
  tarajim extract wafayat ./wafayat-al-ayan.pdf
  tarajim extract wafayat ./wafayat-al-ayan.pdf --pattern 'ترجمة (\d+): ([^\n]+)'
  tarajim extract wafayat ./wafayat-al-ayan.pdf --provider openai --workers 4`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bookID, pdfPath := args[0], args[1]
		logger := newLogger()

		h, err := getHome()
		if err != nil {
			return err
		}
		cm, err := loadConfig(h)
		if err != nil {
			return err
		}
		cfg := cm.Get()

		registry := providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig())
		registry.SetLogger(logger)
		client, err := selectClient(cfg, registry, extractProvider)
		if err != nil {
			return err
		}

		workers := extractWorkers
		if workers == 0 {
			workers = cfg.Defaults.MaxWorkers
		}
		pattern := extractPattern
		if pattern == "" {
			pattern = cfg.PatternFor(bookID)
		}

		runner := pipeline.NewRunner(client, h, logger, pipeline.WithMaxWorkers(workers))
		report, err := runner.Run(cmd.Context(), pipeline.Options{
			BookID:  bookID,
			PDFPath: pdfPath,
			Pattern: pattern,
		})
		if err != nil {
			return err
		}
		return cli.Output(report)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractPattern, "pattern", "", "segmentation pattern override (two capture groups: ordinal, heading)")
	extractCmd.Flags().StringVar(&extractProvider, "provider", "", "LLM provider name from config (default: configured default)")
	extractCmd.Flags().IntVar(&extractWorkers, "workers", 0, "concurrent extraction calls (default: from config)")
}
