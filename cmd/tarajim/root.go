package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/msalhab/tarajim/internal/cli"
	"github.com/msalhab/tarajim/internal/config"
	"github.com/msalhab/tarajim/internal/home"
	"github.com/msalhab/tarajim/internal/providers"
	"github.com/msalhab/tarajim/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "tarajim",
	Short: "Extract structured biographies from Arabic tarajim PDFs",
	Long: `Tarajim turns classical Arabic biographical collections (kutub al-tarajim)
into structured JSON records using LLM-powered extraction.

The pipeline:
  - Extracts the text layer from a PDF
  - Splits it into per-author entries on numbered headings
  - Structures each entry with a schema-validated LLM call
  - Writes one JSON record per author plus a book index`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.tarajim/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "tarajim home directory (default: ~/.tarajim)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cli.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(segmentCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// newLogger builds the CLI logger.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// getHome resolves the home directory from the --home flag.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	return h, nil
}

// loadConfig loads configuration, preferring --config, then the home dir.
func loadConfig(h *home.Dir) (*config.Manager, error) {
	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	return config.NewManager(path)
}

// selectClient picks the LLM client for a run: the --provider flag when set,
// otherwise the configured default.
func selectClient(cfg *config.Config, registry *providers.Registry, name string) (providers.LLMClient, error) {
	if name == "" {
		name = cfg.Defaults.LLMProvider
	}
	client, err := registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("provider %q not available (is its API key set?): %w", name, err)
	}
	return client, nil
}
