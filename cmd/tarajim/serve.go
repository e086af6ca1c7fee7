package main

import (
	"github.com/spf13/cobra"

	"github.com/msalhab/tarajim/internal/config"
	"github.com/msalhab/tarajim/internal/pipeline"
	"github.com/msalhab/tarajim/internal/prompts"
	"github.com/msalhab/tarajim/internal/prompts/biography"
	"github.com/msalhab/tarajim/internal/providers"
	"github.com/msalhab/tarajim/internal/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tarajim HTTP server",
	Long: `Start the HTTP API server.

The server accepts PDF uploads, runs extraction in the background, and
serves stored records:
  POST /api/books                         - upload a PDF and start a run
  GET  /api/runs/{id}                     - poll a run
  GET  /api/books                         - list books
  GET  /api/books/{id}/records[?q=name]   - list or search records
  GET  /api/books/{id}/records/{ordinal}  - one record
  GET  /api/books/{id}/export             - consolidated JSON
  GET  /api/prompts                       - registered prompt templates
  GET  /healthz                           - health check

Config changes (provider keys, rate limits) are hot-reloaded while the
server runs.

Examples:
  tarajim serve
  tarajim serve --listen 0.0.0.0:8380`,
	RunE: func(cmd *cobra.Command, args []string) error {
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
		if serveListen != "" {
			cfg.Server.Listen = serveListen
		}

		registry := providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig())
		registry.SetLogger(logger)
		cm.OnChange(func(next *config.Config) {
			registry.Reload(next.ToProviderRegistryConfig())
		})
		cm.WatchConfig()

		client, err := selectClient(cfg, registry, "")
		if err != nil {
			return err
		}

		runner := pipeline.NewRunner(client, h, logger,
			pipeline.WithMaxWorkers(cfg.Defaults.MaxWorkers))

		resolver := prompts.NewResolver()
		biography.RegisterPrompts(resolver)

		srv := server.NewServer(runner, h, cfg, resolver, logger)
		return srv.ListenAndServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default: from config)")
}
