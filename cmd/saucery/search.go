package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"saucery/internal/config"
	"saucery/internal/engine"
	"saucery/internal/fetch"
	"saucery/internal/orchestrator"
	"saucery/internal/provider"
	"saucery/internal/search"
	"saucery/pkg/types"
)

// searchLine mirrors the server's NDJSON shape so scripted callers can use
// the CLI and the API interchangeably.
type searchLine struct {
	Engine     string            `json:"engine"`
	Enrichment *types.Enrichment `json:"enrichment,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func newSearchCommand(configFlag *string) *cobra.Command {
	var (
		engineNames []string
		threshold   float64
		limit       int
		noArchive   bool
	)

	cmd := &cobra.Command{
		Use:   "search <image-url>",
		Short: "Search an image once and print results as NDJSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			if noArchive {
				cfg.Archive.Enabled = false
			}

			opts := orchestrator.Options{Engines: engineNames}
			if cmd.Flags().Changed("threshold") {
				opts.Threshold = &threshold
			}
			if cmd.Flags().Changed("limit") {
				opts.Limit = &limit
			}

			return runSearch(cmd.Context(), cfg, args[0], opts)
		},
	}

	cmd.Flags().StringSliceVar(&engineNames, "engine", nil, "Restrict to the named engines (repeatable)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum similarity in [0, 1]")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum hits per engine")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "Skip the duplicate-detection archive")

	return cmd
}

func runSearch(ctx context.Context, cfg *config.Config, imageURL string, opts orchestrator.Options) error {
	logger := newLogger(cfg)

	engines := engine.NewFromConfig(cfg, logger)
	if len(engines) == 0 {
		return errors.New("no search engines are enabled")
	}
	providers := provider.NewFromConfig(cfg, logger)

	archive, closeArchive, err := buildArchive(cfg, logger)
	if err != nil {
		return err
	}
	defer closeArchive()

	svc := search.New(search.Options{
		Archive: archive,
		Orchestrator: orchestrator.New(
			engines, providers, cfg.Search.Concurrency, logger),
		Fetcher: fetch.New(cfg.Search.FetchMaxBytes),
		Logger:  logger,
	})

	enc := json.NewEncoder(os.Stdout)
	for r := range svc.Search(ctx, imageURL, opts) {
		line := searchLine{Engine: r.Engine, Enrichment: r.Enrichment}
		if r.Err != nil {
			line.Error = r.Err.Error()
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}
