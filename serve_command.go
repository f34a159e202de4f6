package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorecast/lorecast/internal/broadcast"
	"github.com/lorecast/lorecast/internal/config"
	"github.com/lorecast/lorecast/internal/lore"
	"github.com/lorecast/lorecast/internal/server"
	"github.com/lorecast/lorecast/internal/source"
	"github.com/lorecast/lorecast/internal/tips"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the shared broadcast",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(runCtx, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server.addr")
	return cmd
}

// runServer wires the configured backends into the API. Backends that are not
// configured are left out and their endpoints answer 503.
func runServer(ctx context.Context, cfg *config.Config) error {
	store, err := lore.Open(cfg.Storage.Path, lore.Options{CanonThreshold: cfg.Lore.CanonThreshold})
	if err != nil {
		return fmt.Errorf("failed to open lore store: %w", err)
	}
	defer store.Close()

	selector := buildSelector(cfg)
	deps := server.Deps{
		Store:         store,
		Source:        source.NewFetcher(nil),
		Selector:      selector,
		AdminToken:    cfg.Server.AdminToken,
		StoryContext:  cfg.Lore.StoryContext,
		TargetMinutes: cfg.AI.TargetMinutes,
		Hosts:         buildHosts(cfg),
	}

	if generator, genErr := buildGenerator(cfg); genErr != nil {
		slog.Warn("ai generation disabled", "error", genErr)
	} else {
		deps.Generator = generator
	}

	if cfg.Tips.RPCURL != "" {
		verifier, tipErr := tips.NewVerifier(tips.Config{RPCURL: cfg.Tips.RPCURL, TokenContract: cfg.Tips.TokenContract}, nil)
		if tipErr != nil {
			return fmt.Errorf("failed to configure tip verification: %w", tipErr)
		}
		deps.Verifier = verifier
	} else {
		slog.Info("tip verification disabled, tips.rpc_url is not set")
	}

	if speech, ttsErr := buildSpeech(cfg); ttsErr != nil {
		slog.Warn("speech and broadcast disabled", "error", ttsErr)
	} else {
		hub := broadcast.NewHub(cfg.Server.AllowedOrigins)
		defer hub.Close()
		station := broadcast.NewStation(speech, selector, hub, broadcast.StreamOptions{
			ChunkSize: cfg.Broadcast.ChunkSize,
			Bitrate:   cfg.Broadcast.Bitrate,
		})
		defer station.Close()

		deps.Speech = speech
		deps.Station = station
		deps.Listeners = hub
	}

	srv := server.New(cfg.Server.Addr, time.Duration(cfg.Server.ShutdownTimeout)*time.Second, deps)
	return srv.Run(ctx)
}
