package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appLog "hacktown/internal/log"
	"hacktown/internal/schedule"
	"hacktown/internal/session"
	"hacktown/internal/source"
	"hacktown/internal/web"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the schedule browser and agenda API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				cfg.Listen = listen
			}

			appLog.Info("effective config",
				"listen", cfg.Listen,
				"fetch_mode", cfg.FetchMode,
				"days", len(cfg.Days),
				"refresh", cfg.Refresh,
				"ignore_extra_tables", cfg.IgnoreExtraTables,
			)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			pipeline := schedule.NewPipeline(cfg, source.New(cfg))
			cache := schedule.NewCache(pipeline.Load)

			if cfg.Refresh != "" {
				stop, err := schedule.StartInvalidator(cfg.Refresh, cache)
				if err != nil {
					return err
				}
				defer stop()
			}

			// Warm the cache so the first visitor does not wait on the fetch.
			// A failure here is reported to clients on each request.
			if _, err := cache.Get(ctx); err != nil {
				appLog.Error("initial schedule load failed", err)
			}

			sessions := session.NewManager(cfg.Days, cfg.SessionIdle())
			sessions.DefaultStart = cfg.DefaultStart
			srv := web.NewServer(cfg, cache, sessions, flags.debug)
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}
