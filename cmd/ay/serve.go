package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/assignyard/internal/api"
	"github.com/zulandar/assignyard/internal/lookup"
	"github.com/zulandar/assignyard/internal/session"
	"github.com/zulandar/assignyard/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the assignment editing API",
		Long:  "Serves editing sessions over HTTP, expires idle sessions on the configured schedule, and exposes Prometheus metrics at /metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, quiet)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to assignyard config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "disable request logging")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, quiet bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port <= 0 {
		port = cfg.Server.Port
	}

	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	sessions := session.NewRegistry(cfg.Server.SessionIdleTTL)
	if err := sessions.StartSweeper(ctx, cfg.Server.SweepSchedule); err != nil {
		return err
	}

	opts := api.StartOpts{
		Store:            store.New(gormDB),
		Lookup:           lookup.New(gormDB, cfg.Lookup.DefaultPageSize, cfg.Lookup.MaxPageSize),
		Sessions:         sessions,
		Notifier:         notifier,
		ManagedCompanyID: cfg.ManagedCompanyID,
		AdvancedPlanning: cfg.AdvancedInterventionPlanning,
		Port:             port,
		Out:              cmd.OutOrStdout(),
	}
	if !quiet {
		opts.LogOut = cmd.ErrOrStderr()
	}
	return api.Start(ctx, opts)
}
