package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
	"github.com/HendryAvila/azdo-mcp/internal/config"
	"github.com/HendryAvila/azdo-mcp/internal/metrics"
	"github.com/HendryAvila/azdo-mcp/internal/server"
)

func newServeCmd(flags *configFlags) *cobra.Command {
	var (
		transport   string
		addr        string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server. The connection to Azure DevOps is established on
the first tool call, so the server starts even when credentials are wrong;
use check-auth to verify them up front.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := server.ParseTransport(transport)
			if err != nil {
				return err
			}
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			logger.Info("starting azdo-mcp",
				"version", server.Version,
				"organization", cfg.OrganizationURL,
				"auth_method", cfg.AuthMethod,
				"transport", t,
			)

			if metricsAddr == "" {
				s := server.New(cfg, newBuilder(cfg, logger), logger)
				return server.Serve(cmd.Context(), s, t, addr, logger)
			}
			return serveWithMetrics(cmd.Context(), cfg, t, addr, metricsAddr, logger)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", string(server.TransportStdio), "stdio, sse or http")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address for the sse and http transports")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "listen address for Prometheus /metrics (disabled when empty)")
	return cmd
}

// serveWithMetrics runs the MCP server alongside a Prometheus listener. The
// listener stops when the MCP transport returns.
func serveWithMetrics(
	ctx context.Context,
	cfg config.Config,
	t server.Transport,
	addr, metricsAddr string,
	logger *slog.Logger,
) error {
	reg := metrics.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)

	builder := newBuilder(cfg, logger, azdo.WithRequestObserver(rec))
	s := server.New(cfg, builder, logger, server.WithRecorder(rec))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return metrics.Serve(gctx, metricsAddr, reg, logger)
	})
	g.Go(func() error {
		defer cancel()
		return server.Serve(gctx, s, t, addr, logger)
	})
	return g.Wait()
}
