package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go.opentelemetry.io/otel"

	"github.com/osaurus-ai/osaurus/internal/backend"
	"github.com/osaurus-ai/osaurus/internal/config"
	"github.com/osaurus-ai/osaurus/internal/gateway"
	"github.com/osaurus-ai/osaurus/internal/installer"
	"github.com/osaurus-ai/osaurus/internal/lifecycle"
	"github.com/osaurus-ai/osaurus/internal/mcpserver"
	"github.com/osaurus-ai/osaurus/internal/metrics"
	"github.com/osaurus-ai/osaurus/internal/observability"
	"github.com/osaurus-ai/osaurus/internal/plugin"
	"github.com/osaurus-ai/osaurus/internal/registry"
	"github.com/osaurus-ai/osaurus/internal/router"
	"github.com/osaurus-ai/osaurus/internal/wire"
)

func buildServeCmd() *cobra.Command {
	var (
		configPath string
		models     []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, models)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file (optional)")
	cmd.Flags().StringSliceVar(&models, "model", []string{wire.ModelSentinel}, "Model id to advertise (repeatable)")
	return cmd
}

// runServe wires every ambient and domain component together and blocks
// until SIGINT/SIGTERM, then shuts down under its own timeout context.
// It waits only on ctx.Done(): a Serve error is logged by the
// supervisor's serve goroutine and does not end runServe.
func runServe(parentCtx context.Context, configPath string, models []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.Default().With("component", "cmd.serve")

	tp, err := observability.NewTracerProvider(parentCtx, observability.TraceConfig{
		ServiceName:    "osaurus",
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		Insecure:       cfg.Tracing.Insecure,
	})
	if err != nil {
		return fmt.Errorf("build tracer provider: %w", err)
	}
	otel.SetTracerProvider(tp)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer provider shutdown failed", "error", err)
		}
	}()

	mtr := metrics.New()

	reg := registry.New()
	if err := reg.RegisterBatchTool(); err != nil {
		return fmt.Errorf("register batch tool: %w", err)
	}

	loader := plugin.NewLoader(reg)
	loader.SetMetrics(mtr)

	store := installer.NewStore(cfg.Tools.Root, logger)
	ins := buildInstaller(cfg, logger)

	// Real inference runtimes (MLX, Apple Foundation Models, a remote
	// OpenAI-compatible provider) are out of scope for this core (spec
	// §1); a replay backend stands in so the dialect/pipeline/writer
	// chain is exercised end to end.
	resolver := backend.StaticResolver{B: backend.Fake{}}

	mcp := mcpserver.New(reg, mcpserver.ServerInfo{Name: "osaurus", Version: version})

	gw := gateway.New(reg, resolver, mcp, models, cfg.Request.NonStreamTimeout, logger, mtr)
	gw.PluginLoader = loader

	handler := router.New(router.CORSConfig{AllowOrigins: cfg.CORS.AllowOrigins}, gw.Handlers())

	stateDir, err := os.UserConfigDir()
	if err != nil {
		stateDir = "."
	}
	stateDir = filepath.Join(stateDir, "osaurus")

	supervisor := lifecycle.New(logger, stateDir)
	addr, err := supervisor.Start(cfg.Server.Host, cfg.Server.Port, handler)
	if err != nil {
		return fmt.Errorf("start gateway: %w", err)
	}
	logger.Info("gateway started", "addr", addr)

	watcher := lifecycle.NewPluginWatcher(store, loader, logger)
	ctx, stop := signal.NotifyContext(parentCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("plugin watcher failed to start, hot-reload disabled", "error", err)
	} else {
		defer watcher.Close()
	}

	scheduler := lifecycle.NewReconcileScheduler(watcher, ins, logger)
	if err := scheduler.Start(cfg.Tools.ReconcileSchedule); err != nil {
		logger.Warn("fallback reconcile schedule failed to start", "error", err)
	} else {
		defer scheduler.Stop()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := supervisor.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
