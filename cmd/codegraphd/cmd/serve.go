package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kestrel-forge/codegraphd/internal/daemon"
	"github.com/kestrel-forge/codegraphd/internal/logging"
)

func newServeCmd() *cobra.Command {
	var metricsAddr string
	var projectPath string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the daemon and register the current project",
		Long: `Start codegraphd in the foreground: binds the Unix-domain socket, starts
the Prometheus metrics listener, and registers --project (defaulting to
the current directory) before blocking until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, socketPath, metricsAddr, projectPath, watch)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "127.0.0.1:9091", "Prometheus metrics listen address")
	cmd.Flags().StringVar(&projectPath, "project", "", "project directory to register on start (default: current directory)")
	cmd.Flags().BoolVar(&watch, "watch", true, "start the file watcher for the registered project")
	return cmd
}

func runServe(ctx context.Context, socket, metricsAddr, projectPath string, watch bool) error {
	home, err := daemon.DefaultHome()
	if err != nil {
		return fmt.Errorf("codegraphd: resolve home directory: %w", err)
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("codegraphd: create home directory: %w", err)
	}

	logger, cleanup, err := logging.Setup(logging.DefaultConfig(filepath.Join(home, "codegraphd.log")))
	if err != nil {
		return fmt.Errorf("codegraphd: setup logging: %w", err)
	}
	defer cleanup()
	slog.SetDefault(logger)

	pidFile := daemon.NewPIDFile(filepath.Join(home, "codegraphd.pid"))
	if err := pidFile.Write(); err != nil {
		return fmt.Errorf("codegraphd: write pid file: %w", err)
	}
	defer func() { _ = pidFile.Remove() }()

	registry := daemon.NewRegistry(home, logger)
	metrics := daemon.NewMetrics()
	server := daemon.NewServer(socket, registry, metrics, logger)

	metricsServer := &http.Server{Addr: metricsAddr, Handler: metrics.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("codegraphd: metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	defer func() { _ = metricsServer.Close() }()

	if projectPath == "" {
		projectPath, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("codegraphd: resolve working directory: %w", err)
		}
	}
	p, err := registry.Register(ctx, projectPath)
	if err != nil {
		return fmt.Errorf("codegraphd: register project %s: %w", projectPath, err)
	}
	if watch {
		if err := p.Watch(ctx, home); err != nil {
			logger.Warn("codegraphd: watcher failed to start", slog.String("error", err.Error()))
		}
	}

	logger.Info("codegraphd: serving", slog.String("project", projectPath), slog.String("socket", socket))
	err = server.ListenAndServe(ctx)
	_ = registry.Shutdown()
	return err
}
