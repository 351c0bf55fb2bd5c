package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/ragcore/internal/config"
	"github.com/hyperjump/ragcore/internal/rag"
	"github.com/hyperjump/ragcore/internal/server"
	"github.com/hyperjump/ragcore/internal/watcher"
	"github.com/hyperjump/ragcore/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultConfigPath = "/usr/local/etc/ragcore/config.yaml"

var (
	configPath string
	servePort  int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the HTTP API. Files in watched directories (configured, or added through the
API) are ingested and kept in sync while the server runs.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "config file path (env RAGCORE_CONFIG)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

// loadConfig resolves and loads the config file. With no explicit path it tries RAGCORE_CONFIG,
// then ./config.yaml, then the system default; when none exists the built-in defaults are used
// and the returned path is empty.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		path = os.Getenv("RAGCORE_CONFIG")
	}
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	candidates := []string{defaultConfigPath}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append([]string{filepath.Join(cwd, "config.yaml")}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			cfg, err := config.Load(p)
			if err != nil {
				return nil, "", err
			}
			return cfg, p, nil
		}
	}
	return config.Default(), "", nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, resolvedPath, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolvedPath), zap.Bool("debug", debugMode))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := rag.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer svc.Close()

	opts := []watcher.Option{}
	if debugMode {
		opts = append(opts, watcher.WithLogger(logger))
	}
	watch := watcher.New(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		watcher.NewFileSync(svc, cfg.Watch.MaxFileSize, logger),
		opts...,
	)
	if err := watch.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watch.Stop()
	go watch.SyncExisting()

	srv := server.NewServer(svc, &cfg.Server, logger, watch, resolvedPath, cfg)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
