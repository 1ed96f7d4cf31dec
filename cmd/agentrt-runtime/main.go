// Command agentrt-runtime is the orchestration runtime: it serves the HTTP
// API that drives conversations, execution plans, and subtask dispatch.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentrt/agentrt/internal/config"
	"github.com/agentrt/agentrt/internal/logging"
	"github.com/agentrt/agentrt/internal/persistence"
	"github.com/agentrt/agentrt/internal/provider"
	"github.com/agentrt/agentrt/internal/server"
	"github.com/agentrt/agentrt/internal/tool"
)

var (
	port       int
	directory  string
	logLevel   string
	logPretty  bool
	shutdownGrace time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "agentrt-runtime",
		Short: "Runs the agentrt orchestration runtime HTTP API",
		RunE:  run,
	}

	root.Flags().IntVar(&port, "port", 8080, "port to listen on")
	root.Flags().StringVar(&directory, "directory", "", "working directory (defaults to cwd)")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.Flags().BoolVar(&logPretty, "log-pretty", false, "use human-readable console logging")
	root.Flags().DurationVar(&shutdownGrace, "shutdown-grace", 30*time.Second, "graceful shutdown timeout")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logging.Init(logging.Config{
		Level:  logging.ParseLevel(logLevel),
		Pretty: logPretty,
	})

	workDir := directory
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
		workDir = wd
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return fmt.Errorf("create data directories: %w", err)
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	store, err := persistence.Open(filepath.Join(paths.StoragePath(), "agentrt.db"))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	providerReg, err := provider.InitializeProviders(ctx, appConfig)
	if err != nil {
		logging.Warn().Err(err).Msg("some providers failed to initialize")
	}

	toolReg := tool.DefaultRegistry(workDir, store)

	serverConfig := server.DefaultConfig()
	serverConfig.Port = port
	serverConfig.Directory = workDir

	srv := server.New(serverConfig, appConfig, store, providerReg, toolReg)

	if err := srv.InitializeMCP(ctx); err != nil {
		logging.Warn().Err(err).Msg("MCP initialization failed")
	}
	defer srv.CloseMCP()

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Int("port", port).Str("directory", workDir).Msg("runtime listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("runtime server error: %w", err)
	case <-quit:
	}

	logging.Info().Msg("shutting down runtime")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("runtime shutdown error")
	}
	return nil
}
