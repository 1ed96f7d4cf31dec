// Command agentrt-gateway runs the bidirectional WebSocket gateway that
// fronts the orchestration runtime for browser and thin clients.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentrt/agentrt/internal/gateway"
	"github.com/agentrt/agentrt/internal/logging"
)

var (
	port        int
	runtimeURL  string
	logLevel    string
	logPretty   bool
	shutdownGrace time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "agentrt-gateway",
		Short: "Runs the agentrt WebSocket-to-SSE gateway",
		RunE:  run,
	}

	root.Flags().IntVar(&port, "port", 8081, "port to listen on")
	root.Flags().StringVar(&runtimeURL, "runtime-url", "http://localhost:8080", "base URL of the agentrt runtime")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.Flags().BoolVar(&logPretty, "log-pretty", false, "use human-readable console logging")
	root.Flags().DurationVar(&shutdownGrace, "shutdown-grace", 15*time.Second, "graceful shutdown timeout")

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

	runtime := &gateway.RuntimeClient{
		HTTPClient:     gateway.DefaultHTTPClient(),
		BaseURL:        runtimeURL,
		SessionFactory: newSessionFactory(runtimeURL),
	}
	handler := gateway.NewHandler(runtime)

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Int("port", port).Str("runtimeURL", runtimeURL).Msg("gateway listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway server error: %w", err)
	case <-quit:
	}

	logging.Info().Msg("shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// newSessionFactory returns a SessionFactory that asks the runtime to
// create a fresh session for a client connecting without one.
func newSessionFactory(runtimeURL string) func(ctx context.Context, directory string) (string, error) {
	client := gateway.DefaultHTTPClient()
	return func(ctx context.Context, directory string) (string, error) {
		body, _ := json.Marshal(map[string]string{"directory": directory})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(runtimeURL, "/")+"/session", bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return "", fmt.Errorf("create session: runtime returned status %d", resp.StatusCode)
		}

		var session struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
			return "", err
		}
		return session.ID, nil
	}
}
