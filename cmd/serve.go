package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/booknook/bookfeed/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start an in-memory development backend",
		Long: `Starts a development backend implementing the auth and books endpoints.

Accounts and books live in memory and are lost on exit. Tokens are signed
with BOOKFEED_JWT_SECRET, or a random secret when it is unset.`,
		Example: `  # Start server on default port 8888
  bookfeed serve

  # Point the client at it
  BOOKFEED_API_URL=http://localhost:8888 bookfeed register --name Ann --email ann@example.com`,
		Annotations: map[string]string{standaloneAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := handlers.New(handlers.Options{
				Secret:   []byte(os.Getenv("BOOKFEED_JWT_SECRET")),
				TokenTTL: ttl,
			})
			if err != nil {
				return err
			}

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Bookfeed backend available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().DurationVar(&ttl, "token-ttl", 24*time.Hour, "Access token lifetime")

	return cmd
}
