package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"feedqa/internal/api"
	"feedqa/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := current
		addr := utils.FirstNonEmpty(serveAddr, a.cfg.Server.Addr)

		rd, err := a.Reader()
		if err != nil {
			return err
		}

		if err := a.repo.Ping(cmd.Context()); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}

		handler := api.NewHandler(rd, a.log.With("component", "api"))

		srv := &http.Server{
			Addr:              addr,
			Handler:           api.NewRouter(handler, a.cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			IdleTimeout:       120 * time.Second,
			ErrorLog:          slog.NewLogLogger(a.log.Slog().Handler(), slog.LevelError),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)

		go func() {
			a.log.Info("server listening", "addr", addr)

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}

			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}

			return nil
		case <-ctx.Done():
		}

		a.log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		a.log.Info("server stopped")

		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}
