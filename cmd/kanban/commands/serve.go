package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kanban/internal/server"
)

func (a *app) serveCommand() *cobra.Command {
	var addr, static string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and board UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Addr = addr
			}
			if cmd.Flags().Changed("static") {
				a.cfg.StaticDir = static
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default from config, :8080)")
	cmd.Flags().StringVar(&static, "static", "", "directory with the built frontend")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := a.logger
	logger.Info("kanban server", slog.String("version", versionInfo), slog.String("backend", a.cfg.Backend))
	if a.cfg.Auth.JWTSecret == "" && !a.cfg.Auth.DevMode {
		logger.Warn("no JWT secret configured and dev mode off; every API request will be rejected")
	}

	backend, closeBackend, err := openBackend(ctx, a.cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			logger.Warn("close backend", slog.String("error", err.Error()))
		}
	}()

	srv := server.New(server.NewBoards(backend, logger, a.storeOptions()...), logger, server.Options{
		StaticDir: a.cfg.StaticDir,
		JWTSecret: a.cfg.Auth.JWTSecret,
		DevMode:   a.cfg.Auth.DevMode,
	})

	httpServer := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	logger.Info("server stopped")
	return nil
}
