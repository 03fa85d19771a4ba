package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/user-directory/backend/internal/config"
	"github.com/zhouzirui/user-directory/backend/internal/handler"
	"github.com/zhouzirui/user-directory/backend/internal/service/directory"
	"github.com/zhouzirui/user-directory/backend/internal/service/session"
	"github.com/zhouzirui/user-directory/backend/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("failed to load .env file, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	log.Logger = logger

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("endpoint", cfg.Directory.Endpoint).
		Dur("fetch_timeout", cfg.Directory.FetchTimeout).
		Bool("metrics", cfg.Metrics.Enabled).
		Msg("configuration loaded")
	if cfg.Directory.FetchTimeout == 0 {
		logger.Info().Msg("fetch timeout disabled, a hung upstream keeps views loading")
	}

	fetcher := directory.NewHTTPFetcher(cfg.Directory.Endpoint, cfg.Directory.FetchTimeout)
	sessions := session.NewRegistry(fetcher, logger)

	router := handler.NewRouter(sessions, logger, handler.Options{Metrics: cfg.Metrics.Enabled})

	startServer(ctx, logger, cfg.Server, router)
}

func startServer(ctx context.Context, logger zerolog.Logger, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", addr).Msg("user directory listening")
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
