package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"darayyaconnect/infra-core/internal/archiveworker"
	"darayyaconnect/infra-core/internal/config"
	"darayyaconnect/infra-core/internal/db"
	"darayyaconnect/infra-core/internal/graphstore"
	"darayyaconnect/infra-core/internal/httpapi"
	"darayyaconnect/infra-core/internal/infragraph"
	"darayyaconnect/infra-core/internal/mapengine"
	"darayyaconnect/infra-core/internal/metrics"
	"darayyaconnect/infra-core/internal/playback"
	"darayyaconnect/infra-core/internal/statusagg"
	"darayyaconnect/infra-core/internal/upstream"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		bootLogger := httpapi.NewLogger("info")
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := httpapi.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *db.Pool
	if cfg.DatabaseURL != "" {
		p, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer p.Close()
		pool = p
	}

	client, err := upstream.New(logger, upstream.Options{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build upstream client")
	}

	m := metrics.New()
	store := graphstore.New(logger, client, m)

	opts := mapengine.Options{
		Store:     store,
		Aggregate: statusagg.New(logger, m),
		Playback:  playback.New(logger),
		Overlays:  client,
		Sector:    infragraph.SectorWater,
	}
	if pool != nil {
		opts.Archive = pool.Queries()
	}
	engine := mapengine.New(logger, opts)

	if pool != nil {
		worker := archiveworker.New(logger, client, pool.Queries(), archiveworker.Options{
			PollInterval: cfg.Archive.PollInterval,
			MaxRuntime:   cfg.Archive.MaxRuntime,
		}, m)
		go worker.Run(ctx)
	}

	h := httpapi.NewHandler(logger, engine, pool, m)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("infra-core listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}
