// Command worker is the image-ingestion worker's entry point: it wires
// configuration, shared state, the rate limiter, the image processor,
// and the consumer loop together, then runs until an OS signal asks it
// to shut down gracefully.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openverse/image-worker/internal/adminserver"
	buskafka "github.com/openverse/image-worker/internal/bus/kafka"
	"github.com/openverse/image-worker/internal/config"
	"github.com/openverse/image-worker/internal/consumer"
	"github.com/openverse/image-worker/internal/httpfetch"
	"github.com/openverse/image-worker/internal/logger"
	"github.com/openverse/image-worker/internal/metrics"
	"github.com/openverse/image-worker/internal/persist"
	"github.com/openverse/image-worker/internal/processor"
	"github.com/openverse/image-worker/internal/ratelimit"
	"github.com/openverse/image-worker/internal/replenisher"
	"github.com/openverse/image-worker/internal/semaphore"
	"github.com/openverse/image-worker/internal/sharedstate"
	"github.com/openverse/image-worker/internal/stats"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("image worker starting")

	store, err := sharedstate.New(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure shared state client")
	}

	registry := ratelimit.NewOriginRegistry()
	session := httpfetch.New(cfg.FetchTimeout)
	fetcher := ratelimit.New(session, store, registry, log)

	agg := stats.New(store, log, nil)
	sem := semaphore.New(cfg.MaxConcurrency)

	persister, err := persist.NewFilesystem(cfg.PersistDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize persister")
	}

	reg := prometheus.NewRegistry()
	metricsCollector := metrics.New(reg)

	proc := processor.New(fetcher, persister, sem, agg, metricsCollector, cfg.ResizeMaxWidth, cfg.ResizeMaxHeight, log)

	busConsumer, err := buskafka.New(cfg.BusBrokers, cfg.BusGroup, cfg.BusTopic, cfg.BatchSize, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to message bus")
	}
	defer busConsumer.Close()

	loop := consumer.New(busConsumer, proc, metricsCollector, log)

	refill := replenisher.New(store, registry, cfg.MaxRPSPerOrigin, log)
	refill.Start()
	defer refill.Stop()

	admin := adminserver.New(store, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), log)
	adminSrv := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: admin,
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		log.Info().Str("addr", cfg.AdminAddr).Msg("admin server listening")
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("admin server failed")
		}
	}()

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- loop.Run(ctx, false)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	loopExited := false
	select {
	case <-sig:
		log.Info().Msg("shutdown signal received")
	case err := <-loopDone:
		loopExited = true
		log.Error().Err(err).Msg("consumer loop exited unexpectedly")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer shutdownCancel()
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("admin server shutdown failed")
	}

	if !loopExited {
		<-loopDone
	}
	log.Info().Msg("image worker stopped")
}
