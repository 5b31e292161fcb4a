package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/voicehub/internal/adapters/chatdir"
	"github.com/dkeye/voicehub/internal/adapters/chatdir/postgres"
	router "github.com/dkeye/voicehub/internal/adapters/http"
	wsignal "github.com/dkeye/voicehub/internal/adapters/signal"
	"github.com/dkeye/voicehub/internal/app/orch"
	"github.com/dkeye/voicehub/internal/config"
	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.Mode != "debug" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	dir, closeDir, err := openDirectory(ctx, cfg.Directory)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Directory.Driver).Msg("chat directory unavailable")
	}
	defer closeDir()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector("voicehub", reg)

	hub := wsignal.NewHub()
	o := orch.New(orch.Config{
		GracePeriod: cfg.Voice.GracePeriod,
		RingTimeout: cfg.Voice.RingTimeout,
		FanOut:      cfg.Voice.FanOut,
	}, dir, hub, m)
	m.Observe("voicehub", o.StateSource())

	ctl := wsignal.NewSignalWSController(o, hub, wsignal.Options{
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		PongWait:     cfg.PongWait,
		WriteTimeout: cfg.WriteTimeout,
		SendBuffer:   cfg.SendBuffer,
		RingLimit:    cfg.Voice.RingLimit,
		RingWindow:   cfg.Voice.RingWindow,
	})

	r := router.SetupRouter(ctx, cfg, ctl, m)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		log.Info().Str("addr", addr).Str("directory", cfg.Directory.Driver).Msg("Voice hub started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	})

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	wg.Wait()
	o.Shutdown()
	log.Info().Msg("Server exited gracefully")
}

func openDirectory(ctx context.Context, cfg config.DirectoryConfig) (core.ChatDirectory, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.New(db, postgres.Config{}), func() { _ = db.Close() }, nil
	default:
		return chatdir.NewMemory(cfg.Members, cfg.Contacts), func() {}, nil
	}
}
