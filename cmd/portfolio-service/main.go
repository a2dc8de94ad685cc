package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-service/internal/api"
	"github.com/trogers1052/portfolio-service/internal/cache"
	"github.com/trogers1052/portfolio-service/internal/clients/yahoo"
	"github.com/trogers1052/portfolio-service/internal/config"
	"github.com/trogers1052/portfolio-service/internal/database"
	"github.com/trogers1052/portfolio-service/internal/kafka"
	"github.com/trogers1052/portfolio-service/internal/portfolio"
	"github.com/trogers1052/portfolio-service/internal/quotes"
	"github.com/trogers1052/portfolio-service/internal/scheduler"
	"github.com/trogers1052/portfolio-service/pkg/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Level: "info"}).Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	log.Info().Msg("Starting portfolio service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("Service exited with error")
		os.Exit(1)
	}
	log.Info().Msg("Service stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}
	log.Info().Msg("Database ready")

	provider := yahoo.NewClient(
		yahoo.WithRateLimit(cfg.Quotes.RateLimit),
		yahoo.WithTimeout(cfg.Quotes.RequestTimeout.Duration),
		yahoo.WithLogger(log),
	)

	resolverOpts := []quotes.Option{quotes.WithLogger(log)}
	if cfg.Redis.Enabled {
		rdb, err := cache.New(ctx, cache.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			// The cache only saves upstream calls; run without it.
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Quote cache unavailable")
		} else {
			defer rdb.Close()
			resolverOpts = append(resolverOpts, quotes.WithCache(cache.NewQuoteCache(rdb, cfg.Quotes.CacheTTL.Duration)))
			log.Info().Str("addr", cfg.Redis.Addr).Msg("Quote cache enabled")
		}
	}

	resolver := quotes.NewResolver(provider, quotes.Config{
		Concurrency:   cfg.Quotes.Concurrency,
		SymbolTimeout: cfg.Quotes.SymbolTimeout.Duration,
		BatchTimeout:  cfg.Quotes.BatchTimeout.Duration,
		RetryBackoff:  cfg.Quotes.RetryBackoff.Duration,
	}, resolverOpts...)

	svcOpts := []portfolio.Option{portfolio.WithLogger(log)}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		svcOpts = append(svcOpts, portfolio.WithEventPublisher(producer))
	}

	svc := portfolio.NewService(db, db, resolver, svcOpts...)

	handler := api.NewHandler(svc, db, log)
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.Wrap(api.SetupRoutes(handler), cfg.Server.CORSOrigins, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Kafka.Enabled && cfg.Kafka.InboundTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.InboundTopic, cfg.Kafka.ConsumerGroup, svc, log)
		g.Go(func() error {
			return consumer.Start(ctx)
		})
	}

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(log, cfg.Quotes.BatchTimeout.Duration)
		warmer := scheduler.NewQuoteWarmer(svc, resolver, log)
		if err := sched.AddJob(cfg.Scheduler.WarmSpec, warmer); err != nil {
			return err
		}
		g.Go(func() error {
			return sched.Run(ctx)
		})
	}

	return g.Wait()
}
