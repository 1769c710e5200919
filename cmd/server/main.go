package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"muster/internal/buildinfo"
	"muster/internal/event"
	eventhandler "muster/internal/event/handler"
	eventmetrics "muster/internal/event/metrics"
	eventservice "muster/internal/event/service"
	"muster/internal/event/store/cache"
	"muster/internal/event/store/memory"
	"muster/internal/event/store/postgres"
	jwttoken "muster/internal/jwt_token"
	"muster/internal/platform/config"
	"muster/internal/platform/httpserver"
	"muster/internal/platform/kafka"
	"muster/internal/platform/logger"
	"muster/internal/platform/metrics"
	platformredis "muster/internal/platform/redis"
	"muster/internal/recorder"
	"muster/internal/recorder/stream"
)

// main wires config, stores, the recorder pipeline and the HTTP surface, then
// runs the server and the retry worker until a shutdown signal.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("muster exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	producer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		return fmt.Errorf("connect kafka: %w", err)
	}
	var sink recorder.Sink
	if producer != nil {
		defer producer.Close()
		sink = stream.NewPublisher(producer, cfg.EventTopic, stream.NewSampler(0.1), stream.NewMetrics(), log)
		log.Info("event stream enabled", "topic", cfg.EventTopic)
	}

	rec := recorder.New(store, log, recorder.Options{
		BufferSize:    cfg.Recorder.BufferSize,
		AppendTimeout: cfg.Recorder.AppendTimeout,
		MinLevel:      cfg.Recorder.MinLevel,
		Sink:          sink,
		Metrics:       recorder.NewMetrics(),
	})
	worker := recorder.NewWorker(rec, log, time.Second, 100)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "muster", "muster-api")
	validator := jwttoken.NewJWTServiceAdapter(jwtService)

	platformMetrics := metrics.New()
	svc := eventservice.New(store, cfg.PageLimit, log, eventmetrics.New())

	router := chi.NewRouter()
	eventhandler.New(svc, log, platformMetrics, validator).Register(router)
	buildinfo.New(cfg.Build, log, validator).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting muster", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := worker.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildStore selects postgres when a database URL is configured and falls
// back to the in-memory store for development, wrapping either in the Redis
// read-through cache when Redis is configured.
func buildStore(cfg config.Server, log *slog.Logger) (event.Store, func(), error) {
	var (
		store   event.Store
		closers []func()
	)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		store = postgres.New(db)
		closers = append(closers, func() { db.Close() })
		log.Info("using postgres event store")
	} else {
		store = memory.NewInMemory()
		log.Warn("using in-memory event store, events will not survive restart")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		store = cache.New(store, redisClient, cfg.CacheTTL, log)
		closers = append(closers, func() { redisClient.Close() })
		log.Info("event cache enabled")
	}

	return store, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}
