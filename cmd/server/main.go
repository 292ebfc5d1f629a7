package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	assessment "fitgap/internal/assessment/models"
	decisionloghandler "fitgap/internal/decisionlog/handler"
	decisionlogmetrics "fitgap/internal/decisionlog/metrics"
	decisionlogservice "fitgap/internal/decisionlog/service"
	"fitgap/internal/decisionlog/stream"
	"fitgap/internal/delta/comparison"
	deltahandler "fitgap/internal/delta/handler"
	deltametrics "fitgap/internal/delta/metrics"
	jwttoken "fitgap/internal/jwt_token"
	"fitgap/internal/platform/config"
	"fitgap/internal/platform/httpserver"
	"fitgap/internal/platform/kafka"
	"fitgap/internal/platform/logger"
	"fitgap/internal/platform/redis"
	signatoryhandler "fitgap/internal/signatory/handler"
	signatoryservice "fitgap/internal/signatory/service"
	signoffhandler "fitgap/internal/signoff/handler"
	signoffmetrics "fitgap/internal/signoff/metrics"
	signoffservice "fitgap/internal/signoff/service"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	cache, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if cache != nil {
		defer cache.Close()
	} else {
		log.Warn("no redis URL configured, comparison cache is database-only")
	}

	store, closeStore, err := openStorage(ctx, cfg, cache, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Decision log, optionally streamed to Kafka after commit
	logOpts := []decisionlogservice.Option{
		decisionlogservice.WithLogger(log),
		decisionlogservice.WithMetrics(decisionlogmetrics.New(reg)),
	}
	producer, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		return fmt.Errorf("connect kafka: %w", err)
	}
	if producer != nil {
		defer producer.Close()
		if err := kafka.EnsureTopic(ctx, producer, cfg.Kafka, log); err != nil {
			return fmt.Errorf("ensure decision log topic: %w", err)
		}
		breaker := stream.NewBreaker(cfg.Kafka.BreakerThreshold, cfg.Kafka.BreakerCooldown)
		publisher := stream.NewPublisher(producer, cfg.Kafka.DecisionLogTopic, stream.WithBreaker(breaker))
		logOpts = append(logOpts, decisionlogservice.WithPublisher(publisher))
	}
	decisionLog := decisionlogservice.New(store.decisionLog, logOpts...)

	initiation := make([]assessment.Status, 0, len(cfg.SignOff.InitiationStatuses))
	for _, s := range cfg.SignOff.InitiationStatuses {
		initiation = append(initiation, assessment.Status(s))
	}
	signOffCfg := signoffservice.Config{
		RequiredAreas:      cfg.SignOff.RequiredAreas,
		InitiationStatuses: initiation,
		AuthorityMinLength: cfg.SignOff.AuthorityMinLength,
	}
	signOff, err := signoffservice.New(store.signOff, decisionLog, store.tx, signOffCfg,
		signoffservice.WithLogger(log),
		signoffservice.WithMetrics(signoffmetrics.New(reg)),
	)
	if err != nil {
		return fmt.Errorf("build sign-off service: %w", err)
	}

	signatories := signatoryservice.New(store.signatories, store.assessments, decisionLog, store.tx,
		signatoryservice.WithLogger(log),
	)

	comparisons := comparison.New(store.snapshots, store.comparisons,
		comparison.WithLogger(log),
		comparison.WithMetrics(deltametrics.New(reg)),
	)

	health := map[string]healthCheck{}
	if store.ping != nil {
		health["postgres"] = store.ping
	}
	if cache != nil {
		health["redis"] = cache.Check
	}

	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	r := newRouter(routes{
		signOff:     signoffhandler.New(signOff, log),
		signatories: signatoryhandler.New(signatories, log),
		decisionLog: decisionloghandler.New(decisionLog, log),
		comparisons: deltahandler.New(comparisons, log),
		health:      health,
	}, tokens, reg, log)

	srv := httpserver.New(cfg.Server, r)
	log.Info("starting fitgap", "addr", cfg.Server.Addr)
	return httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, log)
}
