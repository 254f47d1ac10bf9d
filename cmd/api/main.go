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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/user/pricewatch-service/internal/adapter/chromedp_renderer"
	"github.com/user/pricewatch-service/internal/adapter/email"
	"github.com/user/pricewatch-service/internal/adapter/httpfetch"
	"github.com/user/pricewatch-service/internal/adapter/memory"
	"github.com/user/pricewatch-service/internal/adapter/postgres"
	redis_adapter "github.com/user/pricewatch-service/internal/adapter/redis"
	"github.com/user/pricewatch-service/internal/delivery/http/handler"
	"github.com/user/pricewatch-service/internal/delivery/http/router"
	"github.com/user/pricewatch-service/internal/repository"
	"github.com/user/pricewatch-service/internal/usecase"
	"github.com/user/pricewatch-service/pkg/config"
	"github.com/user/pricewatch-service/pkg/logger"
	"github.com/user/pricewatch-service/pkg/metrics"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var checks []handler.HealthCheck

	// --- Subscription store ---
	var subs repository.SubscriptionRepository
	if cfg.PostgresURL != "" {
		if cfg.RunMigrations {
			if err := postgres.RunMigrations(cfg.PostgresURL); err != nil {
				log.Fatal("failed to run migrations", zap.Error(err))
			}
			log.Info("database migrations applied")
		}
		dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal("unable to connect to database", zap.Error(err))
		}
		defer dbpool.Close()
		store := postgres.NewSubscriptionRepo(dbpool, cfg.StorePageSize)
		if err := store.Ping(ctx); err != nil {
			log.Fatal("unable to reach database", zap.Error(err))
		}
		subs = store
		checks = append(checks, handler.HealthCheck{Name: "postgres", Ping: store.Ping})
		log.Info("PostgreSQL connection pool established")
	} else {
		subs = memory.NewSubscriptionRepo()
		log.Warn("POSTGRES_URL not set, using in-memory subscription store")
	}

	// --- Redis ---
	var monitorOpts []usecase.MonitorOption
	var runStatus repository.RunStatusRepository = memory.NewRunStatusRepo()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("unable to connect to Redis", zap.Error(err))
		}
		redisStatus := redis_adapter.NewRunStatusRepo(rdb)
		runStatus = redisStatus
		monitorOpts = append(monitorOpts, usecase.WithExtractionFailures(redis_adapter.NewExtractionFailureRepo(rdb)))
		checks = append(checks, handler.HealthCheck{Name: "redis", Ping: redisStatus.Ping})
		log.Info("Redis connection established")
	}
	monitorOpts = append(monitorOpts, usecase.WithRunStatus(runStatus))

	// --- Page sources ---
	proxies, err := httpfetch.NewProxyRotator(cfg.ProxyURLs)
	if err != nil {
		log.Fatal("invalid proxy configuration", zap.Error(err))
	}
	fetcher := httpfetch.NewFetcher(
		httpfetch.NewClient(httpfetch.ClientOptions{
			Timeout:             cfg.StaticFetchTimeout,
			AllowPrivateTargets: cfg.AllowPrivateTargets,
			Proxies:             proxies,
		}),
		httpfetch.Options{
			UserAgent:    cfg.UserAgent,
			Attempts:     cfg.StaticFetchAttempts,
			MaxBodyBytes: cfg.MaxBodyBytes,
		},
		log.Named("fetcher"),
	)

	var renderer repository.PageRenderer
	if cfg.RenderEnabled {
		chrome := chromedp_renderer.NewRenderer(chromedp_renderer.Options{
			UserAgent:    cfg.UserAgent,
			Timeout:      cfg.RenderTimeout,
			IdleWait:     cfg.RenderIdleWait,
			SelectorWait: cfg.RenderSelectorWait,
			DelayMin:     cfg.RenderDelayMin,
			DelayMax:     cfg.RenderDelayMax,
		}, log.Named("renderer"))
		defer chrome.Close()
		renderer = chrome
	}

	// --- Notifications ---
	provider, err := newEmailProvider(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to init email provider", zap.Error(err))
	}
	notifier := email.NewSender(provider, log.Named("email"))

	// --- Use Cases ---
	extractor := usecase.NewPriceExtractor(fetcher, renderer, cfg.RenderOnlyDomains, log.Named("extractor"), m)
	limiter := usecase.NewDomainRateLimiter(cfg.DomainMinDelay, m)
	comparator := usecase.NewPriceComparator(notifier, log.Named("comparator"), m)
	monitor := usecase.NewPriceMonitor(subs, extractor, limiter, comparator, usecase.MonitorConfig{
		BatchSize:             cfg.BatchSize,
		MinCheckInterval:      cfg.MinCheckInterval,
		BatchPauseMin:         cfg.BatchPauseMin,
		BatchPauseMax:         cfg.BatchPauseMax,
		ItemPauseMin:          cfg.ItemPauseMin,
		ItemPauseMax:          cfg.ItemPauseMax,
		FailureAlertThreshold: cfg.FailureAlertThreshold,
	}, log.Named("monitor"), m, monitorOpts...)
	trigger := usecase.NewPeriodicTrigger(monitor, cfg.CheckInterval, log.Named("trigger"))

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(ctx, trigger, runStatus, checks, log.Named("http"))
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router.New(apiHandler, reg, m, log),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	trigger.Start(ctx)

	go func() {
		log.Info("server started", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("could not listen on port", zap.String("port", cfg.ServerPort), zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	trigger.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exiting")
}

func newEmailProvider(ctx context.Context, cfg *config.Config, log *zap.Logger) (email.Provider, error) {
	switch cfg.EmailProvider {
	case "", "mock":
		log.Warn("using mock email provider, notifications are only logged")
		return email.NewMockProvider(log.Named("email")), nil
	case "brevo":
		if cfg.BrevoAPIKey == "" {
			return nil, errors.New("BREVO_API_KEY is required for the brevo provider")
		}
		return email.NewBrevoProvider(cfg.BrevoAPIKey, cfg.EmailFromAddress, cfg.EmailFromName, log.Named("brevo")), nil
	case "gmail":
		var opts []option.ClientOption
		if cfg.GoogleCredentialsJSON != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.GoogleCredentialsJSON)))
		}
		// Without explicit credentials the service falls back to ADC.
		svc, err := gmail.NewService(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create gmail service: %w", err)
		}
		return email.NewGmailProvider(svc, log.Named("gmail")), nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
}
