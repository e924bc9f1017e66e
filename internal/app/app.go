package app

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

	"golang.org/x/sync/errgroup"

	"github.com/nordscene/boxoffice/internal/cms"
	"github.com/nordscene/boxoffice/internal/config"
	"github.com/nordscene/boxoffice/internal/mailer"
	"github.com/nordscene/boxoffice/internal/payment"
	"github.com/nordscene/boxoffice/internal/postgres"
	"github.com/nordscene/boxoffice/internal/redis"
	postgresrepo "github.com/nordscene/boxoffice/internal/repository/postgres"
	redisrepo "github.com/nordscene/boxoffice/internal/repository/redis"
	"github.com/nordscene/boxoffice/internal/service"
	"github.com/nordscene/boxoffice/internal/service/checkout"
	httpgin "github.com/nordscene/boxoffice/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	cache      *redisrepo.Cache
	pubsub     *redisrepo.AvailabilityPubSub
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redis.New(context.Background(), redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	pubsub := redisrepo.NewAvailabilityPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "rl", 10, 1*time.Minute)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 24*time.Hour)

	// External clients
	stripeClient := payment.NewClient(payment.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Timeout:       cfg.Stripe.Timeout,
	})
	cmsClient := cms.NewClient(cms.Config{
		BaseURL: cfg.CMS.BaseURL,
		Token:   cfg.CMS.Token,
		Timeout: cfg.CMS.Timeout,
	})
	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	})

	// Services
	services := service.NewServices(store, cache, pubsub, stripeClient, stripeClient, cmsClient, sender, logger, service.Config{
		Checkout: checkout.Config{
			Currency:   cfg.Checkout.Currency,
			SuccessURL: cfg.Checkout.SuccessURL,
			CancelURL:  cfg.Checkout.CancelURL,
		},
	})

	// Gin router
	router := httpgin.NewRouter(services, stripeClient, idempotencyStore, limiter, cfg.Admin.JWTSecret, logger)

	return &App{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
		cache:  cache,
		pubsub: pubsub,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Drop cached availability when another instance announces a change.
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, courseID int64) {
			_ = a.cache.Del(ctx, redisrepo.KeyCourseAvailability(courseID))
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
