package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mealsub/handler"
	billingmod "github.com/dmitrymomot/mealsub/modules/billing"
	listingmod "github.com/dmitrymomot/mealsub/modules/listing"
	"github.com/dmitrymomot/mealsub/pkg/config"
	"github.com/dmitrymomot/mealsub/pkg/email"
	"github.com/dmitrymomot/mealsub/pkg/environment"
	"github.com/dmitrymomot/mealsub/pkg/file"
	"github.com/dmitrymomot/mealsub/pkg/httpserver"
	"github.com/dmitrymomot/mealsub/pkg/logger"
	"github.com/dmitrymomot/mealsub/pkg/pg"
	"github.com/dmitrymomot/mealsub/pkg/redis"
	"github.com/dmitrymomot/mealsub/pkg/requestid"
	"github.com/dmitrymomot/mealsub/svc/auth"
	"github.com/dmitrymomot/mealsub/svc/billing"
	"github.com/dmitrymomot/mealsub/svc/listing"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	_, env, log, err := loadApp()
	if err != nil {
		return err
	}

	var (
		pgCfg   pg.Config
		httpCfg httpserver.Config
		billCfg billing.Config
		authCfg auth.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&pgCfg) },
		func() error { return config.Load(&httpCfg) },
		func() error { return config.Load(&billCfg) },
		func() error { return config.Load(&authCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	verifier, err := auth.NewVerifier(authCfg, &http.Client{Timeout: authCfg.RequestTimeout})
	if err != nil {
		return err
	}

	provider, err := newProvider(billCfg.Provider)
	if err != nil {
		return err
	}

	store := billing.NewPGStore(pool)
	checks := []func(context.Context) error{pg.Healthcheck(pool)}

	opts := []billing.ReconcilerOption{
		billing.WithReconcilerLogger(log.With(logger.Component("reconciler"))),
	}

	if billCfg.DedupEnabled {
		rdb, err := connectRedis(ctx)
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, billing.WithDeduplicator(billing.NewRedisDeduplicator(rdb, billCfg.DedupTTL)))
		checks = append(checks, redis.Healthcheck(rdb))
	}

	if billCfg.ArchiveEnabled {
		var s3Cfg file.S3Config
		if err := config.Load(&s3Cfg); err != nil {
			return err
		}
		storage, err := file.NewS3Storage(ctx, s3Cfg)
		if err != nil {
			return err
		}
		opts = append(opts, billing.WithArchive(billing.NewObjectArchive(storage)))
	}

	if billCfg.Notify {
		sender, err := newSender(env, log)
		if err != nil {
			return err
		}
		opts = append(opts, billing.WithNotifier(billing.NewEmailNotifier(sender, store, billCfg.SiteURL)))
	}

	checkout := billing.NewCheckoutService(store, provider, verifier, billCfg.SiteURL,
		billing.WithCheckoutLogger(log.With(logger.Component("checkout"))),
		billing.WithCurrency(billCfg.Currency),
	)
	reconciler := billing.NewReconciler(store, provider, opts...)
	listings := listing.NewService(listing.NewPGStore(pool), verifier,
		listing.WithLogger(log.With(logger.Component("listing"))),
	)

	r := chi.NewRouter()
	r.Use(requestid.Middleware, environment.Middleware(env), handler.CORS)
	r.Get("/health/live", httpserver.HealthCheckHandler(log))
	r.Get("/health/ready", httpserver.HealthCheckHandler(log, checks...))
	billingmod.New(checkout, reconciler, provider, log).Routes(r)
	listingmod.New(listings, log).Routes(r)

	log.InfoContext(ctx, "starting", logger.Provider(provider.Name()))
	return httpserver.New(httpCfg, httpserver.WithLogger(log)).Run(ctx, r)
}

func newProvider(name string) (billing.Provider, error) {
	switch strings.ToLower(name) {
	case "stripe", "":
		var cfg billing.StripeConfig
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		return billing.NewStripeProvider(cfg)
	case "paddle":
		var cfg billing.PaddleConfig
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		return billing.NewPaddleProvider(cfg)
	}
	return nil, fmt.Errorf("%w: unknown payment provider %q", billing.ErrInvalidConfig, name)
}

func connectRedis(ctx context.Context) (*goredis.Client, error) {
	var cfg redis.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	return redis.Connect(ctx, cfg)
}

func newSender(env environment.Environment, log *slog.Logger) (email.Sender, error) {
	var cfg email.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if env == environment.Development && cfg.PostmarkServerToken == "" {
		return email.NewLogSender(log), nil
	}
	return email.NewPostmarkSender(cfg)
}
