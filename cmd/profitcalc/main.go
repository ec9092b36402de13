package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"profitcalc/internal/auth"
	"profitcalc/internal/billing"
	"profitcalc/internal/cache"
	"profitcalc/internal/cli"
	apphttp "profitcalc/internal/http"
	"profitcalc/internal/log"
	"profitcalc/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	verifier, err := auth.NewJWTVerifier(cfg.SupabaseJWTSecret)
	if err != nil {
		logger.Error("SUPABASE_JWT_SECRET is required to verify access tokens", log.FieldError, err)
		os.Exit(1)
	}

	deps := apphttp.Deps{
		Verifier:           verifier,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}

	if cfg.IdentityEnabled() {
		identity, err := auth.NewSupabaseClient(auth.SupabaseConfig{
			URL:     cfg.SupabaseURL,
			AnonKey: cfg.SupabaseAnonKey,
		})
		if err != nil {
			logger.Error("Failed to initialize Supabase client", log.FieldError, err)
			os.Exit(1)
		}
		deps.Identity = identity
		logger.Info("Sign-in enabled", "supabase_url", cfg.SupabaseURL)
	} else {
		logger.Info("Sign-in disabled - SUPABASE_URL or SUPABASE_ANON_KEY not set")
	}

	if cfg.BillingEnabled() {
		stripe, err := billing.NewStripeClient(billing.StripeConfig{
			SecretKey: cfg.StripeSecretKey,
			PriceID:   cfg.StripePriceID,
			APIURL:    cfg.StripeAPIURL,
		})
		if err != nil {
			logger.Error("Failed to initialize Stripe client", log.FieldError, err)
			os.Exit(1)
		}
		deps.Billing = stripe
		logger.Info("Billing enabled", "price_configured", cfg.StripePriceID != "")
	} else {
		logger.Info("Billing disabled - no STRIPE_SECRET_KEY provided")
	}

	result := cli.InitBackend(context.Background(), logger, cfg)
	if pinger, ok := result.Store.(apphttp.Pinger); ok {
		deps.Store = pinger
	}

	registry := services.NewRegistry(result.Store, result.Notifier, services.RegistryConfig{
		Capacity: cfg.SessionCapacity,
		TTL:      cfg.SessionTTL,
	}, logger)
	deps.Registry = registry

	caches := cache.NewManager(logger)
	caches.Register(registry)
	caches.StartCleanup(time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, deps)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		registry.Close()
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting profitcalc server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"sync_enabled", result.Notifier != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(gctx, done)
	logger.Info("Server stopped gracefully")
}
