package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)
	logger.Info("Starting expensetracker",
		"backend", cfg.Backend,
		"cache", cfg.CacheBackend,
		"port", cfg.Port)

	res := cli.InitBackend(context.Background(), logger, cfg)

	opts := services.Options{
		Views:  res.Views,
		Logger: logger,
	}
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// The app keeps serving without events.
			logger.Warn("AMQP unavailable, ledger events disabled",
				log.FieldError, err,
				log.FieldErrorType, log.ErrorTypeNetwork)
		} else {
			amqpClient = client
			opts.Publisher = client
			logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	ledger := services.NewLedgerService(res.Store, opts)

	money, err := core.NewMoneyFormatter(cfg.Currency, cfg.Locale)
	if err != nil {
		logger.Error("Invalid currency or locale",
			log.FieldError, err,
			"currency", cfg.Currency,
			"locale", cfg.Locale)
		os.Exit(1)
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:   ":" + cfg.Port,
		Ledger: ledger,
		Logger: logger,
		Money:  money,
		RateLimit: ratelimit.Config{
			Requests: cfg.RateLimitRequests,
			Window:   cfg.RateLimitWindow,
		},
	})

	caches := cache.NewManager()
	res.Views.Register(caches)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Wait()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})
	go caches.Run(ctx, time.Minute)

	logger.Info("HTTP server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "addr", srv.Addr)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
