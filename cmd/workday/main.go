package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"workday/internal/amqp"
	"workday/internal/auth"
	"workday/internal/cache"
	"workday/internal/cli"
	"workday/internal/core"
	apphttp "workday/internal/http"
	"workday/internal/log"
	"workday/internal/reminder"
	"workday/internal/workdata"
)

const janitorInterval = 5 * time.Minute

func main() {
	cfg, logger := cli.Bootstrap("workday")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	docs := cli.InitBackend(ctx, logger, cfg)

	registry := workdata.NewRegistry(docs.Store, logger, workdata.Options{
		MaxMonths: cfg.MaxLoadedMonths,
	})

	authn := auth.New(auth.Config{
		Secret:   cfg.AuthJWTSecret,
		TokenTTL: cfg.AuthTokenTTL,
		Issuer:   cfg.AuthIssuer,
		DevUser: core.User{
			ID:          cfg.DevUserID,
			DisplayName: cfg.DevUserName,
			Email:       cfg.DevUserEmail,
		},
	}, logger)
	if !authn.Enabled() {
		logger.Warn("AUTH_JWT_SECRET not set, serving every request as the development user",
			log.FieldUID, cfg.DevUserID)
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:          cfg.RateLimitPerMinute,
	}, registry, authn, logger)

	janitor := cache.NewJanitor(logger)
	for _, c := range srv.Caches() {
		janitor.Register(c)
	}

	var amqpClient *amqp.Client
	var processor *reminder.Processor
	if cfg.RemindersEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		reminderCfg := reminder.DefaultConfig()
		reminderCfg.Interval = cfg.ReminderInterval
		processor = reminder.NewProcessor(docs.Store, amqpClient, reminderCfg, logger)
		janitor.Register(processor.SentCache())
	} else {
		logger.Info("Payment reminders disabled - no AMQP_URL provided")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr, log.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return janitor.Run(gctx, janitorInterval)
	})

	if processor != nil {
		g.Go(func() error {
			return processor.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
	}

	cli.RunCleanup(logger, cfg.ShutdownTimeout,
		func(context.Context) error {
			if amqpClient == nil {
				return nil
			}
			return amqpClient.Close()
		},
		func(context.Context) error { return docs.Cleanup() },
	)
}
