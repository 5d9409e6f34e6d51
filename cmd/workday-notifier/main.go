package main

import (
	"context"
	"errors"

	"workday/internal/amqp"
	"workday/internal/cli"
	"workday/internal/log"
	"workday/internal/mail"
)

func main() {
	cfg, logger := cli.Bootstrap("workday-notifier")

	if !cfg.RemindersEnabled() {
		cli.Fatal(logger, "Notifier needs a broker", errors.New("AMQP_URL is not set"))
	}
	if cfg.SMTPHost == "" {
		cli.Fatal(logger, "Notifier needs an SMTP server", errors.New("SMTP_HOST is not set"))
	}

	smtpClient, err := mail.NewSMTPClient(mail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize SMTP client", err)
	}
	notifier := mail.NewNotifier(smtpClient, cfg.SMTPFrom, logger)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	logger.Info("Consuming payment reminders", "queue", cfg.AMQPQueue, "smtp_host", cfg.SMTPHost)
	err = amqpClient.ConsumePaymentReminders(ctx, notifier.HandlePaymentReminder)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
	}

	cli.RunCleanup(logger, cfg.ShutdownTimeout,
		func(context.Context) error { return amqpClient.Close() },
		func(context.Context) error { return smtpClient.Close() },
	)
}
