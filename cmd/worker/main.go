package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"paymentgw/internal/app"
	"paymentgw/internal/config"
	"paymentgw/internal/dlq"
	"paymentgw/internal/pkg/logging"
	"paymentgw/internal/webhook"
	"paymentgw/internal/worker"
)

const (
	transactionGroupID = "paymentgw.transactions"
	webhookGroupID      = "paymentgw.webhooks"
	dlqGroupID          = "paymentgw.dlq"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	txProcessor, err := worker.NewProcessor(state.KafkaConfig, transactionGroupID, state.TxService, state.BankClient, state.Producer, state.JobEnqueuer)
	if err != nil {
		log.Fatalf("failed to start transaction processor: %v", err)
	}

	webhookWorker, err := webhook.NewDeliveryWorker(state.KafkaConfig, webhookGroupID, state.Webhooks, state.WebhookEnqueuer, state.Producer)
	if err != nil {
		log.Fatalf("failed to start webhook delivery worker: %v", err)
	}

	dlqConsumer, err := dlq.NewConsumer(state.KafkaConfig, dlqGroupID, state.FailedTasks)
	if err != nil {
		log.Fatalf("failed to start dlq consumer: %v", err)
	}

	txProcessor.Start(ctx)
	webhookWorker.Start(ctx)
	dlqConsumer.Start(ctx)

	logging.Info("payment gateway workers running", map[string]interface{}{
		"transaction_group": transactionGroupID,
		"webhook_group":     webhookGroupID,
		"dlq_group":         dlqGroupID,
	})

	<-ctx.Done()
	logging.Info("shutdown signal received", nil)

	if err := txProcessor.Stop(); err != nil {
		logging.Error("transaction processor stop failed", err, nil)
	}
	if err := webhookWorker.Stop(); err != nil {
		logging.Error("webhook delivery worker stop failed", err, nil)
	}
	if err := dlqConsumer.Stop(); err != nil {
		logging.Error("dlq consumer stop failed", err, nil)
	}

	shutdownCtx := context.Background()
	state.Shutdown(shutdownCtx)
}
