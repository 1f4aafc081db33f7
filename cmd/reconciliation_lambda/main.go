package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"github.com/koneque/marketplace-escrow/pkg/bootstrap"
	"github.com/koneque/marketplace-escrow/pkg/config"
	"github.com/koneque/marketplace-escrow/pkg/logging"
	"github.com/koneque/marketplace-escrow/pkg/marketplace"
)

var (
	service *marketplace.Service
	logger  *slog.Logger
)

func init() {
	// Load environment variables for local testing.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger = logging.Setup("marketplace-reconciler", cfg.Log.Env, logging.Options{Level: cfg.Log.Level})

	app, err := bootstrap.Build(context.Background(), cfg, logger, bootstrap.Options{})
	if err != nil {
		log.Fatalf("failed to build marketplace: %v", err)
	}
	service = app.Service
}

// HandleRequest is triggered by an EventBridge Schedule. It finalizes
// transactions whose grace period ended without a queued message and drives
// unconfirmed ledger transfers to an outcome.
func HandleRequest(ctx context.Context) (*marketplace.ReconcileReport, error) {
	logger.Info("Starting reconciliation sweep")
	report, err := service.Reconcile(ctx)
	if err != nil {
		logger.Error("reconciliation sweep failed", "error", err)
		return report, err
	}
	return report, nil
}

func main() {
	lambda.Start(HandleRequest)
}
