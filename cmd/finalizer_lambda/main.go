package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"github.com/koneque/marketplace-escrow/pkg/bootstrap"
	"github.com/koneque/marketplace-escrow/pkg/config"
	"github.com/koneque/marketplace-escrow/pkg/logging"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/koneque/marketplace-escrow/pkg/scheduler"
)

// AutoFinalizer releases escrow for a delivered transaction whose grace
// period has ended.
type AutoFinalizer interface {
	AutoFinalize(ctx context.Context, txID uint64) (*models.Transaction, error)
}

// Finalizer consumes the delayed finalize queue.
type Finalizer struct {
	Engine    AutoFinalizer
	Scheduler scheduler.FinalizeScheduler
	Logger    *slog.Logger
	Now       func() time.Time
}

// HandleRequest processes SQS messages. Messages that are not yet due are
// sent back with a fresh delay, since one SQS delay cannot cover a whole
// grace period. Failed messages are reported individually so SQS only
// retries those.
func (f *Finalizer) HandleRequest(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, message := range sqsEvent.Records {
		if err := f.handle(ctx, message); err != nil {
			f.Logger.Error("failed to process finalize message", "messageId", message.MessageId, "error", err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: message.MessageId})
		}
	}
	return resp, nil
}

func (f *Finalizer) handle(ctx context.Context, message events.SQSMessage) error {
	msg, err := scheduler.ParseFinalizeMessage(message.Body)
	if err != nil {
		// A malformed body will never parse; retrying only feeds the DLQ.
		f.Logger.Error("dropping malformed finalize message", "messageId", message.MessageId, "error", err)
		return nil
	}
	logger := f.Logger.With("transaction_id", msg.TransactionID)

	if msg.DueAt.After(f.Now()) {
		logger.Info("finalize not yet due, re-enqueueing", "due_at", msg.DueAt)
		return f.Scheduler.ScheduleFinalize(ctx, msg.TransactionID, msg.DueAt)
	}

	tx, err := f.Engine.AutoFinalize(ctx, msg.TransactionID)
	switch {
	case err == nil:
		logger.Info("transaction finalized", "status", tx.Status)
		return nil
	case errors.Is(err, models.ErrLedgerPending):
		logger.Info("transaction finalized, payouts pending on the ledger")
		return nil
	case errors.Is(err, models.ErrLedgerRejected) && tx != nil:
		// Settlement is committed; the reconciler retries the payout.
		logger.Warn("transaction finalized, payout rejected by the ledger", "error", err)
		return nil
	case errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrAlreadyReleased),
		errors.Is(err, models.ErrNotFound):
		// Finalized, refunded or disputed in the meantime.
		logger.Info("skipping finalize", "reason", err)
		return nil
	default:
		return err
	}
}

func main() {
	// Load environment variables from .env file (useful for local testing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := logging.Setup("marketplace-finalizer", cfg.Log.Env, logging.Options{Level: cfg.Log.Level})

	// Initialize dependencies once per container.
	app, err := bootstrap.Build(context.Background(), cfg, logger, bootstrap.Options{})
	if err != nil {
		log.Fatalf("failed to build marketplace: %v", err)
	}

	f := &Finalizer{Engine: app.Service, Scheduler: app.Scheduler, Logger: logger, Now: time.Now}
	lambda.Start(f.HandleRequest)
}
