package marketplace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/ledger"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/koneque/marketplace-escrow/pkg/sequencer"
)

// ReconcileReport counts what one sweep did.
type ReconcileReport struct {
	Finalized  int `json:"finalized"`
	Skipped    int `json:"skipped"`
	Locked     int `json:"locked"`
	RolledBack int `json:"rolled_back"`
	Confirmed  int `json:"confirmed"`
	Pending    int `json:"pending"`
	Failed     int `json:"failed"`
}

// Reconcile runs the auto-finalize sweep and then the ledger sweep. Failures
// on individual transactions are logged and counted; only a failure to list
// work aborts the sweep.
func (s *Service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}
	if err := s.FinalizeDue(ctx, report); err != nil {
		return report, err
	}
	if err := s.ReconcileLedger(ctx, report); err != nil {
		return report, err
	}
	s.deps.Logger.Info("reconciliation complete",
		"finalized", report.Finalized, "skipped", report.Skipped, "locked", report.Locked,
		"rolled_back", report.RolledBack, "confirmed", report.Confirmed,
		"pending", report.Pending, "failed", report.Failed)
	return report, nil
}

// FinalizeDue auto-finalizes every delivered transaction whose grace period
// has elapsed.
func (s *Service) FinalizeDue(ctx context.Context, report *ReconcileReport) error {
	due, err := s.deps.Store.ListDeliveredBefore(ctx, s.now().Add(-s.opts.GracePeriod))
	if err != nil {
		return fmt.Errorf("failed to list transactions due for finalize: %w", err)
	}
	for _, tx := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		done, err := s.AutoFinalize(ctx, tx.ID)
		switch {
		case err == nil:
			report.Finalized++
		case errors.Is(err, models.ErrLedgerPending):
			report.Finalized++
			report.Pending++
		case errors.Is(err, models.ErrLedgerRejected) && done != nil:
			// Committed; the ledger sweep below retries the payout.
			s.deps.Logger.Warn("auto-finalized with rejected payout", "transaction_id", tx.ID, "error", err)
			report.Finalized++
		case errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrAlreadyReleased):
			s.deps.Logger.Info("skipping auto-finalize", "transaction_id", tx.ID, "reason", err)
			report.Skipped++
		default:
			s.deps.Logger.Error("auto-finalize failed", "transaction_id", tx.ID, "error", err)
			report.Failed++
		}
	}
	return nil
}

// ReconcileLedger drives every escrow with an unconfirmed leg towards a
// final outcome.
func (s *Service) ReconcileLedger(ctx context.Context, report *ReconcileReport) error {
	escrows, err := s.deps.Store.ListEscrowsAwaitingLedger(ctx)
	if err != nil {
		return fmt.Errorf("failed to list escrows awaiting the ledger: %w", err)
	}
	for _, e := range escrows {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.reconcileEscrow(ctx, e.TransactionID, report); err != nil {
			s.deps.Logger.Error("ledger reconciliation failed", "transaction_id", e.TransactionID, "error", err)
			report.Failed++
		}
	}
	return nil
}

func (s *Service) reconcileEscrow(ctx context.Context, txID uint64, report *ReconcileReport) error {
	release, err := s.lock(ctx, sequencer.TransactionKey(txID))
	if err != nil {
		return err
	}
	defer release()

	// Reload under the lock; the listed copy may be stale.
	escrow, err := s.deps.Store.GetEscrow(ctx, txID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !escrow.LockConfirmed() {
		return s.reconcileLock(ctx, escrow, report)
	}
	if !escrow.Released {
		return nil
	}

	for i := range escrow.Legs {
		leg := &escrow.Legs[i]
		if leg.Kind == models.LegLock || leg.State == models.LegConfirmed {
			continue
		}
		outcome, err := s.progressLeg(ctx, escrow, leg, false)
		if err != nil {
			return err
		}
		switch outcome {
		case ledger.Confirmed:
			report.Confirmed++
		case ledger.Pending:
			report.Pending++
		default:
			s.deps.Logger.Warn("payout leg rejected", "transaction_id", txID, "kind", leg.Kind, "attempts", leg.Attempts)
			report.Failed++
		}
	}
	return nil
}

// reconcileLock settles a purchase whose deposit is still open. A pending
// deposit is resent and checked once, and a rejected one is rolled back. A
// leg without a hash was never signed and stored, so nothing can have
// reached the ledger; it is rolled back after the ledger timeout.
func (s *Service) reconcileLock(ctx context.Context, escrow *models.EscrowRecord, report *ReconcileReport) error {
	tx, err := s.deps.Store.GetTransaction(ctx, escrow.TransactionID)
	if err != nil {
		return err
	}
	leg := escrow.Leg(models.LegLock)
	if leg == nil {
		return fmt.Errorf("%w: escrow %d has no lock leg", models.ErrInvalidState, escrow.TransactionID)
	}

	switch {
	case leg.State == models.LegRejected:
	case leg.TxHash == "":
		if s.now().Sub(leg.UpdatedAt) < s.opts.LedgerTimeout {
			report.Pending++
			return nil
		}
	default:
		outcome, err := s.progressLeg(ctx, escrow, leg, false)
		if err != nil {
			return err
		}
		switch outcome {
		case ledger.Confirmed:
			report.Locked++
			s.deps.Logger.Info("funds locked after reconciliation", "transaction_id", tx.ID, "tx_hash", leg.TxHash)
			return nil
		case ledger.Pending:
			report.Pending++
			return nil
		}
	}

	if err := s.rollbackPurchase(ctx, tx, escrow); !errors.Is(err, models.ErrLedgerRejected) {
		return err
	}
	report.RolledBack++
	return nil
}

// sweepInterval is how often the in-process reconciler runs.
const sweepInterval = time.Minute

// RunReconciler sweeps until ctx is done. It is for deployments without the
// scheduled reconciliation lambda.
func (s *Service) RunReconciler(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = sweepInterval
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Reconcile(ctx); err != nil && ctx.Err() == nil {
				s.deps.Logger.Error("reconciliation sweep failed", "error", err)
			}
		}
	}
}
