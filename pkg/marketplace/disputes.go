package marketplace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/events"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/koneque/marketplace-escrow/pkg/sequencer"
)

const maxReasonLength = 1000

// InitiateDispute freezes a transaction until an arbiter decides it. Either
// party may open a dispute before the transaction is finalized.
func (s *Service) InitiateDispute(ctx context.Context, txID uint64, actor, reason string) (tx *models.Transaction, err error) {
	defer s.observe("initiate_dispute", time.Now(), &err)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a dispute reason is required", models.ErrInvalidInput)
	}
	if len(reason) > maxReasonLength {
		return nil, fmt.Errorf("%w: dispute reason exceeds %d bytes", models.ErrInvalidInput, maxReasonLength)
	}
	actor, err = normalizeActor(actor)
	if err != nil {
		return nil, err
	}
	release, err := s.lock(ctx, sequencer.TransactionKey(txID))
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err = s.loadForTransition(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !tx.IsParty(actor) {
		return nil, fmt.Errorf("%w: only the buyer or seller may open a dispute", models.ErrUnauthorized)
	}
	if err := requireStatus(tx, models.PaymentCompleted, models.ProductDelivered); err != nil {
		return nil, err
	}

	now := s.now()
	prev := tx.Status
	tx.Status = models.InDispute
	tx.UpdatedAt = now
	tx.Dispute = &models.Dispute{Initiator: actor, Reason: reason, OpenedAt: now}
	if err := s.deps.Store.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to open dispute on transaction %d: %w", txID, err)
	}
	s.deps.Metrics.Transition(string(prev), string(models.InDispute))

	s.deps.Logger.Info("dispute initiated", "transaction_id", txID, "initiator", actor)
	s.publish(ctx, s.event(events.DisputeInitiated, txID, tx.ListingID, actor).With("reason", reason))
	return tx, nil
}

// Resolve lets an arbiter settle a dispute in favor of one party.
func (s *Service) Resolve(ctx context.Context, txID uint64, arbiter string, outcome models.DisputeOutcome) (tx *models.Transaction, err error) {
	defer s.observe("resolve_dispute", time.Now(), &err)

	arbiter, err = normalizeActor(arbiter)
	if err != nil {
		return nil, err
	}
	release, err := s.lock(ctx, sequencer.TransactionKey(txID))
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err = s.loadForTransition(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !s.isArbiter(arbiter) {
		return nil, fmt.Errorf("%w: %s is not an arbiter", models.ErrUnauthorized, arbiter)
	}
	if err := requireStatus(tx, models.InDispute); err != nil {
		return nil, err
	}

	var next models.TransactionStatus
	switch outcome {
	case models.FavorSeller:
		next = models.Finalized
	case models.FavorBuyer:
		next = models.Refunded
	default:
		return nil, fmt.Errorf("%w: unsupported dispute outcome %q", models.ErrInvalidInput, outcome)
	}

	now := s.now()
	if tx.Dispute == nil {
		tx.Dispute = &models.Dispute{}
	}
	tx.Dispute.Outcome = outcome
	tx.Dispute.Arbiter = arbiter
	tx.Dispute.ResolvedAt = &now

	if next == models.Finalized {
		_, err = s.releaseToSeller(ctx, tx, next)
	} else {
		_, err = s.refundToBuyer(ctx, tx, next)
	}
	if tx.Status != next {
		return nil, err
	}

	s.deps.Logger.Info("dispute resolved", "transaction_id", txID, "arbiter", arbiter, "outcome", outcome)
	s.publish(ctx, s.event(events.DisputeResolved, txID, tx.ListingID, arbiter).With("outcome", string(outcome)))
	return tx, err
}
