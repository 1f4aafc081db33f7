package marketplace

import (
	"context"
	"fmt"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/events"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/koneque/marketplace-escrow/pkg/sequencer"
)

// TransactionDetails is a transaction together with its escrow record.
type TransactionDetails struct {
	Transaction *models.Transaction  `json:"transaction"`
	Escrow      *models.EscrowRecord `json:"escrow"`
}

func (s *Service) GetTransaction(ctx context.Context, id uint64) (*models.Transaction, error) {
	return s.deps.Store.GetTransaction(ctx, id)
}

func (s *Service) TransactionDetails(ctx context.Context, id uint64) (*TransactionDetails, error) {
	tx, err := s.deps.Store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	escrow, err := s.deps.Store.GetEscrow(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TransactionDetails{Transaction: tx, Escrow: escrow}, nil
}

// UserTransactions lists every transaction the user bought or sold, newest
// first.
func (s *Service) UserTransactions(ctx context.Context, user string) ([]models.Transaction, error) {
	user, err := normalizeActor(user)
	if err != nil {
		return nil, err
	}
	return s.deps.Store.ListTransactionsByUser(ctx, user)
}

// LedgerEntries returns recent journal rows, optionally for one account.
func (s *Service) LedgerEntries(ctx context.Context, account string, limit int32) ([]models.LedgerEntry, error) {
	if account != "" {
		addr, err := models.NormalizeAddress(account)
		if err != nil {
			return nil, err
		}
		account = addr
	}
	if limit <= 0 || limit > 500 {
		limit = s.opts.PageSize
	}
	return s.deps.Store.ListLedgerEntries(ctx, account, limit)
}

func (s *Service) LedgerEntriesByTransaction(ctx context.Context, txID uint64) ([]models.LedgerEntry, error) {
	return s.deps.Store.ListLedgerEntriesByTransaction(ctx, txID)
}

// ConfirmDelivery is called by the seller once the item has shipped. It
// starts the buyer's grace period.
func (s *Service) ConfirmDelivery(ctx context.Context, txID uint64, actor string) (tx *models.Transaction, err error) {
	defer s.observe("confirm_delivery", time.Now(), &err)

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
	if actor != tx.Seller {
		return nil, fmt.Errorf("%w: only the seller may confirm delivery", models.ErrUnauthorized)
	}
	if err := requireStatus(tx, models.PaymentCompleted); err != nil {
		return nil, err
	}
	escrow, err := s.deps.Store.GetEscrow(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !escrow.LockConfirmed() {
		return nil, fmt.Errorf("%w: funds for transaction %d are not locked", models.ErrInvalidState, txID)
	}

	now := s.now()
	tx.Status = models.ProductDelivered
	tx.DeliveredAt = &now
	tx.UpdatedAt = now
	if err := s.deps.Store.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to confirm delivery of transaction %d: %w", txID, err)
	}
	s.deps.Metrics.Transition(string(models.PaymentCompleted), string(models.ProductDelivered))

	due := now.Add(s.opts.GracePeriod)
	if s.deps.Scheduler != nil {
		if err := s.deps.Scheduler.ScheduleFinalize(ctx, txID, due); err != nil {
			s.deps.Logger.Error("failed to schedule auto-finalize", "transaction_id", txID, "due_at", due, "error", err)
		}
	}

	s.deps.Logger.Info("delivery confirmed", "transaction_id", txID, "finalize_after", due)
	s.publish(ctx, s.event(events.DeliveryConfirmed, txID, tx.ListingID, actor).
		With("finalize_after", due.Format(time.RFC3339)))
	return tx, nil
}

// Finalize is the buyer accepting delivery; escrow is released to the seller.
func (s *Service) Finalize(ctx context.Context, txID uint64, actor string) (tx *models.Transaction, err error) {
	defer s.observe("finalize", time.Now(), &err)

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
	if actor != tx.Buyer {
		return nil, fmt.Errorf("%w: only the buyer may finalize", models.ErrUnauthorized)
	}
	if err := requireStatus(tx, models.ProductDelivered); err != nil {
		return nil, err
	}
	return s.finalize(ctx, tx, actor)
}

// AutoFinalize releases escrow to the seller once the grace period after
// delivery has passed without a dispute.
func (s *Service) AutoFinalize(ctx context.Context, txID uint64) (tx *models.Transaction, err error) {
	defer s.observe("auto_finalize", time.Now(), &err)

	release, err := s.lock(ctx, sequencer.TransactionKey(txID))
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err = s.loadForTransition(ctx, txID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(tx, models.ProductDelivered); err != nil {
		return nil, err
	}
	if tx.DeliveredAt == nil || tx.DeliveredAt.Add(s.opts.GracePeriod).After(s.now()) {
		return nil, fmt.Errorf("%w: grace period for transaction %d has not elapsed", models.ErrInvalidState, txID)
	}
	return s.finalize(ctx, tx, "")
}

func (s *Service) finalize(ctx context.Context, tx *models.Transaction, actor string) (*models.Transaction, error) {
	_, err := s.releaseToSeller(ctx, tx, models.Finalized)
	if tx.Status != models.Finalized {
		return nil, err
	}
	s.publish(ctx, s.event(events.TransactionFinalized, tx.ID, tx.ListingID, actor).
		With("auto", fmt.Sprint(actor == "")))
	return tx, err
}
