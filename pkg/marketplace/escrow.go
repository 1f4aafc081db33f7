package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/koneque/marketplace-escrow/pkg/amount"
	"github.com/koneque/marketplace-escrow/pkg/events"
	"github.com/koneque/marketplace-escrow/pkg/fees"
	"github.com/koneque/marketplace-escrow/pkg/ledger"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/koneque/marketplace-escrow/pkg/sequencer"
)

// GetEscrow returns the escrow record of a transaction.
func (s *Service) GetEscrow(ctx context.Context, txID uint64) (*models.EscrowRecord, error) {
	return s.deps.Store.GetEscrow(ctx, txID)
}

// LockFunds retries the buyer deposit of a purchase whose lock is still
// outstanding. A submission already broadcast is re-checked, never resent.
func (s *Service) LockFunds(ctx context.Context, txID uint64) (err error) {
	defer s.observe("lock_funds", time.Now(), &err)

	release, err := s.lock(ctx, sequencer.TransactionKey(txID))
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.deps.Store.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}
	escrow, err := s.deps.Store.GetEscrow(ctx, txID)
	if err != nil {
		return err
	}
	return s.lockFunds(ctx, tx, escrow)
}

// lockFunds moves the purchase amount from the buyer into escrow. The caller
// holds the transaction lock.
func (s *Service) lockFunds(ctx context.Context, tx *models.Transaction, escrow *models.EscrowRecord) error {
	leg := escrow.Leg(models.LegLock)
	if leg == nil {
		return fmt.Errorf("%w: escrow %d has no lock leg", models.ErrInvalidState, tx.ID)
	}
	switch leg.State {
	case models.LegConfirmed:
		return fmt.Errorf("escrow %d: %w", tx.ID, models.ErrAlreadyLocked)
	case models.LegRejected:
		return s.rollbackPurchase(ctx, tx, escrow)
	}

	outcome, err := s.progressLeg(ctx, escrow, leg, true)
	if err != nil {
		return err
	}
	switch outcome {
	case ledger.Confirmed:
		s.deps.Logger.Info("funds locked", "transaction_id", tx.ID, "tx_hash", leg.TxHash)
		s.publish(ctx, s.event(events.FundsLocked, tx.ID, tx.ListingID, tx.Buyer).
			With("amount", escrow.Amount.String()).
			With("tx_hash", leg.TxHash))
		return nil
	case ledger.Rejected:
		return s.rollbackPurchase(ctx, tx, escrow)
	default:
		return &models.PendingError{TransactionID: tx.ID, TxHash: leg.TxHash}
	}
}

// rollbackPurchase undoes a purchase whose deposit the ledger refused and
// reports the rejection.
func (s *Service) rollbackPurchase(ctx context.Context, tx *models.Transaction, escrow *models.EscrowRecord) error {
	if err := s.deps.Store.RollbackPurchase(ctx, tx, escrow); err != nil {
		return fmt.Errorf("failed to roll back purchase %d: %w", tx.ID, err)
	}
	s.deps.Metrics.Transition(string(tx.Status), "ROLLED_BACK")
	s.deps.Logger.Warn("purchase rolled back after rejected deposit", "transaction_id", tx.ID, "listing_id", tx.ListingID)
	s.publish(ctx, s.event(events.PurchaseRolledBack, tx.ID, tx.ListingID, tx.Buyer))
	return fmt.Errorf("deposit for transaction %d: %w", tx.ID, models.ErrLedgerRejected)
}

// releaseToSeller pays the seller, the fee pool and any first-purchase
// referrer, and moves tx to next. The caller holds the transaction lock.
func (s *Service) releaseToSeller(ctx context.Context, tx *models.Transaction, next models.TransactionStatus) (*models.EscrowRecord, error) {
	escrow, err := s.settleableEscrow(ctx, tx.ID)
	if err != nil {
		return nil, err
	}

	feeBps, err := s.deps.Fees.FeeBps(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read fee rate: %w", err)
	}
	rel, reward, err := s.recordFirstPurchaseIfEligible(ctx, tx)
	if err != nil {
		return nil, err
	}
	split, err := fees.Compute(escrow.Amount, feeBps, reward)
	if err != nil {
		return nil, err
	}

	now := s.now()
	escrow.Released = true
	escrow.Disposition = models.ToSeller
	escrow.ReleasedAt = &now
	escrow.FeeAmount = split.Fee
	escrow.ReferralPayout = split.Referral
	escrow.NetAmount = split.Net
	escrow.Legs = append(escrow.Legs, s.payoutLeg(models.LegSeller, tx.Seller, split.Net, now))
	if !split.Fee.IsZero() {
		escrow.Legs = append(escrow.Legs, s.payoutLeg(models.LegFee, s.opts.FeePool, split.Fee, now))
	}
	if rel != nil && !split.Referral.IsZero() {
		escrow.Referrer = rel.Referrer
		escrow.Legs = append(escrow.Legs, s.payoutLeg(models.LegReferral, rel.Referrer, split.Referral, now))
	}

	if err := s.settle(ctx, tx, escrow, rel, next, now); err != nil {
		return nil, err
	}

	s.deps.Logger.Info("escrow released to seller",
		"transaction_id", tx.ID, "net", split.Net.String(), "fee", split.Fee.String(), "referral", split.Referral.String())
	s.publish(ctx, s.event(events.FundsReleased, tx.ID, tx.ListingID, tx.Seller).
		With("net", split.Net.String()).
		With("fee", split.Fee.String()).
		With("referral", split.Referral.String()))
	if rel != nil && !split.Referral.IsZero() {
		s.publish(ctx, s.event(events.ReferralRewarded, tx.ID, tx.ListingID, rel.Referrer).
			With("referred", rel.Referred).
			With("payout", split.Referral.String()))
	}
	return escrow, s.disburse(ctx, escrow)
}

// refundToBuyer returns the full amount to the buyer with no fee.
func (s *Service) refundToBuyer(ctx context.Context, tx *models.Transaction, next models.TransactionStatus) (*models.EscrowRecord, error) {
	escrow, err := s.settleableEscrow(ctx, tx.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	escrow.Released = true
	escrow.Disposition = models.ToBuyer
	escrow.ReleasedAt = &now
	escrow.FeeAmount = amount.Zero
	escrow.ReferralPayout = amount.Zero
	escrow.NetAmount = escrow.Amount
	escrow.Legs = append(escrow.Legs, s.payoutLeg(models.LegRefund, tx.Buyer, escrow.Amount, now))

	if err := s.settle(ctx, tx, escrow, nil, next, now); err != nil {
		return nil, err
	}

	s.deps.Logger.Info("escrow refunded to buyer", "transaction_id", tx.ID, "amount", escrow.Amount.String())
	s.publish(ctx, s.event(events.FundsRefunded, tx.ID, tx.ListingID, tx.Buyer).With("amount", escrow.Amount.String()))
	return escrow, s.disburse(ctx, escrow)
}

// settleableEscrow loads an escrow that may still be released.
func (s *Service) settleableEscrow(ctx context.Context, txID uint64) (*models.EscrowRecord, error) {
	escrow, err := s.deps.Store.GetEscrow(ctx, txID)
	if err != nil {
		return nil, err
	}
	if escrow.Released {
		return nil, fmt.Errorf("escrow %d: %w", txID, models.ErrAlreadyReleased)
	}
	if !escrow.LockConfirmed() {
		return nil, fmt.Errorf("%w: funds for transaction %d are not locked", models.ErrInvalidState, txID)
	}
	return escrow, nil
}

func (s *Service) payoutLeg(kind models.LegKind, to string, v amount.Amount, at time.Time) models.TransferLeg {
	return models.TransferLeg{
		Kind:      kind,
		From:      s.opts.EscrowAccount,
		To:        to,
		Amount:    v,
		State:     models.LegPending,
		UpdatedAt: at,
	}
}

// settle commits the released escrow, the transaction's new status, the
// referral flag and the journal in one store write.
func (s *Service) settle(ctx context.Context, tx *models.Transaction, escrow *models.EscrowRecord, rel *models.ReferralRelationship, next models.TransactionStatus, now time.Time) error {
	prev := tx.Status
	tx.Status = next
	tx.UpdatedAt = now

	st := &models.Settlement{
		Escrow:      escrow,
		Transaction: tx,
		Referral:    rel,
		Entries:     s.journal(escrow, now),
	}
	if err := s.deps.Store.Settle(ctx, st); err != nil {
		tx.Status = prev
		return fmt.Errorf("failed to settle transaction %d: %w", tx.ID, err)
	}
	s.deps.Metrics.Transition(string(prev), string(next))
	s.deps.Metrics.Settlement(string(escrow.Disposition))
	return nil
}

// journal debits escrow once and credits every payout leg.
func (s *Service) journal(escrow *models.EscrowRecord, now time.Time) []models.LedgerEntry {
	txID := escrow.TransactionID
	desc := "Settlement for transaction " + strconv.FormatUint(txID, 10)
	entries := []models.LedgerEntry{{
		EntryID:       uuid.NewString(),
		TransactionID: txID,
		AccountID:     s.opts.EscrowAccount,
		Kind:          models.LegLock,
		Debit:         escrow.Amount,
		Description:   desc,
		Timestamp:     now,
	}}
	for _, leg := range escrow.Legs {
		if leg.Kind == models.LegLock {
			continue
		}
		entries = append(entries, models.LedgerEntry{
			EntryID:       uuid.NewString(),
			TransactionID: txID,
			AccountID:     leg.To,
			Kind:          leg.Kind,
			Credit:        leg.Amount,
			Description:   desc,
			Timestamp:     now,
		})
	}
	return entries
}

// disburse submits every unconfirmed payout leg and waits for each. A
// rejected leg is reported as ErrLedgerRejected and left for reconciliation.
// The settlement is already committed, so any other failure is reported as
// pending and the reconciler finishes the payout.
func (s *Service) disburse(ctx context.Context, escrow *models.EscrowRecord) error {
	var pending *models.PendingError
	var rejected []error
	for i := range escrow.Legs {
		leg := &escrow.Legs[i]
		if leg.Kind == models.LegLock || leg.State == models.LegConfirmed {
			continue
		}
		outcome, err := s.progressLeg(ctx, escrow, leg, true)
		if err != nil {
			s.deps.Logger.Error("payout deferred to reconciler",
				"transaction_id", escrow.TransactionID, "kind", leg.Kind, "error", err)
			if pending == nil {
				pending = &models.PendingError{TransactionID: escrow.TransactionID, TxHash: leg.TxHash}
			}
			break
		}
		switch outcome {
		case ledger.Rejected:
			rejected = append(rejected, fmt.Errorf("%s payout for transaction %d: %w", leg.Kind, escrow.TransactionID, models.ErrLedgerRejected))
		case ledger.Pending:
			if pending == nil {
				pending = &models.PendingError{TransactionID: escrow.TransactionID, TxHash: leg.TxHash}
			}
		}
	}
	if len(rejected) > 0 {
		return errors.Join(rejected...)
	}
	if pending != nil {
		return pending
	}
	return nil
}

// progressLeg signs the leg if it was never signed or was rejected, stores
// the signed transaction, broadcasts it and then observes its outcome,
// waiting up to the ledger timeout when wait is set. Without wait a pending
// leg is broadcast again, which is harmless if the ledger already has it.
// Every state change is persisted before returning.
func (s *Service) progressLeg(ctx context.Context, escrow *models.EscrowRecord, leg *models.TransferLeg, wait bool) (ledger.Outcome, error) {
	fresh := leg.TxHash == "" || leg.State == models.LegRejected
	if fresh {
		if leg.Attempts >= maxLegAttempts {
			s.deps.Logger.Error("giving up on ledger leg", "transaction_id", escrow.TransactionID, "kind", leg.Kind, "attempts", leg.Attempts)
			return ledger.Rejected, nil
		}
		signed, err := s.sign(ctx, leg)
		if err != nil {
			if !errors.Is(err, models.ErrLedgerRejected) {
				return ledger.Pending, fmt.Errorf("failed to sign %s leg of transaction %d: %w", leg.Kind, escrow.TransactionID, err)
			}
			leg.Attempts++
			leg.UpdatedAt = s.now()
			leg.State = models.LegRejected
			s.deps.Metrics.LedgerSubmission(string(leg.Kind), string(ledger.Rejected))
			return ledger.Rejected, s.saveEscrow(ctx, escrow)
		}
		prev := *leg
		leg.Attempts++
		leg.UpdatedAt = s.now()
		leg.TxHash = signed.Hash
		leg.RawTx = signed.Raw
		leg.State = models.LegPending
		// Nothing reaches the ledger until the signed transaction is stored,
		// so a retry can only ever resend this one.
		if err := s.saveEscrow(ctx, escrow); err != nil {
			*leg = prev
			s.deps.Tokens.Abandon(signed)
			return ledger.Pending, err
		}
	}
	if fresh || !wait {
		if rejected, err := s.broadcast(ctx, escrow, leg); rejected || err != nil {
			return ledger.Rejected, err
		}
	}

	var outcome ledger.Outcome
	var err error
	if wait {
		outcome, err = ledger.Await(ctx, s.deps.Confirmer, leg.TxHash, s.opts.LedgerTimeout, s.opts.PollInterval)
	} else {
		outcome, err = s.deps.Confirmer.Status(ctx, leg.TxHash)
	}
	if err != nil {
		return ledger.Pending, fmt.Errorf("failed to observe %s leg of transaction %d: %w", leg.Kind, escrow.TransactionID, err)
	}
	s.deps.Metrics.LedgerSubmission(string(leg.Kind), string(outcome))

	switch outcome {
	case ledger.Confirmed:
		leg.State = models.LegConfirmed
	case ledger.Rejected:
		leg.State = models.LegRejected
	default:
		return outcome, nil
	}
	leg.UpdatedAt = s.now()
	return outcome, s.saveEscrow(ctx, escrow)
}

// broadcast sends the leg's stored transaction. A failed send may still have
// reached the ledger, so only a definite rejection changes the leg.
func (s *Service) broadcast(ctx context.Context, escrow *models.EscrowRecord, leg *models.TransferLeg) (bool, error) {
	if leg.RawTx == "" {
		return false, nil
	}
	err := s.deps.Tokens.Broadcast(ctx, ledger.Signed{Hash: leg.TxHash, Raw: leg.RawTx})
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, models.ErrLedgerRejected):
		leg.State = models.LegRejected
		leg.UpdatedAt = s.now()
		s.deps.Metrics.LedgerSubmission(string(leg.Kind), string(ledger.Rejected))
		return true, s.saveEscrow(ctx, escrow)
	default:
		s.deps.Logger.Warn("broadcast failed, awaiting outcome",
			"transaction_id", escrow.TransactionID, "kind", leg.Kind, "tx_hash", leg.TxHash, "error", err)
		return false, nil
	}
}

func (s *Service) sign(ctx context.Context, leg *models.TransferLeg) (ledger.Signed, error) {
	if leg.Kind == models.LegLock {
		return s.deps.Tokens.SignTransferFrom(ctx, leg.From, leg.To, leg.Amount)
	}
	return s.deps.Tokens.SignTransfer(ctx, leg.To, leg.Amount)
}

func (s *Service) saveEscrow(ctx context.Context, escrow *models.EscrowRecord) error {
	if err := s.deps.Store.UpdateEscrow(ctx, escrow); err != nil {
		return fmt.Errorf("failed to record ledger progress for transaction %d: %w", escrow.TransactionID, err)
	}
	return nil
}
