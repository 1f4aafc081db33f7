package marketplace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/amount"
	"github.com/koneque/marketplace-escrow/pkg/events"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/koneque/marketplace-escrow/pkg/sequencer"
)

// Purchase buys an active listing at its price. The listing is deactivated
// and the buyer's funds are pulled into escrow. When the ledger has not
// confirmed the deposit in time the transaction is returned together with a
// *models.PendingError; reconciliation completes or rolls it back later.
func (s *Service) Purchase(ctx context.Context, listingID uint64, buyer string) (tx *models.Transaction, err error) {
	defer s.observe("purchase", time.Now(), &err)

	buyer, err = normalizeActor(buyer)
	if err != nil {
		return nil, err
	}
	release, err := s.lock(ctx, sequencer.ListingKey(listingID))
	if err != nil {
		return nil, err
	}
	defer release()

	listing, err := s.deps.Store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !listing.Active {
		return nil, fmt.Errorf("listing %d: %w", listingID, models.ErrAlreadyInactive)
	}
	if listing.Seller == buyer {
		return nil, fmt.Errorf("%w: seller cannot buy their own listing", models.ErrInvalidInput)
	}
	if err := s.checkFunds(ctx, buyer, listing.Price); err != nil {
		return nil, err
	}

	id, err := s.deps.Store.NextID(ctx, transactionSequence)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate transaction id: %w", err)
	}
	releaseTx, err := s.lock(ctx, sequencer.TransactionKey(id))
	if err != nil {
		return nil, err
	}
	defer releaseTx()

	now := s.now()
	tx = &models.Transaction{
		ID:        id,
		ListingID: listingID,
		Buyer:     buyer,
		Seller:    listing.Seller,
		Amount:    listing.Price,
		Status:    models.PaymentCompleted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	escrow := &models.EscrowRecord{
		TransactionID: id,
		Buyer:         buyer,
		Seller:        listing.Seller,
		Amount:        listing.Price,
		HeldSince:     now,
		Legs: []models.TransferLeg{{
			Kind:      models.LegLock,
			From:      buyer,
			To:        s.opts.EscrowAccount,
			Amount:    listing.Price,
			State:     models.LegPending,
			UpdatedAt: now,
		}},
	}
	if err := s.deps.Store.CreatePurchase(ctx, listing, tx, escrow); err != nil {
		return nil, fmt.Errorf("failed to record purchase of listing %d: %w", listingID, err)
	}

	s.deps.Metrics.Transition("", string(models.PaymentCompleted))
	s.deps.Logger.Info("item purchased", "transaction_id", id, "listing_id", listingID, "buyer", buyer, "amount", tx.Amount.String())
	s.publish(ctx, s.event(events.ItemPurchased, id, listingID, buyer).
		With("seller", tx.Seller).
		With("amount", tx.Amount.String()))

	if err := s.lockFunds(ctx, tx, escrow); err != nil {
		if errors.Is(err, models.ErrLedgerRejected) {
			return nil, err
		}
		return tx, err
	}
	return tx, nil
}

// checkFunds reads the buyer's balance and the allowance granted to escrow
// before anything is written.
func (s *Service) checkFunds(ctx context.Context, buyer string, price amount.Amount) error {
	balance, err := s.deps.Tokens.BalanceOf(ctx, buyer)
	if err != nil {
		return fmt.Errorf("failed to read balance of %s: %w", buyer, err)
	}
	if balance.LessThan(price) {
		return fmt.Errorf("%w: balance %s below price %s", models.ErrInsufficientBalance, balance, price)
	}
	allowance, err := s.deps.Tokens.Allowance(ctx, buyer, s.opts.EscrowAccount)
	if err != nil {
		return fmt.Errorf("failed to read allowance of %s: %w", buyer, err)
	}
	if allowance.LessThan(price) {
		return fmt.Errorf("%w: allowance %s below price %s", models.ErrInsufficientAllowance, allowance, price)
	}
	return nil
}
