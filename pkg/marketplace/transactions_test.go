package marketplace

import (
	"context"
	"errors"
	"testing"

	"github.com/koneque/marketplace-escrow/pkg/amount"
	"github.com/koneque/marketplace-escrow/pkg/events"
	"github.com/koneque/marketplace-escrow/pkg/fees"
	"github.com/koneque/marketplace-escrow/pkg/ledger"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/koneque/marketplace-escrow/pkg/scheduler/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, fees.Static{Fee: 200})
		f.fund(buyer, 100)
		l := f.list(t, 100, "vehicles")

		tx, err := f.svc.Purchase(ctx, l.ID, buyer)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentCompleted, tx.Status)
		assert.Equal(t, seller, tx.Seller)
		assert.Equal(t, units(0), f.balance(t, buyer))
		assert.Equal(t, units(100), f.balance(t, escrowAc))

		listing, err := f.svc.GetListing(ctx, l.ID)
		require.NoError(t, err)
		assert.False(t, listing.Active)

		escrow, err := f.svc.GetEscrow(ctx, tx.ID)
		require.NoError(t, err)
		assert.True(t, escrow.LockConfirmed())
		assert.Equal(t, tx.Amount, escrow.Amount)
		assert.Equal(t, []events.Type{events.ItemListed, events.ItemPurchased, events.FundsLocked}, f.events.Types())
	})

	t.Run("Inactive Listing Fails", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		f.fund(buyer, 10)
		f.fund(stranger, 10)
		l := f.list(t, 5, "others")
		_, err := f.svc.Purchase(ctx, l.ID, buyer)
		require.NoError(t, err)
		_, err = f.svc.Purchase(ctx, l.ID, stranger)
		assert.ErrorIs(t, err, models.ErrAlreadyInactive)
	})

	t.Run("Own Listing Fails", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		f.fund(seller, 10)
		l := f.list(t, 5, "others")
		_, err := f.svc.Purchase(ctx, l.ID, seller)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("Insufficient Balance Fails", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		f.fund(buyer, 4)
		l := f.list(t, 5, "others")
		_, err := f.svc.Purchase(ctx, l.ID, buyer)
		assert.ErrorIs(t, err, models.ErrInsufficientBalance)

		listing, err := f.svc.GetListing(ctx, l.ID)
		require.NoError(t, err)
		assert.True(t, listing.Active)
	})

	t.Run("Insufficient Allowance Fails", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		f.fund(buyer, 10)
		f.tokens.SetAllowance(buyer, escrowAc, amount.Units(5))
		l := f.list(t, 6, "others")
		_, err := f.svc.Purchase(ctx, l.ID, buyer)
		assert.ErrorIs(t, err, models.ErrInsufficientAllowance)
	})

	t.Run("Unknown Listing Fails", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		_, err := f.svc.Purchase(ctx, 7, buyer)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("Rejected Deposit Rolls Back", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		f.fund(buyer, 10)
		l := f.list(t, 10, "others")
		f.tokens.RejectNext(1)

		_, err := f.svc.Purchase(ctx, l.ID, buyer)
		assert.ErrorIs(t, err, models.ErrLedgerRejected)

		listing, err := f.svc.GetListing(ctx, l.ID)
		require.NoError(t, err)
		assert.True(t, listing.Active)
		_, err = f.svc.GetTransaction(ctx, 1)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Equal(t, units(10), f.balance(t, buyer))
		assert.Contains(t, f.events.Types(), events.PurchaseRolledBack)
	})

	t.Run("Pending Deposit", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		f.fund(buyer, 10)
		l := f.list(t, 10, "others")
		f.tokens.HoldSubmissions(true)

		tx, err := f.svc.Purchase(ctx, l.ID, buyer)
		require.ErrorIs(t, err, models.ErrLedgerPending)
		require.NotNil(t, tx)
		var pending *models.PendingError
		require.True(t, errors.As(err, &pending))
		assert.Equal(t, tx.ID, pending.TransactionID)
		assert.NotEmpty(t, pending.TxHash)

		_, err = f.svc.ConfirmDelivery(ctx, tx.ID, seller)
		assert.ErrorIs(t, err, models.ErrInvalidState, "unlocked funds block delivery")

		// A retry while pending observes the same submission.
		err = f.svc.LockFunds(ctx, tx.ID)
		assert.ErrorIs(t, err, models.ErrLedgerPending)
		escrow, err := f.svc.GetEscrow(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, pending.TxHash, escrow.Leg(models.LegLock).TxHash)
		assert.Equal(t, 1, escrow.Leg(models.LegLock).Attempts)

		require.NoError(t, f.tokens.Resolve(pending.TxHash, ledger.Confirmed))
		require.NoError(t, f.svc.LockFunds(ctx, tx.ID))
		assert.ErrorIs(t, f.svc.LockFunds(ctx, tx.ID), models.ErrAlreadyLocked)
		assert.Equal(t, units(10), f.balance(t, escrowAc))

		_, err = f.svc.ConfirmDelivery(ctx, tx.ID, seller)
		assert.NoError(t, err)
	})
}

// Scenario A: a plain sale with a 2% fee.
func TestFinalizeReleasesToSeller(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fees.Static{Fee: 200})
	f.fund(buyer, 100)
	tx := f.delivered(t, 100)

	_, err := f.svc.Finalize(ctx, tx.ID, seller)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	tx, err = f.svc.Finalize(ctx, tx.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, models.Finalized, tx.Status)
	assert.Equal(t, units(98), f.balance(t, seller))
	assert.Equal(t, units(2), f.balance(t, feePool))
	assert.Equal(t, units(0), f.balance(t, escrowAc))

	details, err := f.svc.TransactionDetails(ctx, tx.ID)
	require.NoError(t, err)
	e := details.Escrow
	assert.True(t, e.Released)
	assert.Equal(t, models.ToSeller, e.Disposition)
	assert.Equal(t, units(98), e.NetAmount.String())
	assert.Equal(t, units(2), e.FeeAmount.String())
	assert.True(t, e.ReferralPayout.IsZero())
	assert.Empty(t, e.Unconfirmed())
	assert.Empty(t, e.AwaitingLedger)

	entries, err := f.svc.LedgerEntriesByTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	debit, credit := amount.Zero, amount.Zero
	for _, entry := range entries {
		debit, _ = debit.Add(entry.Debit)
		credit, _ = credit.Add(entry.Credit)
	}
	assert.True(t, debit.Equal(credit), "journal balances")

	sellerEntries, err := f.svc.LedgerEntries(ctx, seller, 10)
	require.NoError(t, err)
	require.Len(t, sellerEntries, 1)
	assert.Equal(t, models.LegSeller, sellerEntries[0].Kind)

	assert.Equal(t, []events.Type{
		events.ItemListed, events.ItemPurchased, events.FundsLocked, events.DeliveryConfirmed,
		events.FundsReleased, events.TransactionFinalized,
	}, f.events.Types())

	_, err = f.svc.Finalize(ctx, tx.ID, buyer)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

// Scenario B: the buyer's first purchase pays their referrer.
func TestReferralPaidOnFirstPurchaseOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fees.Static{Fee: 200, Referral: 1000})
	f.fund(buyer, 100)

	code, err := f.svc.CreateCode(ctx, referrer, "", 24*grace, 10)
	require.NoError(t, err)
	_, err = f.svc.RegisterWithCode(ctx, code.Code, buyer)
	require.NoError(t, err)

	first := f.delivered(t, 50)
	_, err = f.svc.Finalize(ctx, first.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, units(5), f.balance(t, referrer))
	assert.Equal(t, units(44), f.balance(t, seller))
	assert.Equal(t, units(1), f.balance(t, feePool))

	second := f.delivered(t, 50)
	_, err = f.svc.Finalize(ctx, second.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, units(5), f.balance(t, referrer), "no second payout")
	assert.Equal(t, units(44+49), f.balance(t, seller))

	rels, err := f.svc.UserReferrals(ctx, referrer)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.True(t, rels[0].FirstPurchaseRecorded)
	assert.Equal(t, first.ID, rels[0].PayoutTransactionID)
	assert.Equal(t, units(5), rels[0].PayoutAmount.String())

	escrow, err := f.svc.GetEscrow(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, referrer, escrow.Referrer)
	assert.Contains(t, f.events.Types(), events.ReferralRewarded)
}

// Scenario C: the buyer wins a dispute raised after delivery.
func TestDisputeRefundsBuyer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fees.Static{Fee: 200})
	f.fund(buyer, 100)
	tx := f.delivered(t, 100)

	tx, err := f.svc.InitiateDispute(ctx, tx.ID, buyer, "item never arrived")
	require.NoError(t, err)
	assert.Equal(t, models.InDispute, tx.Status)
	require.NotNil(t, tx.Dispute)
	assert.Equal(t, buyer, tx.Dispute.Initiator)

	tx, err = f.svc.Resolve(ctx, tx.ID, arbiter, models.FavorBuyer)
	require.NoError(t, err)
	assert.Equal(t, models.Refunded, tx.Status)
	assert.Equal(t, models.FavorBuyer, tx.Dispute.Outcome)
	assert.Equal(t, arbiter, tx.Dispute.Arbiter)
	assert.NotNil(t, tx.Dispute.ResolvedAt)

	assert.Equal(t, units(100), f.balance(t, buyer))
	assert.Equal(t, units(0), f.balance(t, feePool))
	assert.Equal(t, units(0), f.balance(t, seller))

	escrow, err := f.svc.GetEscrow(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ToBuyer, escrow.Disposition)
	assert.True(t, escrow.FeeAmount.IsZero())

	stored, err := f.svc.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FavorBuyer, stored.Dispute.Outcome)
}

func TestResolveFavorSeller(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fees.Static{Fee: 500})
	f.fund(buyer, 20)
	l := f.list(t, 20, "clothing")
	tx, err := f.svc.Purchase(ctx, l.ID, buyer)
	require.NoError(t, err)

	_, err = f.svc.InitiateDispute(ctx, tx.ID, seller, "buyer unreachable")
	require.NoError(t, err)
	tx, err = f.svc.Resolve(ctx, tx.ID, arbiter, models.FavorSeller)
	require.NoError(t, err)
	assert.Equal(t, models.Finalized, tx.Status)
	assert.Equal(t, units(19), f.balance(t, seller))
	assert.Equal(t, units(1), f.balance(t, feePool))
	assert.Contains(t, f.events.Types(), events.DisputeResolved)
}

func TestTransitionPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown Transaction Fails", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		_, err := f.svc.ConfirmDelivery(ctx, 9, seller)
		assert.ErrorIs(t, err, models.ErrNotFound)
		_, err = f.svc.Finalize(ctx, 9, buyer)
		assert.ErrorIs(t, err, models.ErrNotFound)
		_, err = f.svc.InitiateDispute(ctx, 9, buyer, "x")
		assert.ErrorIs(t, err, models.ErrNotFound)
		_, err = f.svc.Resolve(ctx, 9, arbiter, models.FavorBuyer)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("Payment Completed", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		f.fund(buyer, 5)
		l := f.list(t, 5, "others")
		tx, err := f.svc.Purchase(ctx, l.ID, buyer)
		require.NoError(t, err)

		_, err = f.svc.ConfirmDelivery(ctx, tx.ID, buyer)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
		_, err = f.svc.Finalize(ctx, tx.ID, buyer)
		assert.ErrorIs(t, err, models.ErrInvalidState)
		_, err = f.svc.Resolve(ctx, tx.ID, arbiter, models.FavorSeller)
		assert.ErrorIs(t, err, models.ErrInvalidState)
		_, err = f.svc.AutoFinalize(ctx, tx.ID)
		assert.ErrorIs(t, err, models.ErrInvalidState)
		_, err = f.svc.InitiateDispute(ctx, tx.ID, stranger, "x")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("Product Delivered", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		f.fund(buyer, 5)
		tx := f.delivered(t, 5)

		_, err := f.svc.ConfirmDelivery(ctx, tx.ID, seller)
		assert.ErrorIs(t, err, models.ErrInvalidState)
		_, err = f.svc.Finalize(ctx, tx.ID, stranger)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
		_, err = f.svc.Resolve(ctx, tx.ID, stranger, models.FavorSeller)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
		_, err = f.svc.AutoFinalize(ctx, tx.ID)
		assert.ErrorIs(t, err, models.ErrInvalidState, "grace period still running")
	})

	t.Run("In Dispute", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		f.fund(buyer, 5)
		tx := f.delivered(t, 5)
		_, err := f.svc.InitiateDispute(ctx, tx.ID, buyer, "scratched")
		require.NoError(t, err)

		_, err = f.svc.Finalize(ctx, tx.ID, buyer)
		assert.ErrorIs(t, err, models.ErrInvalidState)
		_, err = f.svc.InitiateDispute(ctx, tx.ID, seller, "again")
		assert.ErrorIs(t, err, models.ErrInvalidState)
		_, err = f.svc.Resolve(ctx, tx.ID, buyer, models.FavorBuyer)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
		_, err = f.svc.Resolve(ctx, tx.ID, arbiter, models.Split)
		assert.ErrorIs(t, err, models.ErrInvalidInput)

		f.advance(2 * grace)
		_, err = f.svc.AutoFinalize(ctx, tx.ID)
		assert.ErrorIs(t, err, models.ErrInvalidState, "disputes never time out")
	})

	t.Run("Terminal", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		f.fund(buyer, 5)
		tx := f.delivered(t, 5)
		_, err := f.svc.Finalize(ctx, tx.ID, buyer)
		require.NoError(t, err)

		// Terminal state is reported before the caller's role.
		_, err = f.svc.ConfirmDelivery(ctx, tx.ID, stranger)
		assert.ErrorIs(t, err, models.ErrInvalidState)
		_, err = f.svc.InitiateDispute(ctx, tx.ID, stranger, "late")
		assert.ErrorIs(t, err, models.ErrInvalidState)
		_, err = f.svc.Resolve(ctx, tx.ID, stranger, models.FavorBuyer)
		assert.ErrorIs(t, err, models.ErrInvalidState)
	})

	t.Run("Empty Reason Fails", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		_, err := f.svc.InitiateDispute(ctx, 1, buyer, "   ")
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestConfirmDeliverySchedulesFinalize(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		sched := mocks.NewFinalizeScheduler(t)
		f := newFixture(t, fees.Static{}, func(d *Deps) { d.Scheduler = sched })
		f.fund(buyer, 5)
		l := f.list(t, 5, "others")
		tx, err := f.svc.Purchase(ctx, l.ID, buyer)
		require.NoError(t, err)

		sched.On("ScheduleFinalize", mock.Anything, tx.ID, f.clock().Add(grace)).Return(nil).Once()
		tx, err = f.svc.ConfirmDelivery(ctx, tx.ID, seller)
		require.NoError(t, err)
		assert.Equal(t, models.ProductDelivered, tx.Status)
		assert.Equal(t, f.clock(), *tx.DeliveredAt)
	})

	t.Run("Scheduler Failure Is Not Fatal", func(t *testing.T) {
		sched := mocks.NewFinalizeScheduler(t)
		f := newFixture(t, fees.Static{}, func(d *Deps) { d.Scheduler = sched })
		f.fund(buyer, 5)
		l := f.list(t, 5, "others")
		tx, err := f.svc.Purchase(ctx, l.ID, buyer)
		require.NoError(t, err)

		sched.On("ScheduleFinalize", mock.Anything, tx.ID, mock.Anything).Return(errors.New("queue down")).Once()
		tx, err = f.svc.ConfirmDelivery(ctx, tx.ID, seller)
		require.NoError(t, err)
		assert.Equal(t, models.ProductDelivered, tx.Status)
	})
}

func TestAutoFinalize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fees.Static{Fee: 200})
	f.fund(buyer, 100)
	tx := f.delivered(t, 100)

	f.advance(grace)
	tx, err := f.svc.AutoFinalize(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Finalized, tx.Status)
	assert.Equal(t, units(98), f.balance(t, seller))

	final := f.events.Events()[len(f.events.Events())-1]
	assert.Equal(t, events.TransactionFinalized, final.Type)
	assert.Equal(t, "true", final.Attributes["auto"])

	_, err = f.svc.AutoFinalize(ctx, tx.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestUserTransactions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fees.Static{})
	f.fund(buyer, 10)
	first := f.delivered(t, 2)
	second := f.delivered(t, 3)

	for _, user := range []string{buyer, seller} {
		txs, err := f.svc.UserTransactions(ctx, user)
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.ElementsMatch(t, []uint64{first.ID, second.ID}, []uint64{txs[0].ID, txs[1].ID})
	}

	txs, err := f.svc.UserTransactions(ctx, stranger)
	require.NoError(t, err)
	assert.Empty(t, txs)
}
