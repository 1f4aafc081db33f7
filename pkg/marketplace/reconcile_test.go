package marketplace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/amount"
	"github.com/koneque/marketplace-escrow/pkg/fees"
	"github.com/koneque/marketplace-escrow/pkg/ledger"
	"github.com/koneque/marketplace-escrow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileFinalizesDue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fees.Static{Fee: 200})
	f.fund(buyer, 20)
	due := f.delivered(t, 10)
	f.advance(grace)
	fresh := f.delivered(t, 10)

	report, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Finalized)

	got, err := f.svc.GetTransaction(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Finalized, got.Status)
	got, err = f.svc.GetTransaction(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProductDelivered, got.Status)

	report, err = f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Finalized)

	t.Run("Rejected Payout Still Counts As Finalized", func(t *testing.T) {
		f := newFixture(t, fees.Static{Fee: 200})
		f.fund(buyer, 100)
		tx := f.delivered(t, 100)
		f.advance(grace)

		f.tokens.RejectNext(1)
		report, err := f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Finalized)
		assert.Zero(t, report.Failed)
		assert.Equal(t, 1, report.Confirmed, "the ledger sweep retries the rejected leg")
		assert.Equal(t, units(98), f.balance(t, seller))

		got, err := f.svc.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, models.Finalized, got.Status)
	})
}

func TestReconcileRetriesRejectedPayout(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, fees.Static{Fee: 200})
		f.fund(buyer, 100)
		tx := f.delivered(t, 100)

		f.tokens.RejectNext(1)
		tx, err := f.svc.Finalize(ctx, tx.ID, buyer)
		require.ErrorIs(t, err, models.ErrLedgerRejected)
		require.NotNil(t, tx)
		assert.Equal(t, models.Finalized, tx.Status, "settlement is durable before payout")
		assert.Equal(t, units(0), f.balance(t, seller))

		report, err := f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Confirmed)
		assert.Equal(t, units(98), f.balance(t, seller))

		e, err := f.svc.GetEscrow(ctx, tx.ID)
		require.NoError(t, err)
		assert.Empty(t, e.Unconfirmed())
		assert.Equal(t, 2, e.Leg(models.LegSeller).Attempts)
	})

	t.Run("Gives Up After Max Attempts", func(t *testing.T) {
		f := newFixture(t, fees.Static{Fee: 200})
		f.fund(buyer, 100)
		tx := f.delivered(t, 100)

		f.tokens.RejectNext(2 * maxLegAttempts)
		_, err := f.svc.Finalize(ctx, tx.ID, buyer)
		require.ErrorIs(t, err, models.ErrLedgerRejected)
		for range maxLegAttempts - 1 {
			_, err := f.svc.Reconcile(ctx)
			require.NoError(t, err)
		}

		report, err := f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Failed)

		e, err := f.svc.GetEscrow(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, maxLegAttempts, e.Leg(models.LegSeller).Attempts)
		assert.Equal(t, models.LegRejected, e.Leg(models.LegFee).State)
		assert.Equal(t, units(100), f.balance(t, escrowAc), "funds stay in escrow")
	})
}

func TestReconcilePendingLock(t *testing.T) {
	ctx := context.Background()

	purchasePending := func(t *testing.T) (*fixture, *models.Transaction, string) {
		f := newFixture(t, fees.Static{})
		f.fund(buyer, 10)
		l := f.list(t, 10, "others")
		f.tokens.HoldSubmissions(true)
		tx, err := f.svc.Purchase(ctx, l.ID, buyer)
		require.ErrorIs(t, err, models.ErrLedgerPending)
		e, err := f.svc.GetEscrow(ctx, tx.ID)
		require.NoError(t, err)
		return f, tx, e.Leg(models.LegLock).TxHash
	}

	t.Run("Success", func(t *testing.T) {
		f, tx, hash := purchasePending(t)
		require.NoError(t, f.tokens.Resolve(hash, ledger.Confirmed))

		report, err := f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Locked)

		_, err = f.svc.ConfirmDelivery(ctx, tx.ID, seller)
		assert.NoError(t, err)
	})

	t.Run("Still Pending", func(t *testing.T) {
		f, tx, _ := purchasePending(t)
		report, err := f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Pending)

		_, err = f.svc.GetTransaction(ctx, tx.ID)
		assert.NoError(t, err)
	})

	t.Run("Rejected Rolls Back", func(t *testing.T) {
		f, tx, hash := purchasePending(t)
		require.NoError(t, f.tokens.Resolve(hash, ledger.Rejected))

		report, err := f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.RolledBack)

		_, err = f.svc.GetTransaction(ctx, tx.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		listing, err := f.svc.GetListing(ctx, tx.ListingID)
		require.NoError(t, err)
		assert.True(t, listing.Active)
		assert.Equal(t, units(10), f.balance(t, buyer))
	})
}

// flakySigner fails the next payout signatures without touching the ledger.
type flakySigner struct {
	*ledger.Memory
	fail int
}

func (s *flakySigner) SignTransfer(ctx context.Context, to string, v amount.Amount) (ledger.Signed, error) {
	if s.fail > 0 {
		s.fail--
		return ledger.Signed{}, errors.New("signer unavailable")
	}
	return s.Memory.SignTransfer(ctx, to, v)
}

func TestPayoutBroadcastFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("Applied Despite Error Pays Once", func(t *testing.T) {
		f := newFixture(t, fees.Static{Fee: 200})
		f.fund(buyer, 100)
		tx := f.delivered(t, 100)

		f.tokens.FailBroadcasts(1, true)
		_, err := f.svc.Finalize(ctx, tx.ID, buyer)
		require.NoError(t, err)
		assert.Equal(t, units(98), f.balance(t, seller))

		report, err := f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Confirmed)
		assert.Equal(t, units(98), f.balance(t, seller))
		assert.Equal(t, units(2), f.balance(t, feePool))

		e, err := f.svc.GetEscrow(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, e.Leg(models.LegSeller).Attempts)
	})

	t.Run("Lost Broadcast Is Resent", func(t *testing.T) {
		f := newFixture(t, fees.Static{Fee: 200})
		f.fund(buyer, 100)
		tx := f.delivered(t, 100)

		f.tokens.FailBroadcasts(1, false)
		got, err := f.svc.Finalize(ctx, tx.ID, buyer)
		require.ErrorIs(t, err, models.ErrLedgerPending)
		require.NotNil(t, got)
		assert.Equal(t, models.Finalized, got.Status)
		assert.Equal(t, units(0), f.balance(t, seller))

		e, err := f.svc.GetEscrow(ctx, tx.ID)
		require.NoError(t, err)
		hash := e.Leg(models.LegSeller).TxHash
		require.NotEmpty(t, hash)

		report, err := f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Confirmed)
		assert.Equal(t, units(98), f.balance(t, seller))

		e, err = f.svc.GetEscrow(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, hash, e.Leg(models.LegSeller).TxHash, "the stored transaction is resent, not re-signed")
		assert.Equal(t, 1, e.Leg(models.LegSeller).Attempts)

		_, err = f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, units(98), f.balance(t, seller))
	})

	t.Run("Signer Failure After Commit Is Pending", func(t *testing.T) {
		f := newFixture(t, fees.Static{Fee: 200}, func(d *Deps) {
			d.Tokens = &flakySigner{Memory: d.Tokens.(*ledger.Memory), fail: 1}
		})
		f.fund(buyer, 100)
		tx := f.delivered(t, 100)

		got, err := f.svc.Finalize(ctx, tx.ID, buyer)
		var pending *models.PendingError
		require.ErrorAs(t, err, &pending)
		assert.Equal(t, tx.ID, pending.TransactionID)
		require.NotNil(t, got)
		assert.Equal(t, models.Finalized, got.Status)

		report, err := f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Confirmed)
		assert.Equal(t, units(98), f.balance(t, seller))
		assert.Equal(t, units(2), f.balance(t, feePool))
	})
}

func TestLockBroadcastFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("Applied Despite Error Locks", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		f.fund(buyer, 10)
		l := f.list(t, 10, "others")

		f.tokens.FailBroadcasts(1, true)
		tx, err := f.svc.Purchase(ctx, l.ID, buyer)
		require.NoError(t, err)
		assert.Equal(t, units(10), f.balance(t, escrowAc))
		assert.Equal(t, units(0), f.balance(t, buyer))

		e, err := f.svc.GetEscrow(ctx, tx.ID)
		require.NoError(t, err)
		assert.True(t, e.LockConfirmed())
	})

	t.Run("Lost Broadcast Is Resent Not Rolled Back", func(t *testing.T) {
		f := newFixture(t, fees.Static{})
		f.fund(buyer, 10)
		l := f.list(t, 10, "others")

		f.tokens.FailBroadcasts(1, false)
		tx, err := f.svc.Purchase(ctx, l.ID, buyer)
		require.ErrorIs(t, err, models.ErrLedgerPending)
		assert.Equal(t, units(10), f.balance(t, buyer))

		f.advance(time.Minute)
		report, err := f.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Locked)
		assert.Zero(t, report.RolledBack)
		assert.Equal(t, units(10), f.balance(t, escrowAc))

		_, err = f.svc.ConfirmDelivery(ctx, tx.ID, seller)
		assert.NoError(t, err)
	})
}
