// Package ledger is the boundary to the external token ledger. Writes are
// two-phase: a transfer is signed first, which fixes its hash, and then
// broadcast. Callers persist the signed transaction in between so that a
// retry resends the same transaction instead of signing a second one. The
// outcome is observed through a Confirmer; a broadcast is never treated as
// success on its own.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/amount"
)

// Outcome is the observed state of a submission.
type Outcome string

const (
	Confirmed Outcome = "confirmed"
	Pending   Outcome = "pending"
	Rejected  Outcome = "rejected"
)

// Signed is a transaction ready for broadcast. Hash identifies it before it
// reaches the ledger. Raw is the opaque encoded form that Broadcast sends.
type Signed struct {
	Hash string
	Raw  string
}

// TokenLedger is the fungible-token surface the escrow engine relies on.
// Transfers are signed by the operator account, which is also the escrow
// spender for transferFrom.
type TokenLedger interface {
	BalanceOf(ctx context.Context, owner string) (amount.Amount, error)
	Allowance(ctx context.Context, owner, spender string) (amount.Amount, error)
	SignTransferFrom(ctx context.Context, from, to string, value amount.Amount) (Signed, error)
	SignTransfer(ctx context.Context, to string, value amount.Amount) (Signed, error)
	SignApprove(ctx context.Context, spender string, value amount.Amount) (Signed, error)
	// Broadcast sends a signed transaction. Sending the same transaction
	// again is harmless. An error wrapping models.ErrLedgerRejected means the
	// transaction can never be included; any other error leaves its fate
	// unknown.
	Broadcast(ctx context.Context, tx Signed) error
	// Abandon releases a signed transaction that will never be broadcast.
	Abandon(tx Signed)
}

// Confirmer reports the outcome of a submitted transaction.
type Confirmer interface {
	Status(ctx context.Context, txHash string) (Outcome, error)
}

// Await polls the confirmer until the submission settles or timeout elapses.
// A timeout yields Pending with a nil error.
func Await(ctx context.Context, c Confirmer, txHash string, timeout, poll time.Duration) (Outcome, error) {
	if poll <= 0 {
		poll = time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		outcome, err := c.Status(waitCtx, txHash)
		if err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil {
				return Pending, nil
			}
			return Pending, fmt.Errorf("failed to check status of %s: %w", txHash, err)
		}
		if outcome != Pending {
			return outcome, nil
		}
		select {
		case <-ctx.Done():
			return Pending, ctx.Err()
		case <-waitCtx.Done():
			return Pending, nil
		case <-ticker.C:
		}
	}
}
