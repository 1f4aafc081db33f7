package storage

import (
	"context"

	"github.com/koneque/marketplace-escrow/pkg/models"
)

// EscrowStore defines the interface for reading and maintaining escrow records.
type EscrowStore interface {
	GetEscrow(ctx context.Context, txID uint64) (*models.EscrowRecord, error)

	// UpdateEscrow persists leg progress using the same optimistic version
	// rule as SaveTransaction.
	UpdateEscrow(ctx context.Context, escrow *models.EscrowRecord) error

	// ListEscrowsAwaitingLedger returns escrows with at least one leg that
	// the token ledger has not confirmed.
	ListEscrowsAwaitingLedger(ctx context.Context) ([]models.EscrowRecord, error)

	SettlementStore
}

// SettlementStore defines the highly-privileged interface for releasing or
// refunding escrow. The write spans the escrow, transaction, referral and
// ledger tables and must be atomic.
type SettlementStore interface {
	// Settle commits the settlement. It returns models.ErrAlreadyReleased if
	// the escrow was released by someone else and models.ErrConflict on any
	// other stale version. On success every versioned record in s has its
	// Version incremented.
	Settle(ctx context.Context, s *models.Settlement) error
}
