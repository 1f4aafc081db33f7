package storage

import (
	"context"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/models"
)

// TransactionReader defines the interface for reading transaction data.
type TransactionReader interface {
	// GetTransaction retrieves a transaction by its ID.
	GetTransaction(ctx context.Context, id uint64) (*models.Transaction, error)

	// ListTransactionsByUser retrieves transactions where the address is the
	// buyer or the seller, newest first.
	ListTransactionsByUser(ctx context.Context, user string) ([]models.Transaction, error)

	// ListDeliveredBefore retrieves delivered transactions whose delivery
	// confirmation is older than cutoff.
	ListDeliveredBefore(ctx context.Context, cutoff time.Time) ([]models.Transaction, error)
}

// TransactionManager defines the interface for creating and advancing transactions.
type TransactionManager interface {
	// CreatePurchase atomically deactivates the listing and creates the
	// transaction and its escrow record. It returns models.ErrAlreadyInactive
	// if the listing was sold in the meantime.
	CreatePurchase(ctx context.Context, listing *models.Listing, tx *models.Transaction, escrow *models.EscrowRecord) error

	// RollbackPurchase undoes CreatePurchase after the ledger rejected the
	// buyer's deposit.
	RollbackPurchase(ctx context.Context, tx *models.Transaction, escrow *models.EscrowRecord) error

	// SaveTransaction writes tx if its stored version still equals
	// tx.Version, then increments tx.Version. A stale version yields
	// models.ErrConflict.
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
}

// TransactionStore combines the reader and manager interfaces.
type TransactionStore interface {
	TransactionReader
	TransactionManager
}
