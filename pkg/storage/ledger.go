package storage

import (
	"context"

	"github.com/koneque/marketplace-escrow/pkg/models"
)

// LedgerReader defines the interface for reading ledger data.
type LedgerReader interface {
	// ListLedgerEntries retrieves the most recent ledger entries, optionally
	// restricted to one account.
	ListLedgerEntries(ctx context.Context, account string, limit int32) ([]models.LedgerEntry, error)

	// ListLedgerEntriesByTransaction retrieves every journal row of one transaction.
	ListLedgerEntriesByTransaction(ctx context.Context, txID uint64) ([]models.LedgerEntry, error)
}
