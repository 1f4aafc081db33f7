package ledger

import (
	"context"
	"net/http"

	"github.com/koneque/marketplace-escrow/pkg/api"
	"github.com/koneque/marketplace-escrow/pkg/handlers/respond"
	"github.com/koneque/marketplace-escrow/pkg/mapping"
	"github.com/koneque/marketplace-escrow/pkg/models"
)

// EntryLister reads the double-entry journal.
type EntryLister interface {
	LedgerEntries(ctx context.Context, account string, limit int32) ([]models.LedgerEntry, error)
}

// LedgerHandler holds the dependencies for ledger-related handlers.
type LedgerHandler struct {
	Entries EntryLister
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(entries EntryLister) *LedgerHandler {
	return &LedgerHandler{Entries: entries}
}

func (h *LedgerHandler) ListLedgerEntries(w http.ResponseWriter, r *http.Request, account string, params api.ListLedgerEntriesParams) {
	var limit int32
	if params.Limit != nil {
		limit = *params.Limit
	}

	entries, err := h.Entries.LedgerEntries(r.Context(), account, limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiLedgerEntries(entries))
}
