package listings

import (
	"context"
	"net/http"

	"github.com/koneque/marketplace-escrow/pkg/api"
	"github.com/koneque/marketplace-escrow/pkg/handlers/respond"
	"github.com/koneque/marketplace-escrow/pkg/mapping"
	"github.com/koneque/marketplace-escrow/pkg/marketplace"
	"github.com/koneque/marketplace-escrow/pkg/models"
)

// Engine is the part of the marketplace the listing handlers drive.
type Engine interface {
	ActiveListingsPage(ctx context.Context, after uint64, limit int, category string) (*marketplace.ListingPage, error)
	CreateListing(ctx context.Context, seller string, in marketplace.NewListing) (*models.Listing, error)
	GetListing(ctx context.Context, id uint64) (*models.Listing, error)
	RemoveListing(ctx context.Context, id uint64, actor string) error
	Purchase(ctx context.Context, listingID uint64, buyer string) (*models.Transaction, error)
}

// ListingsHandler holds the dependencies for listing-related handlers.
type ListingsHandler struct {
	Engine Engine
}

// NewListingsHandler creates a new ListingsHandler.
func NewListingsHandler(engine Engine) *ListingsHandler {
	return &ListingsHandler{Engine: engine}
}

func (h *ListingsHandler) ListActiveListings(w http.ResponseWriter, r *http.Request, params api.ListActiveListingsParams) {
	var (
		after    uint64
		limit    int
		category string
	)
	if params.After != nil {
		after = *params.After
	}
	if params.Limit != nil {
		limit = *params.Limit
	}
	if params.Category != nil {
		category = string(*params.Category)
	}

	page, err := h.Engine.ActiveListingsPage(r.Context(), after, limit, category)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiListingPage(page))
}

func (h *ListingsHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	var body api.NewListing
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, err)
		return
	}
	in, err := mapping.ToDomainNewListing(&body)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	listing, err := h.Engine.CreateListing(r.Context(), actor, in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, mapping.ToApiListing(listing))
}

func (h *ListingsHandler) GetListing(w http.ResponseWriter, r *http.Request, listingId uint64) {
	listing, err := h.Engine.GetListing(r.Context(), listingId)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiListing(listing))
}

func (h *ListingsHandler) RemoveListing(w http.ResponseWriter, r *http.Request, listingId uint64) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	if err := h.Engine.RemoveListing(r.Context(), listingId, actor); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PurchaseListing buys the listing as the caller. The response is 202 when
// the buyer's deposit is still unconfirmed on the ledger.
func (h *ListingsHandler) PurchaseListing(w http.ResponseWriter, r *http.Request, listingId uint64) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	tx, err := h.Engine.Purchase(r.Context(), listingId, actor)
	var out *api.Transaction
	if tx != nil {
		out = mapping.ToApiTransaction(tx)
	}
	respond.Transition(w, r, out, err, http.StatusCreated)
}
