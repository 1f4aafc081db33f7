package transactions

import (
	"context"
	"net/http"

	"github.com/koneque/marketplace-escrow/pkg/api"
	"github.com/koneque/marketplace-escrow/pkg/handlers/respond"
	"github.com/koneque/marketplace-escrow/pkg/mapping"
	"github.com/koneque/marketplace-escrow/pkg/marketplace"
	"github.com/koneque/marketplace-escrow/pkg/models"
)

// Engine is the part of the marketplace the transaction handlers drive.
type Engine interface {
	TransactionDetails(ctx context.Context, id uint64) (*marketplace.TransactionDetails, error)
	UserTransactions(ctx context.Context, user string) ([]models.Transaction, error)
	ConfirmDelivery(ctx context.Context, txID uint64, actor string) (*models.Transaction, error)
	Finalize(ctx context.Context, txID uint64, actor string) (*models.Transaction, error)
	InitiateDispute(ctx context.Context, txID uint64, actor, reason string) (*models.Transaction, error)
	Resolve(ctx context.Context, txID uint64, arbiter string, outcome models.DisputeOutcome) (*models.Transaction, error)
}

// TransactionsHandler holds the dependencies for transaction-related handlers.
type TransactionsHandler struct {
	Engine Engine
}

// NewTransactionsHandler creates a new TransactionsHandler.
func NewTransactionsHandler(engine Engine) *TransactionsHandler {
	return &TransactionsHandler{Engine: engine}
}

func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request, transactionId uint64) {
	details, err := h.Engine.TransactionDetails(r.Context(), transactionId)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiTransactionDetails(details))
}

func (h *TransactionsHandler) ListUserTransactions(w http.ResponseWriter, r *http.Request, address string) {
	txs, err := h.Engine.UserTransactions(r.Context(), address)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiTransactions(txs))
}

func (h *TransactionsHandler) ConfirmDelivery(w http.ResponseWriter, r *http.Request, transactionId uint64) {
	h.transition(w, r, func(ctx context.Context, actor string) (*models.Transaction, error) {
		return h.Engine.ConfirmDelivery(ctx, transactionId, actor)
	})
}

func (h *TransactionsHandler) FinalizeTransaction(w http.ResponseWriter, r *http.Request, transactionId uint64) {
	h.transition(w, r, func(ctx context.Context, actor string) (*models.Transaction, error) {
		return h.Engine.Finalize(ctx, transactionId, actor)
	})
}

func (h *TransactionsHandler) InitiateDispute(w http.ResponseWriter, r *http.Request, transactionId uint64) {
	var body api.DisputeRequest
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, err)
		return
	}
	h.transition(w, r, func(ctx context.Context, actor string) (*models.Transaction, error) {
		return h.Engine.InitiateDispute(ctx, transactionId, actor, body.Reason)
	})
}

func (h *TransactionsHandler) ResolveDispute(w http.ResponseWriter, r *http.Request, transactionId uint64) {
	var body api.ResolutionRequest
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, r, err)
		return
	}
	h.transition(w, r, func(ctx context.Context, actor string) (*models.Transaction, error) {
		return h.Engine.Resolve(ctx, transactionId, actor, models.DisputeOutcome(body.Outcome))
	})
}

func (h *TransactionsHandler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, actor string) (*models.Transaction, error)) {
	actor, ok := respond.Actor(w, r)
	if !ok {
		return
	}
	tx, err := apply(r.Context(), actor)
	var out *api.Transaction
	if tx != nil {
		out = mapping.ToApiTransaction(tx)
	}
	respond.Transition(w, r, out, err, http.StatusOK)
}
