package handlers

import (
	"github.com/koneque/marketplace-escrow/pkg/api"
	"github.com/koneque/marketplace-escrow/pkg/handlers/ledger"
	"github.com/koneque/marketplace-escrow/pkg/handlers/listings"
	"github.com/koneque/marketplace-escrow/pkg/handlers/referrals"
	"github.com/koneque/marketplace-escrow/pkg/handlers/transactions"
	"github.com/koneque/marketplace-escrow/pkg/marketplace"
)

// ApiHandler implements the generated server interface by composing the
// per-resource handlers.
type ApiHandler struct {
	*listings.ListingsHandler
	*transactions.TransactionsHandler
	*referrals.ReferralsHandler
	*ledger.LedgerHandler
}

// NewApiHandler creates a new ApiHandler backed by the marketplace engine.
func NewApiHandler(svc *marketplace.Service) *ApiHandler {
	return &ApiHandler{
		ListingsHandler:     listings.NewListingsHandler(svc),
		TransactionsHandler: transactions.NewTransactionsHandler(svc),
		ReferralsHandler:    referrals.NewReferralsHandler(svc),
		LedgerHandler:       ledger.NewLedgerHandler(svc),
	}
}

// Make sure we conform to the interface
var _ api.ServerInterface = (*ApiHandler)(nil)
