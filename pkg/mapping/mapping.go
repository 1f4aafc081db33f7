// Package mapping converts between domain models and the HTTP API models.
package mapping

import (
	"fmt"
	"time"

	"github.com/koneque/marketplace-escrow/pkg/amount"
	"github.com/koneque/marketplace-escrow/pkg/api"
	"github.com/koneque/marketplace-escrow/pkg/marketplace"
	"github.com/koneque/marketplace-escrow/pkg/models"
)

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optUint64(n uint64) *uint64 {
	if n == 0 {
		return nil
	}
	return &n
}

func optTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// ToApiListing converts a domain Listing model to an API Listing model.
func ToApiListing(l *models.Listing) *api.Listing {
	return &api.Listing{
		Id:            l.ID,
		Seller:        l.Seller,
		Name:          l.Name,
		Description:   l.Description,
		Price:         l.Price.String(),
		ImageRef:      l.ImageRef,
		MetadataRef:   optString(l.MetadataRef),
		Category:      api.ProductCategory(l.Category),
		Active:        l.Active,
		CreatedAt:     l.CreatedAt,
		DeactivatedAt: optTime(l.DeactivatedAt),
	}
}

// ToApiListingPage converts a page of active listings.
func ToApiListingPage(p *marketplace.ListingPage) *api.ListingPage {
	out := &api.ListingPage{Listings: make([]api.Listing, len(p.Listings)), Next: optUint64(p.Next)}
	for i := range p.Listings {
		out.Listings[i] = *ToApiListing(&p.Listings[i])
	}
	return out
}

// ToDomainNewListing converts an API NewListing request, parsing the price.
func ToDomainNewListing(in *api.NewListing) (marketplace.NewListing, error) {
	price, err := amount.Parse(in.Price)
	if err != nil {
		return marketplace.NewListing{}, fmt.Errorf("%w: price: %v", models.ErrInvalidInput, err)
	}
	out := marketplace.NewListing{
		Name:        in.Name,
		Description: in.Description,
		Price:       price,
		ImageRef:    in.ImageRef,
		Category:    string(in.Category),
	}
	if in.MetadataRef != nil {
		out.MetadataRef = *in.MetadataRef
	}
	return out, nil
}

// ToApiTransaction converts a domain Transaction model to an API Transaction model.
func ToApiTransaction(tx *models.Transaction) *api.Transaction {
	out := &api.Transaction{
		Id:          tx.ID,
		ListingId:   tx.ListingID,
		Buyer:       tx.Buyer,
		Seller:      tx.Seller,
		Amount:      tx.Amount.String(),
		Status:      api.TransactionStatus(tx.Status),
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
		DeliveredAt: optTime(tx.DeliveredAt),
	}
	if d := tx.Dispute; d != nil {
		out.Dispute = &api.Dispute{
			Initiator:  d.Initiator,
			Reason:     d.Reason,
			OpenedAt:   d.OpenedAt,
			Arbiter:    optString(d.Arbiter),
			ResolvedAt: optTime(d.ResolvedAt),
		}
		if d.Outcome != "" {
			outcome := api.DisputeOutcome(d.Outcome)
			out.Dispute.Outcome = &outcome
		}
	}
	return out
}

// ToApiTransactions converts a slice of transactions.
func ToApiTransactions(txs []models.Transaction) []api.Transaction {
	out := make([]api.Transaction, len(txs))
	for i := range txs {
		out[i] = *ToApiTransaction(&txs[i])
	}
	return out
}

// ToApiEscrow converts a domain EscrowRecord to an API Escrow model.
func ToApiEscrow(e *models.EscrowRecord) *api.Escrow {
	out := &api.Escrow{
		Amount:         e.Amount.String(),
		FeeAmount:      e.FeeAmount.String(),
		ReferralPayout: e.ReferralPayout.String(),
		NetAmount:      e.NetAmount.String(),
		Referrer:       optString(e.Referrer),
		HeldSince:      e.HeldSince,
		Released:       e.Released,
		Disposition:    optString(string(e.Disposition)),
		ReleasedAt:     optTime(e.ReleasedAt),
		Legs:           make([]api.TransferLeg, len(e.Legs)),
	}
	for i, leg := range e.Legs {
		out.Legs[i] = api.TransferLeg{
			Kind:     string(leg.Kind),
			From:     leg.From,
			To:       leg.To,
			Amount:   leg.Amount.String(),
			TxHash:   optString(leg.TxHash),
			State:    string(leg.State),
			Attempts: leg.Attempts,
		}
	}
	return out
}

// ToApiTransactionDetails converts a transaction with its escrow.
func ToApiTransactionDetails(d *marketplace.TransactionDetails) *api.TransactionDetails {
	return &api.TransactionDetails{
		Transaction: *ToApiTransaction(d.Transaction),
		Escrow:      *ToApiEscrow(d.Escrow),
	}
}

// ToApiReferralCode converts a domain code and its current validity.
func ToApiReferralCode(c *models.ReferralCode, valid bool) *api.ReferralCode {
	return &api.ReferralCode{
		Code:         c.Code,
		Referrer:     c.Referrer,
		CreatedAt:    c.CreatedAt,
		ExpiresAt:    c.ExpiresAt,
		MaxUsage:     c.MaxUsage,
		CurrentUsage: c.CurrentUsage,
		Active:       c.Active,
		Valid:        valid,
	}
}

// ToApiReferralCodes converts a referrer's codes, evaluating validity at now.
func ToApiReferralCodes(codes []models.ReferralCode, now time.Time) []api.ReferralCode {
	out := make([]api.ReferralCode, len(codes))
	for i := range codes {
		out[i] = *ToApiReferralCode(&codes[i], codes[i].IsValid(now))
	}
	return out
}

// ToApiReferral converts a domain ReferralRelationship.
func ToApiReferral(r *models.ReferralRelationship) *api.ReferralRelationship {
	return &api.ReferralRelationship{
		Referred:              r.Referred,
		Referrer:              r.Referrer,
		Code:                  r.Code,
		RegisteredAt:          r.RegisteredAt,
		FirstPurchaseRecorded: r.FirstPurchaseRecorded,
		PayoutAmount:          r.PayoutAmount.String(),
		PayoutTransactionId:   optUint64(r.PayoutTransactionID),
	}
}

// ToApiReferrals converts a slice of relationships.
func ToApiReferrals(rels []models.ReferralRelationship) []api.ReferralRelationship {
	out := make([]api.ReferralRelationship, len(rels))
	for i := range rels {
		out[i] = *ToApiReferral(&rels[i])
	}
	return out
}

// ToApiLedgerEntry converts a domain LedgerEntry to an API LedgerEntry.
func ToApiLedgerEntry(entry *models.LedgerEntry) *api.LedgerEntry {
	return &api.LedgerEntry{
		TransactionId: entry.TransactionID,
		EntryId:       entry.EntryID,
		AccountId:     entry.AccountID,
		Kind:          string(entry.Kind),
		Debit:         entry.Debit.String(),
		Credit:        entry.Credit.String(),
		Description:   entry.Description,
		Timestamp:     entry.Timestamp,
	}
}

// ToApiLedgerEntries converts a slice of entries.
func ToApiLedgerEntries(entries []models.LedgerEntry) []api.LedgerEntry {
	out := make([]api.LedgerEntry, len(entries))
	for i := range entries {
		out[i] = *ToApiLedgerEntry(&entries[i])
	}
	return out
}
