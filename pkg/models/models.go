package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/koneque/marketplace-escrow/pkg/amount"
)

// Category mirrors the ProductCategory enum of the marketplace contract.
type Category string

const (
	CategoryElectronics Category = "ELECTRONICS"
	CategoryFurniture   Category = "FURNITURE"
	CategoryClothing    Category = "CLOTHING"
	CategoryVehicles    Category = "VEHICLES"
	CategoryOthers      Category = "OTHERS"
)

var categories = []Category{CategoryElectronics, CategoryFurniture, CategoryClothing, CategoryVehicles, CategoryOthers}

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidInput, s)
}

// TransactionStatus defines the states of a purchase.
type TransactionStatus string

const (
	PaymentCompleted TransactionStatus = "PAYMENT_COMPLETED"
	ProductDelivered TransactionStatus = "PRODUCT_DELIVERED"
	Finalized        TransactionStatus = "FINALIZED"
	InDispute        TransactionStatus = "IN_DISPUTE"
	Refunded         TransactionStatus = "REFUNDED"
)

// IsTerminal reports whether no further transition is possible.
func (s TransactionStatus) IsTerminal() bool {
	return s == Finalized || s == Refunded
}

// Listing is a product offered by a seller.
type Listing struct {
	ID            uint64        `json:"id" dynamodbav:"id"`
	Seller        string        `json:"seller" dynamodbav:"seller"`
	Name          string        `json:"name" dynamodbav:"name"`
	Description   string        `json:"description" dynamodbav:"description"`
	Price         amount.Amount `json:"price" dynamodbav:"price"`
	ImageRef      string        `json:"image_ref" dynamodbav:"image_ref"`
	MetadataRef   string        `json:"metadata_ref,omitempty" dynamodbav:"metadata_ref,omitempty"`
	Category      Category      `json:"category" dynamodbav:"category"`
	Active        bool          `json:"active" dynamodbav:"active"`
	CreatedAt     time.Time     `json:"created_at" dynamodbav:"created_at"`
	DeactivatedAt *time.Time    `json:"deactivated_at,omitempty" dynamodbav:"deactivated_at,omitempty"`
	// ActiveKey is set only while the listing is active so the active-listings
	// index stays sparse.
	ActiveKey string `json:"-" dynamodbav:"active_key,omitempty"`
}

// ActiveIndexKey is the partition value of the sparse active-listings index.
const ActiveIndexKey = "ACTIVE"

// SetActive keeps Active and ActiveKey in step.
func (l *Listing) SetActive(active bool, at time.Time) {
	l.Active = active
	if active {
		l.ActiveKey = ActiveIndexKey
		l.DeactivatedAt = nil
		return
	}
	l.ActiveKey = ""
	l.DeactivatedAt = &at
}

// DisputeOutcome is the arbiter's decision.
type DisputeOutcome string

const (
	FavorSeller DisputeOutcome = "FAVOR_SELLER"
	FavorBuyer  DisputeOutcome = "FAVOR_BUYER"
	Split       DisputeOutcome = "SPLIT"
)

// Dispute records who opened a dispute and how it ended.
type Dispute struct {
	Initiator  string         `json:"initiator" dynamodbav:"initiator"`
	Reason     string         `json:"reason" dynamodbav:"reason"`
	OpenedAt   time.Time      `json:"opened_at" dynamodbav:"opened_at"`
	Outcome    DisputeOutcome `json:"outcome,omitempty" dynamodbav:"outcome,omitempty"`
	Arbiter    string         `json:"arbiter,omitempty" dynamodbav:"arbiter,omitempty"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty" dynamodbav:"resolved_at,omitempty"`
}

// Transaction is one purchase of one listing.
type Transaction struct {
	ID          uint64            `json:"id" dynamodbav:"id"`
	ListingID   uint64            `json:"listing_id" dynamodbav:"listing_id"`
	Buyer       string            `json:"buyer" dynamodbav:"buyer"`
	Seller      string            `json:"seller" dynamodbav:"seller"`
	Amount      amount.Amount     `json:"amount" dynamodbav:"amount"`
	Status      TransactionStatus `json:"status" dynamodbav:"status"`
	CreatedAt   time.Time         `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" dynamodbav:"updated_at"`
	DeliveredAt *time.Time        `json:"delivered_at,omitempty" dynamodbav:"delivered_at,omitempty"`
	Dispute     *Dispute          `json:"dispute,omitempty" dynamodbav:"dispute,omitempty"`
	Version     int64             `json:"version" dynamodbav:"version"`

	// DeliveredNanos mirrors DeliveredAt as Unix nanoseconds, the numeric
	// sort key of the auto-finalize index.
	DeliveredNanos int64 `json:"-" dynamodbav:"delivered_ns,omitempty"`
}

// Touch recomputes derived index attributes before a write.
func (t *Transaction) Touch() {
	if t.DeliveredAt != nil {
		t.DeliveredNanos = t.DeliveredAt.UnixNano()
	} else {
		t.DeliveredNanos = 0
	}
}

// IsParty reports whether actor is the buyer or the seller.
func (t *Transaction) IsParty(actor string) bool {
	return actor == t.Buyer || actor == t.Seller
}

// LegKind names the purpose of a token transfer.
type LegKind string

const (
	LegLock     LegKind = "LOCK"
	LegSeller   LegKind = "SELLER"
	LegFee      LegKind = "FEE"
	LegReferral LegKind = "REFERRAL"
	LegRefund   LegKind = "REFUND"
)

// LegState is the ledger outcome of a transfer.
type LegState string

const (
	LegPending   LegState = "PENDING"
	LegConfirmed LegState = "CONFIRMED"
	LegRejected  LegState = "REJECTED"
)

// TransferLeg is one submission to the token ledger.
type TransferLeg struct {
	Kind      LegKind       `json:"kind" dynamodbav:"kind"`
	From      string        `json:"from" dynamodbav:"from"`
	To        string        `json:"to" dynamodbav:"to"`
	Amount    amount.Amount `json:"amount" dynamodbav:"amount"`
	TxHash    string        `json:"tx_hash,omitempty" dynamodbav:"tx_hash,omitempty"`
	State     LegState      `json:"state" dynamodbav:"state"`
	Attempts  int           `json:"attempts" dynamodbav:"attempts"`
	UpdatedAt time.Time     `json:"updated_at" dynamodbav:"updated_at"`

	// RawTx is the signed transaction behind TxHash, kept so it can be resent.
	RawTx string `json:"-" dynamodbav:"raw_tx,omitempty"`
}

// Disposition is where escrowed funds went.
type Disposition string

const (
	ToSeller Disposition = "SELLER"
	ToBuyer  Disposition = "BUYER"
)

// EscrowRecord holds a buyer's funds for one transaction.
type EscrowRecord struct {
	TransactionID  uint64        `json:"transaction_id" dynamodbav:"transaction_id"`
	Buyer          string        `json:"buyer" dynamodbav:"buyer"`
	Seller         string        `json:"seller" dynamodbav:"seller"`
	Amount         amount.Amount `json:"amount" dynamodbav:"amount"`
	FeeAmount      amount.Amount `json:"fee_amount" dynamodbav:"fee_amount"`
	ReferralPayout amount.Amount `json:"referral_payout" dynamodbav:"referral_payout"`
	Referrer       string        `json:"referrer,omitempty" dynamodbav:"referrer,omitempty"`
	NetAmount      amount.Amount `json:"net_amount" dynamodbav:"net_amount"`
	HeldSince      time.Time     `json:"held_since" dynamodbav:"held_since"`
	Released       bool          `json:"released" dynamodbav:"released"`
	Disposition    Disposition   `json:"disposition,omitempty" dynamodbav:"disposition,omitempty"`
	ReleasedAt     *time.Time    `json:"released_at,omitempty" dynamodbav:"released_at,omitempty"`
	Legs           []TransferLeg `json:"legs" dynamodbav:"legs"`
	Version        int64         `json:"version" dynamodbav:"version"`
	// AwaitingLedger is set while any leg is unconfirmed, keeping the
	// reconciliation index sparse.
	AwaitingLedger string `json:"-" dynamodbav:"awaiting_ledger,omitempty"`
}

// AwaitingLedgerKey is the partition value of the reconciliation index.
const AwaitingLedgerKey = "AWAITING"

// Leg returns the first leg of the given kind.
func (e *EscrowRecord) Leg(kind LegKind) *TransferLeg {
	for i := range e.Legs {
		if e.Legs[i].Kind == kind {
			return &e.Legs[i]
		}
	}
	return nil
}

// LockConfirmed reports whether the buyer's funds reached escrow.
func (e *EscrowRecord) LockConfirmed() bool {
	leg := e.Leg(LegLock)
	return leg != nil && leg.State == LegConfirmed
}

// Unconfirmed returns pointers to every leg not yet confirmed.
func (e *EscrowRecord) Unconfirmed() []*TransferLeg {
	var out []*TransferLeg
	for i := range e.Legs {
		if e.Legs[i].State != LegConfirmed {
			out = append(out, &e.Legs[i])
		}
	}
	return out
}

// Touch recomputes derived index attributes before a write.
func (e *EscrowRecord) Touch() {
	if len(e.Unconfirmed()) > 0 {
		e.AwaitingLedger = AwaitingLedgerKey
	} else {
		e.AwaitingLedger = ""
	}
}

// Clone deep-copies the record so callers can mutate legs freely.
func (e *EscrowRecord) Clone() *EscrowRecord {
	c := *e
	c.Legs = append([]TransferLeg(nil), e.Legs...)
	if e.ReleasedAt != nil {
		t := *e.ReleasedAt
		c.ReleasedAt = &t
	}
	return &c
}

// ReferralCode lets a referrer attribute new buyers.
type ReferralCode struct {
	Code         string    `json:"code" dynamodbav:"code"`
	Referrer     string    `json:"referrer" dynamodbav:"referrer"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt    time.Time `json:"expires_at" dynamodbav:"expires_at"`
	MaxUsage     uint32    `json:"max_usage" dynamodbav:"max_usage"`
	CurrentUsage uint32    `json:"current_usage" dynamodbav:"current_usage"`
	Active       bool      `json:"active" dynamodbav:"active"`
	Version      int64     `json:"version" dynamodbav:"version"`
}

// Expired reports whether the code's validity window has closed.
func (c *ReferralCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Exhausted reports whether the code has no registrations left.
func (c *ReferralCode) Exhausted() bool {
	return c.CurrentUsage >= c.MaxUsage
}

// IsValid reports whether the code would accept a registration at now.
func (c *ReferralCode) IsValid(now time.Time) bool {
	return c.Active && !c.Expired(now) && !c.Exhausted()
}

// ReferralRelationship binds a referred address to its single referrer.
type ReferralRelationship struct {
	Referred              string        `json:"referred" dynamodbav:"referred"`
	Referrer              string        `json:"referrer" dynamodbav:"referrer"`
	Code                  string        `json:"code" dynamodbav:"code"`
	RegisteredAt          time.Time     `json:"registered_at" dynamodbav:"registered_at"`
	FirstPurchaseRecorded bool          `json:"first_purchase_recorded" dynamodbav:"first_purchase_recorded"`
	PayoutAmount          amount.Amount `json:"payout_amount" dynamodbav:"payout_amount"`
	PayoutTransactionID   uint64        `json:"payout_transaction_id,omitempty" dynamodbav:"payout_transaction_id,omitempty"`
	Version               int64         `json:"version" dynamodbav:"version"`
}

// LedgerEntry is a single row of the double-entry journal.
type LedgerEntry struct {
	EntryID       string        `json:"entry_id" dynamodbav:"entry_id"`
	TransactionID uint64        `json:"transaction_id" dynamodbav:"transaction_id"`
	AccountID     string        `json:"account_id" dynamodbav:"account_id"`
	Kind          LegKind       `json:"kind" dynamodbav:"kind"`
	Debit         amount.Amount `json:"debit" dynamodbav:"debit"`
	Credit        amount.Amount `json:"credit" dynamodbav:"credit"`
	Description   string        `json:"description" dynamodbav:"description"`
	Timestamp     time.Time     `json:"timestamp" dynamodbav:"timestamp"`
}

// Settlement is everything that changes atomically when escrow is released
// or refunded.
type Settlement struct {
	Escrow      *EscrowRecord
	Transaction *Transaction
	// Referral is nil unless this settlement pays a first-purchase reward.
	Referral *ReferralRelationship
	Entries  []LedgerEntry
}

// NormalizeAddress validates a hex address and returns its checksummed form.
func NormalizeAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("%w: malformed address %q", ErrInvalidInput, s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return "", fmt.Errorf("%w: zero address", ErrInvalidInput)
	}
	return addr.Hex(), nil
}
