// Package events defines the domain event stream published on every
// marketplace state change.
package events

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type names a domain event.
type Type string

const (
	ItemListed           Type = "ItemListed"
	ItemRemoved          Type = "ItemRemoved"
	ItemPurchased        Type = "ItemPurchased"
	PurchaseRolledBack   Type = "PurchaseRolledBack"
	FundsLocked          Type = "FundsLocked"
	DeliveryConfirmed    Type = "DeliveryConfirmed"
	TransactionFinalized Type = "TransactionFinalized"
	DisputeInitiated     Type = "DisputeInitiated"
	DisputeResolved      Type = "DisputeResolved"
	FundsReleased        Type = "FundsReleased"
	FundsRefunded        Type = "FundsRefunded"
	ReferralCodeCreated  Type = "ReferralCodeCreated"
	ReferralRegistered   Type = "ReferralRegistered"
	ReferralRewarded     Type = "ReferralRewarded"
)

// Event is one fact about the marketplace.
type Event struct {
	ID            string            `json:"id"`
	Type          Type              `json:"type"`
	TransactionID uint64            `json:"transaction_id,omitempty"`
	ListingID     uint64            `json:"listing_id,omitempty"`
	Actor         string            `json:"actor,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// New stamps an event with a fresh id.
func New(t Type, at time.Time) Event {
	return Event{ID: uuid.NewString(), Type: t, OccurredAt: at.UTC()}
}

// With returns the event with one more attribute.
func (e Event) With(key, value string) Event {
	attrs := make(map[string]string, len(e.Attributes)+1)
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	attrs[key] = value
	e.Attributes = attrs
	return e
}

// PartitionKey groups events of one transaction (or listing) together.
func (e Event) PartitionKey() string {
	if e.TransactionID != 0 {
		return "tx-" + strconv.FormatUint(e.TransactionID, 10)
	}
	if e.ListingID != 0 {
		return "listing-" + strconv.FormatUint(e.ListingID, 10)
	}
	return string(e.Type)
}

// Publisher delivers events to observers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NoopPublisher drops events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
