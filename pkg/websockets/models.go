package websockets

import (
	"time"

	"github.com/koneque/marketplace-escrow/pkg/events"
)

// MessageType defines the type of a WebSocket message.
type MessageType string

const (
	// MessageTypeMarketEvent carries one marketplace domain event.
	MessageTypeMarketEvent MessageType = "marketEvent"
)

// Message represents a generic WebSocket message.
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// MarketEventPayload is the payload for a marketEvent message.
type MarketEventPayload struct {
	Event         events.Type       `json:"event"`
	TransactionID uint64            `json:"transaction_id,omitempty"`
	ListingID     uint64            `json:"listing_id,omitempty"`
	Actor         string            `json:"actor,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// NewMarketEventMessage wraps a domain event for clients.
func NewMarketEventMessage(e events.Event) Message {
	return Message{
		Type: MessageTypeMarketEvent,
		Payload: MarketEventPayload{
			Event:         e.Type,
			TransactionID: e.TransactionID,
			ListingID:     e.ListingID,
			Actor:         e.Actor,
			Attributes:    e.Attributes,
			OccurredAt:    e.OccurredAt,
		},
	}
}
