package websockets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/koneque/marketplace-escrow/pkg/events"
)

// DefaultPublisher pushes messages to every client connected through the API
// Gateway websocket API.
type DefaultPublisher struct {
	store       AllConnectionsGetter
	connManager ConnectionManager
	apiGwClient ConnectionPoster
}

// NewPublisher creates a DefaultPublisher that posts to apiEndpoint.
func NewPublisher(cfg aws.Config, store AllConnectionsGetter, connManager ConnectionManager, apiEndpoint string) *DefaultPublisher {
	client := apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(apiEndpoint)
	})
	return NewPublisherWithClient(store, connManager, client)
}

func NewPublisherWithClient(store AllConnectionsGetter, connManager ConnectionManager, client ConnectionPoster) *DefaultPublisher {
	return &DefaultPublisher{store: store, connManager: connManager, apiGwClient: client}
}

// Publish sends a message to all connected clients. Stale connections are
// removed; other delivery failures are logged.
func (p *DefaultPublisher) Publish(ctx context.Context, message Message) error {
	connectionIDs, err := p.store.GetAllConnections(ctx)
	if err != nil {
		return fmt.Errorf("failed to get all connections: %w", err)
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	for _, connectionID := range connectionIDs {
		_, err := p.apiGwClient.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
			ConnectionId: aws.String(connectionID),
			Data:         payload,
		})
		if err == nil {
			continue
		}
		var goneErr *apigwtypes.GoneException
		if errors.As(err, &goneErr) {
			slog.Info("stale connection found, deleting", "connectionId", connectionID)
			if err := p.connManager.RemoveConnection(ctx, connectionID); err != nil {
				slog.Error("failed to delete stale connection", "error", err)
			}
		} else {
			slog.Error("failed to post to connection", "connectionId", connectionID, "error", err)
		}
	}

	return nil
}

// EventPublisher adapts a websocket Publisher to the domain event stream.
type EventPublisher struct {
	Publisher Publisher
}

var _ events.Publisher = EventPublisher{}

func (p EventPublisher) Publish(ctx context.Context, e events.Event) error {
	return p.Publisher.Publish(ctx, NewMarketEventMessage(e))
}
