package storage

import "context"

// WebSocketManager tracks the API Gateway connections that receive
// marketplace events.
type WebSocketManager interface {
	AddConnection(ctx context.Context, connectionID string) error
	RemoveConnection(ctx context.Context, connectionID string) error
	GetAllConnections(ctx context.Context) ([]string, error)
}
