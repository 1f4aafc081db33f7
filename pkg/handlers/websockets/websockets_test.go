package websockets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gorilla/websocket"
	domainevents "github.com/koneque/marketplace-escrow/pkg/events"
	"github.com/koneque/marketplace-escrow/pkg/websockets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConnections struct {
	mu  sync.Mutex
	ids map[string]bool
	err error
}

func (f *fakeConnections) AddConnection(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.ids[id] = true
	return nil
}

func (f *fakeConnections) RemoveConnection(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.ids, id)
	return nil
}

func request(route, id string) events.APIGatewayWebsocketProxyRequest {
	var req events.APIGatewayWebsocketProxyRequest
	req.RequestContext.RouteKey = route
	req.RequestContext.ConnectionID = id
	return req
}

func TestRoute(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		conns := &fakeConnections{ids: map[string]bool{}}
		h := NewHandler(conns, nil)

		resp, err := h.Route(ctx, request("$connect", "abc"))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.True(t, conns.ids["abc"])

		resp, err = h.Route(ctx, request("$default", "abc"))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		resp, err = h.Route(ctx, request("$disconnect", "abc"))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Empty(t, conns.ids)
	})

	t.Run("Store Failure Fails", func(t *testing.T) {
		conns := &fakeConnections{ids: map[string]bool{}, err: assert.AnError}
		h := NewHandler(conns, nil)

		resp, err := h.Route(ctx, request("$connect", "abc"))
		assert.Error(t, err)
		assert.Equal(t, 500, resp.StatusCode)
	})
}

func TestServeHTTP(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		hub := websockets.NewHub()
		srv := httptest.NewServer(NewHandler(nil, hub))
		defer srv.Close()

		client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
		require.NoError(t, err)
		defer client.Close()
		require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

		e := domainevents.New(domainevents.ItemListed, time.Now())
		e.ListingID = 3
		require.NoError(t, websockets.EventPublisher{Publisher: hub}.Publish(context.Background(), e))

		_ = client.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := client.ReadMessage()
		require.NoError(t, err)
		var msg struct {
			Type    string `json:"type"`
			Payload struct {
				Event     string `json:"event"`
				ListingID uint64 `json:"listing_id"`
			} `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "marketEvent", msg.Type)
		assert.Equal(t, "ItemListed", msg.Payload.Event)
		assert.Equal(t, uint64(3), msg.Payload.ListingID)

		require.NoError(t, client.Close())
		require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 10*time.Millisecond)
	})

	t.Run("No Hub Fails", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewHandler(nil, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}
