package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xphantasia/equilibrium/internal/domain"
)

func newTestHub(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	hub := NewHub(logger, Config{Mode: "full", StartedAt: time.Now().UTC()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()

	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	t.Cleanup(func() {
		conn.Close()
		ts.Close()
		cancel()
		<-done
	})
	return hub, conn
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestHubSendsStatusOnConnect(t *testing.T) {
	_, conn := newTestHub(t)

	f := readFrame(t, conn)
	require.Equal(t, "status", f.Type)

	var payload struct {
		Mode        string   `json:"mode"`
		WsConnected bool     `json:"ws_connected"`
		Channels    []string `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(f.Payload, &payload))
	assert.Equal(t, "full", payload.Mode)
	assert.True(t, payload.WsConnected)
	assert.ElementsMatch(t, []string{ChannelPrices, ChannelSnapshots}, payload.Channels)
}

func TestHubBroadcastSnapshot(t *testing.T) {
	hub, conn := newTestHub(t)
	readFrame(t, conn) // status

	hub.BroadcastSnapshot(domain.Snapshot{
		PositionID:   "pos-1",
		AssetID:      "ethereum",
		CurrentPrice: 2400,
		TotalPnL:     -12.5,
		IsOutOfRange: true,
	})

	f := readFrame(t, conn)
	require.Equal(t, "snapshot", f.Type)

	var payload struct {
		PositionID   string  `json:"position_id"`
		AssetID      string  `json:"asset_id"`
		CurrentPrice float64 `json:"current_price"`
		TotalPnL     float64 `json:"total_pnl"`
		IsOutOfRange bool    `json:"is_out_of_range"`
	}
	require.NoError(t, json.Unmarshal(f.Payload, &payload))
	assert.Equal(t, "pos-1", payload.PositionID)
	assert.Equal(t, "ethereum", payload.AssetID)
	assert.Equal(t, 2400.0, payload.CurrentPrice)
	assert.Equal(t, -12.5, payload.TotalPnL)
	assert.True(t, payload.IsOutOfRange)
}

func TestHubBroadcastPrices(t *testing.T) {
	hub, conn := newTestHub(t)
	readFrame(t, conn) // status

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	hub.BroadcastPrices(map[string]float64{"ethereum": 2400, "bitcoin": 64000}, ts)

	f := readFrame(t, conn)
	require.Equal(t, "prices", f.Type)

	var payload struct {
		Prices    map[string]float64 `json:"prices"`
		FetchedAt time.Time          `json:"fetched_at"`
	}
	require.NoError(t, json.Unmarshal(f.Payload, &payload))
	assert.Equal(t, 2400.0, payload.Prices["ethereum"])
	assert.Equal(t, 64000.0, payload.Prices["bitcoin"])
	assert.True(t, ts.Equal(payload.FetchedAt))
}

func TestHubUnsubscribeStopsFrames(t *testing.T) {
	hub, conn := newTestHub(t)
	readFrame(t, conn) // status

	msg, err := json.Marshal(subscribeMsg{Action: "unsubscribe", Channels: []string{ChannelSnapshots}})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))

	// Give the read pump time to apply the subscription change.
	time.Sleep(100 * time.Millisecond)

	hub.BroadcastSnapshot(domain.Snapshot{PositionID: "pos-1"})
	hub.BroadcastPrices(map[string]float64{"ethereum": 2400}, time.Now().UTC())

	// The snapshot frame is suppressed; the prices frame still arrives.
	f := readFrame(t, conn)
	assert.Equal(t, "prices", f.Type)
}
