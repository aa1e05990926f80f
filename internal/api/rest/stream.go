package rest

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/databazaar/license-indexer/internal/domain"
	"github.com/databazaar/license-indexer/internal/logger"
)

const (
	// wsWriteWait bounds a single WebSocket write
	wsWriteWait = 10 * time.Second

	// wsPongWait is how long we wait for a pong before dropping the peer
	wsPongWait = 60 * time.Second

	// wsPingPeriod must be shorter than wsPongWait
	wsPingPeriod = (wsPongWait * 9) / 10

	// sseHeartbeatInterval keeps idle SSE connections alive through proxies
	sseHeartbeatInterval = 15 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origins are open, same as the CORS policy
		return true
	},
}

// SnapshotEvent is the wire form of one engine snapshot, pushed to SSE and
// WebSocket subscribers on every change
type SnapshotEvent struct {
	Address    string   `json:"address"`
	Chain      string   `json:"chain"`
	State      string   `json:"state"`
	Loading    bool     `json:"loading"`
	DatasetIDs []uint64 `json:"dataset_ids"`
	Error      string   `json:"error,omitempty"`
	RunID      string   `json:"run_id,omitempty"`
	Boundary   uint64   `json:"boundary,omitempty"`
	OwnedCount int      `json:"owned_count,omitempty"`
}

func (h *handler) newSnapshotEvent(address string, snap domain.Snapshot) SnapshotEvent {
	ids := make([]uint64, len(snap.DatasetIDs))
	for i, id := range snap.DatasetIDs {
		ids[i] = uint64(id)
	}

	event := SnapshotEvent{
		Address:    address,
		Chain:      string(h.config.Chain),
		State:      string(snap.State),
		Loading:    snap.Loading,
		DatasetIDs: ids,
		Error:      snap.Error,
	}
	if snap.Resolution != nil {
		event.RunID = snap.Resolution.RunID
		event.Boundary = uint64(snap.Resolution.Boundary)
		event.OwnedCount = snap.Resolution.OwnedCount
	}
	return event
}

// StreamHoldings subscribes the caller to snapshot updates over server-sent
// events. The first event is the current snapshot; updates follow on every
// new chain head until the client disconnects.
func (h *handler) StreamHoldings(c *gin.Context) {
	owner, err := domain.NormalizeAddress(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid address", err.Error())
		return
	}
	key := domain.AddressKey(owner)

	ch, unsubscribe, err := h.engine.Subscribe(c.Request.Context(), owner)
	if err != nil {
		respondInternalError(c, err, "Failed to subscribe to holdings",
			zap.String("address", key))
		return
	}
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	// Disable proxy buffering so events reach the client immediately
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	logger.DebugCtx(c.Request.Context(), "SSE stream opened", zap.String("address", key))

	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", h.newSnapshotEvent(key, snap))
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})

	logger.DebugCtx(c.Request.Context(), "SSE stream closed", zap.String("address", key))
}

// StreamHoldingsWS subscribes the caller to snapshot updates over a
// WebSocket. Client frames are discarded; the socket is push only.
func (h *handler) StreamHoldingsWS(c *gin.Context) {
	owner, err := domain.NormalizeAddress(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid address", err.Error())
		return
	}
	key := domain.AddressKey(owner)

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		logger.Warn("WebSocket upgrade failed", zap.Error(err), zap.String("address", key))
		return
	}
	defer conn.Close()

	ch, unsubscribe, err := h.engine.Subscribe(c.Request.Context(), owner)
	if err != nil {
		logger.Error(err, zap.String("address", key))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(wsWriteWait))
		return
	}
	defer unsubscribe()

	logger.DebugCtx(c.Request.Context(), "WebSocket stream opened", zap.String("address", key))

	// Read pump: the client sends nothing meaningful, but reads must be
	// drained to process control frames and notice the peer going away.
	done := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine closed"),
					time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(h.newSnapshotEvent(key, snap)); err != nil {
				logger.Debug("WebSocket write failed", zap.Error(err), zap.String("address", key))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
