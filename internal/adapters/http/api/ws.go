// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/blinkwatch/pkg/logger"
	"github.com/okian/blinkwatch/pkg/metrics"
)

// WebSocket timing constants.
const (
	wsReadDeadline  = 60 * time.Second
	wsWriteDeadline = 10 * time.Second
	wsPingInterval  = 30 * time.Second
	wsSendBuffer    = 64
	wsMaxFrameBytes = 1 << 20
)

// streamMessage is the envelope for both directions of the frame stream.
type streamMessage struct {
	Type     string        `json:"type"`
	ClientID string        `json:"client_id,omitempty"`
	Frame    *frameRequest `json:"frame,omitempty"`
	Snapshot *Snapshot     `json:"snapshot,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Message types on the frame stream.
const (
	msgWelcome  = "WELCOME"
	msgFrame    = "FRAME"
	msgSnapshot = "SNAPSHOT"
	msgError    = "ERROR"
	msgPing     = "PING"
	msgPong     = "PONG"
)

// StreamHandler upgrades clients to a WebSocket and pipes their frame
// stream into the same dedupe/enqueue path POST /frames uses. After each
// accepted frame the client gets the session snapshot pushed back, which
// is what drives a live dashboard at camera cadence.
type StreamHandler struct {
	deps     Dependencies
	upgrader websocket.Upgrader
	clients  atomic.Int64
	logger   logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps Dependencies) *StreamHandler {
	return &StreamHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from their own origin.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		logger: logger.Get().Named("stream"),
	}
}

// HandleStream handles GET /ws requests.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.New().String()
	}

	metrics.UpdateWSClients(int(h.clients.Add(1)))
	h.logger.Info(r.Context(), "stream client connected", logger.String("clientID", clientID))

	send := make(chan streamMessage, wsSendBuffer)

	go h.writePump(conn, send)

	trySend(send, streamMessage{Type: msgWelcome, ClientID: clientID})

	h.readPump(r.Context(), conn, clientID, send)

	close(send)
	metrics.UpdateWSClients(int(h.clients.Add(-1)))
	h.logger.Info(r.Context(), "stream client disconnected", logger.String("clientID", clientID))
}

// readPump consumes client messages until the connection drops.
func (h *StreamHandler) readPump(ctx context.Context, conn *websocket.Conn, clientID string, send chan<- streamMessage) {
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(wsMaxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	})

	for {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn(ctx, "stream read failed",
					logger.String("clientID", clientID),
					logger.Error(err),
				)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))

		var reply streamMessage
		switch msg.Type {
		case msgPing:
			reply = streamMessage{Type: msgPong, ClientID: clientID}
		case msgFrame:
			reply = h.handleFrame(ctx, clientID, msg.Frame)
		default:
			reply = streamMessage{Type: msgError, ClientID: clientID, Error: "unknown message type"}
		}

		// A full buffer means the client stopped draining its socket.
		// Tear the connection down instead of parking the read loop
		// behind the stalled writer.
		if !trySend(send, reply) {
			metrics.RecordErrorByComponent("stream", "slow_client")
			h.logger.Warn(ctx, "disconnecting slow stream client", logger.String("clientID", clientID))
			return
		}
	}
}

// trySend hands a message to the write pump without blocking.
func trySend(send chan<- streamMessage, msg streamMessage) bool {
	select {
	case send <- msg:
		return true
	default:
		return false
	}
}

// handleFrame runs one streamed frame through validation, dedupe, and the
// queue, and builds the reply message.
func (h *StreamHandler) handleFrame(ctx context.Context, clientID string, req *frameRequest) streamMessage {
	if req == nil {
		return streamMessage{Type: msgError, ClientID: clientID, Error: "missing frame"}
	}
	if err := req.validate(); err != nil {
		return streamMessage{Type: msgError, ClientID: clientID, Error: err.Error()}
	}

	if h.deps.SeenAndRecord(ctx, req.FrameID) {
		metrics.RecordFrameDuplicate()
	} else if ok := h.deps.Enqueue(ctx, req.toFrame()); !ok {
		h.deps.Unrecord(ctx, req.FrameID)
		return streamMessage{Type: msgError, ClientID: clientID, Error: "backpressure"}
	} else {
		metrics.RecordFrameReceived()
	}

	// Best-effort snapshot push; the session may not have absorbed this
	// very frame yet since application is asynchronous.
	reply := streamMessage{Type: msgSnapshot, ClientID: clientID}
	if snap, err := h.deps.Session(ctx, req.SessionID); err == nil {
		reply.Snapshot = &snap
	}
	return reply
}

// writePump serializes all writes to the connection and keeps it alive
// with pings.
func (h *StreamHandler) writePump(conn *websocket.Conn, send <-chan streamMessage) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
