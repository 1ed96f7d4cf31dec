package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/agentrt/agentrt/internal/logging"
)

// writeWait bounds how long a single outbound frame write may block.
const writeWait = 10 * time.Second

// pongWait/pingPeriod implement the standard gorilla/websocket keepalive
// handshake: the server pings at pingPeriod, the client must pong within
// pongWait or the connection is considered dead.
const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// RuntimeClient is the subset of runtime behavior the gateway proxies to.
// SessionFactory creates a real session id for a "new_*" placeholder;
// streamURL derives the runtime's streaming agent endpoint from BaseURL.
type RuntimeClient struct {
	HTTPClient     *http.Client
	BaseURL        string
	SessionFactory func(ctx context.Context, directory string) (string, error)
}

func (c *RuntimeClient) streamURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/agent/message/stream"
}

// Handler bridges WebSocket connections to the runtime's HTTP/SSE agent API.
// One Handler instance serves every connection; per-connection state lives
// in the connection struct created inside ServeHTTP.
type Handler struct {
	runtime *RuntimeClient
}

// NewHandler wires a gateway Handler to the runtime it proxies to.
func NewHandler(runtime *RuntimeClient) *Handler {
	return &Handler{runtime: runtime}
}

type connection struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	sessionID string
}

func (c *connection) writeJSON(kind Kind, data any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(OutboundEnvelope{Kind: kind, Data: data})
}

// ServeHTTP upgrades the request to a WebSocket and runs the connection's
// read/proxy loop until the client disconnects or the context is canceled.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("gateway: websocket upgrade failed")
		return
	}
	defer ws.Close()

	conn := &connection{ws: ws}

	sessionID := r.URL.Query().Get("sessionID")
	if sessionID == "" || strings.HasPrefix(sessionID, "new_") {
		if h.runtime.SessionFactory == nil {
			conn.writeJSON(KindError, map[string]string{"message": "no session and no session factory configured"})
			return
		}
		real, err := h.runtime.SessionFactory(r.Context(), r.URL.Query().Get("directory"))
		if err != nil {
			conn.writeJSON(KindError, map[string]string{"message": "create session: " + err.Error()})
			return
		}
		sessionID = real
		if err := conn.writeJSON(KindSessionInfo, SessionInfo{SessionID: sessionID}); err != nil {
			return
		}
	}
	conn.sessionID = sessionID

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.pingLoop(ctx, conn)

	h.readLoop(ctx, conn)
}

func (h *Handler) pingLoop(ctx context.Context, conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.writeMu.Lock()
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.ws.WriteMessage(websocket.PingMessage, nil)
			conn.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// readLoop is the proxy loop: each inbound frame is validated, dispatched by
// kind, and (for user_message) turned into a runtime SSE stream that is
// translated back into outbound frames before the loop reads the next
// client frame.
func (h *Handler) readLoop(ctx context.Context, conn *connection) {
	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn().Err(err).Str("sessionID", conn.sessionID).Msg("gateway: websocket read error")
			}
			return
		}

		kind, payload, err := ParseInbound(raw)
		if err != nil {
			conn.writeJSON(KindError, map[string]string{"message": err.Error()})
			continue
		}

		switch kind {
		case KindUserMessage:
			msg := payload.(UserMessage)
			h.proxyUserMessage(ctx, conn, msg)
		case KindToolResult:
			msg := payload.(ToolResult)
			h.forwardToolResult(conn, msg)
		case KindSwitchAgent, KindHITLDecision, KindPlanDecision:
			h.forwardControlMessage(ctx, conn, kind, payload)
		}
	}
}

// proxyUserMessage drives one agentic turn through the runtime's SSE
// endpoint, relaying every intermediate event back to the WebSocket client
// as it arrives and finishing with an agent_done frame.
func (h *Handler) proxyUserMessage(ctx context.Context, conn *connection, msg UserMessage) {
	err := StreamAgentMessage(ctx, h.runtime.HTTPClient, h.runtime.streamURL(), msg.SessionID, msg.Content, msg.Agent, func(ev SSEEvent) {
		var raw json.RawMessage
		if ev.Data != "" {
			raw = json.RawMessage(ev.Data)
		}
		switch ev.Event {
		case "done":
			conn.writeJSON(KindAgentDone, raw)
		case "error":
			conn.writeJSON(KindError, raw)
		default:
			conn.writeJSON(KindAgentUpdate, raw)
		}
	})
	if err != nil {
		conn.writeJSON(KindError, map[string]string{"message": err.Error()})
	}
}

// forwardToolResult and forwardControlMessage are placeholders for the
// runtime-side endpoints that consume them; they currently acknowledge
// receipt so the client's request/response cycle completes. A future
// runtime REST surface for posting tool results and control decisions
// directly (rather than folding them into the next user_message) would
// replace this.
func (h *Handler) forwardToolResult(conn *connection, msg ToolResult) {
	conn.writeJSON(KindAgentUpdate, map[string]any{"acknowledged": "tool_result", "callID": msg.CallID})
}

func (h *Handler) forwardControlMessage(ctx context.Context, conn *connection, kind Kind, payload any) {
	conn.writeJSON(KindAgentUpdate, map[string]any{"acknowledged": string(kind), "payload": payload})
}

// NewConnectionID returns a random id for a client that has not yet
// established a real session, used only for logging correlation.
func NewConnectionID() string {
	return uuid.NewString()
}
