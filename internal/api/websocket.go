package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/stockroom-core/internal/eventloop"
	"github.com/nerrad567/stockroom-core/internal/infrastructure/config"
	"github.com/nerrad567/stockroom-core/internal/infrastructure/logging"
	"github.com/nerrad567/stockroom-core/internal/session"
	"github.com/nerrad567/stockroom-core/internal/workspace"
)

// Messages from the shell.
const (
	WSTypeResume     = "resume"
	WSTypeLogin      = "login"
	WSTypeReauth     = "reauth"
	WSTypeLogout     = "logout"
	WSTypeHashChange = "hashchange"
	WSTypeIntent     = "intent"
	WSTypePing       = "ping"
)

// Messages to the shell.
const (
	WSTypePong           = "pong"
	WSTypeRender         = "render"
	WSTypeReplaceHash    = "replace_hash"
	WSTypeSession        = "session"
	WSTypeSessionExpired = "session_expired"
	WSTypeError          = "error"
)

const (
	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256

	// loopQueueSize is the initial event queue capacity of a view session.
	loopQueueSize = 64

	// sessionTeardownTimeout bounds closing a view session's workspace.
	sessionTeardownTimeout = 5 * time.Second

	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 10 * time.Second
)

// WSMessage represents a message sent to a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// wsInbound is a message received from a WebSocket client. The payload is
// decoded once the type is known.
type wsInbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSCredentials is the payload of login and reauth.
type WSCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// WSToken is the payload of resume and session. An empty token tells the
// shell to forget the one it keeps.
type WSToken struct {
	Token string `json:"token"`
}

// WSHash is the payload of hashchange and replace_hash.
type WSHash struct {
	Hash string `json:"hash"`
}

// WSSessionExpired is the payload of session_expired.
type WSSessionExpired struct {
	Username string `json:"username"`
}

// Hub tracks the connected view sessions.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	closed  bool
	mu      sync.RWMutex
	wg      sync.WaitGroup
}

// WSClient is one connected shell and the view session it drives.
type WSClient struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	id     string
	logger *logging.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	loop     *eventloop.Loop
	app      *workspace.App
	location *socketLocation
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Register adds a client to the hub. It reports false once the hub is
// shutting down.
func (h *Hub) Register(client *WSClient) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[client] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()
	h.logger.Debug("view session connected", "session_id", client.id, "clients", h.ClientCount())
	return true
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
		h.wg.Done()
	}
	h.logger.Debug("view session disconnected", "session_id", client.id, "clients", h.ClientCount())
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Wait blocks until every client has unregistered or ctx ends.
func (h *Hub) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for view sessions: %w", ctx.Err())
	}
}

// closeAll drops every connection. Each readPump then tears its session
// down and unregisters.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for client := range h.clients {
		client.cancel()
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// socketLocation is the shell's address as last reported over the socket.
type socketLocation struct {
	client *WSClient

	mu   sync.Mutex
	hash string
}

// Hash returns the fragment the shell shows.
func (l *socketLocation) Hash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hash
}

// ReplaceHash rewrites the shell's address without a history entry. The
// shell applies it with history.replaceState, which raises no hashchange.
func (l *socketLocation) ReplaceHash(fragment string) {
	l.set(fragment)
	l.client.sendMessage(WSTypeReplaceHash, WSHash{Hash: fragment})
}

func (l *socketLocation) set(fragment string) {
	l.mu.Lock()
	l.hash = fragment
	l.mu.Unlock()
}

// handleWebSocket upgrades the HTTP connection and starts a view session on it.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.ctx.Err() != nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client, err := s.newClient(conn)
	if err != nil {
		s.logger.Error("starting view session failed", "error", err)
		conn.Close()
		return
	}

	if !s.hub.Register(client) {
		client.discard()
		return
	}

	go client.loop.Run(context.Background())
	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)

	// First snapshot so the shell can draw the sign-in form.
	client.app.Render()
}

// newClient builds the view session behind a connection.
func (s *Server) newClient(conn *websocket.Conn) (*WSClient, error) {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(s.ctx)
	c := &WSClient{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, wsSendBufferSize),
		id:     id,
		logger: s.logger.With("session_id", id),
		ctx:    ctx,
		cancel: cancel,
		loop:   eventloop.New(loopQueueSize),
	}
	c.location = &socketLocation{client: c}

	app, err := workspace.New(workspace.Deps{
		Loop:     c.loop,
		Location: c.location,
		API:      s.backend,
		Prefs:    s.prefs,
		OnRender: c.sendRender,
		Config:   s.uiCfg,
		Logger:   c.logger,
	})
	if err != nil {
		cancel()
		c.loop.Close()
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	c.app = app
	app.Session().Subscribe(c.onSessionEvent)
	return c, nil
}

// readPump reads messages from the WebSocket connection.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer c.teardown()

	if cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	}
	pingInterval, pongWait := keepalive(cfg)
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			} else {
				c.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any client message resets the read deadline (keeps connection alive
		// even if browser doesn't respond to protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval, pongWait := keepalive(cfg)
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Session torn down
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// keepalive returns the ping period and pong wait, falling back to the
// defaults for unset values.
func keepalive(cfg config.WebSocketConfig) (ping, pong time.Duration) {
	ping = time.Duration(cfg.PingInterval) * time.Second
	if ping <= 0 {
		ping = defaultPingInterval
	}
	pong = time.Duration(cfg.PongTimeout) * time.Second
	if pong <= 0 {
		pong = defaultPongTimeout
	}
	return ping, pong
}

// discard releases a session that never started.
func (c *WSClient) discard() {
	c.cancel()
	c.loop.Close()

	ctx, cancel := context.WithTimeout(context.Background(), sessionTeardownTimeout)
	defer cancel()
	//nolint:errcheck // Loop is closed; Shutdown only waits for tasks
	c.app.Shutdown(ctx)
	c.conn.Close()
}

// teardown closes the workspace, then the loop, then the connection.
func (c *WSClient) teardown() {
	c.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), sessionTeardownTimeout)
	defer cancel()
	if err := c.app.Shutdown(ctx); err != nil {
		c.logger.Warn("closing view session", "error", err)
	}
	c.loop.Close()

	c.hub.Unregister(c)
	c.conn.Close()
}

// handleMessage processes an incoming WebSocket message. Sign-in calls
// run inline, so messages behind them are handled in order.
func (c *WSClient) handleMessage(data []byte) {
	var msg wsInbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeHashChange:
		var p WSHash
		if !c.decode(msg, &p) {
			return
		}
		c.location.set(p.Hash)
		c.app.HashChanged(p.Hash)

	case WSTypeIntent:
		var intent workspace.Intent
		if !c.decode(msg, &intent) {
			return
		}
		if err := c.app.Dispatch(c.ctx, intent); err != nil {
			c.sendError(msg.ID, intentError(err))
		}

	case WSTypeLogin:
		var p WSCredentials
		if !c.decode(msg, &p) {
			return
		}
		if err := c.app.Login(c.ctx, p.Username, p.Password); err != nil {
			c.logger.Info("login failed", "username", p.Username, "error", err)
		}

	case WSTypeResume:
		var p WSToken
		if !c.decode(msg, &p) {
			return
		}
		if p.Token == "" {
			return
		}
		if err := c.app.Resume(c.ctx, p.Token); err != nil {
			c.logger.Info("resume rejected", "error", err)
			c.sendMessage(WSTypeSession, WSToken{})
		}

	case WSTypeReauth:
		var p WSCredentials
		if !c.decode(msg, &p) {
			return
		}
		if err := c.app.Reauth(c.ctx, p.Username, p.Password); err != nil {
			c.logger.Info("reauthentication failed", "username", p.Username, "error", err)
		}

	case WSTypeLogout:
		c.app.Logout()

	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)

	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// decode unmarshals a message payload, answering with an error when it is
// malformed.
func (c *WSClient) decode(msg wsInbound, v any) bool {
	if len(msg.Payload) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		c.sendError(msg.ID, "invalid "+msg.Type+" payload")
		return false
	}
	return true
}

func intentError(err error) string {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return "not signed in"
	case errors.Is(err, eventloop.ErrClosed), errors.Is(err, context.Canceled):
		return "session closed"
	default:
		return err.Error()
	}
}

// onSessionEvent mirrors session transitions to the shell, which keeps the
// token for resuming after a reload.
func (c *WSClient) onSessionEvent(e session.Event) {
	switch e.Kind {
	case session.EventLogin:
		c.sendMessage(WSTypeSession, WSToken{Token: e.Session.Token})
	case session.EventLogout:
		c.sendMessage(WSTypeSession, WSToken{})
	case session.EventExpired:
		c.sendMessage(WSTypeSessionExpired, WSSessionExpired{Username: e.Session.Username})
	}
}

// sendRender forwards a snapshot. Runs on the loop and never blocks.
func (c *WSClient) sendRender(snap workspace.Snapshot) {
	c.sendMessage(WSTypeRender, snap)
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected mid-render)
// and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		c.logger.Warn("websocket send buffer full, dropping message")
	}
}

// sendMessage sends an unsolicited message to the client.
func (c *WSClient) sendMessage(msgType string, payload any) {
	c.sendResponse("", msgType, payload)
}

// sendResponse sends a response message to the client.
// Routes through trySend to safely handle closed channels during shutdown.
func (c *WSClient) sendResponse(id, msgType string, payload any) {
	msg := WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal websocket message", "type", msgType, "error", err)
		return
	}
	c.trySend(data)
}

// sendError sends an error message to the client.
func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
