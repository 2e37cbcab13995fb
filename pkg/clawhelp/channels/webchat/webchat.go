// Package webchat implements a browser chat channel over WebSocket.
//
// Protocol (JSON text frames):
//
//	Client → Server:
//	  {"type":"message","content":"/help 2"}
//
//	Server → Client:
//	  {"type":"hello","client_id":"...","user":"alice","room":"lobby"}
//	  {"type":"reply","content":"...","room":"lobby"}
//	  {"type":"error","error":"invalid JSON"}
//
// Clients identify themselves on the upgrade URL: /ws?user=alice&room=lobby.
// A connection with a room is a group conversation, one without is a DM.
package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels"
)

// Name is the channel identifier.
const Name = "webchat"

// Config holds web chat configuration.
type Config struct {
	// Addr is the listen address. Empty means the handler is mounted elsewhere.
	Addr string `yaml:"addr"`

	// Path is the WebSocket endpoint path.
	Path string `yaml:"path"`
}

// DefaultConfig returns the default web chat configuration.
func DefaultConfig() Config {
	return Config{Addr: "127.0.0.1:8089", Path: "/ws"}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// frame is the envelope for all WebSocket messages.
type frame struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	User     string `json:"user,omitempty"`
	Room     string `json:"room,omitempty"`
	Error    string `json:"error,omitempty"`
}

type client struct {
	id   string
	user string
	room string

	conn *websocket.Conn
	// writeMu protects concurrent writes to conn.
	writeMu sync.Mutex
}

func (c *client) write(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WebChat implements channels.Channel and http.Handler.
type WebChat struct {
	cfg    Config
	logger *slog.Logger

	server *http.Server

	clientsMu sync.RWMutex
	clients   map[string]*client

	messages chan *channels.IncomingMessage

	connected  atomic.Bool
	errorCount atomic.Int64
	lastMsg    atomic.Int64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a web chat channel.
func New(cfg Config, logger *slog.Logger) *WebChat {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}
	return &WebChat{
		cfg:      cfg,
		logger:   logger.With("component", "webchat"),
		clients:  make(map[string]*client),
		messages: make(chan *channels.IncomingMessage, 64),
	}
}

// Name implements channels.Channel.
func (w *WebChat) Name() string { return Name }

// Connect starts the HTTP listener when an address is configured.
func (w *WebChat) Connect(_ context.Context) error {
	if w.cfg.Addr != "" {
		ln, err := net.Listen("tcp", w.cfg.Addr)
		if err != nil {
			return fmt.Errorf("webchat: listen on %s: %w", w.cfg.Addr, err)
		}
		mux := http.NewServeMux()
		mux.Handle(w.cfg.Path, w)
		w.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				w.logger.Error("webchat: server stopped", "error", err)
			}
		}()
		w.logger.Info("webchat: listening", "addr", ln.Addr().String(), "path", w.cfg.Path)
	}
	w.connected.Store(true)
	return nil
}

// Disconnect stops the listener, closes every client and the message stream.
func (w *WebChat) Disconnect() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.connected.Store(false)
	w.mu.Unlock()

	var err error
	if w.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = w.server.Shutdown(ctx)
	}

	w.clientsMu.Lock()
	for _, c := range w.clients {
		_ = c.conn.Close()
	}
	w.clientsMu.Unlock()

	w.wg.Wait()

	w.mu.Lock()
	close(w.messages)
	w.mu.Unlock()

	w.logger.Info("webchat: disconnected")
	return err
}

// ServeHTTP upgrades the connection and runs the read loop for one client.
func (w *WebChat) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		http.Error(rw, "missing user", http.StatusBadRequest)
		return
	}

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		http.Error(rw, "channel closed", http.StatusServiceUnavailable)
		return
	}
	w.wg.Add(1)
	w.mu.RUnlock()
	defer w.wg.Done()

	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Error("webchat: upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   uuid.New().String(),
		user: user,
		room: r.URL.Query().Get("room"),
		conn: conn,
	}
	if !w.addClient(c) {
		_ = conn.Close()
		return
	}
	defer w.removeClient(c)

	w.logger.Info("webchat: client connected", "client", c.id, "user", c.user, "room", c.room)
	if err := c.write(frame{Type: "hello", ClientID: c.id, User: c.user, Room: c.room}); err != nil {
		return
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				w.logger.Warn("webchat: read error", "client", c.id, "error", err)
			}
			return
		}

		var in frame
		if err := json.Unmarshal(raw, &in); err != nil {
			_ = c.write(frame{Type: "error", Error: "invalid JSON"})
			continue
		}
		if in.Type != "message" {
			_ = c.write(frame{Type: "error", Error: "expected type=message"})
			continue
		}
		w.deliver(c, in.Content)
	}
}

func (w *WebChat) deliver(c *client, content string) {
	msg := &channels.IncomingMessage{
		ID:        uuid.New().String(),
		Channel:   Name,
		From:      c.user,
		FromName:  c.user,
		ChatID:    c.room,
		IsGroup:   c.room != "",
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  map[string]any{"client_id": c.id},
	}
	if !msg.IsGroup {
		msg.ChatID = c.user
	}
	w.lastMsg.Store(msg.Timestamp.Unix())

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.messages <- msg:
	default:
		w.logger.Warn("webchat: inbound buffer full, dropping message", "client", c.id)
	}
}

// addClient tracks c unless the channel is closing.
func (w *WebChat) addClient(c *client) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	w.clientsMu.Lock()
	defer w.clientsMu.Unlock()
	w.clients[c.id] = c
	return true
}

func (w *WebChat) removeClient(c *client) {
	w.clientsMu.Lock()
	delete(w.clients, c.id)
	w.clientsMu.Unlock()
	_ = c.conn.Close()
	w.logger.Info("webchat: client disconnected", "client", c.id)
}

// Send writes a reply to every connection of the user, or to every
// connection in the room for group targets.
func (w *WebChat) Send(_ context.Context, to channels.Target, msg *channels.OutgoingMessage) error {
	if !w.connected.Load() {
		return channels.ErrChannelDisconnected
	}

	var match func(*client) bool
	switch to.Type {
	case channels.TargetUser:
		match = func(c *client) bool { return c.room == "" && c.user == to.ID }
	case channels.TargetGroup:
		match = func(c *client) bool { return c.room == to.ID }
	default:
		return fmt.Errorf("webchat: %w: %q", channels.ErrUnsupportedTarget, to.Type)
	}

	w.clientsMu.RLock()
	var recipients []*client
	for _, c := range w.clients {
		if match(c) {
			recipients = append(recipients, c)
		}
	}
	w.clientsMu.RUnlock()

	if len(recipients) == 0 {
		return fmt.Errorf("webchat: no client connected for %s", to)
	}

	var sent int
	for _, c := range recipients {
		if err := c.write(frame{Type: "reply", Content: msg.Content, Room: c.room}); err != nil {
			w.errorCount.Add(1)
			w.logger.Warn("webchat: write failed", "client", c.id, "error", err)
			continue
		}
		sent++
	}
	if sent == 0 {
		return fmt.Errorf("webchat: every write to %s failed", to)
	}
	return nil
}

// Receive implements channels.Channel.
func (w *WebChat) Receive() <-chan *channels.IncomingMessage { return w.messages }

// IsConnected implements channels.Channel.
func (w *WebChat) IsConnected() bool { return w.connected.Load() }

// Clients returns the number of open connections.
func (w *WebChat) Clients() int {
	w.clientsMu.RLock()
	defer w.clientsMu.RUnlock()
	return len(w.clients)
}

// Health implements channels.Channel.
func (w *WebChat) Health() channels.HealthStatus {
	var last time.Time
	if ts := w.lastMsg.Load(); ts > 0 {
		last = time.Unix(ts, 0)
	}
	return channels.HealthStatus{
		Connected:     w.connected.Load(),
		LastMessageAt: last,
		ErrorCount:    int(w.errorCount.Load()),
		Details:       map[string]any{"clients": w.Clients()},
	}
}
