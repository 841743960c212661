package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ErrSlowConsumer is reported when a connection fell too far behind and
// was dropped. The client re-fetches state when it reconnects.
var ErrSlowConsumer = errors.New("slow consumer")

// ConnectionManager manages WebSocket connections for draft events
type ConnectionManager struct {
	// Connection pools organized by draft ID
	draftConnections map[uuid.UUID]map[*Connection]bool
	mu               sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	metrics  Metrics
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID          string
	UserID      string
	DraftID     uuid.UUID
	Conn        *websocket.Conn
	Send        chan []byte
	Manager     *ConnectionManager
	ConnectedAt time.Time

	// Until the snapshot is queued, frames are held in pending so the
	// snapshot always goes out first.
	mu      sync.Mutex
	ready   bool
	closed  bool
	pending [][]byte
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	// SendBuffer is how many frames may queue per connection before it is
	// treated as a slow consumer.
	SendBuffer  int
	CheckOrigin func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		CheckOrigin: func(r *http.Request) bool {
			// Origins are enforced by the CORS layer in front of the gateway.
			return true
		},
	}
}

func NewConnectionManager(config ConnectionConfig, metrics Metrics) *ConnectionManager {
	if config.SendBuffer <= 0 {
		config.SendBuffer = DefaultConnectionConfig().SendBuffer
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &ConnectionManager{
		draftConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:  config,
		metrics: metrics,
	}
}

// SnapshotFunc renders the first frame of a new connection.
type SnapshotFunc func(ctx context.Context, draftID uuid.UUID) ([]byte, error)

// Connect registers a subscriber for draftID, reads the snapshot and only
// then upgrades the request. Events broadcast in between are held and
// written right after the snapshot, so the client sees no gap. A snapshot
// error is answered as a plain HTTP error.
func (cm *ConnectionManager) Connect(w http.ResponseWriter, r *http.Request, userID string, draftID uuid.UUID, snapshot SnapshotFunc) error {
	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		DraftID:     draftID,
		Send:        make(chan []byte, cm.config.SendBuffer),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
	cm.registerConnection(connection)

	first, err := snapshot(r.Context(), draftID)
	if err != nil {
		cm.unregisterConnection(connection)
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cm.unregisterConnection(connection)
		// Upgrade already replied to the client.
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return nil
	}
	if !connection.start(conn, first) {
		cm.metrics.SlowConsumer()
		cm.unregisterConnection(connection)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, ErrSlowConsumer.Error()),
			time.Now().Add(cm.config.WriteTimeout))
		conn.Close()
		return nil
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("draft_id", draftID.String()).
		Msg("WebSocket connection established")
	return nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.draftConnections[conn.DraftID] == nil {
		cm.draftConnections[conn.DraftID] = make(map[*Connection]bool)
	}
	cm.draftConnections[conn.DraftID][conn] = true
	cm.metrics.Connections(cm.countLocked())

	log.Debug().
		Str("connection_id", conn.ID).
		Str("draft_id", conn.DraftID.String()).
		Int("total_connections", len(cm.draftConnections[conn.DraftID])).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the manager
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.draftConnections[conn.DraftID]
	if !exists || !connections[conn] {
		return
	}
	delete(connections, conn)
	conn.close()

	// Clean up empty draft connection pools
	if len(connections) == 0 {
		delete(cm.draftConnections, conn.DraftID)
	}
	cm.metrics.Connections(cm.countLocked())

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("draft_id", conn.DraftID.String()).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) countLocked() int {
	n := 0
	for _, connections := range cm.draftConnections {
		n += len(connections)
	}
	return n
}

// BroadcastToDraft queues frame on every connection of the draft. Callers
// broadcast from a single goroutine per stream, which keeps frames in bus
// order on every connection. A connection whose queue is full is closed.
func (cm *ConnectionManager) BroadcastToDraft(draftID uuid.UUID, frame []byte) int {
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.draftConnections[draftID]))
	for conn := range cm.draftConnections[draftID] {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	sent := 0
	for _, conn := range targets {
		if conn.deliver(frame) {
			sent++
			continue
		}
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID).
			Msg("connection send buffer full, closing connection")
		cm.metrics.SlowConsumer()
		cm.unregisterConnection(conn)
		conn.closeConn()
	}
	cm.metrics.FramesSent(sent)
	return sent
}

// ConnectionStats is the body of GET /ws/stats.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveDrafts     int            `json:"active_drafts"`
	DraftConnections map[string]int `json:"draft_connections"`
}

func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveDrafts:     len(cm.draftConnections),
		DraftConnections: make(map[string]int, len(cm.draftConnections)),
	}
	for draftID, connections := range cm.draftConnections {
		stats.TotalConnections += len(connections)
		stats.DraftConnections[draftID.String()] = len(connections)
	}
	return stats
}

// CloseAll drops every connection. Used on shutdown.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	var all []*Connection
	for _, connections := range cm.draftConnections {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range all {
		cm.unregisterConnection(conn)
	}
}

// start queues the snapshot followed by everything held while the
// connection was pending. It returns false if the queue overflowed.
func (c *Connection) start(conn *websocket.Conn, snapshot []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Conn = conn
	if c.closed {
		return false
	}
	for _, frame := range append([][]byte{snapshot}, c.pending...) {
		select {
		case c.Send <- frame:
		default:
			return false
		}
	}
	c.pending = nil
	c.ready = true
	return true
}

// deliver queues frame without blocking. It returns false when the
// connection cannot keep up.
func (c *Connection) deliver(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	if !c.ready {
		// One slot is reserved for the snapshot.
		if len(c.pending) >= cap(c.Send)-1 {
			return false
		}
		c.pending = append(c.pending, frame)
		return true
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Connection) closeConn() {
	c.mu.Lock()
	conn := c.Conn
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump keeps the read deadline alive and discards client messages;
// the draft room takes commands over HTTP only.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		log.Debug().
			Str("connection_id", c.ID).
			Str("user_id", c.UserID).
			Int("bytes", len(message)).
			Msg("ignoring client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
