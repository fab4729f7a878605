package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager owns the live websocket connections and delivers
// encoded frames to them.
type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	config ConnectionConfig

	deliverCh chan Delivery
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	IP      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout      time.Duration
	ReadTimeout       time.Duration
	PingInterval      time.Duration
	MaxMessageSize    int64
	ReadBufferSize    int
	WriteBufferSize   int
	SendBufferSize    int
	TrustProxyHeaders bool
	CheckOrigin       func(r *http.Request) bool
}

// Delivery is one frame addressed to one connection.
type Delivery struct {
	ConnID string
	Frame  []byte
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:      10 * time.Second,
		ReadTimeout:       60 * time.Second,
		PingInterval:      25 * time.Second,
		MaxMessageSize:    1 << 20,
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		SendBufferSize:    256,
		TrustProxyHeaders: true,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = DefaultConnectionConfig().SendBufferSize
	}
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:    config,
		deliverCh: make(chan Delivery, 4096),
	}
}

// Start fans queued frames out to their connections until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case d := <-cm.deliverCh:
			cm.handleDelivery(d)
		}
	}
}

// Deliver queues frame for connID. It never blocks; when the queue is full
// the frame is dropped.
func (cm *ConnectionManager) Deliver(connID string, frame []byte) {
	select {
	case cm.deliverCh <- Delivery{ConnID: connID, Frame: frame}:
	default:
		log.Warn().Str("connection_id", connID).Msg("delivery queue full, dropping frame")
	}
}

func (cm *ConnectionManager) handleDelivery(d Delivery) {
	cm.mu.RLock()
	conn, ok := cm.connections[d.ConnID]
	cm.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case conn.Send <- d.Frame:
	case <-conn.done:
	default:
		// Connection is slow/dead, close it
		log.Warn().
			Str("connection_id", conn.ID).
			Str("ip", conn.IP).
			Msg("connection send buffer full, closing connection")
		cm.unregister(conn)
		conn.close()
	}
}

func (cm *ConnectionManager) register(id, ip string, ws *websocket.Conn) *Connection {
	conn := &Connection{
		ID:          id,
		IP:          ip,
		Conn:        ws,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: time.Now(),
		done:        make(chan struct{}),
	}

	cm.mu.Lock()
	cm.connections[id] = conn
	total := len(cm.connections)
	cm.mu.Unlock()

	log.Debug().
		Str("connection_id", id).
		Int("total_connections", total).
		Msg("connection registered")
	return conn
}

func (cm *ConnectionManager) unregister(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if current, ok := cm.connections[conn.ID]; ok && current == conn {
		delete(cm.connections, conn.ID)
		log.Debug().
			Str("connection_id", conn.ID).
			Dur("session_duration", time.Since(conn.ConnectedAt)).
			Msg("connection unregistered")
	}
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.Lock()
	conns := make([]*Connection, 0, len(cm.connections))
	for _, c := range cm.connections {
		conns = append(conns, c)
	}
	cm.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// Count returns the number of open sockets.
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// close sends a close frame and stops both pumps. It is safe to call more
// than once.
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		deadline := time.Now().Add(c.Manager.config.WriteTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.Conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			log.Debug().Err(err).Str("connection_id", c.ID).Msg("failed to send close frame")
		}
		c.Conn.Close()
	})
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}

		case <-c.done:
			return
		}
	}
}

// readPump forwards client frames to handle until the socket fails or closes.
func (c *Connection) readPump(handle func(frame []byte)) {
	defer func() {
		c.Manager.unregister(c)
		c.close()
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		handle(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
