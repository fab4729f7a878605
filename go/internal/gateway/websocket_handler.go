package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/thaasbai/tables/go/internal/admission"
	"github.com/thaasbai/tables/go/internal/coordinator"
	"github.com/thaasbai/tables/go/internal/events"
)

// Dispatcher is the game coordinator as seen from the transport.
type Dispatcher interface {
	Admit(ctx context.Context, ip string) (string, error)
	Submit(ctx context.Context, connID, event string, data json.RawMessage) error
	Disconnect(ctx context.Context, connID string) error
	Stats(ctx context.Context) (coordinator.Stats, error)
}

// WebSocketHandler upgrades admitted clients and pipes their frames to the dispatcher.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	dispatcher        Dispatcher
}

func NewWebSocketHandler(cm *ConnectionManager, dispatcher Dispatcher) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		dispatcher:        dispatcher,
	}
}

// HandleConnection admits, upgrades and serves one client.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	cm := h.connectionManager
	ip := clientIP(r, cm.config.TrustProxyHeaders)

	connID, err := h.dispatcher.Admit(r.Context(), ip)
	if err != nil {
		if errors.Is(err, admission.ErrTooManyConnections) || errors.Is(err, admission.ErrConnectionRate) {
			http.Error(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		log.Error().Err(err).Str("ip", ip).Msg("failed to admit connection")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("failed to upgrade WebSocket connection")
		h.release(connID)
		return
	}

	conn := cm.register(connID, ip, ws)
	if frame, err := events.Encode(events.Connected, events.ConnectedPayload{Sid: connID}); err == nil {
		conn.Send <- frame
	}

	log.Info().
		Str("connection_id", connID).
		Str("ip", ip).
		Msg("WebSocket connection established")

	go conn.writePump()
	go func() {
		conn.readPump(func(frame []byte) { h.dispatch(connID, frame) })
		h.release(connID)
	}()
}

func (h *WebSocketHandler) dispatch(connID string, frame []byte) {
	env, err := events.Decode(frame)
	if err != nil {
		log.Warn().Err(err).Str("connection_id", connID).Msg("dropping malformed frame")
		return
	}
	if err := h.dispatcher.Submit(context.Background(), connID, env.Event, env.Data); err != nil {
		log.Error().Err(err).Str("connection_id", connID).Str("event", env.Event).Msg("failed to submit event")
	}
}

func (h *WebSocketHandler) release(connID string) {
	if err := h.dispatcher.Disconnect(context.Background(), connID); err != nil {
		log.Error().Err(err).Str("connection_id", connID).Msg("failed to report disconnect")
	}
}

type statsResponse struct {
	coordinator.Stats
	Sockets int `json:"sockets"`
}

// HandleStats serves a snapshot of coordinator and socket state.
func (h *WebSocketHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dispatcher.Stats(r.Context())
	if err != nil {
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statsResponse{Stats: stats, Sockets: h.connectionManager.Count()}); err != nil {
		log.Error().Err(err).Msg("failed to write stats response")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleStats)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

// clientIP returns the first X-Forwarded-For hop when proxy headers are
// trusted, otherwise the peer address.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
