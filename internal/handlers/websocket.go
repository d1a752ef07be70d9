package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"daily-diet-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsPongWait     = 60 * time.Second
	wsPingInterval = wsPongWait * 9 / 10
	wsMaxMessage   = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler streams metrics updates to connected clients
type WebSocketHandler struct {
	hub            *services.WSHub
	sessionService *services.SessionService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, sessionService *services.SessionService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		sessionService: sessionService,
	}
}

// HandleWebSocket handles GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user := authenticate(w, r, h.sessionService)
	if user == nil {
		return
	}
	userID := user.ID

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	conn.SetReadLimit(wsMaxMessage)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go keepAlive(ctx, conn)

	if err := h.hub.NotifyMetrics(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to send initial metrics")
	}

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("user_id", userID).Msg("WebSocket closed unexpectedly")
			}
			return
		}

		var msg services.WSMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.sendError(userID, "Invalid message format")
			continue
		}

		h.handleMessage(ctx, userID, msg)
	}
}

// keepAlive pings conn until ctx is done so idle clients are detected
func keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, userID string, msg services.WSMessage) {
	switch msg.Type {
	case "get_metrics":
		if err := h.hub.NotifyMetrics(ctx, userID); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to send metrics")
			h.sendError(userID, "Failed to compute metrics")
		}
	default:
		h.sendError(userID, "Unknown message type")
	}
}

// sendError sends an error message to a user
func (h *WebSocketHandler) sendError(userID, message string) {
	err := h.hub.SendToUser(userID, services.WSMessage{
		Type:    "error",
		Message: message,
	})
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("Failed to send WebSocket error")
	}
}
