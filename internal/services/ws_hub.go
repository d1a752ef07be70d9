package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// wsClient serialises writes to one connection
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub keeps one WebSocket connection per user and pushes metrics updates
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*wsClient
	metrics     *MetricsService
}

// NewWSHub creates a new WebSocket hub
func NewWSHub(metrics *MetricsService) *WSHub {
	return &WSHub{
		connections: make(map[string]*wsClient),
		metrics:     metrics,
	}
}

// Register registers a new WebSocket connection for a user, replacing any previous one
func (h *WSHub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.connections[userID]; exists {
		existing.conn.Close()
	}

	h.connections[userID] = &wsClient{conn: conn}

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes conn if it is still the user's current connection
func (h *WSHub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.connections[userID]; exists && client.conn == conn {
		client.conn.Close()
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// CloseAll sends a going-away close frame to every client and drops them
func (h *WSHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for userID, client := range h.connections {
		client.mu.Lock()
		client.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		client.mu.Unlock()
		client.conn.Close()
		delete(h.connections, userID)
	}
	log.Info().Msg("WebSocket connections closed")
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	client, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := client.write(data); err != nil {
		h.Unregister(userID, client.conn)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}

// NotifyMetrics sends the user's current metrics if they are connected
func (h *WSHub) NotifyMetrics(ctx context.Context, userID string) error {
	if !h.IsOnline(userID) {
		return nil
	}

	m, err := h.metrics.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to compute metrics: %w", err)
	}

	return h.SendToUser(userID, WSMessage{Type: "metrics", Data: m})
}
