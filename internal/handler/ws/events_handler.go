package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"simora-backend/internal/domain"
	"simora-backend/internal/repository/redis"
	"simora-backend/pkg/logger"
)

const (
	pingInterval  = 54 * time.Second
	writeDeadline = 10 * time.Second
)

// EventHub fans out notification change events to connected devices.
// Global config changes go to every client; preference changes only to
// clients of the affected user.
type EventHub struct {
	// Registered clients per user
	users map[uuid.UUID]map[*EventClient]bool

	// Cancel functions for per-user preference subscriptions
	subscriptionCancels map[uuid.UUID]context.CancelFunc

	redisClient *goredis.Client

	mu sync.RWMutex

	register   chan *EventClient
	unregister chan *EventClient
	broadcast  chan *EventMessage

	// Concurrency limit: maxConnections is the maximum number of concurrent WebSocket connections
	maxConnections int
	semaphore      chan struct{}
}

// EventClient represents a connected device waiting for change events
type EventClient struct {
	hub    *EventHub
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID
	ctx    context.Context
	cancel context.CancelFunc
}

// Event message types
const (
	EventTypeConfigChanged     = "config_changed"
	EventTypePreferenceChanged = "preference_changed"
)

// EventMessage is the frame delivered to WebSocket clients. A zero UserID
// means the event applies to all connected users.
type EventMessage struct {
	Type      string             `json:"type"`
	UserID    uuid.UUID          `json:"user_id,omitempty"`
	Event     domain.ChangeEvent `json:"event"`
	Timestamp time.Time          `json:"timestamp"`
}

// GetEventAllowedOrigins returns allowed WebSocket origins from environment or defaults
func GetEventAllowedOrigins() map[string]bool {
	allowedOrigins := map[string]bool{
		"http://localhost:3000":  true,
		"http://localhost:8080":  true,
		"capacitor://localhost":  true,
		"ionic://localhost":      true,
		"https://app.simora.app": true,
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			allowedOrigins[strings.TrimSpace(origin)] = true
		}
	}

	return allowedOrigins
}

var eventUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Reject empty origins - require explicit origin for security
			return false
		}

		allowedOrigins := GetEventAllowedOrigins()
		for allowed := range allowedOrigins {
			if origin == allowed {
				return true
			}
		}
		return false
	},
}

// NewEventHub creates a new event hub and starts its subscription to the
// global config channel
func NewEventHub(redisClient *goredis.Client) *EventHub {
	maxConns := 1000
	if val := os.Getenv("WS_MAX_EVENT_CONNECTIONS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			maxConns = n
		}
	}

	hub := &EventHub{
		users:               make(map[uuid.UUID]map[*EventClient]bool),
		subscriptionCancels: make(map[uuid.UUID]context.CancelFunc),
		redisClient:         redisClient,
		register:            make(chan *EventClient),
		unregister:          make(chan *EventClient),
		broadcast:           make(chan *EventMessage, 1000),
		maxConnections:      maxConns,
		semaphore:           make(chan struct{}, maxConns),
	}

	go hub.run()
	go hub.subscribeToConfigChannel(context.Background())

	return hub
}

// run handles hub operations
func (h *EventHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.users[client.userID] == nil {
				h.users[client.userID] = make(map[*EventClient]bool)

				ctx, cancel := context.WithCancel(context.Background())
				h.subscriptionCancels[client.userID] = cancel

				// Subscribe to this user's preference channel
				go h.subscribeToUserChannel(ctx, client.userID)
			}
			h.users[client.userID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.users[client.userID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					client.cancel()

					if len(clients) == 0 {
						if cancel, ok := h.subscriptionCancels[client.userID]; ok {
							cancel()
							delete(h.subscriptionCancels, client.userID)
						}
						delete(h.users, client.userID)
					}
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// deliver sends a message to its target clients: every client for a global
// config event, or one user's clients for a preference event
func (h *EventHub) deliver(message *EventMessage) {
	messageJSON, err := json.Marshal(message)
	if err != nil {
		return
	}

	h.mu.RLock()
	var clientsToRemove []*EventClient
	if message.UserID == uuid.Nil {
		for _, clients := range h.users {
			for client := range clients {
				select {
				case client.send <- messageJSON:
				default:
					clientsToRemove = append(clientsToRemove, client)
				}
			}
		}
	} else if clients, ok := h.users[message.UserID]; ok {
		for client := range clients {
			select {
			case client.send <- messageJSON:
			default:
				clientsToRemove = append(clientsToRemove, client)
			}
		}
	}
	h.mu.RUnlock()

	// Remove slow clients outside of read lock
	if len(clientsToRemove) > 0 {
		h.mu.Lock()
		for _, client := range clientsToRemove {
			if clients, ok := h.users[client.userID]; ok {
				delete(clients, client)
			}
		}
		h.mu.Unlock()
	}
}

// subscribeToConfigChannel relays global config change events to all clients
func (h *EventHub) subscribeToConfigChannel(ctx context.Context) {
	pubsub := h.redisClient.Subscribe(ctx, redis.ConfigChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		logger.Error("Failed to subscribe to config change channel", zap.Error(err))
		return
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			if msg == nil {
				continue
			}
			var event domain.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn("Failed to unmarshal config change event", zap.Error(err))
				continue
			}

			h.broadcast <- &EventMessage{
				Type:      EventTypeConfigChanged,
				Event:     event,
				Timestamp: time.Now(),
			}
		}
	}
}

// subscribeToUserChannel relays preference change events for one user
func (h *EventHub) subscribeToUserChannel(ctx context.Context, userID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, redis.PreferenceChannel(userID))
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		logger.Error("Failed to subscribe to preference change channel",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			if msg == nil {
				continue
			}
			var event domain.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn("Failed to unmarshal preference change event",
					zap.String("user_id", userID.String()),
					zap.Error(err))
				continue
			}

			h.broadcast <- &EventMessage{
				Type:      EventTypePreferenceChanged,
				UserID:    userID,
				Event:     event,
				Timestamp: time.Now(),
			}
		}
	}
}

// ServeEventsWS handles WebSocket requests for notification change events
func (h *EventHub) ServeEventsWS(c *gin.Context) {
	// Acquire semaphore to limit concurrent connections
	select {
	case h.semaphore <- struct{}{}:
		defer func() {
			<-h.semaphore
		}()
	default:
		logger.Warn("Event WebSocket connection rejected: max connections reached",
			zap.Int("max_connections", h.maxConnections))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server at capacity, please try again later"})
		return
	}

	// Get user ID from context (set by auth middleware)
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(401, gin.H{"error": "unauthorized"})
		return
	}

	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		c.JSON(500, gin.H{"error": "invalid user_id"})
		return
	}

	conn, err := eventUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Event WebSocket upgrade failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &EventClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
		ctx:    ctx,
		cancel: cancel,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump reads messages from WebSocket. Event clients only receive, so
// inbound frames beyond pongs are discarded.
func (c *EventClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pingInterval + writeDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + writeDeadline))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("Event WebSocket connection closed",
					zap.String("user_id", c.userID.String()),
					zap.Error(err))
			}
			break
		}
	}
}

// writePump writes messages to WebSocket
func (c *EventClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
