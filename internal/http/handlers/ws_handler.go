package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/agency-hub/backend/internal/auth"
	"github.com/agency-hub/backend/internal/events"
	"github.com/agency-hub/backend/internal/rbac"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WSHub relays campaign and notification events to connected admin UIs.
type WSHub struct {
	jwtSecret  string
	subscriber events.Subscriber
	log        *zap.Logger
	mu         sync.RWMutex
	conns      map[*websocket.Conn]*sync.Mutex
}

func NewWSHub(jwtSecret string, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		jwtSecret:  jwtSecret,
		subscriber: subscriber,
		log:        log,
		conns:      make(map[*websocket.Conn]*sync.Mutex),
	}
}

func (h *WSHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, func(channel string, event events.Event) {
		h.broadcast(channel, event)
	}, events.ChannelCampaign, events.ChannelNotify)
}

type wsMessage struct {
	Channel string       `json:"channel"`
	Event   events.Event `json:"event"`
}

func (h *WSHub) broadcast(channel string, event events.Event) {
	data, err := json.Marshal(wsMessage{Channel: channel, Event: event})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, wmu := range h.conns {
		wmu.Lock()
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
		}
		wmu.Unlock()
	}
}

func (h *WSHub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	tokenStr := conn.Query("token")
	if tokenStr == "" {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"missing token"}`))
		conn.Close()
		return
	}

	claims, err := auth.ParseJWT(h.jwtSecret, tokenStr)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
		conn.Close()
		return
	}
	if !rbac.HasPermission(claims.Role, rbac.PermViewCampaigns) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"forbidden"}`))
		conn.Close()
		return
	}

	h.mu.Lock()
	h.conns[conn] = &sync.Mutex{}
	h.mu.Unlock()
	h.log.Debug("ws client connected", zap.String("user_id", claims.UserID.String()), zap.Int("connections", h.Connections()))

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close()
		h.log.Debug("ws client disconnected", zap.Int("connections", h.Connections()))
	}()

	// Read loop keeps the connection alive until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
