package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jwebster45206/story-rooms/internal/logger"
	"github.com/jwebster45206/story-rooms/internal/services/events"
	"github.com/jwebster45206/story-rooms/pkg/room"
	"github.com/redis/go-redis/v9"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = time.Minute
	wsPingPeriod = wsPongWait * 9 / 10
)

// WSHandler streams room events over a websocket. Each text frame is one
// events.Event as published on the room channel.
type WSHandler struct {
	redisClient *redis.Client
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

func NewWSHandler(redisClient *redis.Client, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		redisClient: redisClient,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP handles GET /v1/ws/rooms/{roomID}
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, h.logger, http.MethodGet)
		return
	}
	parts, err := pathSegments(r.URL.EscapedPath(), "/v1/ws/rooms")
	if err != nil || len(parts) != 1 {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid path. Expected /v1/ws/rooms/{roomID}")
		return
	}
	if h.redisClient == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "Event streaming is disabled")
		return
	}
	roomID := room.NormalizeKey(parts[0])
	if roomID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid path. Expected /v1/ws/rooms/{roomID}")
		return
	}
	log := logger.WithRoom(h.logger, roomID)

	pubsub := h.redisClient.Subscribe(r.Context(), events.Channel(roomID))
	defer pubsub.Close()
	if _, err := pubsub.Receive(r.Context()); err != nil {
		log.Error("Failed to subscribe to room channel", "error", err)
		writeError(w, h.logger, http.StatusServiceUnavailable, "Event stream unavailable")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	log.Info("Websocket connection established", "remote_addr", r.RemoteAddr)

	// The read loop only drains control frames and notices the client leaving.
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	msgChan := pubsub.Channel()

	for {
		select {
		case <-closed:
			log.Info("Websocket client disconnected")
			return
		case <-r.Context().Done():
			return
		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Warn("Websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
