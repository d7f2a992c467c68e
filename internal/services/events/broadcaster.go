package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/story-rooms/pkg/room"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeSceneUpdate    EventType = "sceneUpdate"
	EventTypeVoteUpdate     EventType = "voteUpdate"
	EventTypeLeaderSelected EventType = "leaderSelected"
)

// Event is the envelope published on a room channel.
type Event struct {
	Type   EventType       `json:"type"`
	RoomID string          `json:"room_id"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// LeaderSelected is the leaderSelected payload.
type LeaderSelected struct {
	Leader string `json:"leader"`
}

// Channel is the Redis Pub/Sub channel for a room.
func Channel(roomID string) string {
	return fmt.Sprintf("room-events:%s", roomID)
}

// Broadcaster publishes room events to Redis Pub/Sub for SSE and websocket
// distribution.
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ room.Notifier = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

func (b *Broadcaster) PublishSceneUpdate(ctx context.Context, roomID string, snapshot room.Snapshot) error {
	return b.publishToRoom(ctx, roomID, EventTypeSceneUpdate, snapshot)
}

func (b *Broadcaster) PublishVoteUpdate(ctx context.Context, roomID string, update room.VoteUpdate) error {
	return b.publishToRoom(ctx, roomID, EventTypeVoteUpdate, update)
}

func (b *Broadcaster) PublishLeaderSelected(ctx context.Context, roomID string, leader string) error {
	return b.publishToRoom(ctx, roomID, EventTypeLeaderSelected, LeaderSelected{Leader: leader})
}

// publishToRoom publishes an event to the room-specific channel
func (b *Broadcaster) publishToRoom(ctx context.Context, roomID string, eventType EventType, payload any) error {
	channel := Channel(roomID)

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	msg, err := json.Marshal(Event{Type: eventType, RoomID: roomID, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, msg).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", eventType,
	)
	return nil
}
