// Package room implements the room session state machine: joining, voting,
// leader election, skill-check resolution and scene transitions.
package room

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/story-rooms/pkg/content"
	"golang.org/x/text/unicode/norm"
)

const defaultPublishTimeout = 2 * time.Second

// Content is the read-only game data the engine needs.
type Content interface {
	Config() content.GameConfig
	FirstScene() *content.Scene
	Scene(id string) (*content.Scene, bool)
	ValidSkillKey(key string) bool
}

// Notifier is the broadcast sink. Delivery is best effort: the engine logs
// publish failures and never rolls state back.
type Notifier interface {
	PublishSceneUpdate(ctx context.Context, roomID string, snapshot Snapshot) error
	PublishVoteUpdate(ctx context.Context, roomID string, update VoteUpdate) error
	PublishLeaderSelected(ctx context.Context, roomID string, leader string) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) PublishSceneUpdate(context.Context, string, Snapshot) error { return nil }
func (NopNotifier) PublishVoteUpdate(context.Context, string, VoteUpdate) error { return nil }
func (NopNotifier) PublishLeaderSelected(context.Context, string, string) error { return nil }

// Outcome classifies the result of a vote or a close request.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeResolved Outcome = "resolved"
	OutcomeIgnored  Outcome = "ignored"
)

// Reasons reported with OutcomeIgnored.
const (
	ReasonSceneEnded    = "scene_is_ending"
	ReasonInvalidOption = "invalid_option"
	ReasonAlreadyVoted  = "already_voted"
	ReasonNoVotes       = "no_votes"
	ReasonMissingOption = "missing_option"
)

// Result describes what a vote or close request did.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
	// Votes is the tally as it stood once the request was applied, before any
	// resolution cleared it.
	Votes         map[int]int `json:"votes"`
	WinningOption *int        `json:"winningOption,omitempty"`
	Success       *bool       `json:"success,omitempty"`
	Snapshot      Snapshot    `json:"snapshot"`
}

// Engine runs every room operation against a Registry.
type Engine struct {
	registry       *Registry
	content        Content
	notifier       Notifier
	rng            *dice
	dice           Roller
	logger         *slog.Logger
	publishTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets the broadcast sink.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithSeed seeds the roller used for tie-breaks and skill checks.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.rng = newDice(seed)
		e.dice = e.rng
	}
}

// WithRoller replaces the skill-check dice; tie-breaks keep the seeded roller.
// Options apply in order, so pass it after WithSeed.
func WithRoller(r Roller) Option {
	return func(e *Engine) { e.dice = r }
}

func WithPublishTimeout(d time.Duration) Option {
	return func(e *Engine) { e.publishTimeout = d }
}

// NewEngine wires an engine. Without WithSeed the dice are seeded from crypto/rand.
func NewEngine(registry *Registry, c Content, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry:       registry,
		content:        c,
		notifier:       NopNotifier{},
		logger:         logger,
		publishTimeout: defaultPublishTimeout,
	}
	seed, err := NewSeed()
	if err != nil {
		logger.Warn("Falling back to time-based seed", "error", err)
		seed = uint64(time.Now().UnixNano())
	}
	e.rng = newDice(seed)
	e.dice = e.rng
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the room registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// RoomIDs lists the active rooms in sorted order.
func (e *Engine) RoomIDs() []string {
	return e.registry.IDs()
}

// Snapshot returns the current state of a room.
func (e *Engine) Snapshot(roomID string) (Snapshot, error) {
	st, err := e.room(roomID)
	if err != nil {
		return Snapshot{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshot(), nil
}

func (e *Engine) room(roomID string) (*State, error) {
	id := NormalizeKey(roomID)
	st, ok := e.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRoomNotFound, id)
	}
	return st, nil
}

// NormalizeKey trims and NFC-normalises room ids and player names so that
// differently composed accents map to the same key.
func NormalizeKey(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func (e *Engine) publish(ctx context.Context, event, roomID string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.publishTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		e.logger.Warn("Failed to publish room event", "event", event, "room_id", roomID, "error", err)
	}
}

func (e *Engine) publishScene(ctx context.Context, st *State) {
	snap := st.snapshot()
	e.publish(ctx, "sceneUpdate", st.ID, func(ctx context.Context) error {
		return e.notifier.PublishSceneUpdate(ctx, st.ID, snap)
	})
}

func (e *Engine) publishVotes(ctx context.Context, st *State) {
	update := st.voteUpdate()
	e.publish(ctx, "voteUpdate", st.ID, func(ctx context.Context) error {
		return e.notifier.PublishVoteUpdate(ctx, st.ID, update)
	})
}

func (e *Engine) publishLeader(ctx context.Context, st *State, leader string) {
	e.publish(ctx, "leaderSelected", st.ID, func(ctx context.Context) error {
		return e.notifier.PublishLeaderSelected(ctx, st.ID, leader)
	})
}
