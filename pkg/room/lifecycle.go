package room

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/jwebster45206/story-rooms/pkg/content"
)

// JoinRequest carries a player's entry into a room. Allocation is the
// JSON-encoded map of subskill key to invested points; empty means none.
type JoinRequest struct {
	RoomID     string
	PlayerName string
	Allocation string
	Avatar     string
}

// Join adds (or replaces) a player in a room, creating the room on first
// join. Whenever the roster holds more than one player afterwards, the room
// is switched to a fresh leader selection.
func (e *Engine) Join(ctx context.Context, req JoinRequest) (Snapshot, error) {
	roomID := NormalizeKey(req.RoomID)
	name := NormalizeKey(req.PlayerName)
	if roomID == "" {
		return Snapshot{}, fmt.Errorf("%w: room id is required", ErrInvalidInput)
	}
	if name == "" {
		return Snapshot{}, fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}

	points, err := e.parseAllocation(req.Allocation)
	if err != nil {
		return Snapshot{}, err
	}

	st, created := e.registry.GetOrCreate(roomID, e.content.FirstScene())
	if created {
		e.logger.Info("Room created", "room_id", roomID, "scene", st.Scene.ID)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	p := newPlayer(name, req.Avatar, points, e.content.Config().InitialLife)
	st.putPlayer(p)
	e.logger.Info("Player joined room", "room_id", roomID, "player", name, "players", len(st.Players))

	if len(st.Players) > 1 {
		st.Scene = leaderSelectionScene(st.roster)
		st.resetCycle()
		e.logger.Debug("Leader selection started", "room_id", roomID, "candidates", len(st.roster))
	}

	e.publishScene(ctx, st)
	return st.snapshot(), nil
}

func (e *Engine) parseAllocation(raw string) (map[string]int, error) {
	points := make(map[string]int)
	if raw == "" {
		return points, nil
	}
	if err := json.Unmarshal([]byte(raw), &points); err != nil {
		return nil, fmt.Errorf("%w: assigned points must be a JSON object of integers: %v", ErrInvalidInput, err)
	}
	if points == nil {
		points = make(map[string]int)
	}

	total := 0
	for key, v := range points {
		if v < 0 {
			return nil, fmt.Errorf("%w: negative points for %q", ErrInvalidInput, key)
		}
		if !e.content.ValidSkillKey(key) {
			return nil, fmt.Errorf("%w: unknown skill %q", ErrInvalidInput, key)
		}
		total += v
	}
	if limit := e.content.Config().MaxStartingPoints; limit > 0 && total > limit {
		return nil, fmt.Errorf("%w: %d starting points exceed the limit of %d", ErrInvalidInput, total, limit)
	}
	return points, nil
}

// Leave removes a player from a room. Their ballot for the current cycle is
// retracted. During leader selection the ballot is rebuilt for the remaining
// roster, or skipped when one player is left. Otherwise, if every remaining
// player needed for quorum has already voted, the scene resolves.
func (e *Engine) Leave(ctx context.Context, roomID, playerName string) (Snapshot, error) {
	st, err := e.room(roomID)
	if err != nil {
		return Snapshot{}, err
	}
	name := NormalizeKey(playerName)

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.Players[name]; !ok {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrPlayerNotFound, name)
	}
	st.retractVote(name)
	st.removePlayer(name)
	e.logger.Info("Player left room", "room_id", st.ID, "player", name, "players", len(st.Players))

	if st.Scene.ID == content.LeaderSelectionSceneID {
		if len(st.Players) > 1 {
			st.Scene = leaderSelectionScene(st.roster)
		} else {
			st.Scene = e.content.FirstScene()
		}
		st.resetCycle()
	} else if !st.Scene.IsEnding && len(st.UserVoted) > 0 && len(st.UserVoted) >= st.quorum() {
		winner, _ := e.tally(st)
		e.logger.Info("Quorum reached after leave", "room_id", st.ID, "winner", winner, "voters", len(st.UserVoted))
		res := e.resolveCycle(ctx, st, winner, maps.Clone(st.Votes))
		return res.Snapshot, nil
	}

	e.publishScene(ctx, st)
	return st.snapshot(), nil
}

// OptionView is an option of the current scene as one player sees it.
type OptionView struct {
	ID     int            `json:"id"`
	Text   string         `json:"text"`
	Access content.Access `json:"access"`
}

// PlayerView is the private view of a player: full sheet plus the current
// scene's options with advisory accessibility.
type PlayerView struct {
	RoomID  string       `json:"roomId"`
	Player  Player       `json:"player"`
	SceneID string       `json:"sceneId"`
	Voted   bool         `json:"voted"`
	Options []OptionView `json:"options"`
}

// Player returns the private view of one player.
func (e *Engine) Player(roomID, playerName string) (PlayerView, error) {
	st, err := e.room(roomID)
	if err != nil {
		return PlayerView{}, err
	}
	name := NormalizeKey(playerName)

	st.mu.Lock()
	defer st.mu.Unlock()

	p, ok := st.Players[name]
	if !ok {
		return PlayerView{}, fmt.Errorf("%w: %q", ErrPlayerNotFound, name)
	}
	return st.playerView(p), nil
}

func (st *State) playerView(p *Player) PlayerView {
	view := PlayerView{
		RoomID:  st.ID,
		Player:  p.clone(),
		SceneID: st.Scene.ID,
		Voted:   st.hasVoted(p.Name),
		Options: make([]OptionView, 0, len(st.Scene.Options)),
	}
	for i := range st.Scene.Options {
		opt := &st.Scene.Options[i]
		view.Options = append(view.Options, OptionView{
			ID:     opt.ID,
			Text:   opt.Text,
			Access: opt.Accessibility(p.LockedAttributes),
		})
	}
	return view
}

// SpendSkillPoint moves one skill point into the given subskill.
func (e *Engine) SpendSkillPoint(ctx context.Context, roomID, playerName, key string) (PlayerView, error) {
	st, err := e.room(roomID)
	if err != nil {
		return PlayerView{}, err
	}
	name := NormalizeKey(playerName)

	st.mu.Lock()
	defer st.mu.Unlock()

	p, ok := st.Players[name]
	if !ok {
		return PlayerView{}, fmt.Errorf("%w: %q", ErrPlayerNotFound, name)
	}
	if !e.content.ValidSkillKey(key) {
		return PlayerView{}, fmt.Errorf("%w: unknown skill %q", ErrInvalidInput, key)
	}
	if p.SkillPoints <= 0 {
		return PlayerView{}, fmt.Errorf("%w: %q has none", ErrNoSkillPoints, name)
	}

	p.SkillPoints--
	p.AssignedPoints[key]++
	e.logger.Info("Skill point spent", "room_id", st.ID, "player", name, "skill", key, "points", p.AssignedPoints[key])

	e.publishScene(ctx, st)
	return st.playerView(p), nil
}
