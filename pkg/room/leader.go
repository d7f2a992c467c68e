package room

import (
	"context"

	"github.com/jwebster45206/story-rooms/pkg/content"
)

// leaderSelectionScene builds the election ballot: option i selects the
// player at roster position i (1-based).
func leaderSelectionScene(roster []string) *content.Scene {
	n := len(roster)
	opts := make([]content.Option, n)
	for i, name := range roster {
		opts[i] = content.Option{
			ID:   i + 1,
			Text: "Seleccionar a " + name,
		}
	}
	return &content.Scene{
		ID:      content.LeaderSelectionSceneID,
		Text:    "Elegid a vuestro Líder. Su voto contará doble.",
		MaxVote: &n,
		Options: opts,
	}
}

// selectLeader promotes the player behind the winning option and starts the
// story from its first scene. Any previous leader is demoted.
func (e *Engine) selectLeader(ctx context.Context, st *State, optionID int) {
	idx := optionID - 1
	if idx < 0 || idx >= len(st.roster) {
		e.logger.Error("Leader option out of range", "room_id", st.ID, "option", optionID, "players", len(st.roster))
	} else {
		leader := st.roster[idx]
		for _, name := range st.roster {
			st.Players[name].Type = PlayerNormal
		}
		st.Players[leader].Type = PlayerLeader
		e.logger.Info("Leader selected", "room_id", st.ID, "leader", leader)
		e.publishLeader(ctx, st, leader)
	}
	e.transition(ctx, st, e.content.FirstScene())
}
