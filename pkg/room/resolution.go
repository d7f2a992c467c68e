package room

import (
	"context"

	"github.com/jwebster45206/story-rooms/pkg/content"
)

// resolve applies the winning option of a narrative scene. ok is false when
// the option does not exist, in which case nothing changed.
func (e *Engine) resolve(ctx context.Context, st *State, optionID int) (success, ok bool) {
	opt := st.Scene.Option(optionID)
	if opt == nil {
		e.logger.Error("Winning option missing from scene", "room_id", st.ID, "scene", st.Scene.ID, "option", optionID)
		return false, false
	}

	success = e.skillCheck(st, opt)
	cfg := e.content.Config()

	if success && opt.ExpOnSuccess > 0 {
		for _, name := range st.roster {
			st.Players[name].gainXP(opt.ExpOnSuccess, cfg.XPThreshold)
		}
	}

	effects := opt.FailureEffects
	if success {
		effects = opt.SuccessEffects
	}
	if effects != nil {
		for _, name := range st.UserVoted {
			if p, ok := st.Players[name]; ok {
				p.applyEffects(*effects)
			}
		}
	}

	e.logger.Info("Scene resolved", "room_id", st.ID, "scene", st.Scene.ID, "option", optionID, "success", success)

	nextID := opt.NextSceneID.Failure
	if success {
		nextID = opt.NextSceneID.Success
	}
	if over := gameOverSceneID(st, cfg.StressThreshold); over != "" {
		nextID = over
	}

	next, found := e.content.Scene(nextID)
	if !found {
		e.logger.Error("Next scene not found, restarting vote", "room_id", st.ID, "scene", st.Scene.ID, "next", nextID)
		st.resetCycle()
		e.publishScene(ctx, st)
		return success, true
	}
	e.transition(ctx, st, next)
	return success, true
}

// skillCheck rolls 2d6 plus the skill for each voter in voting order; the
// first voter to reach the difficulty makes the whole room succeed.
func (e *Engine) skillCheck(st *State, opt *content.Option) bool {
	if opt.Roll == nil {
		return true
	}
	for _, name := range st.UserVoted {
		p, ok := st.Players[name]
		if !ok {
			continue
		}
		skill := p.AssignedPoints[opt.Roll.SkillUsed]
		out, err := e.dice.Roll(2, 6, map[string]int{opt.Roll.SkillUsed: skill})
		if err != nil {
			e.logger.Error("Skill check roll failed", "room_id", st.ID, "player", name, "error", err)
			continue
		}
		total := out.Value
		e.logger.Debug("Skill check", "room_id", st.ID, "player", name, "skill", opt.Roll.SkillUsed,
			"dice", out.DiceRolls, "bonus", skill, "total", total, "difficulty", opt.Roll.Difficulty)
		if total >= opt.Roll.Difficulty {
			return true
		}
	}
	return false
}

// gameOverSceneID checks every player: life runs out before stress does.
func gameOverSceneID(st *State, stressThreshold int) string {
	for _, name := range st.roster {
		if st.Players[name].Life <= 0 {
			return content.GameOverLifeSceneID
		}
	}
	for _, name := range st.roster {
		if st.Players[name].Stress >= stressThreshold {
			return content.GameOverStressSceneID
		}
	}
	return ""
}

// transition moves the room to next. Only a non-ending scene opens a new
// voting cycle; an ending keeps the final tally on display.
func (e *Engine) transition(ctx context.Context, st *State, next *content.Scene) {
	prev := st.Scene.ID
	st.Scene = next
	if !next.IsEnding {
		st.resetCycle()
	}
	e.logger.Info("Scene transition", "room_id", st.ID, "from", prev, "to", next.ID, "ending", next.IsEnding)
	e.publishScene(ctx, st)
}
