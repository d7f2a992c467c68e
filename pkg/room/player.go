package room

import (
	"maps"

	"github.com/jwebster45206/story-rooms/pkg/content"
)

// PlayerType distinguishes the elected leader, whose votes weigh double.
type PlayerType string

const (
	PlayerNormal PlayerType = "Normal"
	PlayerLeader PlayerType = "Líder"
)

// MaxLife is the life ceiling; 0 is game over.
const MaxLife = 100

// Player is one user in a room, keyed by name.
type Player struct {
	Name             string         `json:"name"`
	Type             PlayerType     `json:"type"`
	Avatar           string         `json:"avatar,omitempty"`
	AssignedPoints   map[string]int `json:"assignedPoints"`
	XP               int            `json:"xp"`
	SkillPoints      int            `json:"skillPoints"`
	LockedAttributes map[string]int `json:"lockedAttributes"`
	Life             int            `json:"life"`
	Stress           int            `json:"stress"`
}

// PlayerStatus is the broadcast view of a player. Assigned points are private.
type PlayerStatus struct {
	Name             string         `json:"name"`
	Type             PlayerType     `json:"type"`
	XP               int            `json:"xp"`
	SkillPoints      int            `json:"skillPoints"`
	LockedAttributes map[string]int `json:"lockedAttributes"`
	Life             int            `json:"life"`
	Stress           int            `json:"stress"`
}

func newPlayer(name, avatar string, points map[string]int, initialLife int) *Player {
	p := &Player{
		Name:             name,
		Type:             PlayerNormal,
		Avatar:           avatar,
		AssignedPoints:   points,
		LockedAttributes: make(map[string]int),
		Life:             initialLife,
	}
	return p
}

// gainXP adds xp and converts every full threshold into a skill point.
func (p *Player) gainXP(amount, threshold int) {
	p.XP += amount
	for threshold > 0 && p.XP >= threshold {
		p.SkillPoints++
		p.XP -= threshold
	}
}

// applyEffects applies life and stress deltas.
// Healing is skipped at full life and capped at MaxLife; damage floors at 0.
// Relief is skipped at zero stress and floors at 0; stress gain is uncapped,
// the game-over check catches it.
func (p *Player) applyEffects(e content.Effects) {
	switch {
	case e.Life > 0:
		if p.Life < MaxLife {
			p.Life = min(p.Life+e.Life, MaxLife)
		}
	case e.Life < 0:
		p.Life = max(p.Life+e.Life, 0)
	}

	switch {
	case e.Stress < 0:
		if p.Stress > 0 {
			p.Stress = max(p.Stress+e.Stress, 0)
		}
	case e.Stress > 0:
		p.Stress += e.Stress
	}
}

func (p *Player) status() PlayerStatus {
	return PlayerStatus{
		Name:             p.Name,
		Type:             p.Type,
		XP:               p.XP,
		SkillPoints:      p.SkillPoints,
		LockedAttributes: maps.Clone(p.LockedAttributes),
		Life:             p.Life,
		Stress:           p.Stress,
	}
}

func (p *Player) clone() Player {
	cp := *p
	cp.AssignedPoints = maps.Clone(p.AssignedPoints)
	cp.LockedAttributes = maps.Clone(p.LockedAttributes)
	return cp
}
