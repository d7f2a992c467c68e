package content

// Reserved scene ids. The game-over scenes may be defined in the content
// document; when they are not, the catalog supplies built-in endings.
// LeaderSelectionSceneID is synthesised by rooms and may not be authored.
const (
	GameOverLifeSceneID    = "gameOverLife"
	GameOverStressSceneID  = "gameOverStress"
	LeaderSelectionSceneID = "leaderSelection"
)

// Scene is a single node of the branching story graph. Scenes are immutable
// once loaded and are shared by reference between rooms.
type Scene struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	IsEnding bool     `json:"isEnding,omitempty"`
	MaxVote  *int     `json:"maxVote,omitempty"` // Quorum override, capped by the room's player count
	Music    string   `json:"music,omitempty"`
	Options  []Option `json:"options"`
}

// Option is a votable choice within a scene.
type Option struct {
	ID                       int                 `json:"id"`
	Text                     string              `json:"text"`
	NextSceneID              NextScene           `json:"nextSceneId"`
	Roll                     *Roll               `json:"roll,omitempty"`
	ExpOnSuccess             int                 `json:"expOnSuccess,omitempty"`
	LockedAttributeIncrement *AttributeIncrement `json:"lockedAttributeIncrement,omitempty"`
	Requirements             []Requirement       `json:"requirements,omitempty"`
	SuccessEffects           *Effects            `json:"successEffects,omitempty"`
	FailureEffects           *Effects            `json:"failureEffects,omitempty"`
}

// NextScene holds the scene ids reached from an option. Partial is only
// consulted by the advisory accessibility evaluation.
type NextScene struct {
	Success string `json:"success"`
	Failure string `json:"failure,omitempty"`
	Partial string `json:"partial,omitempty"`
}

// Roll is a skill check: 2d6 plus the voter's points in SkillUsed against Difficulty.
type Roll struct {
	SkillUsed  string `json:"skillUsed"`
	Difficulty int    `json:"difficulty"`
}

// AttributeIncrement raises a hidden attribute on every player in the room.
type AttributeIncrement struct {
	Attribute string `json:"attribute"`
	Increment int    `json:"increment"`
}

// Effects are life and stress deltas applied to the players who voted.
type Effects struct {
	Life   int `json:"life,omitempty"`
	Stress int `json:"stress,omitempty"`
}

// Option returns the option with the given id, or nil.
func (s *Scene) Option(id int) *Option {
	if s == nil {
		return nil
	}
	for i := range s.Options {
		if s.Options[i].ID == id {
			return &s.Options[i]
		}
	}
	return nil
}

// HasOption reports whether id is one of the scene's option ids.
func (s *Scene) HasOption(id int) bool {
	return s.Option(id) != nil
}

func builtinGameOverScenes() map[string]*Scene {
	return map[string]*Scene{
		GameOverLifeSceneID: {
			ID:       GameOverLifeSceneID,
			Text:     "Vuestras fuerzas se agotan. La historia termina aquí.",
			IsEnding: true,
		},
		GameOverStressSceneID: {
			ID:       GameOverStressSceneID,
			Text:     "La tensión os supera. La historia termina aquí.",
			IsEnding: true,
		},
	}
}
