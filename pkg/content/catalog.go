package content

import (
	"errors"
	"fmt"
)

// ErrInvalidDocument is wrapped by every validation failure.
var ErrInvalidDocument = errors.New("invalid content document")

// Catalog is the read-only, indexed view of a validated Document.
type Catalog struct {
	doc       *Document
	config    GameConfig
	scenes    map[string]*Scene
	subskills map[string]bool
}

// NewCatalog validates doc and indexes it.
func NewCatalog(doc *Document) (*Catalog, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	cfg, err := doc.Config()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	c := &Catalog{
		doc:       doc,
		config:    cfg,
		scenes:    builtinGameOverScenes(),
		subskills: make(map[string]bool),
	}
	for i := range doc.Scenes {
		c.scenes[doc.Scenes[i].ID] = &doc.Scenes[i]
	}
	for _, skill := range doc.Skills {
		for _, sub := range skill.Subskills {
			c.subskills[SubskillKey(skill.ID, sub.ID)] = true
		}
	}
	return c, nil
}

// Config returns the resolved tunables.
func (c *Catalog) Config() GameConfig {
	return c.config
}

// FirstScene is the entry point of the story: the first scene in document order.
func (c *Catalog) FirstScene() *Scene {
	return &c.doc.Scenes[0]
}

// Scene looks up a scene by id, including the built-in game-over scenes.
func (c *Catalog) Scene(id string) (*Scene, bool) {
	s, ok := c.scenes[id]
	return s, ok
}

// ValidSkillKey reports whether key names a known subskill. A catalog that
// defines no skills accepts any non-empty key.
func (c *Catalog) ValidSkillKey(key string) bool {
	if key == "" {
		return false
	}
	if len(c.subskills) == 0 {
		return true
	}
	return c.subskills[key]
}

// Skills returns the skill tree.
func (c *Catalog) Skills() []Skill {
	return c.doc.Skills
}

// VisibleAttributes returns the attributes players may see. Hidden
// attributes are only revealed through a player's own locked attributes.
func (c *Catalog) VisibleAttributes() []Attribute {
	out := make([]Attribute, 0, len(c.doc.Attributes))
	for _, attr := range c.doc.Attributes {
		if !attr.Hidden {
			out = append(out, attr)
		}
	}
	return out
}

// SceneCount is the number of authored scenes.
func (c *Catalog) SceneCount() int {
	return len(c.doc.Scenes)
}

// Validate checks the document's structural rules and returns every problem
// found, joined, each wrapping ErrInvalidDocument.
func (d *Document) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidDocument, fmt.Sprintf(format, args...)))
	}

	cfg, err := d.Config()
	if err != nil {
		fail("%v", err)
	}
	if cfg.XPThreshold <= 0 {
		fail("xpThreshold must be positive, got %d", cfg.XPThreshold)
	}
	if cfg.StressThreshold <= 0 {
		fail("stressThreshold must be positive, got %d", cfg.StressThreshold)
	}
	if cfg.InitialLife <= 0 || cfg.InitialLife > 100 {
		fail("initialLife must be within 1..100, got %d", cfg.InitialLife)
	}
	if cfg.MaxStartingPoints < 0 {
		fail("maxStartingPoints cannot be negative, got %d", cfg.MaxStartingPoints)
	}

	subskills := make(map[string]bool)
	for _, skill := range d.Skills {
		if skill.ID == "" {
			fail("skill %q has no id", skill.Name)
		}
		for _, sub := range skill.Subskills {
			key := SubskillKey(skill.ID, sub.ID)
			if subskills[key] {
				fail("duplicate subskill key %q", key)
			}
			subskills[key] = true
		}
	}

	if len(d.Scenes) == 0 {
		fail("at least one scene is required")
		return errors.Join(errs...)
	}

	ids := map[string]bool{
		GameOverLifeSceneID:   true,
		GameOverStressSceneID: true,
	}
	authored := make(map[string]bool)
	for _, s := range d.Scenes {
		switch {
		case s.ID == "":
			fail("scene with empty id")
		case s.ID == LeaderSelectionSceneID:
			fail("scene id %q is reserved", s.ID)
		case authored[s.ID]:
			fail("duplicate scene id %q", s.ID)
		case (s.ID == GameOverLifeSceneID || s.ID == GameOverStressSceneID) && !s.IsEnding:
			fail("scene %q must be an ending", s.ID)
		}
		authored[s.ID] = true
		ids[s.ID] = true
	}

	for _, s := range d.Scenes {
		if s.MaxVote != nil && *s.MaxVote < 1 {
			fail("scene %q: maxVote must be at least 1", s.ID)
		}
		if !s.IsEnding && len(s.Options) == 0 {
			fail("scene %q: non-ending scene has no options", s.ID)
		}
		seen := make(map[int]bool)
		for _, o := range s.Options {
			if seen[o.ID] {
				fail("scene %q: duplicate option id %d", s.ID, o.ID)
			}
			seen[o.ID] = true

			if !s.IsEnding && o.NextSceneID.Success == "" {
				fail("scene %q option %d: nextSceneId.success is required", s.ID, o.ID)
			}
			for _, next := range []string{o.NextSceneID.Success, o.NextSceneID.Failure, o.NextSceneID.Partial} {
				if next != "" && !ids[next] {
					fail("scene %q option %d: unknown next scene %q", s.ID, o.ID, next)
				}
			}
			if o.Roll != nil {
				if o.Roll.SkillUsed == "" {
					fail("scene %q option %d: roll.skillUsed is required", s.ID, o.ID)
				} else if len(subskills) > 0 && !subskills[o.Roll.SkillUsed] {
					fail("scene %q option %d: unknown skill %q", s.ID, o.ID, o.Roll.SkillUsed)
				}
				if o.Roll.Difficulty <= 0 {
					fail("scene %q option %d: roll.difficulty must be positive", s.ID, o.ID)
				}
				if o.NextSceneID.Failure == "" {
					fail("scene %q option %d: a roll needs nextSceneId.failure", s.ID, o.ID)
				}
			}
			if o.ExpOnSuccess < 0 {
				fail("scene %q option %d: expOnSuccess cannot be negative", s.ID, o.ID)
			}
			if inc := o.LockedAttributeIncrement; inc != nil && inc.Attribute == "" {
				fail("scene %q option %d: lockedAttributeIncrement.attribute is required", s.ID, o.ID)
			}
			for _, req := range o.Requirements {
				if req.Attribute == "" {
					fail("scene %q option %d: requirement without attribute", s.ID, o.ID)
				}
				if req.Policy != PolicyHide && req.Policy != PolicyDisable {
					fail("scene %q option %d: requirement policy %q must be %q or %q", s.ID, o.ID, req.Policy, PolicyHide, PolicyDisable)
				}
			}
		}
	}

	return errors.Join(errs...)
}
