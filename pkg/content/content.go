// Package content models the static game document: tunable parameters, the
// skill and attribute catalog, and the branching scene graph.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Document is the on-disk shape of a game content file.
type Document struct {
	GameConfig []ConfigEntry `json:"gameConfig"`
	Skills     []Skill       `json:"skills"`
	Attributes []Attribute   `json:"attributes"`
	Scenes     []Scene       `json:"scenes"`
}

// ConfigEntry is a single tunable. Values are numbers for every known key
// except initialMusic.
type ConfigEntry struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value"`
}

// Skill groups subskills; players invest points per subskill.
type Skill struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Subskills []Subskill `json:"subskills"`
}

type Subskill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Attribute is a player attribute. Hidden attributes are only raised by
// locked-attribute increments and gate options through requirements.
type Attribute struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Hidden bool   `json:"hidden,omitempty"`
}

// SubskillKey builds the composite key used in assigned points and rolls.
func SubskillKey(skillID, subskillID string) string {
	return skillID + "-" + subskillID
}

// GameConfig is the typed view of Document.GameConfig.
type GameConfig struct {
	MaxStartingPoints int    `json:"maxStartingPoints"`
	InitialLife       int    `json:"initialLife"`
	StressThreshold   int    `json:"stressThreshold"`
	XPThreshold       int    `json:"xpThreshold"`
	InitialMusic      string `json:"initialMusic,omitempty"`
}

// DefaultGameConfig is used for any tunable the document leaves out.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		MaxStartingPoints: 10,
		InitialLife:       100,
		StressThreshold:   100,
		XPThreshold:       100,
	}
}

// Decode reads a content document. With strict set, unknown fields are rejected.
func Decode(r io.Reader, strict bool) (*Document, error) {
	dec := json.NewDecoder(r)
	if strict {
		dec.DisallowUnknownFields()
	}
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode content document: %w", err)
	}
	return &doc, nil
}

// Parse decodes and validates a document and returns its catalog.
func Parse(data []byte) (*Catalog, error) {
	doc, err := Decode(bytes.NewReader(data), false)
	if err != nil {
		return nil, err
	}
	return NewCatalog(doc)
}

// Config resolves the gameConfig entries over the defaults.
func (d *Document) Config() (GameConfig, error) {
	cfg := DefaultGameConfig()
	for _, entry := range d.GameConfig {
		var target *int
		switch entry.ID {
		case "maxStartingPoints":
			target = &cfg.MaxStartingPoints
		case "initialLife":
			target = &cfg.InitialLife
		case "stressThreshold":
			target = &cfg.StressThreshold
		case "xpThreshold":
			target = &cfg.XPThreshold
		case "initialMusic":
			var s string
			if err := json.Unmarshal(entry.Value, &s); err != nil {
				return cfg, fmt.Errorf("gameConfig %q: expected a string: %w", entry.ID, err)
			}
			cfg.InitialMusic = s
			continue
		default:
			// Unknown tunables belong to the presentation layer.
			continue
		}
		n, err := intValue(entry.Value)
		if err != nil {
			return cfg, fmt.Errorf("gameConfig %q: %w", entry.ID, err)
		}
		*target = n
	}
	return cfg, nil
}

// intValue accepts a JSON number or a numeric string; authoring tools emit both.
func intValue(raw json.RawMessage) (int, error) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("expected a number, got %s", string(raw))
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("expected a number, got %q", s)
	}
	return v, nil
}
