package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jwebster45206/story-rooms/pkg/content"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <game.json> [more.json...]\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		validator := &ContentValidator{}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		for _, w := range validator.warnings {
			fmt.Println(w)
		}
		fmt.Printf("%s is valid!\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

type ContentValidator struct {
	errors   []string
	warnings []string
}

func (v *ContentValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	if !strings.HasSuffix(filename, ".json") {
		return fmt.Errorf("content file must have .json extension: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return v.validate(filename, data)
}

func (v *ContentValidator) validate(filename string, data []byte) error {
	v.errors = nil
	v.warnings = nil

	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	doc, err := content.Decode(bytes.NewReader(data), true)
	if err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	if err := doc.Validate(); err != nil {
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				v.addError(e.Error())
			}
		} else {
			v.addError(err.Error())
		}
	}
	v.lintIDs(doc)
	v.checkReachability(doc)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

// lintIDs rejects skill ids that would make subskill keys ambiguous.
func (v *ContentValidator) lintIDs(doc *content.Document) {
	for _, skill := range doc.Skills {
		if strings.Contains(skill.ID, "-") {
			v.addError(fmt.Sprintf("skill id '%s' must not contain '-'", skill.ID))
		}
		for _, sub := range skill.Subskills {
			if sub.ID == "" {
				v.addError(fmt.Sprintf("skill '%s' has a subskill without id", skill.ID))
			}
		}
	}
	for _, attr := range doc.Attributes {
		if attr.ID == "" {
			v.addError(fmt.Sprintf("attribute '%s' has no id", attr.Name))
		}
	}
}

// checkReachability warns about scenes no path from the first scene leads to.
func (v *ContentValidator) checkReachability(doc *content.Document) {
	if len(doc.Scenes) == 0 {
		return
	}
	byID := make(map[string]*content.Scene, len(doc.Scenes))
	for i := range doc.Scenes {
		byID[doc.Scenes[i].ID] = &doc.Scenes[i]
	}

	seen := map[string]bool{doc.Scenes[0].ID: true}
	queue := []string{doc.Scenes[0].ID}
	for len(queue) > 0 {
		s := byID[queue[0]]
		queue = queue[1:]
		if s == nil {
			continue
		}
		for _, o := range s.Options {
			for _, next := range []string{o.NextSceneID.Success, o.NextSceneID.Failure, o.NextSceneID.Partial} {
				if next != "" && !seen[next] {
					seen[next] = true
					queue = append(queue, next)
				}
			}
		}
	}

	for _, s := range doc.Scenes {
		if seen[s.ID] || s.ID == content.GameOverLifeSceneID || s.ID == content.GameOverStressSceneID {
			continue
		}
		v.warnings = append(v.warnings, fmt.Sprintf("  ! scene '%s' is unreachable from '%s'", s.ID, doc.Scenes[0].ID))
	}
}

func (v *ContentValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}
