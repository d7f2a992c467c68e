package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jwebster45206/story-rooms/pkg/content"
)

// ErrContentNotFound is returned when the content document does not exist.
var ErrContentNotFound = errors.New("content document not found")

// ContentStore loads the game content document from the filesystem.
type ContentStore struct {
	path   string
	logger *slog.Logger
}

func NewContentStore(path string, logger *slog.Logger) *ContentStore {
	if path == "" {
		path = "./data/game.json"
	}
	return &ContentStore{
		path:   path,
		logger: logger,
	}
}

func (s *ContentStore) Path() string {
	return s.path
}

// Load reads, validates and indexes the content document.
func (s *ContentStore) Load(ctx context.Context) (*content.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.logger.Debug("Loading content", "path", s.path)

	file, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrContentNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read content file: %w", err)
	}

	doc, err := content.Decode(bytes.NewReader(file), false)
	if err != nil {
		return nil, err
	}
	catalog, err := content.NewCatalog(doc)
	if err != nil {
		return nil, fmt.Errorf("content %s: %w", s.path, err)
	}

	s.logger.Info("Content loaded",
		"path", s.path,
		"scenes", catalog.SceneCount(),
		"skills", len(catalog.Skills()),
		"first_scene", catalog.FirstScene().ID)
	return catalog, nil
}
