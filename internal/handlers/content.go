package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/story-rooms/pkg/content"
)

// ContentCatalog is the part of the content catalog clients may read.
type ContentCatalog interface {
	Config() content.GameConfig
	Skills() []content.Skill
	VisibleAttributes() []content.Attribute
}

// ContentResponse is what a client needs to build a character sheet. The
// scene graph stays on the server.
type ContentResponse struct {
	GameConfig content.GameConfig  `json:"gameConfig"`
	Skills     []content.Skill     `json:"skills"`
	Attributes []content.Attribute `json:"attributes"`
}

type ContentHandler struct {
	catalog ContentCatalog
	logger  *slog.Logger
}

func NewContentHandler(catalog ContentCatalog, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// ServeHTTP handles GET /v1/content
func (h *ContentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, h.logger, http.MethodGet)
		return
	}

	skills := h.catalog.Skills()
	if skills == nil {
		skills = []content.Skill{}
	}
	writeJSON(w, h.logger, http.StatusOK, ContentResponse{
		GameConfig: h.catalog.Config(),
		Skills:     skills,
		Attributes: h.catalog.VisibleAttributes(),
	})
}
