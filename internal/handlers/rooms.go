package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jwebster45206/story-rooms/pkg/room"
)

// RoomService is the room engine as seen by the HTTP layer.
type RoomService interface {
	Join(ctx context.Context, req room.JoinRequest) (room.Snapshot, error)
	Vote(ctx context.Context, roomID, playerName string, optionID int) (room.Result, error)
	CloseVoting(ctx context.Context, roomID string) (room.Result, error)
	SpendSkillPoint(ctx context.Context, roomID, playerName, key string) (room.PlayerView, error)
	Leave(ctx context.Context, roomID, playerName string) (room.Snapshot, error)
	Player(roomID, playerName string) (room.PlayerView, error)
	Snapshot(roomID string) (room.Snapshot, error)
	RoomIDs() []string
}

// JoinRequest is the body of POST /v1/rooms/{roomID}/join.
// AssignedPoints may be a JSON object or a JSON-encoded string of one.
type JoinRequest struct {
	PlayerName     string          `json:"playerName"`
	AssignedPoints json.RawMessage `json:"assignedPoints,omitempty"`
	Avatar         string          `json:"avatar,omitempty"`
}

// allocation returns the assigned points as the JSON text the engine parses.
func (req JoinRequest) allocation() (string, error) {
	raw := bytes.TrimSpace(req.AssignedPoints)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(raw), nil
}

type VoteRequest struct {
	PlayerName string `json:"playerName"`
	OptionID   *int   `json:"optionId"`
}

type SkillRequest struct {
	PlayerName string `json:"playerName"`
	SkillKey   string `json:"skillKey"`
}

// VoteResponse reports what a vote or close request did. Success means the
// request was processed; Ignored marks a silent no-op.
type VoteResponse struct {
	Success       bool          `json:"success"`
	Votes         map[int]int   `json:"votes"`
	Ignored       bool          `json:"ignored,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Resolved      bool          `json:"resolved"`
	WinningOption *int          `json:"winningOption,omitempty"`
	RollSucceeded *bool         `json:"rollSucceeded,omitempty"`
	Room          room.Snapshot `json:"room"`
}

type RoomListResponse struct {
	Rooms []string `json:"rooms"`
}

type RoomsHandler struct {
	rooms  RoomService
	logger *slog.Logger
}

func NewRoomsHandler(rooms RoomService, logger *slog.Logger) *RoomsHandler {
	return &RoomsHandler{
		rooms:  rooms,
		logger: logger,
	}
}

// ServeHTTP routes room requests.
// Routes:
// GET    /v1/rooms                          - List active rooms
// GET    /v1/rooms/{roomID}                 - Room snapshot
// POST   /v1/rooms/{roomID}/join            - Join (or rejoin) a room
// POST   /v1/rooms/{roomID}/vote            - Vote on the current scene
// POST   /v1/rooms/{roomID}/skills          - Spend a skill point
// POST   /v1/rooms/{roomID}/close           - Resolve with the votes cast so far
// GET    /v1/rooms/{roomID}/players/{name}  - Private player view
// DELETE /v1/rooms/{roomID}/players/{name}  - Leave the room
func (h *RoomsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	parts, err := pathSegments(r.URL.EscapedPath(), "/v1/rooms")
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid path encoding")
		return
	}

	switch {
	case len(parts) == 0:
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, h.logger, http.MethodGet)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, RoomListResponse{Rooms: h.rooms.RoomIDs()})

	case len(parts) == 1:
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, h.logger, http.MethodGet)
			return
		}
		h.handleSnapshot(w, parts[0])

	case len(parts) == 2:
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, h.logger, http.MethodPost)
			return
		}
		switch parts[1] {
		case "join":
			h.handleJoin(w, r, parts[0])
		case "vote":
			h.handleVote(w, r, parts[0])
		case "skills":
			h.handleSkill(w, r, parts[0])
		case "close":
			h.handleClose(w, r, parts[0])
		default:
			writeError(w, h.logger, http.StatusNotFound, "Unknown room action")
		}

	case len(parts) == 3 && parts[1] == "players":
		switch r.Method {
		case http.MethodGet:
			h.handlePlayer(w, parts[0], parts[2])
		case http.MethodDelete:
			h.handleLeave(w, r, parts[0], parts[2])
		default:
			writeMethodNotAllowed(w, h.logger, http.MethodGet, http.MethodDelete)
		}

	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *RoomsHandler) handleSnapshot(w http.ResponseWriter, roomID string) {
	snap, err := h.rooms.Snapshot(roomID)
	if err != nil {
		h.writeRoomError(w, err, "room_id", roomID)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, snap)
}

func (h *RoomsHandler) handleJoin(w http.ResponseWriter, r *http.Request, roomID string) {
	var req JoinRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}
	allocation, err := req.allocation()
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "assignedPoints must be an object or a JSON string")
		return
	}

	snap, err := h.rooms.Join(r.Context(), room.JoinRequest{
		RoomID:     roomID,
		PlayerName: req.PlayerName,
		Allocation: allocation,
		Avatar:     req.Avatar,
	})
	if err != nil {
		h.writeRoomError(w, err, "room_id", roomID, "player", req.PlayerName)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, snap)
}

func (h *RoomsHandler) handleVote(w http.ResponseWriter, r *http.Request, roomID string) {
	var req VoteRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}
	if strings.TrimSpace(req.PlayerName) == "" || req.OptionID == nil {
		writeError(w, h.logger, http.StatusBadRequest, "playerName and optionId are required")
		return
	}

	res, err := h.rooms.Vote(r.Context(), roomID, req.PlayerName, *req.OptionID)
	if err != nil {
		h.writeRoomError(w, err, "room_id", roomID, "player", req.PlayerName)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, voteResponse(res))
}

func (h *RoomsHandler) handleClose(w http.ResponseWriter, r *http.Request, roomID string) {
	res, err := h.rooms.CloseVoting(r.Context(), roomID)
	if err != nil {
		h.writeRoomError(w, err, "room_id", roomID)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, voteResponse(res))
}

func (h *RoomsHandler) handleSkill(w http.ResponseWriter, r *http.Request, roomID string) {
	var req SkillRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}
	view, err := h.rooms.SpendSkillPoint(r.Context(), roomID, req.PlayerName, req.SkillKey)
	if err != nil {
		h.writeRoomError(w, err, "room_id", roomID, "player", req.PlayerName, "skill", req.SkillKey)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, view)
}

func (h *RoomsHandler) handlePlayer(w http.ResponseWriter, roomID, name string) {
	view, err := h.rooms.Player(roomID, name)
	if err != nil {
		h.writeRoomError(w, err, "room_id", roomID, "player", name)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, view)
}

func (h *RoomsHandler) handleLeave(w http.ResponseWriter, r *http.Request, roomID, name string) {
	snap, err := h.rooms.Leave(r.Context(), roomID, name)
	if err != nil {
		h.writeRoomError(w, err, "room_id", roomID, "player", name)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, snap)
}

func (h *RoomsHandler) writeRoomError(w http.ResponseWriter, err error, attrs ...any) {
	switch {
	case room.IsNotFound(err):
		h.logger.Debug("Room lookup failed", append(attrs, "error", err)...)
		writeError(w, h.logger, http.StatusNotFound, err.Error())
	case room.IsInvalid(err):
		h.logger.Debug("Rejected room request", append(attrs, "error", err)...)
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Room operation failed", append(attrs, "error", err)...)
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
	}
}

func voteResponse(res room.Result) VoteResponse {
	return VoteResponse{
		Success:       true,
		Votes:         res.Votes,
		Ignored:       res.Outcome == room.OutcomeIgnored,
		Reason:        res.Reason,
		Resolved:      res.Outcome == room.OutcomeResolved,
		WinningOption: res.WinningOption,
		RollSucceeded: res.Success,
		Room:          res.Snapshot,
	}
}

// pathSegments splits an escaped path below prefix into unescaped segments.
func pathSegments(escapedPath, prefix string) ([]string, error) {
	rest := strings.Trim(strings.TrimPrefix(escapedPath, prefix), "/")
	if rest == "" {
		return nil, nil
	}
	raw := strings.Split(rest, "/")
	parts := make([]string, len(raw))
	for i, p := range raw {
		s, err := url.PathUnescape(p)
		if err != nil {
			return nil, err
		}
		if s == "" {
			return nil, errors.New("empty path segment")
		}
		parts[i] = s
	}
	return parts, nil
}
