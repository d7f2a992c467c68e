package handlers

import (
	"net/http"
	"testing"

	"github.com/jwebster45206/story-rooms/pkg/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomsHandler_Join(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"points as object", `{"playerName": "Ana", "assignedPoints": {"fisico-fuerza": 3}}`, http.StatusOK},
		{"points as string", `{"playerName": "Ana", "assignedPoints": "{\"fisico-fuerza\": 3}"}`, http.StatusOK},
		{"no points", `{"playerName": "Ana"}`, http.StatusOK},
		{"too many points", `{"playerName": "Ana", "assignedPoints": {"fisico-fuerza": 6}}`, http.StatusBadRequest},
		{"unknown skill", `{"playerName": "Ana", "assignedPoints": {"mente-saber": 1}}`, http.StatusBadRequest},
		{"broken string points", `{"playerName": "Ana", "assignedPoints": "{"}`, http.StatusBadRequest},
		{"points not an object", `{"playerName": "Ana", "assignedPoints": [1]}`, http.StatusBadRequest},
		{"missing name", `{"assignedPoints": {}}`, http.StatusBadRequest},
		{"malformed body", `{"playerName":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h := newRoomsServer(t)
			rr := do(t, h, http.MethodPost, "/v1/rooms/sala/join", tt.body)
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			if tt.wantStatus == http.StatusOK {
				snap := decode[room.Snapshot](t, rr)
				assert.Equal(t, "sala", snap.RoomID)
				assert.Equal(t, "inicio", snap.Scene.ID)
				assert.Equal(t, []string{"Ana"}, snap.Users)
			} else {
				resp := decode[ErrorResponse](t, rr)
				assert.NotEmpty(t, resp.Error)
			}
		})
	}
}

func TestRoomsHandler_VoteFlow(t *testing.T) {
	_, h := newRoomsServer(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/v1/rooms/sala/join", JoinRequest{PlayerName: "Ana"}).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/v1/rooms/sala/join", JoinRequest{PlayerName: "Beto"}).Code)

	// Election: both pick Ana.
	rr := do(t, h, http.MethodPost, "/v1/rooms/sala/vote", `{"playerName": "Ana", "optionId": 1}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[VoteResponse](t, rr)
	assert.True(t, resp.Success)
	assert.False(t, resp.Resolved)
	assert.Equal(t, map[int]int{1: 1}, resp.Votes)

	rr = do(t, h, http.MethodPost, "/v1/rooms/sala/vote", `{"playerName": "Ana", "optionId": 2}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decode[VoteResponse](t, rr)
	assert.True(t, resp.Ignored)
	assert.Equal(t, room.ReasonAlreadyVoted, resp.Reason)

	rr = do(t, h, http.MethodPost, "/v1/rooms/sala/vote", `{"playerName": "Beto", "optionId": 1}`)
	resp = decode[VoteResponse](t, rr)
	assert.True(t, resp.Resolved)
	require.NotNil(t, resp.WinningOption)
	assert.Equal(t, 1, *resp.WinningOption)
	assert.Equal(t, "inicio", resp.Room.Scene.ID)
	assert.Equal(t, room.PlayerLeader, resp.Room.Players[0].Type)

	// Invalid options are a 200 no-op.
	rr = do(t, h, http.MethodPost, "/v1/rooms/sala/vote", `{"playerName": "Beto", "optionId": 42}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decode[VoteResponse](t, rr)
	assert.True(t, resp.Ignored)
	assert.Equal(t, room.ReasonInvalidOption, resp.Reason)
}

func TestRoomsHandler_VoteErrors(t *testing.T) {
	_, h := newRoomsServer(t)
	do(t, h, http.MethodPost, "/v1/rooms/sala/join", JoinRequest{PlayerName: "Ana"})

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"unknown room", "/v1/rooms/otra/vote", `{"playerName": "Ana", "optionId": 1}`, http.StatusNotFound},
		{"unknown player", "/v1/rooms/sala/vote", `{"playerName": "Zoe", "optionId": 1}`, http.StatusNotFound},
		{"missing option", "/v1/rooms/sala/vote", `{"playerName": "Ana"}`, http.StatusBadRequest},
		{"missing player", "/v1/rooms/sala/vote", `{"optionId": 1}`, http.StatusBadRequest},
		{"option not a number", "/v1/rooms/sala/vote", `{"playerName": "Ana", "optionId": "uno"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
		})
	}
}

func TestRoomsHandler_ReadEndpoints(t *testing.T) {
	_, h := newRoomsServer(t)

	rr := do(t, h, http.MethodGet, "/v1/rooms", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[RoomListResponse](t, rr).Rooms)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/rooms/sala", nil).Code)

	do(t, h, http.MethodPost, "/v1/rooms/sala/join", `{"playerName": "Ana", "assignedPoints": {"fisico-fuerza": 2}}`)
	do(t, h, http.MethodPost, "/v1/rooms/cueva/join", `{"playerName": "Beto"}`)

	rr = do(t, h, http.MethodGet, "/v1/rooms/", nil)
	assert.Equal(t, []string{"cueva", "sala"}, decode[RoomListResponse](t, rr).Rooms)

	rr = do(t, h, http.MethodGet, "/v1/rooms/sala", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "assignedPoints", "snapshots keep allocations private")

	rr = do(t, h, http.MethodGet, "/v1/rooms/sala/players/Ana", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[room.PlayerView](t, rr)
	assert.Equal(t, 2, view.Player.AssignedPoints["fisico-fuerza"])
	assert.Len(t, view.Options, 2)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/rooms/sala/players/Zoe", nil).Code)
}

func TestRoomsHandler_EscapedNames(t *testing.T) {
	_, h := newRoomsServer(t)
	do(t, h, http.MethodPost, "/v1/rooms/sala%20uno/join", `{"playerName": "María José"}`)

	rr := do(t, h, http.MethodGet, "/v1/rooms/sala%20uno/players/Mar%C3%ADa%20Jos%C3%A9", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "sala uno", decode[room.PlayerView](t, rr).RoomID)
}

func TestRoomsHandler_Leave(t *testing.T) {
	_, h := newRoomsServer(t)
	do(t, h, http.MethodPost, "/v1/rooms/sala/join", `{"playerName": "Ana"}`)
	do(t, h, http.MethodPost, "/v1/rooms/sala/join", `{"playerName": "Beto"}`)

	rr := do(t, h, http.MethodDelete, "/v1/rooms/sala/players/Beto", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	snap := decode[room.Snapshot](t, rr)
	assert.Equal(t, []string{"Ana"}, snap.Users)
	assert.Equal(t, "inicio", snap.Scene.ID)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/v1/rooms/sala/players/Beto", nil).Code)
}

func TestRoomsHandler_Skills(t *testing.T) {
	_, h := newRoomsServer(t)
	do(t, h, http.MethodPost, "/v1/rooms/sala/join", `{"playerName": "Ana"}`)

	rr := do(t, h, http.MethodPost, "/v1/rooms/sala/skills", SkillRequest{PlayerName: "Ana", SkillKey: "fisico-fuerza"})
	assert.Equal(t, http.StatusBadRequest, rr.Code, "no skill points yet")

	rr = do(t, h, http.MethodPost, "/v1/rooms/sala/skills", SkillRequest{PlayerName: "Zoe", SkillKey: "fisico-fuerza"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodPost, "/v1/rooms/sala/skills", SkillRequest{PlayerName: "Ana", SkillKey: "magia"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRoomsHandler_Close(t *testing.T) {
	_, h := newRoomsServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/v1/rooms/sala/close", nil).Code)

	do(t, h, http.MethodPost, "/v1/rooms/sala/join", `{"playerName": "Ana"}`)
	do(t, h, http.MethodPost, "/v1/rooms/sala/join", `{"playerName": "Beto"}`)

	rr := do(t, h, http.MethodPost, "/v1/rooms/sala/close", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[VoteResponse](t, rr)
	assert.True(t, resp.Ignored)
	assert.Equal(t, room.ReasonNoVotes, resp.Reason)

	do(t, h, http.MethodPost, "/v1/rooms/sala/vote", `{"playerName": "Beto", "optionId": 2}`)
	rr = do(t, h, http.MethodPost, "/v1/rooms/sala/close", nil)
	resp = decode[VoteResponse](t, rr)
	assert.True(t, resp.Resolved)
	assert.Equal(t, room.PlayerLeader, resp.Room.Players[1].Type)
}

func TestRoomsHandler_Routing(t *testing.T) {
	_, h := newRoomsServer(t)

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodPost, "/v1/rooms", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/v1/rooms/sala", http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/rooms/sala/join", http.StatusMethodNotAllowed},
		{http.MethodPost, "/v1/rooms/sala/dance", http.StatusNotFound},
		{http.MethodPut, "/v1/rooms/sala/players/Ana", http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/rooms/sala/a/b/c", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.path, nil)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}
