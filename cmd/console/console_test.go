package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jwebster45206/story-rooms/pkg/content"
	"github.com/jwebster45206/story-rooms/pkg/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEvents(t *testing.T) {
	stream := ": keepalive\n\n" +
		"event: connected\ndata: {\"room_id\":\"r1\"}\n\n" +
		"event: voteUpdate\ndata: {\"votes\":{\"1\":2},\"userVoted\":[\"ana\"]}\n\n"

	events := make(chan StreamEvent, 4)
	require.NoError(t, readEvents(t.Context(), strings.NewReader(stream), events))
	close(events)

	var got []StreamEvent
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "connected", got[0].Type)
	assert.Equal(t, "voteUpdate", got[1].Type)
	assert.Equal(t, "1 player(s) have voted", describeEvent(got[1]))
}

func TestAPIClient_VoteAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.EscapedPath() {
		case "/v1/rooms/sala%201/vote":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "ana", body["playerName"])
			assert.EqualValues(t, 2, body["optionId"])
			_, _ = w.Write([]byte(`{"success":true,"votes":{"2":1},"resolved":false,"room":{"roomId":"sala 1"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"room not found"}`))
		}
	}))
	defer srv.Close()

	api := newAPIClient(srv.URL+"/", srv.Client())

	resp, err := api.vote(t.Context(), "sala 1", "ana", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Votes[2])
	assert.Equal(t, "sala 1", resp.Room.RoomID)
	assert.Equal(t, "Vote recorded", describeVote(resp))

	_, err = api.snapshot(t.Context(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "room not found")
}

func TestLoadConsoleConfig(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://api:9000")
	t.Setenv("ROOM_ID", "")
	t.Setenv("PLAYER_NAME", "ana")
	t.Setenv("ASSIGNED_POINTS", "fisico-fuerza:3,mente-astucia:2")

	cfg, err := loadConsoleConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://api:9000", cfg.APIBaseURL)
	assert.Equal(t, "ana", cfg.PlayerName)
	assert.True(t, strings.HasPrefix(cfg.RoomID, "sala-"))
	assert.Equal(t, map[string]int{"fisico-fuerza": 3, "mente-astucia": 2}, cfg.AssignedPoints)
}

func TestDescribeVote(t *testing.T) {
	two := 2
	yes, no := true, false

	tests := []struct {
		resp VoteResponse
		want string
	}{
		{VoteResponse{Ignored: true, Reason: "already voted"}, "Vote ignored: already voted"},
		{VoteResponse{Resolved: true}, "Voting closed"},
		{VoteResponse{Resolved: true, WinningOption: &two}, "Option 2 wins"},
		{VoteResponse{Resolved: true, WinningOption: &two, RollSucceeded: &yes}, "Option 2 wins: the roll succeeded"},
		{VoteResponse{Resolved: true, WinningOption: &two, RollSucceeded: &no}, "Option 2 wins: the roll failed"},
	}
	for _, tt := range tests {
		if got := describeVote(&tt.resp); got != tt.want {
			t.Errorf("describeVote() = %q, want %q", got, tt.want)
		}
	}
}

func TestWriteSceneSkipsHiddenOptions(t *testing.T) {
	snap := &room.Snapshot{
		RoomID: "r1",
		Scene: &content.Scene{ID: "muelle", Text: "La niebla cubre el muelle.", Options: []content.Option{
			{ID: 1, Text: "Subir al barco"},
			{ID: 2, Text: "Sobornar al guardia"},
		}},
		Votes: map[int]int{1: 2},
	}
	view := &room.PlayerView{
		SceneID: "muelle",
		Options: []room.OptionView{
			{ID: 1, Text: "Subir al barco", Access: content.AccessOpen},
			{ID: 2, Text: "Sobornar al guardia", Access: content.AccessHidden},
		},
	}

	out := writeScene(snap, view, []string{"joined"}, nil, 60)
	assert.Contains(t, out, "Subir al barco")
	assert.Contains(t, out, "[2]")
	assert.NotContains(t, out, "Sobornar")
	assert.Contains(t, out, "joined")
}
