package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jwebster45206/story-rooms/pkg/content"
	"github.com/jwebster45206/story-rooms/pkg/room"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// ContentResponse mirrors GET /v1/content.
type ContentResponse struct {
	GameConfig content.GameConfig  `json:"gameConfig"`
	Skills     []content.Skill     `json:"skills"`
	Attributes []content.Attribute `json:"attributes"`
}

// VoteResponse mirrors the vote and close endpoints.
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

// StreamEvent is one server-sent event from a room stream.
type StreamEvent struct {
	Type string
	Data json.RawMessage
}

// apiClient talks to the story-rooms HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, client *http.Client) *apiClient {
	return &apiClient{baseURL: strings.TrimRight(baseURL, "/"), http: client}
}

func (c *apiClient) roomPath(roomID string, rest ...string) string {
	parts := []string{c.baseURL, "v1", "rooms", url.PathEscape(roomID)}
	for _, p := range rest {
		parts = append(parts, url.PathEscape(p))
	}
	return strings.Join(parts, "/")
}

func (c *apiClient) testConnection(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func (c *apiClient) content(ctx context.Context) (*ContentResponse, error) {
	var out ContentResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v1/content", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return &out, nil
}

func (c *apiClient) join(ctx context.Context, roomID, playerName string, points map[string]int) (*room.Snapshot, error) {
	body := map[string]any{"playerName": playerName}
	if len(points) > 0 {
		body["assignedPoints"] = points
	}
	var snap room.Snapshot
	if err := c.do(ctx, http.MethodPost, c.roomPath(roomID, "join"), body, &snap); err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}
	return &snap, nil
}

func (c *apiClient) snapshot(ctx context.Context, roomID string) (*room.Snapshot, error) {
	var snap room.Snapshot
	if err := c.do(ctx, http.MethodGet, c.roomPath(roomID), nil, &snap); err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &snap, nil
}

func (c *apiClient) player(ctx context.Context, roomID, playerName string) (*room.PlayerView, error) {
	var view room.PlayerView
	if err := c.do(ctx, http.MethodGet, c.roomPath(roomID, "players", playerName), nil, &view); err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &view, nil
}

func (c *apiClient) vote(ctx context.Context, roomID, playerName string, optionID int) (*VoteResponse, error) {
	body := map[string]any{"playerName": playerName, "optionId": optionID}
	var out VoteResponse
	if err := c.do(ctx, http.MethodPost, c.roomPath(roomID, "vote"), body, &out); err != nil {
		return nil, fmt.Errorf("failed to vote: %w", err)
	}
	return &out, nil
}

func (c *apiClient) closeVoting(ctx context.Context, roomID string) (*VoteResponse, error) {
	var out VoteResponse
	if err := c.do(ctx, http.MethodPost, c.roomPath(roomID, "close"), map[string]any{}, &out); err != nil {
		return nil, fmt.Errorf("failed to close voting: %w", err)
	}
	return &out, nil
}

func (c *apiClient) spendSkillPoint(ctx context.Context, roomID, playerName, key string) (*room.PlayerView, error) {
	body := map[string]any{"playerName": playerName, "skillKey": key}
	var view room.PlayerView
	if err := c.do(ctx, http.MethodPost, c.roomPath(roomID, "skills"), body, &view); err != nil {
		return nil, fmt.Errorf("failed to spend skill point: %w", err)
	}
	return &view, nil
}

func (c *apiClient) leave(ctx context.Context, roomID, playerName string) error {
	if err := c.do(ctx, http.MethodDelete, c.roomPath(roomID, "players", playerName), nil, nil); err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}
	return nil
}

// do sends a JSON request and decodes a JSON response into out, when set.
func (c *apiClient) do(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// listenToRoom connects to the room's SSE endpoint and streams events to a
// channel until the stream ends or ctx is cancelled.
func (c *apiClient) listenToRoom(ctx context.Context, roomID string, events chan<- StreamEvent) error {
	target := fmt.Sprintf("%s/v1/events/rooms/%s", c.baseURL, url.PathEscape(roomID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// The stream outlives the request timeout of the shared client.
	stream := *c.http
	stream.Timeout = 0
	resp, err := stream.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	return readEvents(ctx, resp.Body, events)
}

// readEvents parses the text/event-stream format. Comment lines are keepalives.
func readEvents(ctx context.Context, r io.Reader, events chan<- StreamEvent) error {
	scanner := bufio.NewScanner(r)
	var current StreamEvent

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if current.Type != "" {
				select {
				case events <- current:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			current = StreamEvent{}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			current.Type = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.Data = json.RawMessage(strings.TrimPrefix(line, "data: "))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}
