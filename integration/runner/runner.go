package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/story-rooms/internal/handlers"
	"github.com/jwebster45206/story-rooms/pkg/room"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running story-rooms API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(data, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence.
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite in a fresh room
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	prefix := suite.RoomID
	if prefix == "" {
		prefix = "it"
	}
	roomID := prefix + "-" + uuid.NewString()[:8]
	result.RoomID = roomID

	var stream *EventStream
	if needsEvents(suite) {
		s, err := OpenEventStream(ctx, r.BaseURL, roomID)
		if err != nil {
			result.Error = fmt.Errorf("failed to subscribe to room events: %w", err)
			result.Duration = time.Since(start)
			return result, result.Error
		}
		defer s.Close()
		stream = s
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.executeStep(ctx, roomID, step, stream)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func needsEvents(suite TestSuite) bool {
	return slices.ContainsFunc(suite.Steps, func(s TestStep) bool { return len(s.Expectations.Events) > 0 })
}

// executeStep sends the step's request and checks its expectations
func (r *Runner) executeStep(ctx context.Context, roomID string, step TestStep, stream *EventStream) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	fail := func(err error) TestResult {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	if stream != nil {
		stream.Drain()
	}

	status, body, err := r.send(ctx, roomID, step)
	if err != nil {
		return fail(err)
	}
	result.Status = status

	wantStatus := http.StatusOK
	if step.Expectations.Status != nil {
		wantStatus = *step.Expectations.Status
	}
	if status != wantStatus {
		return fail(fmt.Errorf("expected status %d, got %d: %s", wantStatus, status, strings.TrimSpace(string(body))))
	}

	if status != http.StatusOK {
		if want := step.Expectations.ErrorContains; want != "" {
			var errResp handlers.ErrorResponse
			_ = json.Unmarshal(body, &errResp)
			if !strings.Contains(errResp.Error, want) {
				return fail(fmt.Errorf("expected error containing %q, got %q", want, errResp.Error))
			}
		}
	} else if step.Action == ActionVote || step.Action == ActionClose {
		var voteResp handlers.VoteResponse
		if err := json.Unmarshal(body, &voteResp); err != nil {
			return fail(fmt.Errorf("failed to decode vote response: %w", err))
		}
		if err := checkVote(step.Expectations, voteResp); err != nil {
			return fail(err)
		}
	}

	if needsSnapshot(step.Expectations) {
		snap, err := r.getSnapshot(ctx, roomID)
		if err != nil {
			return fail(err)
		}
		if err := checkSnapshot(step.Expectations, snap); err != nil {
			return fail(err)
		}
	}

	if len(step.Expectations.Events) > 0 {
		if stream == nil {
			return fail(fmt.Errorf("event expectations need an event stream"))
		}
		if err := stream.Expect(ctx, step.Expectations.Events); err != nil {
			return fail(err)
		}
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// send issues the request for a step and returns the status and body.
func (r *Runner) send(ctx context.Context, roomID string, step TestStep) (int, []byte, error) {
	roomURL := r.BaseURL + "/v1/rooms/" + url.PathEscape(roomID)

	var (
		method = http.MethodPost
		target string
		body   any
	)
	switch step.Action {
	case ActionJoin:
		target = roomURL + "/join"
		req := map[string]any{"playerName": step.Player}
		if len(step.AssignedPoints) > 0 {
			req["assignedPoints"] = step.AssignedPoints
		}
		body = req
	case ActionVote:
		if step.OptionID == nil {
			return 0, nil, fmt.Errorf("vote step needs option_id")
		}
		target = roomURL + "/vote"
		body = handlers.VoteRequest{PlayerName: step.Player, OptionID: step.OptionID}
	case ActionClose:
		target = roomURL + "/close"
		body = map[string]any{}
	case ActionSkill:
		target = roomURL + "/skills"
		body = handlers.SkillRequest{PlayerName: step.Player, SkillKey: step.SkillKey}
	case ActionLeave:
		method = http.MethodDelete
		target = roomURL + "/players/" + url.PathEscape(step.Player)
	default:
		return 0, nil, fmt.Errorf("unknown action %q", step.Action)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send %s request: %w", step.Action, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// getSnapshot retrieves the current room state
func (r *Runner) getSnapshot(ctx context.Context, roomID string) (*room.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/v1/rooms/"+url.PathEscape(roomID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create room request: %w", err)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send room request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("room endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var snap room.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode room: %w", err)
	}
	return &snap, nil
}

func checkVote(exp Expectations, resp handlers.VoteResponse) error {
	if exp.Ignored != nil && resp.Ignored != *exp.Ignored {
		return fmt.Errorf("expected ignored=%t, got %t (reason %q)", *exp.Ignored, resp.Ignored, resp.Reason)
	}
	if exp.Resolved != nil && resp.Resolved != *exp.Resolved {
		return fmt.Errorf("expected resolved=%t, got %t", *exp.Resolved, resp.Resolved)
	}
	return nil
}

func needsSnapshot(exp Expectations) bool {
	return exp.SceneID != nil || exp.IsEnding != nil || exp.Leader != nil ||
		exp.Users != nil || exp.Votes != nil || exp.Attributes != nil ||
		exp.Life != nil || exp.Stress != nil
}

// checkSnapshot validates the room state after a step
func checkSnapshot(exp Expectations, snap *room.Snapshot) error {
	if snap.Scene == nil {
		return fmt.Errorf("room has no scene")
	}
	if exp.SceneID != nil && snap.Scene.ID != *exp.SceneID {
		return fmt.Errorf("expected scene %s, got %s", *exp.SceneID, snap.Scene.ID)
	}
	if exp.IsEnding != nil && snap.Scene.IsEnding != *exp.IsEnding {
		return fmt.Errorf("expected is_ending=%t, got %t", *exp.IsEnding, snap.Scene.IsEnding)
	}

	players := make(map[string]room.PlayerStatus, len(snap.Players))
	leader := ""
	for _, p := range snap.Players {
		players[p.Name] = p
		if p.Type == room.PlayerLeader {
			leader = p.Name
		}
	}

	if exp.Leader != nil && leader != *exp.Leader {
		return fmt.Errorf("expected leader %q, got %q", *exp.Leader, leader)
	}
	if exp.Users != nil && !slices.Equal(snap.Users, exp.Users) {
		return fmt.Errorf("expected users %v, got %v", exp.Users, snap.Users)
	}
	if exp.Votes != nil {
		got := make(map[string]int, len(snap.Votes))
		for id, w := range snap.Votes {
			got[strconv.Itoa(id)] = w
		}
		if !maps.Equal(got, exp.Votes) {
			return fmt.Errorf("expected votes %v, got %v", exp.Votes, got)
		}
	}

	for name, attrs := range exp.Attributes {
		p, ok := players[name]
		if !ok {
			return fmt.Errorf("player %q not in room", name)
		}
		for attr, want := range attrs {
			if got := p.LockedAttributes[attr]; got != want {
				return fmt.Errorf("expected %s.%s=%d, got %d", name, attr, want, got)
			}
		}
	}
	if err := checkPlayerInts("life", exp.Life, players, func(p room.PlayerStatus) int { return p.Life }); err != nil {
		return err
	}
	return checkPlayerInts("stress", exp.Stress, players, func(p room.PlayerStatus) int { return p.Stress })
}

func checkPlayerInts(field string, want map[string]int, players map[string]room.PlayerStatus, get func(room.PlayerStatus) int) error {
	for name, w := range want {
		p, ok := players[name]
		if !ok {
			return fmt.Errorf("player %q not in room", name)
		}
		if got := get(p); got != w {
			return fmt.Errorf("expected %s.%s=%d, got %d", name, field, w, got)
		}
	}
	return nil
}
