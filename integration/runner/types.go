package runner

import (
	"time"
)

// Action is what a test step asks the API to do.
type Action string

const (
	ActionJoin  Action = "join"
	ActionVote  Action = "vote"
	ActionClose Action = "close"
	ActionSkill Action = "skill"
	ActionLeave Action = "leave"
)

// TestSuite defines a complete integration test scenario.
// Can either be a regular test with Steps, or a suite that references other Cases.
type TestSuite struct {
	Name   string     `json:"name"`
	RoomID string     `json:"room_id,omitempty"` // Prefix for the generated room id
	Steps  []TestStep `json:"steps,omitempty"`
	Cases  []string   `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one request made by one player, plus its expected outcome.
type TestStep struct {
	Name           string         `json:"name,omitempty"`
	Action         Action         `json:"action"`
	Player         string         `json:"player,omitempty"`
	OptionID       *int           `json:"option_id,omitempty"`
	SkillKey       string         `json:"skill_key,omitempty"`
	AssignedPoints map[string]int `json:"assigned_points,omitempty"`
	Expectations   Expectations   `json:"expect"`
}

// Expectations defines what to check after a test step executes.
// Room checks run against a fresh snapshot fetched after the step.
type Expectations struct {
	Status        *int    `json:"status,omitempty"` // Defaults to 200
	ErrorContains string  `json:"error_contains,omitempty"`
	Ignored       *bool   `json:"ignored,omitempty"`
	Resolved      *bool   `json:"resolved,omitempty"`
	SceneID       *string `json:"scene_id,omitempty"`
	IsEnding      *bool   `json:"is_ending,omitempty"`
	Leader        *string `json:"leader,omitempty"`

	Users      []string                  `json:"users,omitempty"`      // Roster, in join order
	Votes      map[string]int            `json:"votes,omitempty"`      // Option id -> weight
	Attributes map[string]map[string]int `json:"attributes,omitempty"` // Player -> locked attribute -> value
	Life       map[string]int            `json:"life,omitempty"`
	Stress     map[string]int            `json:"stress,omitempty"`

	// Events lists event types that must arrive on the room stream, in order,
	// after the step was sent. Other events in between are allowed.
	Events []string `json:"events,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	Status   int
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	RoomID   string // Room used for this run
}
