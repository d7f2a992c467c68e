package room

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/jwebster45206/d20"
	"github.com/jwebster45206/story-rooms/pkg/content"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

// testDocument is a small story:
//
//	intro -> bridge | river | forest
//	duel  (maxVote 1, skill check) -> end | river
//	trial (effects on every voter) -> end | end
func testDocument() *content.Document {
	return &content.Document{
		GameConfig: []content.ConfigEntry{
			{ID: "maxStartingPoints", Value: []byte(`10`)},
			{ID: "initialLife", Value: []byte(`100`)},
			{ID: "stressThreshold", Value: []byte(`50`)},
			{ID: "xpThreshold", Value: []byte(`100`)},
		},
		Skills: []content.Skill{
			{ID: "fisico", Name: "Físico", Subskills: []content.Subskill{{ID: "fuerza"}, {ID: "agilidad"}}},
			{ID: "mente", Name: "Mente", Subskills: []content.Subskill{{ID: "astucia"}}},
		},
		Attributes: []content.Attribute{
			{ID: "valor", Name: "Valor", Hidden: true},
			{ID: "miedo", Name: "Miedo", Hidden: true},
		},
		Scenes: []content.Scene{
			{
				ID:   "intro",
				Text: "Un puente colgante cruza el abismo.",
				Options: []content.Option{
					{
						ID:             1,
						Text:           "Cruzar el puente",
						NextSceneID:    content.NextScene{Success: "bridge", Failure: "river"},
						Roll:           &content.Roll{SkillUsed: "fisico-fuerza", Difficulty: 8},
						ExpOnSuccess:   50,
						SuccessEffects: &content.Effects{Stress: 5},
						FailureEffects: &content.Effects{Life: -20},
					},
					{
						ID:                       2,
						Text:                     "Rodear el abismo",
						NextSceneID:              content.NextScene{Success: "forest"},
						LockedAttributeIncrement: &content.AttributeIncrement{Attribute: "valor", Increment: 1},
					},
					{
						ID:                       3,
						Text:                     "Esperar",
						NextSceneID:              content.NextScene{Success: "forest"},
						LockedAttributeIncrement: &content.AttributeIncrement{Attribute: "miedo", Increment: 2},
					},
				},
			},
			{
				ID:      "duel",
				Text:    "Un guardia bloquea el paso.",
				MaxVote: intPtr(1),
				Options: []content.Option{
					{
						ID:             1,
						Text:           "Empujarlo",
						NextSceneID:    content.NextScene{Success: "forest", Failure: "river"},
						Roll:           &content.Roll{SkillUsed: "fisico-fuerza", Difficulty: 8},
						ExpOnSuccess:   150,
						SuccessEffects: &content.Effects{Stress: 5},
						FailureEffects: &content.Effects{Life: -30},
					},
				},
			},
			{
				ID:   "trial",
				Text: "El suelo tiembla.",
				Options: []content.Option{
					{
						ID:             1,
						Text:           "Aguantar",
						NextSceneID:    content.NextScene{Success: "end"},
						SuccessEffects: &content.Effects{Life: -10, Stress: 10},
					},
				},
			},
			{ID: "bridge", Text: "Al otro lado.", Options: []content.Option{{ID: 1, Text: "Seguir", NextSceneID: content.NextScene{Success: "end"}}}},
			{ID: "river", Text: "Caéis al río.", Options: []content.Option{{ID: 1, Text: "Nadar", NextSceneID: content.NextScene{Success: "end"}}}},
			{ID: "forest", Text: "Un bosque oscuro.", Options: []content.Option{{ID: 1, Text: "Avanzar", NextSceneID: content.NextScene{Success: "end"}}}},
			{ID: "end", Text: "Fin.", IsEnding: true},
		},
	}
}

func testCatalog(t *testing.T) *content.Catalog {
	t.Helper()
	c, err := content.NewCatalog(testDocument())
	require.NoError(t, err)
	return c
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fixedRoller replays values in order, wrapping around.
type fixedRoller struct {
	mu     sync.Mutex
	values []int
	next   int
	calls  int
}

func (r *fixedRoller) Roll(count, sides uint, modifiers map[string]int) (d20.RollOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	rolls := make([]int, count)
	total := 0
	for i := range rolls {
		rolls[i] = r.values[r.next%len(r.values)]
		total += rolls[i]
		r.next++
	}
	var mods []d20.Modifier
	for name, v := range modifiers {
		mods = append(mods, d20.NewModifier(name, v))
		total += v
	}
	return d20.NewRollOutcome(count, sides, rolls, mods, total), nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	scenes  []Snapshot
	votes   []VoteUpdate
	leaders []string
	err     error
}

func (n *recordingNotifier) PublishSceneUpdate(_ context.Context, _ string, s Snapshot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scenes = append(n.scenes, s)
	return n.err
}

func (n *recordingNotifier) PublishVoteUpdate(_ context.Context, _ string, u VoteUpdate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.votes = append(n.votes, u)
	return n.err
}

func (n *recordingNotifier) PublishLeaderSelected(_ context.Context, _ string, leader string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leaders = append(n.leaders, leader)
	return n.err
}

func (n *recordingNotifier) sceneIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, 0, len(n.scenes))
	for _, s := range n.scenes {
		ids = append(ids, s.Scene.ID)
	}
	return ids
}

var errBroadcastDown = errors.New("broadcast down")

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	opts = append([]Option{WithSeed(7), WithNotifier(n)}, opts...)
	return NewEngine(NewRegistry(), testCatalog(t), quietLogger(), opts...), n
}

func join(t *testing.T, e *Engine, roomID, name, allocation string) Snapshot {
	t.Helper()
	snap, err := e.Join(context.Background(), JoinRequest{RoomID: roomID, PlayerName: name, Allocation: allocation})
	require.NoError(t, err)
	return snap
}

func vote(t *testing.T, e *Engine, roomID, name string, option int) Result {
	t.Helper()
	res, err := e.Vote(context.Background(), roomID, name, option)
	require.NoError(t, err)
	return res
}

// joinPair seats Alice and Bob in roomID and elects Alice, leaving the room
// at the first story scene.
func joinPair(t *testing.T, e *Engine, roomID string) {
	t.Helper()
	join(t, e, roomID, "Alice", `{"fisico-fuerza":3}`)
	join(t, e, roomID, "Bob", `{"mente-astucia":2}`)
	vote(t, e, roomID, "Alice", 1)
	vote(t, e, roomID, "Bob", 1)
}

// forceScene moves a room to sceneID with a fresh cycle.
func forceScene(t *testing.T, e *Engine, roomID, sceneID string) *State {
	t.Helper()
	st, ok := e.registry.Get(roomID)
	require.True(t, ok)
	sc, ok := e.content.Scene(sceneID)
	require.True(t, ok, "scene %q", sceneID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Scene = sc
	st.resetCycle()
	return st
}
