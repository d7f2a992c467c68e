package room

import (
	"maps"
	"slices"
	"sync"

	"github.com/jwebster45206/story-rooms/pkg/content"
)

// ballot records how a player voted in the current cycle so the vote can be
// retracted if the player leaves.
type ballot struct {
	option int
	weight int
}

// State is one active room. Every field is guarded by mu; engine operations
// hold it across the whole read-check-mutate sequence.
type State struct {
	mu sync.Mutex

	ID    string
	Scene *content.Scene

	// Votes maps option id to accumulated weight for the current cycle.
	Votes map[int]int
	// UserVoted lists voters of the current cycle in voting order.
	UserVoted   []string
	OptionVotes map[int][]string
	Players     map[string]*Player

	// LockedApplied is set once a locked-attribute increment fired this cycle.
	LockedApplied bool

	roster  []string
	ballots map[string]ballot
}

func newState(id string, scene *content.Scene) *State {
	st := &State{
		ID:      id,
		Scene:   scene,
		Players: make(map[string]*Player),
	}
	st.resetCycle()
	return st
}

// resetCycle starts a fresh voting cycle for the current scene.
func (st *State) resetCycle() {
	st.Votes = make(map[int]int)
	st.UserVoted = nil
	st.OptionVotes = make(map[int][]string)
	st.ballots = make(map[string]ballot)
	st.LockedApplied = false
}

func (st *State) hasVoted(name string) bool {
	_, ok := st.ballots[name]
	return ok
}

func (st *State) castVote(name string, option, weight int) {
	st.Votes[option] += weight
	st.UserVoted = append(st.UserVoted, name)
	st.OptionVotes[option] = append(st.OptionVotes[option], name)
	st.ballots[name] = ballot{option: option, weight: weight}
}

// retractVote removes a player's ballot from the current cycle, if any.
func (st *State) retractVote(name string) {
	b, ok := st.ballots[name]
	if !ok {
		return
	}
	delete(st.ballots, name)
	st.Votes[b.option] -= b.weight
	if st.Votes[b.option] <= 0 {
		delete(st.Votes, b.option)
	}
	st.UserVoted = slices.DeleteFunc(st.UserVoted, func(n string) bool { return n == name })
	st.OptionVotes[b.option] = slices.DeleteFunc(st.OptionVotes[b.option], func(n string) bool { return n == name })
	if len(st.OptionVotes[b.option]) == 0 {
		delete(st.OptionVotes, b.option)
	}
}

// putPlayer inserts or overwrites a player. An overwrite keeps the original
// roster position.
func (st *State) putPlayer(p *Player) {
	if _, exists := st.Players[p.Name]; !exists {
		st.roster = append(st.roster, p.Name)
	}
	st.Players[p.Name] = p
}

func (st *State) removePlayer(name string) {
	delete(st.Players, name)
	st.roster = slices.DeleteFunc(st.roster, func(n string) bool { return n == name })
}

// quorum is the number of distinct voters that triggers resolution.
func (st *State) quorum() int {
	n := len(st.Players)
	if st.Scene != nil && st.Scene.MaxVote != nil && *st.Scene.MaxVote < n {
		return *st.Scene.MaxVote
	}
	return n
}

// applyLockedIncrement raises a hidden attribute on every player in the room.
func (st *State) applyLockedIncrement(inc content.AttributeIncrement) {
	for _, name := range st.roster {
		st.Players[name].LockedAttributes[inc.Attribute] += inc.Increment
	}
}

// Snapshot is a point-in-time copy of a room, safe to encode after the room
// lock is released. It doubles as the sceneUpdate payload.
type Snapshot struct {
	RoomID    string         `json:"roomId"`
	Scene     *content.Scene `json:"scene"`
	Votes     map[int]int    `json:"votes"`
	Users     []string       `json:"users"`
	UserVoted []string       `json:"userVoted"`
	Players   []PlayerStatus `json:"players"`
}

// VoteUpdate is the voteUpdate payload.
type VoteUpdate struct {
	Votes     map[int]int `json:"votes"`
	UserVoted []string    `json:"userVoted"`
}

func (st *State) snapshot() Snapshot {
	players := make([]PlayerStatus, 0, len(st.roster))
	for _, name := range st.roster {
		players = append(players, st.Players[name].status())
	}
	return Snapshot{
		RoomID:    st.ID,
		Scene:     st.Scene,
		Votes:     maps.Clone(st.Votes),
		Users:     slices.Clone(st.roster),
		UserVoted: slices.Clone(st.UserVoted),
		Players:   players,
	}
}

func (st *State) voteUpdate() VoteUpdate {
	return VoteUpdate{
		Votes:     maps.Clone(st.Votes),
		UserVoted: slices.Clone(st.UserVoted),
	}
}
