package room

import (
	"context"
	"fmt"
	"maps"

	"github.com/jwebster45206/story-rooms/pkg/content"
)

// Vote records a player's vote on the current scene. Duplicate votes, unknown
// options and votes on an ending are ignored rather than rejected. The vote
// that brings the number of distinct voters to the quorum resolves the scene.
func (e *Engine) Vote(ctx context.Context, roomID, playerName string, optionID int) (Result, error) {
	st, err := e.room(roomID)
	if err != nil {
		return Result{}, err
	}
	name := NormalizeKey(playerName)

	st.mu.Lock()
	defer st.mu.Unlock()

	p, ok := st.Players[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrPlayerNotFound, name)
	}

	switch {
	case st.Scene.IsEnding:
		return st.ignored(ReasonSceneEnded), nil
	case !st.Scene.HasOption(optionID):
		return st.ignored(ReasonInvalidOption), nil
	case st.hasVoted(name):
		return st.ignored(ReasonAlreadyVoted), nil
	}

	opt := st.Scene.Option(optionID)
	st.castVote(name, optionID, voteWeight(st.Scene, p))

	// The flag is per cycle, not per option: the first increment-bearing
	// option voted on wins even if it does not win the vote.
	if inc := opt.LockedAttributeIncrement; inc != nil && !st.LockedApplied {
		st.applyLockedIncrement(*inc)
		st.LockedApplied = true
		e.logger.Debug("Locked attribute applied", "room_id", st.ID, "attribute", inc.Attribute, "increment", inc.Increment)
	}

	e.logger.Debug("Vote recorded", "room_id", st.ID, "player", name, "option", optionID,
		"voters", len(st.UserVoted), "quorum", st.quorum())
	e.publishVotes(ctx, st)

	res := Result{Outcome: OutcomeAccepted, Votes: maps.Clone(st.Votes)}
	if len(st.UserVoted) != st.quorum() {
		res.Snapshot = st.snapshot()
		return res, nil
	}

	winner, _ := e.tally(st)
	return e.resolveCycle(ctx, st, winner, res.Votes), nil
}

// CloseVoting resolves the current scene with the leading option regardless
// of quorum.
func (e *Engine) CloseVoting(ctx context.Context, roomID string) (Result, error) {
	st, err := e.room(roomID)
	if err != nil {
		return Result{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.Scene.IsEnding {
		return st.ignored(ReasonSceneEnded), nil
	}
	winner, ok := e.tally(st)
	if !ok {
		return st.ignored(ReasonNoVotes), nil
	}
	e.logger.Info("Voting closed manually", "room_id", st.ID, "winner", winner, "voters", len(st.UserVoted))
	return e.resolveCycle(ctx, st, winner, maps.Clone(st.Votes)), nil
}

// resolveCycle dispatches to leader election or regular resolution.
func (e *Engine) resolveCycle(ctx context.Context, st *State, winner int, votes map[int]int) Result {
	res := Result{Outcome: OutcomeResolved, Votes: votes, WinningOption: &winner}
	if st.Scene.ID == content.LeaderSelectionSceneID {
		e.selectLeader(ctx, st, winner)
		res.Snapshot = st.snapshot()
		return res
	}

	success, ok := e.resolve(ctx, st, winner)
	if !ok {
		ignored := st.ignored(ReasonMissingOption)
		ignored.Votes = votes
		return ignored
	}
	res.Success = &success
	res.Snapshot = st.snapshot()
	return res
}

// voteWeight is 2 for the leader and 1 otherwise; during leader selection
// every vote weighs 1.
func voteWeight(scene *content.Scene, p *Player) int {
	if scene.ID == content.LeaderSelectionSceneID {
		return 1
	}
	if p.Type == PlayerLeader {
		return 2
	}
	return 1
}

// tally returns the option with the most weight, choosing uniformly among
// ties. ok is false when nothing has been voted.
func (e *Engine) tally(st *State) (winner int, ok bool) {
	best := 0
	var tied []int
	for _, opt := range st.Scene.Options {
		w := st.Votes[opt.ID]
		switch {
		case w <= 0:
			continue
		case w > best:
			best = w
			tied = append(tied[:0], opt.ID)
		case w == best:
			tied = append(tied, opt.ID)
		}
	}
	switch len(tied) {
	case 0:
		return 0, false
	case 1:
		return tied[0], true
	default:
		return tied[e.rng.pick(len(tied))], true
	}
}

func (st *State) ignored(reason string) Result {
	return Result{
		Outcome:  OutcomeIgnored,
		Reason:   reason,
		Votes:    maps.Clone(st.Votes),
		Snapshot: st.snapshot(),
	}
}
