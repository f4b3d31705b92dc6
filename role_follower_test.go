package atomix

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestFollowerStandsForElectionAfterTimeout uses a two-member cluster whose
// second member is never registered on the LoopbackNetwork, so RequestVote
// fan-out always fails and the lone reachable replica cannot win a majority
// on its own -- it must be observed stuck in Candidate rather than racing
// straight through to Leader the way a single-node cluster would.
func TestFollowerStandsForElectionAfterTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	net := NewLoopbackNetwork()
	ctx, _ := buildReplica(t, net, "a", []NodeId{"a", "b"}, nil)
	require.NoError(t, ctx.Open())
	require.Equal(t, RoleFollower, roleKindOf(ctx))

	waitFor(t, time.Second, "follower to time out into candidate", func() bool {
		return roleKindOf(ctx) == RoleCandidate
	})
	require.NoError(t, ctx.Close())
}

func TestFollowerResetsTimerOnAppendEntries(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := openNodeType(t, Active)
	defer ctx.Close()

	// Keep the timer from ever lapsing by staying in contact for longer
	// than one election_timeout window would allow on its own.
	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		_, err := ctx.Handle(&AppendEntriesRequest{Term: 1, Leader: "b"})
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, RoleFollower, roleKindOf(ctx))
}

func TestFollowerGrantsVoteOnceThenRejectsOtherCandidate(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := openNodeType(t, Active)
	defer ctx.Close()

	resp, err := ctx.Handle(&RequestVoteRequest{Term: 1, Candidate: "b"})
	require.NoError(t, err)
	require.True(t, resp.(*RequestVoteResponse).Granted)

	resp, err = ctx.Handle(&RequestVoteRequest{Term: 1, Candidate: "c"})
	require.NoError(t, err)
	require.False(t, resp.(*RequestVoteResponse).Granted)

	// The same candidate asking again in the same term is granted again
	// (idempotent, not a second distinct vote).
	resp, err = ctx.Handle(&RequestVoteRequest{Term: 1, Candidate: "b"})
	require.NoError(t, err)
	require.True(t, resp.(*RequestVoteResponse).Granted)
}

func TestFollowerRejectsVoteForStaleLog(t *testing.T) {
	ctx := openNodeType(t, Active)
	defer ctx.Close()

	ctx.do(func() {
		_, err := ctx.logv.append(1, []byte("k"), []byte("v"), KindCommand)
		require.NoError(t, err)
	})

	resp, err := ctx.Handle(&RequestVoteRequest{Term: 2, Candidate: "b", LastLogIndex: 0, LastLogTerm: 0})
	require.NoError(t, err)
	require.False(t, resp.(*RequestVoteResponse).Granted)
}
