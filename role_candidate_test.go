package atomix

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestSingleNodeElection is scenario 1: a lone replica must win its own
// election (no peers to wait on for a majority) and become Leader.
func TestSingleNodeElection(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := openNodeType(t, Active)
	defer ctx.Close()

	ctx.do(func() { require.NoError(t, ctx.transition(RoleCandidate)) })
	require.Equal(t, RoleLeader, roleKindOf(ctx))
	require.Equal(t, ctx.ID(), leaderOf(ctx))
}

// TestVoteAtMostOncePerTerm is scenario 5: across a 3-node cluster, exactly
// one candidate should win any given election because every voter grants
// at most one vote per term.
func TestVoteAtMostOncePerTerm(t *testing.T) {
	replicas, _, teardown := newTestCluster(t, 3)
	defer teardown()

	leaderIdx := waitForLeader(t, replicas, 2*time.Second)
	term := termOf(replicas[leaderIdx].ctx)

	leaders := 0
	for _, r := range replicas {
		if termOf(r.ctx) == term && roleKindOf(r.ctx) == RoleLeader {
			leaders++
		}
	}
	require.Equal(t, 1, leaders, "exactly one leader per term")
}

func TestCandidateStepsDownOnHigherTermAppendEntries(t *testing.T) {
	// "b" is never registered on the network, so "a" cannot win a majority
	// and stays Candidate (a single-node cluster would become Leader).
	net := NewLoopbackNetwork()
	ctx, _ := buildReplica(t, net, "a", []NodeId{"a", "b"}, nil)
	require.NoError(t, ctx.Open())
	defer ctx.Close()

	ctx.do(func() { require.NoError(t, ctx.transition(RoleCandidate)) })
	require.Equal(t, RoleCandidate, roleKindOf(ctx))

	termBefore := termOf(ctx)
	_, err := ctx.Handle(&AppendEntriesRequest{Term: termBefore + 1, Leader: "b"})
	require.NoError(t, err)
	require.Equal(t, RoleFollower, roleKindOf(ctx))
	require.Equal(t, NodeId("b"), leaderOf(ctx))
}

func TestCandidateRejectsClientRequestsWithNoLeader(t *testing.T) {
	net := NewLoopbackNetwork()
	ctx, _ := buildReplica(t, net, "a", []NodeId{"a", "b"}, nil)
	require.NoError(t, ctx.Open())
	defer ctx.Close()

	ctx.do(func() { require.NoError(t, ctx.transition(RoleCandidate)) })
	_, err := ctx.Handle(&ReadRequest{Key: []byte("k")})
	require.ErrorIs(t, err, ErrNoLeader)
}
