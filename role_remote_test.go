package atomix

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoteRoleObservesTermAndLeaderWithoutReplicating(t *testing.T) {
	ctx := openNodeType(t, Remote)
	defer ctx.Close()
	require.Equal(t, RoleRemote, roleKindOf(ctx))

	resp, err := ctx.Handle(&AppendEntriesRequest{Term: 1, Leader: "b"})
	require.NoError(t, err)
	require.True(t, resp.(*AppendEntriesResponse).Success)
	require.Equal(t, NodeId("b"), leaderOf(ctx))

	// A stale term is rejected without adopting the sender's term/leader.
	resp, err = ctx.Handle(&AppendEntriesRequest{Term: 0, Leader: "c"})
	require.NoError(t, err)
	require.False(t, resp.(*AppendEntriesResponse).Success)
	require.Equal(t, NodeId("b"), leaderOf(ctx))
}

func TestRemoteRoleNeverVotes(t *testing.T) {
	ctx := openNodeType(t, Remote)
	defer ctx.Close()

	resp, err := ctx.Handle(&RequestVoteRequest{Term: 3, Candidate: "b"})
	require.NoError(t, err)
	require.False(t, resp.(*RequestVoteResponse).Granted)
}

func TestRemoteRoleForwardsClientRequestsWithNoLeader(t *testing.T) {
	ctx := openNodeType(t, Remote)
	defer ctx.Close()

	_, err := ctx.Handle(&WriteRequest{Key: []byte("k"), Entry: []byte("v")})
	require.ErrorIs(t, err, ErrNoLeader)
}
