package atomix

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openNodeType(t *testing.T, nt NodeType) *Context {
	t.Helper()
	cfg := singleNodeConfig(t, "a")
	cfg.Cluster.(*staticCluster).localType = nt
	ctx, err := NewContext(cfg)
	require.NoError(t, err)
	require.NoError(t, ctx.Open())
	return ctx
}

func TestPassiveRoleNeverVotes(t *testing.T) {
	ctx := openNodeType(t, Passive)
	defer ctx.Close()
	require.Equal(t, RolePassive, roleKindOf(ctx))

	resp, err := ctx.Handle(&RequestVoteRequest{Term: 5, Candidate: "b", LastLogIndex: 0, LastLogTerm: 0})
	require.NoError(t, err)
	require.False(t, resp.(*RequestVoteResponse).Granted)
	// It still adopts the higher term it observed.
	require.Equal(t, uint64(5), termOf(ctx))
}

func TestPassiveRoleReplicates(t *testing.T) {
	ctx := openNodeType(t, Passive)
	defer ctx.Close()

	resp, err := ctx.Handle(&AppendEntriesRequest{Term: 1, Leader: "b", PrevLogIndex: 0, PrevLogTerm: 0})
	require.NoError(t, err)
	require.True(t, resp.(*AppendEntriesResponse).Success)
	require.Equal(t, NodeId("b"), leaderOf(ctx))
}

func TestPassiveRoleForwardsClientRequestsWithNoLeader(t *testing.T) {
	ctx := openNodeType(t, Passive)
	defer ctx.Close()

	_, err := ctx.Handle(&ReadRequest{Key: []byte("k")})
	require.ErrorIs(t, err, ErrNoLeader)
}

func TestPassiveRoleTimerless(t *testing.T) {
	ctx := openNodeType(t, Passive)
	defer ctx.Close()

	// Passive never stands for election, however long it waits.
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, RolePassive, roleKindOf(ctx))
}
