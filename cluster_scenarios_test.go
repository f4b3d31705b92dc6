package atomix

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLogConflictReconciliation is scenario 4: a follower holding a
// conflicting entry at an index the leader is about to send must have that
// entry (and everything after it) truncated and replaced, never merged.
func TestLogConflictReconciliation(t *testing.T) {
	ctx := openNodeType(t, Active)
	defer ctx.Close()

	ctx.do(func() {
		_, err := ctx.logv.append(1, []byte("stale"), []byte("v0"), KindCommand)
		require.NoError(t, err)
	})

	resp, err := ctx.Handle(&AppendEntriesRequest{
		Term:         2,
		Leader:       "leader",
		PrevLogIndex: 0,
		PrevLogTerm:  0,
		Entries: []LogEntry{
			{Index: 1, Term: 2, Key: []byte("fresh"), Data: []byte("v1"), Kind: KindCommand},
		},
	})
	require.NoError(t, err)
	require.True(t, resp.(*AppendEntriesResponse).Success)

	ctx.do(func() {
		require.Equal(t, uint64(2), ctx.logv.termAt(1))
		entries, err := ctx.logv.entries(1, 1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, []byte("fresh"), entries[0].Key)
	})
}

// TestAppendEntriesRejectsOnLogMismatch confirms a follower whose log does
// not contain PrevLogIndex/PrevLogTerm rejects the RPC with a conflict hint
// instead of accepting a gap.
func TestAppendEntriesRejectsOnLogMismatch(t *testing.T) {
	ctx := openNodeType(t, Active)
	defer ctx.Close()

	ctx.do(func() {
		_, err := ctx.logv.append(1, nil, nil, KindCommand)
		require.NoError(t, err)
	})

	resp, err := ctx.Handle(&AppendEntriesRequest{
		Term:         1,
		Leader:       "leader",
		PrevLogIndex: 1,
		PrevLogTerm:  99,
	})
	require.NoError(t, err)
	aeResp := resp.(*AppendEntriesResponse)
	require.False(t, aeResp.Success)
	require.Equal(t, uint64(1), aeResp.ConflictIndex)
}

// TestRecoveryCompletion is scenario 6: the first SetCommitIndex call arms
// recovering whenever it lands ahead of last_applied, and recovery stays in
// effect until last_applied catches up to the commit index observed at the
// moment recovery began (first_commit_index), then flips off exactly once.
func TestRecoveryCompletion(t *testing.T) {
	ctx := openNodeType(t, Active)
	defer ctx.Close()

	ctx.do(func() {
		require.False(t, ctx.recovering, "a freshly opened replica has nothing to recover")
		require.NoError(t, ctx.SetCommitIndex(3))
		require.True(t, ctx.recovering, "first commit index ahead of last_applied must arm recovering")
		require.NoError(t, ctx.SetLastApplied(2))
		require.True(t, ctx.recovering, "recovery must not complete before last_applied reaches first_commit_index")
		require.NoError(t, ctx.SetLastApplied(3))
		require.False(t, ctx.recovering, "recovery completes once last_applied reaches first_commit_index")
	})
}

// TestRecoveryNotArmedWhenAlreadyCaughtUp confirms a replica that has
// already applied everything it is about to be told is committed never
// enters the recovering state at all.
func TestRecoveryNotArmedWhenAlreadyCaughtUp(t *testing.T) {
	ctx := openNodeType(t, Active)
	defer ctx.Close()

	ctx.do(func() {
		require.NoError(t, ctx.SetLastApplied(0))
		require.NoError(t, ctx.SetCommitIndex(0))
		require.False(t, ctx.recovering, "nothing to catch up on, so recovering must stay false")
	})
}

// TestLeaderFailoverElectsNewLeaderAtHigherTerm exercises a full 3-node
// cluster surviving the loss of its leader: the remaining two replicas must
// elect a successor at a strictly higher term.
func TestLeaderFailoverElectsNewLeaderAtHigherTerm(t *testing.T) {
	replicas, _, teardown := newTestCluster(t, 3)
	defer teardown()

	firstIdx := waitForLeader(t, replicas, 2*time.Second)
	firstTerm := termOf(replicas[firstIdx].ctx)

	replicas[firstIdx].close()
	remaining := append(append([]*testReplica{}, replicas[:firstIdx]...), replicas[firstIdx+1:]...)

	newIdx := waitForLeader(t, remaining, 2*time.Second)
	require.Greater(t, termOf(remaining[newIdx].ctx), firstTerm)
}
