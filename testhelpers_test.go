package atomix

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testPeerList(ids ...NodeId) []Peer {
	peers := make([]Peer, len(ids))
	for i, id := range ids {
		peers[i] = Peer{Id: id, Endpoint: string(id)}
	}
	return peers
}

// buildReplica constructs (but does not Open) a Context for id, wired onto
// net, with every member of ids (including id itself) as its Cluster.
func buildReplica(t *testing.T, net *LoopbackNetwork, id NodeId, ids []NodeId, handler CommitHandler) (*Context, *LoopbackTransport) {
	t.Helper()
	cluster := NewStaticCluster(id, Active, testPeerList(ids...))
	trans := net.NewTransport(id)
	cfg := Config{
		ElectionTimeout:   60 * time.Millisecond,
		HeartbeatInterval: 15 * time.Millisecond,
		Storage:           NewMemLogStore(),
		Transport:         trans,
		Cluster:           cluster,
		CommitHandler:     handler,
	}
	ctx, err := NewContext(cfg)
	require.NoError(t, err)
	return ctx, trans
}

// testReplica bundles an opened Context with the plumbing needed to tear it
// down cleanly (dispatch loop goroutine + transport). close is idempotent, so
// a test may close one replica early and still run the cluster teardown.
type testReplica struct {
	ctx    *Context
	trans  *LoopbackTransport
	stopCh chan struct{}
	closed bool
}

func (r *testReplica) close() {
	if r.closed {
		return
	}
	r.closed = true
	r.ctx.Close()
	r.trans.Close()
	close(r.stopCh)
}

// dispatchLoop feeds inbound RPCs to ctx until stop closes, mirroring
// cmd/kvnode's dispatchLoop but stoppable so tests don't leak goroutines.
func dispatchLoop(ctx *Context, trans *LoopbackTransport, stop chan struct{}) {
	for {
		select {
		case rpc := <-trans.RPC():
			ctx.DispatchRPC(rpc)
		case <-stop:
			return
		}
	}
}

// newTestCluster builds and opens n replicas wired together over a shared
// LoopbackNetwork. The returned teardown closes every replica and its
// dispatch loop goroutine.
func newTestCluster(t *testing.T, n int) (replicas []*testReplica, ids []NodeId, teardown func()) {
	t.Helper()
	net := NewLoopbackNetwork()
	ids = make([]NodeId, n)
	for i := range ids {
		ids[i] = NodeId(fmt.Sprintf("n%d", i))
	}
	replicas = make([]*testReplica, n)
	for i, id := range ids {
		ctx, trans := buildReplica(t, net, id, ids, nil)
		require.NoError(t, ctx.Open())
		r := &testReplica{ctx: ctx, trans: trans, stopCh: make(chan struct{})}
		go dispatchLoop(ctx, trans, r.stopCh)
		replicas[i] = r
	}
	teardown = func() {
		for _, r := range replicas {
			r.close()
		}
	}
	return replicas, ids, teardown
}

func roleKindOf(ctx *Context) RoleKind {
	var k RoleKind
	ctx.do(func() { k = ctx.role.kind() })
	return k
}

func termOf(ctx *Context) uint64 {
	var term uint64
	ctx.do(func() { term = ctx.term })
	return term
}

func leaderOf(ctx *Context) NodeId {
	var l NodeId
	ctx.do(func() { l = ctx.leader })
	return l
}

func commitIndexOf(ctx *Context) uint64 {
	var i uint64
	ctx.do(func() { i = ctx.commitIndex })
	return i
}

func lastAppliedOf(ctx *Context) uint64 {
	var i uint64
	ctx.do(func() { i = ctx.lastApplied })
	return i
}

// waitFor polls cond every 5ms until it returns true or timeout elapses,
// failing the test in the latter case.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// waitForLeader polls every replica in replicas until exactly one reports
// itself as RoleLeader, returning its index.
func waitForLeader(t *testing.T, replicas []*testReplica, timeout time.Duration) int {
	t.Helper()
	leaderIdx := -1
	waitFor(t, timeout, "a leader to be elected", func() bool {
		for i, r := range replicas {
			if roleKindOf(r.ctx) == RoleLeader {
				leaderIdx = i
				return true
			}
		}
		return false
	})
	return leaderIdx
}
