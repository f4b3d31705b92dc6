package atomix

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoopbackTransportRoundTrips(t *testing.T) {
	net := NewLoopbackNetwork()
	a := net.NewTransport("a")
	b := net.NewTransport("b")

	go func() {
		rpc := <-b.RPC()
		req := rpc.Request().(*AppendEntriesRequest)
		rpc.Respond(&AppendEntriesResponse{ServerId: "b", Term: req.Term, Success: true}, nil)
	}()

	resp, err := a.AppendEntries(context.Background(), Peer{Id: "b"}, &AppendEntriesRequest{Term: 3})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, uint64(3), resp.Term)
}

func TestLoopbackTransportRequestVoteAndInstallSnapshot(t *testing.T) {
	net := NewLoopbackNetwork()
	a := net.NewTransport("a")
	b := net.NewTransport("b")

	go func() {
		rpc := <-b.RPC()
		rpc.Respond(&RequestVoteResponse{ServerId: "b", Term: 1, Granted: true}, nil)
		rpc = <-b.RPC()
		rpc.Respond(&InstallSnapshotResponse{ServerId: "b", Term: 1}, nil)
	}()

	voteResp, err := a.RequestVote(context.Background(), Peer{Id: "b"}, &RequestVoteRequest{Term: 1, Candidate: "a"})
	require.NoError(t, err)
	require.True(t, voteResp.Granted)

	snapResp, err := a.InstallSnapshot(context.Background(), Peer{Id: "b"}, &InstallSnapshotRequest{Term: 1})
	require.NoError(t, err)
	require.Equal(t, uint64(1), snapResp.Term)
}

func TestLoopbackTransportUnregisteredPeer(t *testing.T) {
	net := NewLoopbackNetwork()
	a := net.NewTransport("a")

	_, err := a.AppendEntries(context.Background(), Peer{Id: "ghost"}, &AppendEntriesRequest{})
	require.Error(t, err)
}

func TestLoopbackTransportApplyClient(t *testing.T) {
	net := NewLoopbackNetwork()
	a := net.NewTransport("a")
	b := net.NewTransport("b")

	go func() {
		rpc := <-b.RPC()
		req := rpc.Request().(*WriteRequest)
		rpc.Respond(&ClientResponse{Value: req.Entry}, nil)
	}()

	resp, err := a.ApplyClient(context.Background(), Peer{Id: "b"}, &WriteRequest{Key: []byte("k"), Entry: []byte("v")})
	require.NoError(t, err)
	require.Equal(t, []byte("v"), resp.(*ClientResponse).Value)
}
