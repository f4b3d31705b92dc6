package atomix

import (
	"context"
	"sync"
)

// LoopbackNetwork wires several LoopbackTransport instances together
// in-process, for multi-replica tests that want real election/replication
// behaviour without sockets. The Transport contract says nothing about wire
// format, so an in-process implementation is as valid a collaborator as
// GRPCTransport.
type LoopbackNetwork struct {
	mu    sync.Mutex
	nodes map[NodeId]*LoopbackTransport
}

// NewLoopbackNetwork returns an empty network; call NewTransport once per
// simulated replica before opening any of their Contexts.
func NewLoopbackNetwork() *LoopbackNetwork {
	return &LoopbackNetwork{nodes: map[NodeId]*LoopbackTransport{}}
}

// LoopbackTransport is the reference Transport for in-process tests: every
// RPC is a direct channel handoff to the addressed peer's rpcCh, with no
// (de)serialization at all.
type LoopbackTransport struct {
	id      NodeId
	network *LoopbackNetwork
	rpcCh   chan *RPC
	stopCh  chan struct{}
}

// NewTransport registers and returns a LoopbackTransport for id.
func (n *LoopbackNetwork) NewTransport(id NodeId) *LoopbackTransport {
	t := &LoopbackTransport{id: id, network: n, rpcCh: make(chan *RPC, 16), stopCh: make(chan struct{})}
	n.mu.Lock()
	n.nodes[id] = t
	n.mu.Unlock()
	return t
}

func (t *LoopbackTransport) Endpoint() string { return string(t.id) }

// Serve blocks until Close is called; loopback delivery needs no accept
// loop, but Transport.Serve is still expected to block until shutdown.
func (t *LoopbackTransport) Serve() error {
	<-t.stopCh
	return nil
}

func (t *LoopbackTransport) Close() error {
	close(t.stopCh)
	return nil
}

func (t *LoopbackTransport) RPC() <-chan *RPC { return t.rpcCh }

func (t *LoopbackTransport) peer(peer Peer) (*LoopbackTransport, error) {
	t.network.mu.Lock()
	defer t.network.mu.Unlock()
	pt, ok := t.network.nodes[peer.Id]
	if !ok {
		return nil, newError(KindTransport, "peer not registered on loopback network")
	}
	return pt, nil
}

func (t *LoopbackTransport) AppendEntries(ctx context.Context, peer Peer, req *AppendEntriesRequest) (*AppendEntriesResponse, error) {
	pt, err := t.peer(peer)
	if err != nil {
		return nil, err
	}
	rpc := NewRPC(ctx, req)
	pt.rpcCh <- rpc
	resp, err := rpc.Response()
	if err != nil {
		return nil, err
	}
	return resp.(*AppendEntriesResponse), nil
}

func (t *LoopbackTransport) RequestVote(ctx context.Context, peer Peer, req *RequestVoteRequest) (*RequestVoteResponse, error) {
	pt, err := t.peer(peer)
	if err != nil {
		return nil, err
	}
	rpc := NewRPC(ctx, req)
	pt.rpcCh <- rpc
	resp, err := rpc.Response()
	if err != nil {
		return nil, err
	}
	return resp.(*RequestVoteResponse), nil
}

func (t *LoopbackTransport) InstallSnapshot(ctx context.Context, peer Peer, req *InstallSnapshotRequest) (*InstallSnapshotResponse, error) {
	pt, err := t.peer(peer)
	if err != nil {
		return nil, err
	}
	rpc := NewRPC(ctx, req)
	pt.rpcCh <- rpc
	resp, err := rpc.Response()
	if err != nil {
		return nil, err
	}
	return resp.(*InstallSnapshotResponse), nil
}

func (t *LoopbackTransport) ApplyClient(ctx context.Context, peer Peer, request interface{}) (interface{}, error) {
	pt, err := t.peer(peer)
	if err != nil {
		return nil, err
	}
	rpc := NewRPC(ctx, request)
	pt.rpcCh <- rpc
	return rpc.Response()
}
