package atomix

import "context"

// Transport is the external collaborator delivering RPC envelopes between
// replicas. Envelopes carry (term, sender, payload); responses
// always carry the responder's current term so the core can observe a
// higher term and step down. Implementations may be backed by gRPC (see
// GRPCTransport), an in-process loopback (see LoopbackTransport, used by
// tests), or any other wire format -- the core never inspects bytes, only
// the typed request/response values below.
type Transport interface {
	// Endpoint returns the local listen address/identity advertised to
	// peers.
	Endpoint() string

	// Serve blocks, accepting inbound RPCs and handing them to RPC() until
	// the transport is closed.
	Serve() error

	// RPC delivers inbound requests for the owning Context to dispatch to
	// the current role.
	RPC() <-chan *RPC

	AppendEntries(ctx context.Context, peer Peer, req *AppendEntriesRequest) (*AppendEntriesResponse, error)
	RequestVote(ctx context.Context, peer Peer, req *RequestVoteRequest) (*RequestVoteResponse, error)
	InstallSnapshot(ctx context.Context, peer Peer, req *InstallSnapshotRequest) (*InstallSnapshotResponse, error)

	// ApplyClient forwards a client Read/Write/Delete request to peer (used
	// when the local node is not the leader and knows who is).
	ApplyClient(ctx context.Context, peer Peer, request interface{}) (interface{}, error)
}

// TransportCloser is implemented by transports that hold resources needing
// an explicit shutdown (listeners, connection pools).
type TransportCloser interface {
	Close() error
}
