package atomix

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// grpcTransportService is the server-side bridge from the gRPC handler
// goroutine to the Transport.RPC() channel the owning Context drains.
type grpcTransportService struct {
	rpcCh chan *RPC
}

func (s *grpcTransportService) AppendEntries(ctx context.Context, request *AppendEntriesRequest) (*AppendEntriesResponse, error) {
	r := NewRPC(ctx, request)
	s.rpcCh <- r
	response, err := r.Response()
	if err != nil {
		return nil, err
	}
	return response.(*AppendEntriesResponse), nil
}

func (s *grpcTransportService) RequestVote(ctx context.Context, request *RequestVoteRequest) (*RequestVoteResponse, error) {
	r := NewRPC(ctx, request)
	s.rpcCh <- r
	response, err := r.Response()
	if err != nil {
		return nil, err
	}
	return response.(*RequestVoteResponse), nil
}

func (s *grpcTransportService) InstallSnapshot(ctx context.Context, request *InstallSnapshotRequest) (*InstallSnapshotResponse, error) {
	r := NewRPC(ctx, request)
	s.rpcCh <- r
	response, err := r.Response()
	if err != nil {
		return nil, err
	}
	return response.(*InstallSnapshotResponse), nil
}

func (s *grpcTransportService) ApplyClient(ctx context.Context, env *clientEnvelope) (*clientEnvelope, error) {
	request, err := decodeClientRequest(env)
	if err != nil {
		return encodeClientResult(nil, err), nil
	}
	r := NewRPC(ctx, request)
	s.rpcCh <- r
	response, err := r.Response()
	return encodeClientResult(response, err), nil
}

// grpcTransportClient holds one dialed connection to a peer plus the stub
// generated over it.
type grpcTransportClient struct {
	conn   *grpc.ClientConn
	client TransportClient
}

// GRPCTransport is the reference Transport collaborator: real gRPC
// connections and server, but wire messages are plain Go structs carried by
// the msgpack codec registered in codec.go instead of protoc-generated
// protobuf.
type GRPCTransport struct {
	service *grpcTransportService
	server  *grpc.Server

	listener net.Listener
	logger   *zap.SugaredLogger

	serveFlag uint32

	clients   map[NodeId]*grpcTransportClient
	clientsMu sync.RWMutex
}

// NewGRPCTransport binds listenAddr and returns an unstarted transport; call
// Serve to start accepting connections.
func NewGRPCTransport(listenAddr string, logger *zap.SugaredLogger) (*GRPCTransport, error) {
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, wrapError(KindTransport, "listen failed", err)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &GRPCTransport{
		service:  &grpcTransportService{rpcCh: make(chan *RPC, 16)},
		listener: listener,
		logger:   logger,
		clients:  map[NodeId]*grpcTransportClient{},
	}, nil
}

func (t *GRPCTransport) connectLocked(peer Peer) error {
	if _, ok := t.clients[peer.Id]; ok {
		return nil
	}
	conn, err := grpc.Dial(
		peer.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(msgpackCodecName)),
	)
	if err != nil {
		return err
	}
	t.logger.Infow("peer connected", "peer", peer, "target", conn.Target())
	t.clients[peer.Id] = &grpcTransportClient{conn: conn, client: newTransportClient(conn)}
	return nil
}

func (t *GRPCTransport) disconnectLocked(peer Peer) {
	if client, ok := t.clients[peer.Id]; ok {
		delete(t.clients, peer.Id)
		client.conn.Close()
	}
}

// tryClient runs fn against peer's client, connecting on demand and retrying
// once on a fresh connection if the call fails with codes.Unavailable (the
// connection had gone away).
func (t *GRPCTransport) tryClient(peer Peer, fn func(c *grpcTransportClient) error) error {
	for attempt := 0; attempt < 2; attempt++ {
		t.clientsMu.RLock()
		client, ok := t.clients[peer.Id]
		t.clientsMu.RUnlock()
		if !ok {
			t.clientsMu.Lock()
			if err := t.connectLocked(peer); err != nil {
				t.clientsMu.Unlock()
				return wrapError(KindTransport, "dial failed", err)
			}
			client = t.clients[peer.Id]
			t.clientsMu.Unlock()
		}
		err := fn(client)
		if err == nil {
			return nil
		}
		if status.Code(err) == codes.Unavailable && attempt == 0 {
			t.clientsMu.Lock()
			t.disconnectLocked(peer)
			t.clientsMu.Unlock()
			continue
		}
		return wrapError(KindTransport, "rpc failed", err)
	}
	return newError(KindTransport, "rpc failed after retry")
}

func (t *GRPCTransport) Endpoint() string {
	return t.listener.Addr().String()
}

func (t *GRPCTransport) AppendEntries(ctx context.Context, peer Peer, request *AppendEntriesRequest) (*AppendEntriesResponse, error) {
	var response *AppendEntriesResponse
	if err := t.tryClient(peer, func(c *grpcTransportClient) error {
		r, err := c.client.AppendEntries(ctx, request)
		if err != nil {
			return err
		}
		response = r
		return nil
	}); err != nil {
		return nil, err
	}
	return response, nil
}

func (t *GRPCTransport) RequestVote(ctx context.Context, peer Peer, request *RequestVoteRequest) (*RequestVoteResponse, error) {
	var response *RequestVoteResponse
	if err := t.tryClient(peer, func(c *grpcTransportClient) error {
		r, err := c.client.RequestVote(ctx, request)
		if err != nil {
			return err
		}
		response = r
		return nil
	}); err != nil {
		return nil, err
	}
	return response, nil
}

func (t *GRPCTransport) InstallSnapshot(ctx context.Context, peer Peer, request *InstallSnapshotRequest) (*InstallSnapshotResponse, error) {
	var response *InstallSnapshotResponse
	if err := t.tryClient(peer, func(c *grpcTransportClient) error {
		r, err := c.client.InstallSnapshot(ctx, request)
		if err != nil {
			return err
		}
		response = r
		return nil
	}); err != nil {
		return nil, err
	}
	return response, nil
}

func (t *GRPCTransport) ApplyClient(ctx context.Context, peer Peer, request interface{}) (interface{}, error) {
	var response *clientEnvelope
	if err := t.tryClient(peer, func(c *grpcTransportClient) error {
		r, err := c.client.ApplyClient(ctx, encodeClientRequest(request))
		if err != nil {
			return err
		}
		response = r
		return nil
	}); err != nil {
		return nil, err
	}
	return decodeClientResult(response)
}

func (t *GRPCTransport) RPC() <-chan *RPC {
	return t.service.rpcCh
}

func (t *GRPCTransport) Serve() error {
	if !atomic.CompareAndSwapUint32(&t.serveFlag, 0, 1) {
		panic("atomix: Serve must only be called once")
	}
	t.logger.Infow("transport listening", "addr", t.listener.Addr().String())
	t.server = grpc.NewServer()
	t.server.RegisterService(&transportServiceDesc, t.service)
	return t.server.Serve(t.listener)
}

func (t *GRPCTransport) Close() error {
	t.clientsMu.Lock()
	for id, client := range t.clients {
		client.conn.Close()
		delete(t.clients, id)
	}
	t.clientsMu.Unlock()
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}
