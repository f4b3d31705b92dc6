package atomix

import (
	"context"

	"google.golang.org/grpc"
)

// TransportServer is the server-side contract grpcTransportService
// implements: one method per RPC kind the core dispatches. It exists as a
// plain Go interface instead of a protoc-generated one, matched by a
// hand-written grpc.ServiceDesc below.
type TransportServer interface {
	AppendEntries(context.Context, *AppendEntriesRequest) (*AppendEntriesResponse, error)
	RequestVote(context.Context, *RequestVoteRequest) (*RequestVoteResponse, error)
	InstallSnapshot(context.Context, *InstallSnapshotRequest) (*InstallSnapshotResponse, error)
	ApplyClient(context.Context, *clientEnvelope) (*clientEnvelope, error)
}

// TransportClient is the client-side contract transportServiceDesc's stub
// satisfies.
type TransportClient interface {
	AppendEntries(ctx context.Context, in *AppendEntriesRequest, opts ...grpc.CallOption) (*AppendEntriesResponse, error)
	RequestVote(ctx context.Context, in *RequestVoteRequest, opts ...grpc.CallOption) (*RequestVoteResponse, error)
	InstallSnapshot(ctx context.Context, in *InstallSnapshotRequest, opts ...grpc.CallOption) (*InstallSnapshotResponse, error)
	ApplyClient(ctx context.Context, in *clientEnvelope, opts ...grpc.CallOption) (*clientEnvelope, error)
}

const transportServiceName = "atomix.Transport"

// transportServiceDesc is the hand-written equivalent of a protoc-generated
// *_grpc.pb.go's ServiceDesc (teacher: pb/transport_grpc.pb.go). grpc-go
// only needs this struct, the method name strings, and a codec that knows
// how to (de)serialize the Go types flowing through it -- none of that
// requires the reflection-backed descriptor protoc normally emits.
var transportServiceDesc = grpc.ServiceDesc{
	ServiceName: transportServiceName,
	HandlerType: (*TransportServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AppendEntries", Handler: transportAppendEntriesHandler},
		{MethodName: "RequestVote", Handler: transportRequestVoteHandler},
		{MethodName: "InstallSnapshot", Handler: transportInstallSnapshotHandler},
		{MethodName: "ApplyClient", Handler: transportApplyClientHandler},
	},
	Metadata: "atomix/transport.proto",
}

func transportAppendEntriesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AppendEntriesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransportServer).AppendEntries(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + transportServiceName + "/AppendEntries"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransportServer).AppendEntries(ctx, req.(*AppendEntriesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func transportRequestVoteHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RequestVoteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransportServer).RequestVote(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + transportServiceName + "/RequestVote"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransportServer).RequestVote(ctx, req.(*RequestVoteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func transportInstallSnapshotHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(InstallSnapshotRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransportServer).InstallSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + transportServiceName + "/InstallSnapshot"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransportServer).InstallSnapshot(ctx, req.(*InstallSnapshotRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func transportApplyClientHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(clientEnvelope)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransportServer).ApplyClient(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + transportServiceName + "/ApplyClient"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransportServer).ApplyClient(ctx, req.(*clientEnvelope))
	}
	return interceptor(ctx, in, info, handler)
}

// transportClientStub is the hand-written equivalent of a generated
// *_grpc.pb.go client (teacher: pb/apiservice_grpc.pb.go's transportClient).
type transportClientStub struct {
	cc grpc.ClientConnInterface
}

func newTransportClient(cc grpc.ClientConnInterface) TransportClient {
	return &transportClientStub{cc: cc}
}

func (c *transportClientStub) AppendEntries(ctx context.Context, in *AppendEntriesRequest, opts ...grpc.CallOption) (*AppendEntriesResponse, error) {
	out := new(AppendEntriesResponse)
	if err := c.cc.Invoke(ctx, "/"+transportServiceName+"/AppendEntries", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transportClientStub) RequestVote(ctx context.Context, in *RequestVoteRequest, opts ...grpc.CallOption) (*RequestVoteResponse, error) {
	out := new(RequestVoteResponse)
	if err := c.cc.Invoke(ctx, "/"+transportServiceName+"/RequestVote", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transportClientStub) InstallSnapshot(ctx context.Context, in *InstallSnapshotRequest, opts ...grpc.CallOption) (*InstallSnapshotResponse, error) {
	out := new(InstallSnapshotResponse)
	if err := c.cc.Invoke(ctx, "/"+transportServiceName+"/InstallSnapshot", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transportClientStub) ApplyClient(ctx context.Context, in *clientEnvelope, opts ...grpc.CallOption) (*clientEnvelope, error) {
	out := new(clientEnvelope)
	if err := c.cc.Invoke(ctx, "/"+transportServiceName+"/ApplyClient", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
