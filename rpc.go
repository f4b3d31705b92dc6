package atomix

import (
	"context"
)

// RPC is one inbound request handed from a Transport to the owning
// Context's dispatch loop, together with a channel the eventual response (or
// error) is delivered back on. A Transport pushes an *RPC onto its RPC()
// channel and blocks on Response() for the reply.
type RPC struct {
	ctx        context.Context
	request    interface{}
	responseCh chan rpcResult
}

type rpcResult struct {
	response interface{}
	err      error
}

// NewRPC wraps an inbound request for delivery to the context thread.
func NewRPC(ctx context.Context, request interface{}) *RPC {
	return &RPC{ctx: ctx, request: request, responseCh: make(chan rpcResult, 1)}
}

// Context returns the request's originating (transport-level) context.
func (r *RPC) Context() context.Context { return r.ctx }

// Request returns the decoded request payload.
func (r *RPC) Request() interface{} { return r.request }

// Respond delivers the handler's result back to the waiting transport.
func (r *RPC) Respond(response interface{}, err error) {
	r.responseCh <- rpcResult{response: response, err: err}
}

// Response blocks until Respond has been called.
func (r *RPC) Response() (interface{}, error) {
	res := <-r.responseCh
	return res.response, res.err
}

// DispatchRPC hands an inbound *RPC to the Context's current role and
// replies on its response channel. The owner's dispatch loop calls this once
// per RPC it takes from a Transport's RPC() channel, typically from its own
// goroutine so Serve() is never blocked.
func (ctx *Context) DispatchRPC(rpc *RPC) {
	ctx.Submit(func() {
		ctx.role.handle(ctx, rpc.request, rpc.Respond)
	})
}
