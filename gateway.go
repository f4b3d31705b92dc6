package atomix

// Gateway is the Client Gateway: it accepts read/write/delete operations,
// submits them to the current role on the context thread, and unwraps
// results into plain byte slices or a mapped Error.
type Gateway struct {
	ctx *Context
}

// NewGateway returns a Gateway bound to ctx.
func NewGateway(ctx *Context) *Gateway {
	return &Gateway{ctx: ctx}
}

// Read submits a ReadRequest to the current role.
func (g *Gateway) Read(key []byte, consistency Consistency) *Future[[]byte] {
	f, resolve := newFuture[[]byte]()
	if !g.ctx.IsOpen() {
		resolve(nil, ErrNotOpen)
		return f
	}
	req := &ReadRequest{Key: key, Consistency: consistency}
	g.dispatch(req, f, resolve)
	return f
}

// Write submits a WriteRequest to the current role.
func (g *Gateway) Write(key, entry []byte) *Future[[]byte] {
	f, resolve := newFuture[[]byte]()
	if !g.ctx.IsOpen() {
		resolve(nil, ErrNotOpen)
		return f
	}
	req := &WriteRequest{Key: key, Entry: entry}
	g.dispatch(req, f, resolve)
	return f
}

// Delete submits a DeleteRequest to the current role.
func (g *Gateway) Delete(key []byte) *Future[[]byte] {
	f, resolve := newFuture[[]byte]()
	if !g.ctx.IsOpen() {
		resolve(nil, ErrNotOpen)
		return f
	}
	req := &DeleteRequest{Key: key}
	g.dispatch(req, f, resolve)
	return f
}

// dispatch submits request to the context thread and resolves f with the
// role's response, unwrapped into a plain []byte. The request value is
// never retained past this call -- there is nothing to explicitly release
// in a garbage-collected runtime, but the submission still always runs
// exactly once, matching the spec's "every request is dispatched exactly
// once and then released" rule.
func (g *Gateway) dispatch(request interface{}, f *Future[[]byte], resolve func([]byte, error)) {
	g.ctx.Submit(func() {
		g.ctx.role.handle(g.ctx, request, func(response interface{}, err error) {
			if err != nil {
				resolve(nil, err)
				return
			}
			if cr, ok := response.(*ClientResponse); ok {
				resolve(cr.Value, nil)
				return
			}
			resolve(nil, nil)
		})
	})
}
