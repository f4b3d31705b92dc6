package atomix

// remoteRole is a read-only observer: it holds no persistent log and never
// votes, only tracking term/leader well enough to forward client requests.
type remoteRole struct{}

func (r *remoteRole) open(ctx *Context) error  { return nil }
func (r *remoteRole) close(ctx *Context) error { return nil }
func (r *remoteRole) kind() RoleKind            { return RoleRemote }

func (r *remoteRole) handle(ctx *Context, request interface{}, respond func(interface{}, error)) {
	switch req := request.(type) {
	case *AppendEntriesRequest:
		// No log to replicate into; only observe term/leader so forwarding
		// stays correct.
		resp := &AppendEntriesResponse{ServerId: ctx.id, Term: ctx.term, Success: false}
		if req.Term < ctx.term {
			respond(resp, nil)
			return
		}
		ctx.SetTerm(req.Term)
		ctx.SetLeader(req.Leader)
		resp.Term = ctx.term
		resp.Success = true
		respond(resp, nil)
	case *RequestVoteRequest:
		respond(requestVoteCommon(ctx, req, false, nil), nil)
	case *ReadRequest, *WriteRequest, *DeleteRequest:
		forwardClientRequest(ctx, request, respond)
	default:
		respond(nil, ErrAborted)
	}
}
