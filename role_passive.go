package atomix

// passiveRole is a non-voting learner: it replicates like a Follower but
// never stands for election and never grants votes.
type passiveRole struct{}

func (r *passiveRole) open(ctx *Context) error  { return nil }
func (r *passiveRole) close(ctx *Context) error { return nil }
func (r *passiveRole) kind() RoleKind            { return RolePassive }

func (r *passiveRole) handle(ctx *Context, request interface{}, respond func(interface{}, error)) {
	switch req := request.(type) {
	case *AppendEntriesRequest:
		respond(appendEntriesCommon(ctx, req, nil), nil)
	case *RequestVoteRequest:
		respond(requestVoteCommon(ctx, req, false, nil), nil)
	case *ReadRequest, *WriteRequest, *DeleteRequest:
		forwardClientRequest(ctx, request, respond)
	default:
		respond(nil, ErrAborted)
	}
}
