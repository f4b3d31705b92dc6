package atomix

import "time"

// followerRole replicates from the known leader and stands for election once
// its timer lapses without contact.
type followerRole struct {
	timer *time.Timer
}

func (r *followerRole) open(ctx *Context) error {
	r.resetTimer(ctx)
	return nil
}

func (r *followerRole) close(ctx *Context) error {
	if r.timer != nil {
		r.timer.Stop()
	}
	return nil
}

func (r *followerRole) kind() RoleKind { return RoleFollower }

// resetTimer (re)arms the election timer. The fired callback re-enters the
// context thread and checks that this role instance is still current before
// acting, so a timer belonging to a role already closed by a prior
// transition is a no-op instead of a stale double-transition.
func (r *followerRole) resetTimer(ctx *Context) {
	if r.timer != nil {
		r.timer.Stop()
	}
	d := randomElectionTimeout(ctx.cfg.ElectionTimeout)
	r.timer = time.AfterFunc(d, func() {
		ctx.Submit(func() {
			if ctx.role != role(r) {
				return
			}
			ctx.logger.Infow("election timeout, standing for election", logFields(ctx)...)
			if err := ctx.transition(RoleCandidate); err != nil {
				ctx.logger.Warnw("candidate transition failed", logFields(ctx, "error", err)...)
			}
		})
	})
}

func (r *followerRole) handle(ctx *Context, request interface{}, respond func(interface{}, error)) {
	switch req := request.(type) {
	case *AppendEntriesRequest:
		respond(appendEntriesCommon(ctx, req, func() { r.resetTimer(ctx) }), nil)
	case *RequestVoteRequest:
		respond(requestVoteCommon(ctx, req, true, func() { r.resetTimer(ctx) }), nil)
	case *ReadRequest, *WriteRequest, *DeleteRequest:
		forwardClientRequest(ctx, request, respond)
	default:
		respond(nil, ErrAborted)
	}
}
