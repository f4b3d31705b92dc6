package atomix

import (
	"context"
	"time"
)

// candidateRole runs one or more successive elections at increasing terms
// until it wins a majority, discovers a legitimate leader, or observes a
// higher term and steps down.
type candidateRole struct {
	timer *time.Timer
	votes map[NodeId]bool
}

func (r *candidateRole) open(ctx *Context) error {
	return r.beginElection(ctx)
}

func (r *candidateRole) close(ctx *Context) error {
	if r.timer != nil {
		r.timer.Stop()
	}
	return nil
}

func (r *candidateRole) kind() RoleKind { return RoleCandidate }

// beginElection bumps the term, votes for self, arms the election timer, and
// fans the RequestVote RPC out to every peer. Called both on entry and on
// every subsequent election timeout while still a Candidate.
func (r *candidateRole) beginElection(ctx *Context) error {
	if err := ctx.SetTerm(ctx.term + 1); err != nil {
		return err
	}
	if err := ctx.SetVotedFor(ctx.id); err != nil {
		return err
	}
	r.votes = map[NodeId]bool{ctx.id: true}
	ctx.logger.Infow("starting election", logFields(ctx, "peers", len(ctx.peers))...)
	r.resetTimer(ctx)
	if r.hasMajority(ctx) {
		return ctx.transition(RoleLeader)
	}
	r.sendRequestVotes(ctx)
	return nil
}

func (r *candidateRole) resetTimer(ctx *Context) {
	if r.timer != nil {
		r.timer.Stop()
	}
	d := randomElectionTimeout(ctx.cfg.ElectionTimeout)
	r.timer = time.AfterFunc(d, func() {
		ctx.Submit(func() {
			if ctx.role != role(r) {
				return
			}
			ctx.logger.Infow("election timed out without a majority, retrying", logFields(ctx)...)
			if err := r.beginElection(ctx); err != nil {
				ctx.logger.Warnw("election restart failed", logFields(ctx, "error", err)...)
			}
		})
	})
}

func (r *candidateRole) sendRequestVotes(ctx *Context) {
	term := ctx.term
	lastIndex, lastTerm := ctx.logv.lastEntryMeta()
	req := &RequestVoteRequest{Term: term, Candidate: ctx.id, LastLogIndex: lastIndex, LastLogTerm: lastTerm}
	for id := range ctx.peers {
		peer, ok := ctx.cluster.Member(id)
		if !ok {
			continue
		}
		go func(id NodeId, peer Peer) {
			resp, err := ctx.trans.RequestVote(context.Background(), peer, req)
			if err != nil {
				return
			}
			ctx.Submit(func() {
				if ctx.role != role(r) || ctx.term != term {
					return
				}
				r.onVoteResponse(ctx, id, resp)
			})
		}(id, peer)
	}
}

func (r *candidateRole) onVoteResponse(ctx *Context, id NodeId, resp *RequestVoteResponse) {
	if resp.Term > ctx.term {
		ctx.SetTerm(resp.Term)
		ctx.transition(RoleFollower)
		return
	}
	if resp.Term < ctx.term || !resp.Granted || r.votes[id] {
		return
	}
	r.votes[id] = true
	ctx.logger.Infow("vote granted", logFields(ctx, "voter", string(id), "have", len(r.votes))...)
	if r.hasMajority(ctx) {
		ctx.transition(RoleLeader)
	}
}

func (r *candidateRole) hasMajority(ctx *Context) bool {
	total := len(ctx.peers) + 1
	return len(r.votes)*2 > total
}

func (r *candidateRole) handle(ctx *Context, request interface{}, respond func(interface{}, error)) {
	switch req := request.(type) {
	case *AppendEntriesRequest:
		stepDown := req.Term >= ctx.term
		resp := appendEntriesCommon(ctx, req, nil)
		respond(resp, nil)
		if stepDown {
			ctx.transition(RoleFollower)
		}
	case *RequestVoteRequest:
		priorTerm := ctx.term
		resp := requestVoteCommon(ctx, req, true, nil)
		respond(resp, nil)
		if req.Term > priorTerm {
			ctx.transition(RoleFollower)
		}
	case *ReadRequest, *WriteRequest, *DeleteRequest:
		// No leader is known while standing for election.
		respond(nil, ErrNoLeader)
	default:
		respond(nil, ErrAborted)
	}
}
