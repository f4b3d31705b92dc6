package atomix

import (
	"context"
	"sort"
	"time"
)

// leaderRole replicates the log to every peer, advances the commit index on
// majority agreement, and answers client Read/Write/Delete directly.
type leaderRole struct {
	heartbeat *time.Ticker
	stopCh    chan struct{}
	// waiters holds continuations keyed by log index, run once last_applied
	// reaches that index: client Write/Delete waiters keyed by the index
	// they appended, and Sequential Read waiters keyed by the commit index
	// observed at request time.
	waiters map[uint64][]func([]byte, error)
}

func (r *leaderRole) open(ctx *Context) error {
	r.waiters = map[uint64][]func([]byte, error){}
	lastIndex := ctx.logv.lastIndex()
	for _, ps := range ctx.peers {
		ps.NextIndex = lastIndex + 1
		ps.MatchIndex = 0
	}
	if err := ctx.SetLeader(ctx.id); err != nil {
		return err
	}
	if _, err := ctx.logv.append(ctx.term, nil, nil, KindNoOp); err != nil {
		return wrapError(KindStorageFault, "no-op append failed", err)
	}
	r.stopCh = make(chan struct{})
	r.heartbeat = time.NewTicker(ctx.cfg.HeartbeatInterval)
	go r.heartbeatLoop(ctx)
	r.replicateAll(ctx)
	return nil
}

func (r *leaderRole) close(ctx *Context) error {
	if r.heartbeat != nil {
		r.heartbeat.Stop()
	}
	if r.stopCh != nil {
		close(r.stopCh)
	}
	for idx, ws := range r.waiters {
		for _, w := range ws {
			w(nil, ErrAborted)
		}
		delete(r.waiters, idx)
	}
	return nil
}

func (r *leaderRole) kind() RoleKind { return RoleLeader }

func (r *leaderRole) heartbeatLoop(ctx *Context) {
	for {
		select {
		case <-r.heartbeat.C:
			ctx.Submit(func() {
				if ctx.role != role(r) {
					return
				}
				r.replicateAll(ctx)
			})
		case <-r.stopCh:
			return
		}
	}
}

func (r *leaderRole) replicateAll(ctx *Context) {
	for id, ps := range ctx.peers {
		r.replicateTo(ctx, id, ps)
	}
}

func (r *leaderRole) replicateTo(ctx *Context, id NodeId, ps *PeerState) {
	peer, ok := ctx.cluster.Member(id)
	if !ok {
		return
	}
	prevIndex := ps.NextIndex - 1
	prevTerm := ctx.logv.termAt(prevIndex)
	lastIndex := ctx.logv.lastIndex()
	var entries []LogEntry
	if ps.NextIndex <= lastIndex {
		es, err := ctx.logv.entries(ps.NextIndex, lastIndex)
		if err != nil {
			return
		}
		entries = es
	}
	req := &AppendEntriesRequest{
		Term:         ctx.term,
		Leader:       ctx.id,
		PrevLogIndex: prevIndex,
		PrevLogTerm:  prevTerm,
		Entries:      entries,
		LeaderCommit: ctx.commitIndex,
	}
	term := ctx.term
	go func() {
		resp, err := ctx.trans.AppendEntries(context.Background(), peer, req)
		if err != nil {
			ctx.Submit(func() {
				if ctx.role == role(r) && ctx.term == term {
					ps.Failures++
				}
			})
			return
		}
		ctx.Submit(func() {
			if ctx.role != role(r) || ctx.term != term {
				return
			}
			r.onAppendResponse(ctx, id, req, resp)
		})
	}()
}

func (r *leaderRole) onAppendResponse(ctx *Context, id NodeId, req *AppendEntriesRequest, resp *AppendEntriesResponse) {
	ps, ok := ctx.peers[id]
	if !ok {
		return
	}
	if resp.Term > ctx.term {
		ctx.SetTerm(resp.Term)
		ctx.transition(RoleFollower)
		return
	}
	if !resp.Success {
		ps.Failures++
		if resp.ConflictIndex > 0 {
			ps.NextIndex = resp.ConflictIndex
		} else if ps.NextIndex > 1 {
			ps.NextIndex--
		}
		return
	}
	ps.Failures = 0
	ps.LastContact = time.Now()
	newMatch := req.PrevLogIndex + uint64(len(req.Entries))
	if newMatch > ps.MatchIndex {
		ps.MatchIndex = newMatch
	}
	ps.NextIndex = ps.MatchIndex + 1
	r.advanceCommitIndex(ctx)
}

// advanceCommitIndex implements the spec's majority-match-index rule: the
// highest N with N > commit_index, term_at(N) == context.term, and a
// majority of match_index (including self) >= N.
func (r *leaderRole) advanceCommitIndex(ctx *Context) {
	matches := make([]uint64, 0, len(ctx.peers)+1)
	matches = append(matches, ctx.logv.lastIndex())
	for _, ps := range ctx.peers {
		matches = append(matches, ps.MatchIndex)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i] > matches[j] })
	n := matches[len(matches)/2]
	if n <= ctx.commitIndex || ctx.logv.termAt(n) != ctx.term {
		return
	}
	if err := ctx.SetCommitIndex(n); err != nil {
		return
	}
	r.applyCommitted(ctx)
}

func (r *leaderRole) applyCommitted(ctx *Context) {
	for ctx.lastApplied < ctx.commitIndex {
		idx := ctx.lastApplied + 1
		entries, err := ctx.logv.entries(idx, idx)
		if err != nil || len(entries) == 0 {
			return
		}
		e := entries[0]
		var result []byte
		if ctx.commitHandler != nil && e.Kind == KindCommand {
			result = ctx.commitHandler(e.Key, e.Data, nil, false)
		}
		if err := ctx.SetLastApplied(idx); err != nil {
			return
		}
		if ws, ok := r.waiters[idx]; ok {
			for _, w := range ws {
				w(result, nil)
			}
			delete(r.waiters, idx)
		}
	}
}

func (r *leaderRole) handle(ctx *Context, request interface{}, respond func(interface{}, error)) {
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
	case *WriteRequest:
		r.appendClientEntry(ctx, req.Key, req.Entry, respond)
	case *DeleteRequest:
		r.appendClientEntry(ctx, req.Key, nil, respond)
	case *ReadRequest:
		r.handleRead(ctx, req, respond)
	default:
		respond(nil, ErrAborted)
	}
}

// appendClientEntry implements the Write/Delete path: append, register a
// waiter keyed by the new index, and kick replication (or, in a one-node
// cluster, recompute the commit index directly since there is no peer to
// wait on).
func (r *leaderRole) appendClientEntry(ctx *Context, key, entry []byte, respond func(interface{}, error)) {
	idx, err := ctx.logv.append(ctx.term, key, entry, KindCommand)
	if err != nil {
		respond(nil, wrapError(KindStorageFault, "append failed", err))
		return
	}
	r.waiters[idx] = append(r.waiters[idx], func(result []byte, err error) {
		if err != nil {
			respond(nil, err)
			return
		}
		respond(&ClientResponse{Value: result}, nil)
	})
	if len(ctx.peers) == 0 {
		r.advanceCommitIndex(ctx)
	} else {
		r.replicateAll(ctx)
	}
}

func (r *leaderRole) handleRead(ctx *Context, req *ReadRequest, respond func(interface{}, error)) {
	if req.Consistency == Linearizable {
		r.confirmLeadership(ctx, func(err error) {
			if err != nil {
				respond(nil, err)
				return
			}
			respond(r.applyRead(ctx, req.Key), nil)
		})
		return
	}
	target := ctx.commitIndex
	if ctx.lastApplied >= target {
		respond(r.applyRead(ctx, req.Key), nil)
		return
	}
	r.waiters[target] = append(r.waiters[target], func(_ []byte, err error) {
		if err != nil {
			respond(nil, err)
			return
		}
		respond(r.applyRead(ctx, req.Key), nil)
	})
}

func (r *leaderRole) applyRead(ctx *Context, key []byte) *ClientResponse {
	var result []byte
	if ctx.commitHandler != nil {
		result = ctx.commitHandler(key, nil, nil, true)
	}
	return &ClientResponse{Value: result}
}

// confirmLeadership exchanges one heartbeat round with every peer and calls
// done once a majority (including self) has acknowledged the current term,
// or as soon as any response reveals a higher term. Used to confirm
// leadership before answering a Linearizable read.
func (r *leaderRole) confirmLeadership(ctx *Context, done func(error)) {
	total := len(ctx.peers) + 1
	needed := total/2 + 1
	acked := 1
	settled := false
	complete := func(err error) {
		if settled {
			return
		}
		settled = true
		done(err)
	}
	if acked >= needed {
		complete(nil)
		return
	}
	term := ctx.term
	lastIndex := ctx.logv.lastIndex()
	req := &AppendEntriesRequest{
		Term:         term,
		Leader:       ctx.id,
		PrevLogIndex: lastIndex,
		PrevLogTerm:  ctx.logv.termAt(lastIndex),
		LeaderCommit: ctx.commitIndex,
	}
	for id := range ctx.peers {
		peer, ok := ctx.cluster.Member(id)
		if !ok {
			continue
		}
		go func(peer Peer) {
			resp, err := ctx.trans.AppendEntries(context.Background(), peer, req)
			ctx.Submit(func() {
				if ctx.role != role(r) || ctx.term != term || settled {
					return
				}
				if err != nil {
					return
				}
				if resp.Term > ctx.term {
					ctx.SetTerm(resp.Term)
					ctx.transition(RoleFollower)
					complete(ErrAborted)
					return
				}
				if !resp.Success {
					return
				}
				acked++
				if acked >= needed {
					complete(nil)
				}
			})
		}(peer)
	}
}
