package atomix

import (
	"context"
)

// appendEntriesCommon implements the AppendEntries handling shared by
// Follower and Passive: both accept entries from the current leader
// identically, differing only in whether they run an election timer.
// onContact, if non-nil, is invoked after the leader/term have been
// accepted so the caller can reset its election timer (Passive has none).
func appendEntriesCommon(ctx *Context, req *AppendEntriesRequest, onContact func()) *AppendEntriesResponse {
	resp := &AppendEntriesResponse{ServerId: ctx.id, Term: ctx.term, Success: false}
	if req.Term < ctx.term {
		return resp
	}

	ctx.SetTerm(req.Term)
	ctx.SetLeader(req.Leader)
	resp.Term = ctx.term
	if onContact != nil {
		onContact()
	}

	if req.PrevLogIndex > 0 {
		if ctx.logv.termAt(req.PrevLogIndex) != req.PrevLogTerm {
			resp.ConflictIndex, resp.ConflictTerm = conflictHint(ctx, req.PrevLogIndex)
			return resp
		}
	}

	for _, e := range req.Entries {
		localTerm := ctx.logv.termAt(e.Index)
		if localTerm == e.Term {
			continue
		}
		if localTerm != 0 {
			ctx.logv.truncateSuffix(e.Index)
		}
		for _, rest := range req.Entries {
			if rest.Index < e.Index {
				continue
			}
			ctx.logv.append(rest.Term, rest.Key, rest.Data, rest.Kind)
		}
		break
	}

	if req.LeaderCommit > ctx.commitIndex {
		newCommit := req.LeaderCommit
		if last := ctx.logv.lastIndex(); newCommit > last {
			newCommit = last
		}
		if newCommit > ctx.commitIndex {
			ctx.SetCommitIndex(newCommit)
		}
	}

	// Apply newly committed entries so last_applied follows commit_index on
	// replicas that are not the leader.
	for ctx.lastApplied < ctx.commitIndex {
		idx := ctx.lastApplied + 1
		entries, err := ctx.logv.entries(idx, idx)
		if err != nil || len(entries) == 0 {
			break
		}
		if ctx.commitHandler != nil && entries[0].Kind == KindCommand {
			ctx.commitHandler(entries[0].Key, entries[0].Data, nil, false)
		}
		if ctx.SetLastApplied(idx) != nil {
			break
		}
	}

	resp.Success = true
	return resp
}

// conflictHint finds the first index of the term currently occupying
// prevIndex locally, letting the leader skip its nextIndex past an entire
// mismatched term in one round trip instead of decrementing by one.
func conflictHint(ctx *Context, prevIndex uint64) (uint64, uint64) {
	localTerm := ctx.logv.termAt(prevIndex)
	if localTerm == 0 {
		return ctx.logv.lastIndex() + 1, 0
	}
	idx := prevIndex
	for idx > 1 && ctx.logv.termAt(idx-1) == localTerm {
		idx--
	}
	return idx, localTerm
}

// requestVoteCommon implements the RequestVote handling shared across role
// variants. grantable is false for roles that never participate in
// elections (Passive, Remote): they still observe and adopt higher terms,
// but always reply Granted=false. onGrant, if non-nil, is invoked only when
// a vote is actually granted (Follower resets its election timer there).
func requestVoteCommon(ctx *Context, req *RequestVoteRequest, grantable bool, onGrant func()) *RequestVoteResponse {
	resp := &RequestVoteResponse{ServerId: ctx.id, Term: ctx.term, Granted: false}
	if req.Term < ctx.term {
		return resp
	}
	if req.Term > ctx.term {
		ctx.SetTerm(req.Term)
		resp.Term = ctx.term
	}
	if !grantable {
		return resp
	}
	if ctx.votedFor != noneID && ctx.votedFor != req.Candidate {
		return resp
	}
	localIndex, localTerm := ctx.logv.lastEntryMeta()
	if !isLogUpToDate(req.LastLogTerm, req.LastLogIndex, localTerm, localIndex) {
		return resp
	}
	if err := ctx.SetVotedFor(req.Candidate); err != nil {
		return resp
	}
	resp.Granted = true
	if onGrant != nil {
		onGrant()
	}
	return resp
}

// forwardClientRequest forwards a Read/Write/Delete request to the known
// leader over the Transport, resolving respond asynchronously so the
// context thread is never blocked on the network round trip. Fails
// synchronously with NoLeader if none is known.
func forwardClientRequest(ctx *Context, request interface{}, respond func(interface{}, error)) {
	leaderID := ctx.leader
	if leaderID == noneID {
		respond(nil, ErrNoLeader)
		return
	}
	peer, ok := ctx.cluster.Member(leaderID)
	if !ok {
		respond(nil, ErrNoLeader)
		return
	}
	trans := ctx.trans
	go func() {
		resp, err := trans.ApplyClient(context.Background(), peer, request)
		respond(resp, err)
	}()
}
