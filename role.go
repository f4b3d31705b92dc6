package atomix

// role is the interface every variant of the role state machine implements.
// Construction/destruction is synchronous on the context thread; a role
// never outlives the single transition that owns it. The context is passed
// explicitly to every method instead of being stored on the role, avoiding a
// reference cycle between Context and Role.
//
// handle is invoked on the context thread and must call respond exactly
// once. Most requests resolve synchronously, before handle returns; a role
// that needs to suspend (forwarding a client request to a known leader over
// the network) instead spawns a goroutine and calls respond from there once
// the round trip completes -- it never blocks the context thread on a
// network round trip.
type role interface {
	open(ctx *Context) error
	close(ctx *Context) error
	handle(ctx *Context, request interface{}, respond func(interface{}, error))
	kind() RoleKind
}

// newRole constructs the (unopened) role variant for the given kind.
func newRole(kind RoleKind) role {
	switch kind {
	case RoleStart:
		return &startRole{}
	case RolePassive:
		return &passiveRole{}
	case RoleRemote:
		return &remoteRole{}
	case RoleFollower:
		return &followerRole{}
	case RoleCandidate:
		return &candidateRole{}
	case RoleLeader:
		return &leaderRole{}
	default:
		panic("atomix: unknown role kind")
	}
}

// isLogUpToDate reports whether a candidate whose log ends at
// (candidateLastTerm, candidateLastIndex) is at least as up to date as the
// local log ending at (localLastTerm, localLastIndex), per the Raft
// lexicographic (term, index) comparison RequestVote uses.
func isLogUpToDate(candidateLastTerm, candidateLastIndex, localLastTerm, localLastIndex uint64) bool {
	if candidateLastTerm != localLastTerm {
		return candidateLastTerm > localLastTerm
	}
	return candidateLastIndex >= localLastIndex
}

// rejectNotOpen is the uniform handle() body for roles that accept no RPCs
// at all (Start).
func rejectNotOpen(ctx *Context, request interface{}, respond func(interface{}, error)) {
	switch request.(type) {
	case *AppendEntriesRequest:
		respond(&AppendEntriesResponse{ServerId: ctx.id, Term: ctx.term, Success: false}, ErrNotOpen)
	case *RequestVoteRequest:
		respond(&RequestVoteResponse{ServerId: ctx.id, Term: ctx.term, Granted: false}, ErrNotOpen)
	default:
		respond(nil, ErrNotOpen)
	}
}
