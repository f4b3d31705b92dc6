package atomix

// AppendEntriesRequest is sent by a Leader (or a step-down-pending former
// Leader) to replicate entries and advance the follower's commit index.
type AppendEntriesRequest struct {
	Term         uint64
	Leader       NodeId
	PrevLogIndex uint64
	PrevLogTerm  uint64
	Entries      []LogEntry
	LeaderCommit uint64
}

// AppendEntriesResponse always carries the responder's current term so the
// sender can observe a higher term and step down.
type AppendEntriesResponse struct {
	ServerId NodeId
	Term     uint64
	Success  bool
	// ConflictIndex/ConflictTerm implement the fast-backup optimisation: the
	// first index of the conflicting term, so the leader can skip straight
	// past an entire mismatched term instead of decrementing one at a time.
	ConflictIndex uint64
	ConflictTerm  uint64
}

// RequestVoteRequest is sent by a Candidate to every peer at the start of an
// election.
type RequestVoteRequest struct {
	Term         uint64
	Candidate    NodeId
	LastLogIndex uint64
	LastLogTerm  uint64
}

// RequestVoteResponse always carries the responder's current term.
type RequestVoteResponse struct {
	ServerId NodeId
	Term     uint64
	Granted  bool
}

// InstallSnapshotRequest is a wire-compatible stub: snapshot transfer
// formats are explicitly out of scope, but the RPC shape exists so
// Transport implementations have a complete surface to satisfy.
type InstallSnapshotRequest struct {
	Term              uint64
	Leader            NodeId
	LastIncludedIndex uint64
	LastIncludedTerm  uint64
}

// InstallSnapshotResponse is the reply shape for InstallSnapshotRequest. No
// role handles InstallSnapshotRequest: Start answers it with ErrNotOpen and
// every other role with ErrAborted, so no ack is ever sent.
type InstallSnapshotResponse struct {
	ServerId NodeId
	Term     uint64
}

// ReadRequest is a client read, dispatched to the role the same way a
// Write/Delete is.
type ReadRequest struct {
	Key         []byte
	Consistency Consistency
}

// WriteRequest is a client write (append a Command entry and wait for
// commit+apply).
type WriteRequest struct {
	Key   []byte
	Entry []byte
}

// DeleteRequest is a client delete; structurally identical to Write, kept
// distinct so the commit handler can branch on intent without inspecting a
// payload-embedded opcode.
type DeleteRequest struct {
	Key []byte
}

// ClientResponse is the uniform result shape for Read/Write/Delete: either a
// result buffer or an error.
type ClientResponse struct {
	Value []byte
}
