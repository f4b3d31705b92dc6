package atomix

import (
	"go.uber.org/zap"
)

// Context is the Replica Context: the single authoritative, mutable state of
// one replica, plus the single-threaded execution anchor every mutation
// must run through, dispatching across a six-role state machine (Start,
// Passive, Remote, Follower, Candidate, Leader).
type Context struct {
	id       NodeId
	nodeType NodeType

	term             uint64
	leader           NodeId
	votedFor         NodeId
	version          uint64
	commitIndex      uint64
	firstCommitIndex uint64
	firstCommitSet   bool
	lastApplied      uint64
	recycleIndex     uint64
	recovering       bool
	open             bool

	peers map[NodeId]*PeerState

	role role

	commitHandler CommitHandler

	logv    *logView
	store   LogStore
	trans   Transport
	cluster Cluster

	cfg Config

	logger *zap.SugaredLogger

	pumpCh    chan func()
	pumpStop  chan struct{}
	pumpReady chan struct{}
	pumpID    uint64

	leaderWaiters []chan struct{}

	// onTermChange, when set, is invoked (on the context thread) after every
	// term or leader mutation. The TermProvider adapter is the sole
	// registrant; it owns its own listener registry.
	onTermChange func()

	metrics *metricsRecorder
}

// NewContext validates cfg and constructs an unopened Context. Call Open to
// bind the log store and arm the initial role.
func NewContext(cfg Config) (*Context, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	ctx := &Context{
		id:       cfg.Cluster.LocalID(),
		nodeType: cfg.Cluster.LocalType(),
		peers:    map[NodeId]*PeerState{},
		store:    cfg.Storage,
		trans:    cfg.Transport,
		cluster:  cfg.Cluster,
		cfg:      cfg,
		logger:   newContextLogger(cfg.LogLevel),
		pumpCh:   make(chan func(), 256),
		pumpStop: make(chan struct{}),
		pumpReady: make(chan struct{}),
		metrics:   newMetricsRecorder(cfg.MetricsRegistry),
		role:      newRole(RoleStart),
	}
	ctx.commitHandler = cfg.CommitHandler
	ctx.logv = newLogView(ctx.store)
	for _, p := range cfg.Cluster.Members() {
		if p.Id == ctx.id {
			continue
		}
		ctx.peers[p.Id] = &PeerState{}
	}
	return ctx, nil
}

// Open binds the log store, starts the execution pump, and arms the initial
// role: Follower for Active nodes, Passive or Remote otherwise.
func (ctx *Context) Open() error {
	if err := ctx.store.Open(); err != nil {
		return wrapError(KindStorageFault, "log store open failed", err)
	}
	go ctx.runPump()
	<-ctx.pumpReady

	initial := RoleFollower
	switch ctx.nodeType {
	case Passive:
		initial = RolePassive
	case Remote:
		initial = RoleRemote
	}

	done := make(chan error, 1)
	ctx.Submit(func() {
		ctx.open = true
		done <- ctx.transition(initial)
	})
	return <-done
}

// Close transitions the role to Start, closes the log store, and stops the
// execution pump. Safe to call once; subsequent calls are no-ops.
func (ctx *Context) Close() error {
	select {
	case <-ctx.pumpStop:
		return nil
	default:
	}
	done := make(chan error, 1)
	ctx.Submit(func() {
		done <- ctx.transition(RoleStart)
		ctx.open = false
	})
	transitionErr := <-done
	close(ctx.pumpStop)
	if err := ctx.store.Close(); err != nil {
		if transitionErr != nil {
			return transitionErr
		}
		return wrapError(KindStorageFault, "log store close failed", err)
	}
	return transitionErr
}

// Submit enqueues fn to run on the context thread, in FIFO order relative
// to every other submission. It is the only supported way for external
// callers to touch replica state.
func (ctx *Context) Submit(fn func()) {
	ctx.pumpCh <- fn
}

// do submits fn and blocks until it has run, for call sites (Open, Close,
// tests) that need a synchronous round trip.
func (ctx *Context) do(fn func()) {
	done := make(chan struct{})
	ctx.Submit(func() {
		fn()
		close(done)
	})
	<-done
}

func (ctx *Context) runPump() {
	ctx.pumpID = goroutineID()
	close(ctx.pumpReady)
	for {
		select {
		case fn := <-ctx.pumpCh:
			fn()
		case <-ctx.pumpStop:
			// Drain anything already queued so synchronous callers waiting
			// on a `done` channel do not deadlock against a stopped pump.
			for {
				select {
				case fn := <-ctx.pumpCh:
					fn()
				default:
					return
				}
			}
		}
	}
}

// checkThread fails if the caller is not executing on the context's pump
// goroutine.
func (ctx *Context) checkThread() error {
	if goroutineID() != ctx.pumpID {
		return newError(KindIllegalState, "operation invoked off the context thread")
	}
	return nil
}

// --- Accessors (read-only snapshots; safe only from the context thread) ---

func (ctx *Context) Term() uint64         { return ctx.term }
func (ctx *Context) Leader() NodeId       { return ctx.leader }
func (ctx *Context) VotedFor() NodeId     { return ctx.votedFor }
func (ctx *Context) CommitIndex() uint64  { return ctx.commitIndex }
func (ctx *Context) LastApplied() uint64  { return ctx.lastApplied }
func (ctx *Context) RecycleIndex() uint64 { return ctx.recycleIndex }
func (ctx *Context) Recovering() bool     { return ctx.recovering }
func (ctx *Context) IsOpen() bool         { return ctx.open }
func (ctx *Context) RoleKind() RoleKind   { return ctx.role.kind() }
func (ctx *Context) ID() NodeId           { return ctx.id }
func (ctx *Context) Version() uint64      { return ctx.version }

// --- Mutators ---

// SetTerm implements set_term(t): monotone advance, clearing leader/vote and
// emitting EpochChange. A t <= current term is a silent no-op.
func (ctx *Context) SetTerm(t uint64) error {
	if err := ctx.checkThread(); err != nil {
		return err
	}
	if t <= ctx.term {
		return nil
	}
	old := ctx.term
	ctx.term = t
	ctx.leader = noneID
	ctx.votedFor = noneID
	ctx.logger.Infow("term advanced", logFields(ctx, "old_term", old, "new_term", t)...)
	ctx.metrics.observeTerm(t)
	ctx.notifyTermChange()
	return nil
}

// SetLeader implements set_leader(l).
func (ctx *Context) SetLeader(l NodeId) error {
	if err := ctx.checkThread(); err != nil {
		return err
	}
	old := ctx.leader
	ctx.leader = l
	if old == noneID && l != noneID {
		ctx.votedFor = noneID
		ctx.completeLeaderWaiters()
	}
	if old != l {
		ctx.logger.Infow("leader changed", logFields(ctx, "old_leader", string(old), "new_leader", string(l))...)
		ctx.notifyTermChange()
	}
	return nil
}

// SetVotedFor implements set_voted_for(c).
func (ctx *Context) SetVotedFor(c NodeId) error {
	if err := ctx.checkThread(); err != nil {
		return err
	}
	if c != noneID {
		if ctx.votedFor != noneID && ctx.votedFor != c {
			return newError(KindIllegalState, "vote already cast in this term")
		}
		if ctx.leader != noneID {
			return newError(KindIllegalState, "cannot vote while a leader is known")
		}
	}
	ctx.votedFor = c
	return nil
}

// SetCommitIndex implements set_commit_index(i).
func (ctx *Context) SetCommitIndex(i uint64) error {
	if err := ctx.checkThread(); err != nil {
		return err
	}
	if i < ctx.commitIndex {
		return newError(KindIllegalState, "commit index may not regress")
	}
	if !ctx.firstCommitSet {
		ctx.firstCommitIndex = i
		ctx.firstCommitSet = true
		ctx.recovering = ctx.lastApplied < i
	}
	ctx.commitIndex = i
	ctx.metrics.observeCommitIndex(i)
	return nil
}

// SetLastApplied implements set_last_applied(i).
func (ctx *Context) SetLastApplied(i uint64) error {
	if err := ctx.checkThread(); err != nil {
		return err
	}
	if i < ctx.lastApplied {
		return newError(KindIllegalState, "last applied may not regress")
	}
	if i > ctx.commitIndex {
		return newError(KindIllegalState, "last applied may not exceed commit index")
	}
	ctx.lastApplied = i
	if ctx.recovering && ctx.firstCommitSet && i >= ctx.firstCommitIndex {
		ctx.recovering = false
		ctx.logger.Infow("recovery complete", logFields(ctx)...)
	}
	return nil
}

// SetRecycleIndex implements set_recycle_index(i). Advancement policy is an
// external collaborator contract -- this method only enforces monotonicity.
func (ctx *Context) SetRecycleIndex(i uint64) error {
	if err := ctx.checkThread(); err != nil {
		return err
	}
	if i < ctx.recycleIndex {
		return newError(KindIllegalState, "recycle index may not regress")
	}
	ctx.recycleIndex = i
	return nil
}

// SetVersion implements set_version(v): version = max(version, v).
func (ctx *Context) SetVersion(v uint64) error {
	if err := ctx.checkThread(); err != nil {
		return err
	}
	if v > ctx.version {
		ctx.version = v
	}
	return nil
}

// transition implements transition(role_type): a no-op if kind is already
// current, otherwise close the current role and synchronously open the new
// one. Must be called on the context thread.
func (ctx *Context) transition(kind RoleKind) error {
	if ctx.role != nil && ctx.role.kind() == kind {
		return nil
	}
	if ctx.role != nil {
		if err := ctx.role.close(ctx); err != nil {
			ctx.logger.Warnw("error closing role", logFields(ctx, zap.Error(err))...)
		}
	}
	ctx.metrics.observeRoleTransition(kind)
	next := newRole(kind)
	ctx.role = next
	ctx.logger.Infow("role transition", logFields(ctx, "new_role", kind.String())...)
	if err := next.open(ctx); err != nil {
		return err
	}
	return nil
}

// Transition is the externally-callable, thread-hopping form of transition,
// used by owners/tests that are not already executing on the context
// thread.
func (ctx *Context) Transition(kind RoleKind) error {
	var err error
	ctx.do(func() { err = ctx.transition(kind) })
	return err
}

// Handle submits request to the current role's handler and returns its
// response. Safe to call from any goroutine.
func (ctx *Context) Handle(request interface{}) (interface{}, error) {
	type result struct {
		resp interface{}
		err  error
	}
	out := make(chan result, 1)
	ctx.Submit(func() {
		ctx.role.handle(ctx, request, func(resp interface{}, err error) {
			out <- result{resp, err}
		})
	})
	r := <-out
	return r.resp, r.err
}

// waitLeader returns a channel closed once a leader becomes known (or
// immediately, if one already is). Registration happens on the context
// thread via Submit so the waiter slice is never touched concurrently.
func (ctx *Context) waitLeader() <-chan struct{} {
	ch := make(chan struct{})
	ctx.Submit(func() {
		if ctx.leader != noneID {
			close(ch)
			return
		}
		ctx.leaderWaiters = append(ctx.leaderWaiters, ch)
	})
	return ch
}

// completeLeaderWaiters must be called on the context thread.
func (ctx *Context) completeLeaderWaiters() {
	for _, ch := range ctx.leaderWaiters {
		close(ch)
	}
	ctx.leaderWaiters = nil
}

// notifyTermChange invokes the registered TermProvider hook, if any. Must be
// called on the context thread.
func (ctx *Context) notifyTermChange() {
	if ctx.onTermChange != nil {
		ctx.onTermChange()
	}
}
