package atomix

// Term is the upstream-facing mapping of an election outcome: the epoch,
// the primary member, and the candidate list truncated to the configured
// replication factor with the primary excluded, order preserved.
type Term struct {
	Term      uint64
	Leader    NodeId
	Followers []NodeId
}

// listenerHandle is the stable identity TermProvider hands back from
// AddListener, so RemoveListener is an O(1) map delete instead of a
// structural-equality scan over closures.
type listenerHandle uint64

// TermListener is invoked on every term change with the freshly-mapped Term.
type TermListener func(Term)

// TermProvider is the upstream-facing surface exposed by the core:
// get_term, add_listener/remove_listener, join, leave.
type TermProvider interface {
	GetTerm() *Future[Term]
	AddListener(l TermListener) listenerHandle
	RemoveListener(h listenerHandle)
	Join() *Future[struct{}]
	Leave() *Future[struct{}]
}

// termProviderAdapter is the reference TermProvider: it subscribes to the
// owning Context's role-change events and maintains its own listener
// registry (the Context only ever calls a single hook back into this
// adapter -- see Context.onTermChange).
type termProviderAdapter struct {
	ctx               *Context
	replicationFactor int

	listeners  map[listenerHandle]TermListener
	nextHandle listenerHandle
}

// NewTermProvider wires a TermProvider adapter to ctx. A replicationFactor
// <= 0 falls back to ctx's Config.ReplicationFactor; if that is also <= 0
// there is no cap and the full candidate list is reported.
func NewTermProvider(ctx *Context, replicationFactor int) TermProvider {
	if replicationFactor <= 0 {
		replicationFactor = ctx.cfg.ReplicationFactor
	}
	tp := &termProviderAdapter{
		ctx:               ctx,
		replicationFactor: replicationFactor,
		listeners:         map[listenerHandle]TermListener{},
	}
	ctx.do(func() {
		ctx.onTermChange = tp.dispatch
	})
	return tp
}

// dispatch must run on the context thread -- it is installed as
// Context.onTermChange.
func (tp *termProviderAdapter) dispatch() {
	term := tp.mapTermLocked()
	for _, l := range tp.listeners {
		l(term)
	}
}

// mapTermLocked builds the Term{} snapshot from current context state. Must
// run on the context thread.
func (tp *termProviderAdapter) mapTermLocked() Term {
	leader := tp.ctx.leader
	candidates := make([]NodeId, 0, len(tp.ctx.peers))
	// Deterministic order: iterate the cluster's member list rather than the
	// peer map (map iteration order is unspecified).
	for _, p := range tp.ctx.cluster.Members() {
		if p.Id == leader {
			continue
		}
		candidates = append(candidates, p.Id)
	}
	limit := tp.replicationFactor
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	return Term{Term: tp.ctx.term, Leader: leader, Followers: candidates[:limit]}
}

func (tp *termProviderAdapter) GetTerm() *Future[Term] {
	f, resolve := newFuture[Term]()
	tp.ctx.Submit(func() {
		resolve(tp.mapTermLocked(), nil)
	})
	return f
}

func (tp *termProviderAdapter) AddListener(l TermListener) listenerHandle {
	result := make(chan listenerHandle, 1)
	tp.ctx.Submit(func() {
		tp.nextHandle++
		h := tp.nextHandle
		tp.listeners[h] = l
		result <- h
	})
	return <-result
}

func (tp *termProviderAdapter) RemoveListener(h listenerHandle) {
	tp.ctx.Submit(func() {
		delete(tp.listeners, h)
	})
}

// Join enters the election on behalf of the local member: a Remote/Passive
// node transitions to Follower; an already-Active node is a no-op.
func (tp *termProviderAdapter) Join() *Future[struct{}] {
	f, resolve := newFuture[struct{}]()
	tp.ctx.Submit(func() {
		if tp.ctx.role.kind() == RoleRemote || tp.ctx.role.kind() == RolePassive {
			resolve(struct{}{}, tp.ctx.transition(RoleFollower))
			return
		}
		resolve(struct{}{}, nil)
	})
	return f
}

// Leave is a documented no-op: no withdrawal protocol is defined for this
// cluster model, so a caller holding a *Future[struct{}] from Leave sees it
// resolve immediately with no state change.
func (tp *termProviderAdapter) Leave() *Future[struct{}] {
	f, resolve := newFuture[struct{}]()
	resolve(struct{}{}, nil)
	return f
}
