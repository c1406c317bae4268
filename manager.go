package listcount

import (
	"context"
	"errors"
	"sync"
	"time"
)

type manager struct {
	ns       string
	store    Store
	storeTTL time.Duration
	log      Logger
	hooks    Hooks
	now      func() time.Time

	mu       sync.Mutex
	seen     bool
	identity string
	total    int64
	hasTotal bool
	dirty    bool
	gen      uint64
}

func newManager(opts Options) (*manager, error) {
	if opts.Store != nil && opts.Namespace == "" {
		return nil, errors.New("listcount: namespace is required with a store")
	}
	m := &manager{
		ns:       opts.Namespace,
		store:    opts.Store,
		storeTTL: opts.StoreTTL,
		dirty:    true,
	}
	m.log = coalesce[Logger](opts.Logger, NopLogger{})
	m.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if opts.Now != nil {
		m.now = opts.Now
	} else {
		m.now = time.Now
	}
	return m, nil
}

func (m *manager) ShouldRecomputeCount(filters FilterSet) bool {
	id := Identity(filters)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.observe(id)
}

// observe records id as last seen. A new identity invalidates the cached
// total and moves the generation so in-flight responses for the old identity
// are dropped by Absorb. Requires m.mu.
func (m *manager) observe(id string) bool {
	if !m.seen || id != m.identity {
		m.seen = true
		m.identity = id
		m.dirty = true
		m.gen++
		return true
	}
	return m.dirty
}

func (m *manager) HandlePageQueryResult(result PageResult) {
	m.mu.Lock()
	id, missing := m.identity, m.applyLocked(result)
	m.mu.Unlock()
	if missing {
		m.countMissing(id)
	}
}

// applyLocked merges result and reports whether a needed total is missing.
func (m *manager) applyLocked(result PageResult) bool {
	if result.Total == nil || *result.Total < 0 {
		return m.dirty
	}
	m.total = *result.Total
	m.hasTotal = true
	m.dirty = false
	return false
}

func (m *manager) countMissing(id string) {
	m.log.Warn("page result without total while count is dirty; will ask again", Fields{"ns": m.ns, "identity": id})
	m.hooks.CountMissing(id)
}

func (m *manager) Total() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total, m.hasTotal
}

func (m *manager) Reset() {
	m.mu.Lock()
	m.dirty = true
	m.gen++
	gen := m.gen
	m.mu.Unlock()
	m.log.Debug("count reset", Fields{"ns": m.ns, "gen": gen})
}

func (m *manager) Begin(ctx context.Context, filters FilterSet, page Page) Query {
	norm := filters.Normalize()
	id := Identity(norm)

	m.mu.Lock()
	recompute := m.observe(id)
	q := Query{
		Filters:  norm,
		Identity: id,
		Page:     page.Normalize(),
		CountNum: recompute,
		Gen:      m.gen,
	}
	m.mu.Unlock()

	if m.store == nil || !recompute {
		return q
	}

	// snapshot before the server call; Absorb writes back iff unchanged
	q.StoreGen = m.store.SnapshotGen(ctx, m.ns)

	snap, ok, err := m.store.Get(ctx, m.ns, id)
	if err != nil {
		m.log.Warn("store get failed; waiting for server count", Fields{"ns": m.ns, "err": err})
		return q
	}
	if !ok {
		return q
	}
	m.mu.Lock()
	// display only: the entry stays dirty until the server answers
	if m.gen == q.Gen && m.dirty {
		m.total = snap.Total
		m.hasTotal = true
	}
	m.mu.Unlock()
	m.log.Debug("warm total from store", Fields{"ns": m.ns, "total": snap.Total, "counted_at": snap.CountedAt})
	return q
}

func (m *manager) Absorb(ctx context.Context, q Query, result PageResult) bool {
	m.mu.Lock()
	if q.Gen != m.gen {
		cur := m.gen
		m.mu.Unlock()
		m.log.Debug("stale page result dropped", Fields{"ns": m.ns, "obs": q.Gen, "gen": cur})
		m.hooks.StaleResultDropped(q.Identity, q.Gen, cur)
		return false
	}
	missing := m.applyLocked(result)
	m.mu.Unlock()

	if missing {
		m.countMissing(q.Identity)
		return true
	}
	if m.store != nil && q.CountNum && result.Total != nil && *result.Total >= 0 {
		snap := Snapshot{Total: *result.Total, CountedAt: m.now()}
		if err := m.store.SetWithGen(ctx, m.ns, q.Identity, snap, q.StoreGen, m.storeTTL); err != nil {
			m.log.Warn("store write failed", Fields{"ns": m.ns, "err": err})
		}
	}
	return true
}

func (m *manager) Invalidate(ctx context.Context) error {
	m.Reset()
	if m.store == nil {
		return nil
	}
	m.mu.Lock()
	var ids []string
	if m.seen {
		ids = append(ids, m.identity)
	}
	m.mu.Unlock()
	if err := m.store.Invalidate(ctx, m.ns, ids...); err != nil {
		m.log.Error("store invalidate failed", Fields{"ns": m.ns, "err": err})
		return err
	}
	return nil
}

func (m *manager) Snapshot() Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Entry{
		Identity: m.identity,
		Total:    m.total,
		HasTotal: m.hasTotal,
		Dirty:    m.dirty,
		Gen:      m.gen,
	}
}
