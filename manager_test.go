package listcount

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func total(n int64) *int64 { return &n }

type recHooks struct {
	NopHooks
	mu      sync.Mutex
	stale   int
	missing []string
}

func (h *recHooks) StaleResultDropped(string, uint64, uint64) {
	h.mu.Lock()
	h.stale++
	h.mu.Unlock()
}

func (h *recHooks) CountMissing(id string) {
	h.mu.Lock()
	h.missing = append(h.missing, id)
	h.mu.Unlock()
}

// memStore is a Store fake keeping snapshots with the generation they were
// written under.
type memStore struct {
	mu      sync.Mutex
	gens    map[string]uint64
	snaps   map[string]memSnap
	getErr  error
	invErr  error
	invIDs  []string
	setHits int
}

type memSnap struct {
	gen  uint64
	snap Snapshot
}

func newMemStore() *memStore {
	return &memStore{gens: map[string]uint64{}, snaps: map[string]memSnap{}}
}

func (s *memStore) Get(_ context.Context, ns, id string) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return Snapshot{}, false, s.getErr
	}
	e, ok := s.snaps[ns+"/"+id]
	if !ok || e.gen != s.gens[ns] {
		return Snapshot{}, false, nil
	}
	return e.snap, true, nil
}

func (s *memStore) SetWithGen(_ context.Context, ns, id string, snap Snapshot, obs uint64, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[ns] != obs {
		return nil
	}
	s.setHits++
	s.snaps[ns+"/"+id] = memSnap{gen: obs, snap: snap}
	return nil
}

func (s *memStore) Invalidate(_ context.Context, ns string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[ns]++
	s.invIDs = append(s.invIDs, ids...)
	return s.invErr
}

func (s *memStore) SnapshotGen(_ context.Context, ns string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[ns]
}

func (s *memStore) Close(context.Context) error { return nil }

func newTestManager(t *testing.T, opts Options) (*manager, *recHooks) {
	t.Helper()
	h := &recHooks{}
	if opts.Hooks == nil {
		opts.Hooks = h
	}
	m, err := New(opts)
	require.NoError(t, err)
	impl, ok := m.(*manager)
	require.True(t, ok, "unexpected concrete type for Manager")
	return impl, h
}

func TestFirstCallRecomputes(t *testing.T) {
	for _, f := range []FilterSet{nil, {}, {"name": String("admin")}} {
		m := NewLocal()
		assert.True(t, m.ShouldRecomputeCount(f))
		_, ok := m.Total()
		assert.False(t, ok, "no total before any response")
	}
}

func TestTotalStoredAndReused(t *testing.T) {
	m := NewLocal()
	f := FilterSet{"name": String("admin")}

	require.True(t, m.ShouldRecomputeCount(f))
	m.HandlePageQueryResult(PageResult{Total: total(42)})

	got, ok := m.Total()
	require.True(t, ok)
	assert.Equal(t, int64(42), got)

	assert.False(t, m.ShouldRecomputeCount(f))
	assert.False(t, m.ShouldRecomputeCount(FilterSet{"name": String("admin"), "code": Null()}),
		"null field does not change identity")
}

func TestAbsentTotalKeepsPrevious(t *testing.T) {
	m := NewLocal()
	f := FilterSet{"name": String("admin")}
	m.ShouldRecomputeCount(f)
	m.HandlePageQueryResult(PageResult{Total: total(7)})

	m.HandlePageQueryResult(PageResult{})
	got, ok := m.Total()
	require.True(t, ok)
	assert.Equal(t, int64(7), got)
	assert.False(t, m.Snapshot().Dirty)
}

func TestResetForcesRecompute(t *testing.T) {
	m := NewLocal()
	f := FilterSet{"name": String("admin")}
	m.ShouldRecomputeCount(f)
	m.HandlePageQueryResult(PageResult{Total: total(3)})
	require.False(t, m.ShouldRecomputeCount(f))

	m.Reset()
	assert.True(t, m.ShouldRecomputeCount(f))
	assert.True(t, m.ShouldRecomputeCount(f), "stays dirty until a total arrives")

	got, _ := m.Total()
	assert.Equal(t, int64(3), got, "reset keeps the displayed total")

	m.HandlePageQueryResult(PageResult{Total: total(2)})
	assert.False(t, m.ShouldRecomputeCount(f))
}

func TestFirstResponseWithoutTotalStaysDirty(t *testing.T) {
	m, h := newTestManager(t, Options{})
	f := FilterSet{"name": String("admin")}

	require.True(t, m.ShouldRecomputeCount(f))
	m.HandlePageQueryResult(PageResult{})

	_, ok := m.Total()
	assert.False(t, ok)
	assert.True(t, m.ShouldRecomputeCount(f), "asks again")
	assert.Equal(t, []string{Identity(f)}, h.missing)
}

func TestNegativeTotalIgnored(t *testing.T) {
	m := NewLocal()
	m.ShouldRecomputeCount(nil)
	m.HandlePageQueryResult(PageResult{Total: total(-1)})
	_, ok := m.Total()
	assert.False(t, ok)
	assert.True(t, m.Snapshot().Dirty)
}

func TestScenarioListPage(t *testing.T) {
	ctx := context.Background()
	m := NewLocal()
	admin := FilterSet{"name": String("admin")}
	ops := FilterSet{"name": String("ops")}

	q := m.Begin(ctx, admin, Page{Page: 1, Limit: 10})
	require.True(t, q.CountNum)
	require.True(t, m.Absorb(ctx, q, PageResult{Total: total(5)}))

	q = m.Begin(ctx, admin, Page{Page: 2, Limit: 10})
	assert.False(t, q.CountNum)
	require.True(t, m.Absorb(ctx, q, PageResult{}))
	got, _ := m.Total()
	assert.Equal(t, int64(5), got)

	q = m.Begin(ctx, ops, Page{Page: 1, Limit: 10})
	assert.True(t, q.CountNum)
	require.True(t, m.Absorb(ctx, q, PageResult{Total: total(2)}))

	// a row of "ops" is deleted
	m.Reset()
	q = m.Begin(ctx, ops, Page{Page: 1, Limit: 10})
	assert.True(t, q.CountNum)
	require.True(t, m.Absorb(ctx, q, PageResult{Total: total(1)}))
	got, _ = m.Total()
	assert.Equal(t, int64(1), got)
}

func TestAbsorbDropsStaleAfterFilterChange(t *testing.T) {
	ctx := context.Background()
	m, h := newTestManager(t, Options{})

	older := m.Begin(ctx, FilterSet{"name": String("admin")}, Page{})
	newer := m.Begin(ctx, FilterSet{"name": String("ops")}, Page{})

	require.True(t, m.Absorb(ctx, newer, PageResult{Total: total(2)}))
	assert.False(t, m.Absorb(ctx, older, PageResult{Total: total(99)}))

	got, _ := m.Total()
	assert.Equal(t, int64(2), got)
	assert.Equal(t, 1, h.stale)
}

func TestAbsorbDropsStaleAfterReset(t *testing.T) {
	ctx := context.Background()
	m := NewLocal()
	f := FilterSet{"name": String("admin")}

	q := m.Begin(ctx, f, Page{})
	m.Reset()
	assert.False(t, m.Absorb(ctx, q, PageResult{Total: total(10)}), "counted before the mutation")
	assert.True(t, m.Snapshot().Dirty)

	q = m.Begin(ctx, f, Page{})
	assert.True(t, q.CountNum)
	assert.True(t, m.Absorb(ctx, q, PageResult{Total: total(9)}))
}

func TestAbsorbDropsABA(t *testing.T) {
	ctx := context.Background()
	m := NewLocal()
	a := FilterSet{"name": String("a")}

	first := m.Begin(ctx, a, Page{})
	m.Begin(ctx, FilterSet{"name": String("b")}, Page{})
	again := m.Begin(ctx, a, Page{})

	assert.Equal(t, first.Identity, again.Identity)
	assert.False(t, m.Absorb(ctx, first, PageResult{Total: total(1)}))
	assert.True(t, m.Absorb(ctx, again, PageResult{Total: total(2)}))
}

func TestBeginNormalizesQuery(t *testing.T) {
	m := NewLocal()
	q := m.Begin(context.Background(), FilterSet{"a": String("x"), "b": Null()}, Page{Page: 0, Limit: 5000})
	assert.Equal(t, FilterSet{"a": String("x")}, q.Filters)
	assert.Equal(t, Page{Page: 1, Limit: MaxPageLimit}, q.Page)
	assert.Equal(t, Identity(q.Filters), q.Identity)
}

func TestPageNormalizeAndOffset(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Limit: DefaultPageLimit}, Page{}.Normalize())
	assert.Equal(t, 40, Page{Page: 3, Limit: 20}.Offset())
	assert.Equal(t, 0, Page{Page: -2}.Offset())
}

func TestNewRequiresNamespaceWithStore(t *testing.T) {
	m, err := New(Options{Store: newMemStore()})
	require.Error(t, err)
	assert.Nil(t, m)
}

func TestWarmStartFromStore(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	f := FilterSet{"name": String("admin")}

	first, _ := newTestManager(t, Options{Namespace: "roles", Store: store, Now: func() time.Time { return now }})
	q := first.Begin(ctx, f, Page{})
	require.True(t, first.Absorb(ctx, q, PageResult{Total: total(12)}))
	require.Equal(t, 1, store.setHits)

	// remount: fresh view shows the stored total but still asks for a count
	second, _ := newTestManager(t, Options{Namespace: "roles", Store: store})
	q = second.Begin(ctx, f, Page{})
	assert.True(t, q.CountNum)
	got, ok := second.Total()
	require.True(t, ok)
	assert.Equal(t, int64(12), got)
	assert.True(t, second.Snapshot().Dirty)

	snap, ok, err := store.Get(ctx, "roles", Identity(f))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, now, snap.CountedAt)
}

func TestPageTurnDoesNotWriteStore(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, _ := newTestManager(t, Options{Namespace: "roles", Store: store})
	f := FilterSet{}

	q := m.Begin(ctx, f, Page{})
	m.Absorb(ctx, q, PageResult{Total: total(4)})
	q = m.Begin(ctx, f, Page{Page: 2})
	require.False(t, q.CountNum)
	m.Absorb(ctx, q, PageResult{Total: total(4)})
	assert.Equal(t, 1, store.setHits)
}

func TestInvalidateHidesStoredTotals(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	f := FilterSet{"name": String("ops")}

	a, _ := newTestManager(t, Options{Namespace: "roles", Store: store})
	q := a.Begin(ctx, f, Page{})
	a.Absorb(ctx, q, PageResult{Total: total(8)})

	require.NoError(t, a.Invalidate(ctx))
	assert.True(t, a.Snapshot().Dirty)
	assert.Equal(t, []string{Identity(f)}, store.invIDs)

	b, _ := newTestManager(t, Options{Namespace: "roles", Store: store})
	b.Begin(ctx, f, Page{})
	_, ok := b.Total()
	assert.False(t, ok, "total counted before the mutation is not shown")
}

func TestStoreWriteSkippedWhenNamespaceMovedDuringRequest(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	f := FilterSet{}

	a, _ := newTestManager(t, Options{Namespace: "roles", Store: store})
	q := a.Begin(ctx, f, Page{})

	// another process mutates the list while the count is in flight
	require.NoError(t, store.Invalidate(ctx, "roles"))

	require.True(t, a.Absorb(ctx, q, PageResult{Total: total(3)}))
	assert.Zero(t, store.setHits)
}

func TestStoreErrorsDoNotBreakView(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.getErr = errors.New("redis down")
	store.invErr = errors.New("redis down")

	m, _ := newTestManager(t, Options{Namespace: "roles", Store: store})
	q := m.Begin(ctx, nil, Page{})
	assert.True(t, q.CountNum)
	assert.True(t, m.Absorb(ctx, q, PageResult{Total: total(1)}))

	err := m.Invalidate(ctx)
	require.Error(t, err)
	assert.True(t, m.Snapshot().Dirty, "reset happens even when the store fails")
}

func TestInvalidateWithoutStore(t *testing.T) {
	m := NewLocal()
	require.NoError(t, m.Invalidate(context.Background()))
	assert.True(t, m.ShouldRecomputeCount(nil))
}

func TestConcurrentUse(t *testing.T) {
	ctx := context.Background()
	m := NewLocal()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q := m.Begin(ctx, FilterSet{"n": Int(int64(j % 3))}, Page{Page: i})
				m.Absorb(ctx, q, PageResult{Total: total(int64(j))})
				if j%17 == 0 {
					m.Reset()
				}
				m.Total()
			}
		}(i)
	}
	wg.Wait()
	e := m.Snapshot()
	assert.NotZero(t, e.Gen)
}
