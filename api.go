package listcount

import (
	"context"
	"time"
)

// Manager is the count cache of one list view.
type Manager interface {
	// ShouldRecomputeCount reports whether the next request for filters must
	// ask the server for a total: first call, identity changed, or dirty.
	// It records filters as the last-seen identity.
	ShouldRecomputeCount(filters FilterSet) bool

	// HandlePageQueryResult stores result.Total when present and clears dirty.
	// An absent total keeps the previous one. No generation check; prefer Absorb
	// when requests can overlap.
	HandlePageQueryResult(result PageResult)

	// Total returns the last known total; ok is false if none was ever stored.
	Total() (total int64, ok bool)

	// Reset marks the cached total dirty. Call it after any mutation that can
	// change the row count.
	Reset()

	// Begin runs ShouldRecomputeCount and packages the request to send,
	// including the generation Absorb checks against.
	Begin(ctx context.Context, filters FilterSet, page Page) Query

	// Absorb merges result into the cache unless q is stale, i.e. the filters
	// changed or Reset ran after q was issued. Reports whether it was applied.
	Absorb(ctx context.Context, q Query, result PageResult) bool

	// Invalidate is Reset plus invalidation of the namespace in the shared
	// Store, so other views and processes recount as well.
	Invalidate(ctx context.Context) error

	// Snapshot returns a copy of the cache entry.
	Snapshot() Entry
}

// PageResult is the row-independent part of a page response. Total is nil
// when the request did not ask for a count.
type PageResult struct {
	Total *int64
}

// PageQueryResult is one page of rows plus the optional total.
type PageQueryResult[T any] struct {
	Rows  []T
	Total *int64
}

// Count drops the rows.
func (r PageQueryResult[T]) Count() PageResult { return PageResult{Total: r.Total} }

// Page is a 1-based page window.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Normalize clamps p: page >= 1, limit defaults to DefaultPageLimit and is
// capped at MaxPageLimit.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset is the number of rows before the page.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Query is one list request as decided by a Manager.
type Query struct {
	Filters  FilterSet // normalized, no nulls
	Identity string
	Page     Page
	CountNum bool

	Gen      uint64 // manager generation at Begin
	StoreGen uint64 // store namespace generation at Begin (0 without Store)
}

// Entry is the cache entry of a Manager.
type Entry struct {
	Identity string
	Total    int64
	HasTotal bool
	Dirty    bool
	Gen      uint64
}

// Snapshot is a total as kept in a shared Store.
type Snapshot struct {
	Total     int64     `json:"total" msgpack:"total" cbor:"total"`
	CountedAt time.Time `json:"counted_at" msgpack:"counted_at" cbor:"counted_at"`
}

// Store is a shared store of last known totals, scoped by list namespace and
// filter identity. Implemented by package totals.
type Store interface {
	// Get returns the snapshot stored for identity under the current namespace
	// generation. Stale, corrupt or foreign entries read as a miss.
	Get(ctx context.Context, namespace, identity string) (Snapshot, bool, error)

	// SetWithGen writes iff the namespace generation still equals observedGen.
	SetWithGen(ctx context.Context, namespace, identity string, s Snapshot, observedGen uint64, ttl time.Duration) error

	// Invalidate bumps the namespace generation and deletes the snapshots of
	// the given identities (best-effort).
	Invalidate(ctx context.Context, namespace string, identities ...string) error

	// SnapshotGen returns the current namespace generation.
	SnapshotGen(ctx context.Context, namespace string) uint64

	Close(ctx context.Context) error
}

// Options configure a Manager. The zero value is a valid in-memory manager.
type Options struct {
	// Namespace names the list ("roles", "smtp_configs", ...). Required with
	// Store.
	Namespace string

	Store    Store         // nil => in-memory only
	StoreTTL time.Duration // 0 => the store default

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks

	// Now stamps Snapshot.CountedAt. nil => time.Now.
	Now func() time.Time
}

func New(opts Options) (Manager, error) {
	m, err := newManager(opts)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewLocal returns an in-memory Manager for a single view.
func NewLocal() Manager {
	m, _ := newManager(Options{})
	return m
}
