// Package view drives one list screen: filters and page in, rows and a
// pagination total out, with the count cache deciding when the server counts.
package view

import (
	"context"
	"errors"
	"sync"

	"github.com/unkn0wn-root/listcount"
)

// ErrSuperseded is returned by Load when a newer Load or a mutation made the
// response obsolete before it arrived.
var ErrSuperseded = errors.New("view: superseded by a newer load")

// Fetcher loads one page. client.Lister implements it.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, q listcount.Query) (listcount.PageQueryResult[T], error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc[T any] func(ctx context.Context, q listcount.Query) (listcount.PageQueryResult[T], error)

func (f FetcherFunc[T]) Fetch(ctx context.Context, q listcount.Query) (listcount.PageQueryResult[T], error) {
	return f(ctx, q)
}

// Page is what a list screen renders.
type Page[T any] struct {
	Rows     []T
	Page     listcount.Page
	Total    int64
	HasTotal bool
	// Counted is true when this response carried a fresh count.
	Counted bool
}

// Pages is the number of pages for Total, 0 without a total.
func (p Page[T]) Pages() int {
	if !p.HasTotal || p.Total <= 0 {
		return 0
	}
	limit := int64(p.Page.Normalize().Limit)
	return int((p.Total + limit - 1) / limit)
}

type Options struct {
	Manager listcount.Manager // nil => listcount.NewLocal()
	Logger  listcount.Logger  // nil => NopLogger
}

type View[T any] struct {
	m   listcount.Manager
	f   Fetcher[T]
	log listcount.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	seq     uint64
	filters listcount.FilterSet
	page    listcount.Page
	loaded  bool
}

func New[T any](f Fetcher[T], opts Options) *View[T] {
	v := &View[T]{f: f, m: opts.Manager, log: opts.Logger}
	if v.m == nil {
		v.m = listcount.NewLocal()
	}
	if v.log == nil {
		v.log = listcount.NopLogger{}
	}
	return v
}

// Load fetches one page. A Load still in flight is cancelled and returns
// ErrSuperseded.
func (v *View[T]) Load(ctx context.Context, filters listcount.FilterSet, page listcount.Page) (Page[T], error) {
	ctx, cancel := context.WithCancel(ctx)
	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	v.cancel = cancel
	v.seq++
	seq := v.seq
	v.filters, v.page, v.loaded = filters, page, true
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		if v.seq == seq {
			v.cancel = nil
		}
		v.mu.Unlock()
		cancel()
	}()

	q := v.m.Begin(ctx, filters, page)
	res, err := v.f.Fetch(ctx, q)
	if err != nil {
		if v.superseded(seq) {
			return Page[T]{}, ErrSuperseded
		}
		return Page[T]{}, err
	}
	// seq check and Absorb under one lock: a newer Load or Close cannot
	// slip in between and then be overwritten by this response
	v.mu.Lock()
	if v.seq != seq || !v.m.Absorb(ctx, q, res.Count()) {
		v.mu.Unlock()
		v.log.Debug("list response superseded", listcount.Fields{"identity": q.Identity, "page": q.Page.Page})
		return Page[T]{}, ErrSuperseded
	}
	total, ok := v.m.Total()
	v.mu.Unlock()

	return Page[T]{
		Rows:     res.Rows,
		Page:     q.Page,
		Total:    total,
		HasTotal: ok,
		Counted:  res.Total != nil,
	}, nil
}

func (v *View[T]) superseded(seq uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.seq != seq
}

// AfterMutation resets the count and reloads the last filters and page.
// Call it after every successful create/update/delete on this list.
func (v *View[T]) AfterMutation(ctx context.Context) (Page[T], error) {
	if err := v.m.Invalidate(ctx); err != nil {
		// the local reset already happened; only other views miss out
		v.log.Warn("shared count invalidation failed", listcount.Fields{"err": err})
	}
	v.mu.Lock()
	filters, page, loaded := v.filters, v.page, v.loaded
	v.mu.Unlock()
	if !loaded {
		return Page[T]{}, nil
	}
	return v.Load(ctx, filters, page)
}

// Mutate runs fn and, if it succeeds, AfterMutation.
func (v *View[T]) Mutate(ctx context.Context, fn func(ctx context.Context) error) (Page[T], error) {
	if err := fn(ctx); err != nil {
		return Page[T]{}, err
	}
	return v.AfterMutation(ctx)
}

// Total is the cached total of the view.
func (v *View[T]) Total() (int64, bool) { return v.m.Total() }

// Close cancels a Load in flight.
func (v *View[T]) Close() {
	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.seq++
	v.mu.Unlock()
}
