// Package asynchook runs listcount.Hooks on a bounded worker queue so slow
// hook implementations never block a list view. Events are dropped when the
// queue is full.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{StaleEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	m, _ := listcount.New(listcount.Options{Hooks: hooks})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/listcount"
)

type Hooks struct {
	inner   listcount.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ listcount.Hooks = (*Hooks)(nil)

func New(inner listcount.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are
// dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped is the number of events lost to a full queue or a closed hook.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) StaleResultDropped(id string, obs, cur uint64) {
	h.try(func() { h.inner.StaleResultDropped(id, obs, cur) })
}
func (h *Hooks) CountMissing(id string)      { h.try(func() { h.inner.CountMissing(id) }) }
func (h *Hooks) SelfHeal(k, r string)        { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) ProviderSetRejected(k string) { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) GenSnapshotError(ns string, err error) {
	h.try(func() { h.inner.GenSnapshotError(ns, err) })
}
func (h *Hooks) GenBumpError(ns string, err error) {
	h.try(func() { h.inner.GenBumpError(ns, err) })
}
func (h *Hooks) InvalidateOutage(ns string, be, de error) {
	h.try(func() { h.inner.InvalidateOutage(ns, be, de) })
}
