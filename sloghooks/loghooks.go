// Package sloghooks logs listcount.Hooks events to a *slog.Logger with
// sampling for the noisy ones.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/listcount"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	StaleEvery    uint64
	SelfHealEvery uint64
	// Optional identity/key redactor. Defaults to a SHA-256 prefix; filter
	// identities carry user-typed search text.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	staleCtr    atomic.Uint64
	selfHealCtr atomic.Uint64
}

var _ listcount.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) StaleResultDropped(identity string, observedGen, currentGen uint64) {
	if h.l == nil || !sample(h.opts.StaleEvery, &h.staleCtr) {
		return
	}
	h.l.Debug("listcount.stale_result_dropped",
		"identity", h.redact(identity),
		"observed_gen", observedGen,
		"current_gen", currentGen)
}

func (h *Hooks) CountMissing(identity string) {
	if h.l == nil {
		return
	}
	h.l.Warn("listcount.count_missing",
		"identity", h.redact(identity))
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("listcount.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("listcount.provider_set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) GenSnapshotError(ns string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("listcount.gen_snapshot_error",
		"ns", ns,
		"err", err)
}

func (h *Hooks) GenBumpError(ns string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("listcount.gen_bump_error",
		"ns", ns,
		"err", err)
}

func (h *Hooks) InvalidateOutage(ns string, bumpErr, delErr error) {
	if h.l == nil {
		return
	}
	h.l.Error("listcount.invalidate_outage",
		"ns", ns,
		"bump_err", bumpErr,
		"del_err", delErr)
}
