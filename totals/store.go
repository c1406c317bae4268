package totals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/listcount"
	c "github.com/unkn0wn-root/listcount/codec"
	gen "github.com/unkn0wn-root/listcount/genstore"
	"github.com/unkn0wn-root/listcount/internal/util"
	"github.com/unkn0wn-root/listcount/internal/wire"
	pr "github.com/unkn0wn-root/listcount/provider"
)

const (
	keyPrefix           = "total"
	defaultTTL          = 10 * time.Minute
	defaultGenRetention = 30 * 24 * time.Hour
	defaultSweep        = time.Hour
)

type store struct {
	provider       pr.Provider
	codec          c.Codec[listcount.Snapshot]
	log            listcount.Logger
	hooks          listcount.Hooks
	enabled        bool
	defaultTTL     time.Duration
	computeSetCost SetCostFunc
	gen            gen.GenStore

	// collapses concurrent provider reads of one key (many views mounting at once)
	reads singleflight.Group
}

var _ listcount.Store = (*store)(nil)

func New(opts Options) (listcount.Store, error) {
	s, err := newStore(opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newStore(opts Options) (*store, error) {
	if opts.Provider == nil {
		return nil, errors.New("totals: provider is required")
	}

	s := &store{
		provider: opts.Provider,
		enabled:  !opts.Disabled,
	}
	s.codec = coalesce[c.Codec[listcount.Snapshot]](opts.Codec, c.JSON[listcount.Snapshot]{})
	s.log = coalesce[listcount.Logger](opts.Logger, listcount.NopLogger{})
	s.hooks = coalesce[listcount.Hooks](opts.Hooks, listcount.NopHooks{})
	s.defaultTTL = coalesce(opts.DefaultTTL, defaultTTL)

	if opts.ComputeSetCost != nil {
		s.computeSetCost = opts.ComputeSetCost
	} else {
		s.computeSetCost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	}

	if opts.GenStore != nil {
		s.gen = opts.GenStore
	} else {
		s.gen = gen.NewLocalGenStore(
			coalesce(opts.CleanupInterval, defaultSweep),
			coalesce(opts.GenRetention, defaultGenRetention),
		)
	}
	return s, nil
}

func (s *store) Close(ctx context.Context) error {
	// gen store first (best effort)
	if s.gen != nil {
		_ = s.gen.Close(ctx)
	}
	return s.provider.Close(ctx)
}

func (s *store) Get(ctx context.Context, ns, identity string) (listcount.Snapshot, bool, error) {
	var zero listcount.Snapshot
	if !s.enabled {
		return zero, false, nil
	}
	k := util.SnapshotKey(keyPrefix, ns, identity)

	v, err, _ := s.reads.Do(k, func() (any, error) {
		// shared by every joined caller; one caller's cancel must not fail the rest
		raw, ok, err := s.provider.Get(context.WithoutCancel(ctx), k)
		if err != nil || !ok {
			return []byte(nil), err
		}
		return raw, nil
	})
	if err != nil {
		return zero, false, err
	}
	raw := v.([]byte)
	if raw == nil {
		return zero, false, nil
	}

	rec, err := wire.Decode(raw)
	if err != nil {
		s.selfHeal(ctx, k, "corrupt")
		return zero, false, nil
	}
	if rec.Identity != identity {
		// hash collision or foreign writer; the entry may be valid for its own identity
		s.hooks.SelfHeal(k, "identity_mismatch")
		return zero, false, nil
	}
	cur, err := s.currentGen(ctx, ns)
	if err != nil {
		return zero, false, nil
	}
	if rec.Gen != cur {
		s.selfHeal(ctx, k, "gen_mismatch")
		return zero, false, nil
	}
	snap, err := s.codec.Decode(rec.Payload)
	if err != nil {
		s.selfHeal(ctx, k, "value_decode")
		return zero, false, nil
	}
	return snap, true, nil
}

func (s *store) SetWithGen(ctx context.Context, ns, identity string, snap listcount.Snapshot, observedGen uint64, ttl time.Duration) error {
	if !s.enabled {
		return nil
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	k := util.SnapshotKey(keyPrefix, ns, identity)
	cur, err := s.currentGen(ctx, ns)
	if err != nil {
		return nil
	}
	if cur != observedGen {
		// list mutated since the count was requested; skip stale write
		s.log.Debug("SetWithGen skipped (gen mismatch)", listcount.Fields{"ns": ns, "obs": observedGen, "gen": cur})
		return nil
	}
	payload, err := s.codec.Encode(snap)
	if err != nil {
		return fmt.Errorf("totals: encode snapshot: %w", err)
	}
	raw, err := wire.Encode(wire.Record{Gen: observedGen, Identity: identity, Payload: payload})
	if err != nil {
		return err
	}
	ok, err := s.provider.Set(ctx, k, raw, s.computeSetCost(k, raw), ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Debug("SetWithGen rejected by provider (pressure)", listcount.Fields{"key": k})
		s.hooks.ProviderSetRejected(k)
	}
	return nil
}

func (s *store) Invalidate(ctx context.Context, ns string, identities ...string) error {
	if !s.enabled {
		return nil
	}
	newGen, bumpErr := s.gen.Bump(ctx, util.GenKey(ns))
	if bumpErr != nil {
		s.log.Error("gen bump error", listcount.Fields{"ns": ns, "err": bumpErr})
		s.hooks.GenBumpError(ns, bumpErr)
	}

	var delErrs []error
	for _, id := range identities {
		if err := s.provider.Del(ctx, util.SnapshotKey(keyPrefix, ns, id)); err != nil {
			delErrs = append(delErrs, err)
		}
	}
	delErr := errors.Join(delErrs...)

	if bumpErr != nil {
		if delErr != nil {
			s.hooks.InvalidateOutage(ns, bumpErr, delErr)
		}
		return &InvalidateError{Namespace: ns, BumpErr: bumpErr, DelErr: delErr}
	}
	if delErr != nil {
		// gen moved; leftovers are unreachable and expire by TTL
		s.log.Warn("snapshot delete failed after gen bump", listcount.Fields{"ns": ns, "err": delErr})
	}
	s.log.Debug("invalidated namespace (bumped gen)", listcount.Fields{"ns": ns, "newGen": newGen})
	return nil
}

func (s *store) SnapshotGen(ctx context.Context, ns string) uint64 {
	if !s.enabled {
		return 0
	}
	g, err := s.currentGen(ctx, ns)
	if err != nil {
		return 0
	}
	return g
}

func (s *store) currentGen(ctx context.Context, ns string) (uint64, error) {
	g, err := s.gen.Snapshot(ctx, util.GenKey(ns))
	if err != nil {
		s.log.Warn("gen snapshot error", listcount.Fields{"ns": ns, "err": err})
		s.hooks.GenSnapshotError(ns, err)
		return 0, err
	}
	return g, nil
}

func (s *store) selfHeal(ctx context.Context, key, reason string) {
	_ = s.provider.Del(ctx, key)
	s.hooks.SelfHeal(key, reason)
}

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
