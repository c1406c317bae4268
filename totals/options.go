package totals

import (
	"time"

	"github.com/unkn0wn-root/listcount"
	c "github.com/unkn0wn-root/listcount/codec"
	gen "github.com/unkn0wn-root/listcount/genstore"
	pr "github.com/unkn0wn-root/listcount/provider"
)

// SetCostFunc returns the provider cost of a stored entry.
type SetCostFunc func(key string, raw []byte) int64

// Options tune the store. Only Provider is required.
type Options struct {
	Provider pr.Provider
	Codec    c.Codec[listcount.Snapshot] // nil => JSON

	Logger          listcount.Logger // nil => NopLogger
	Hooks           listcount.Hooks  // nil => NopHooks
	DefaultTTL      time.Duration    // 0 => 10m
	CleanupInterval time.Duration    // local GenStore sweep; 0 => 1h
	GenRetention    time.Duration    // local GenStore retention; 0 => 30d
	Disabled        bool             // every read misses, writes are dropped
	ComputeSetCost  SetCostFunc      // default len(raw)
	GenStore        gen.GenStore     // nil => LocalGenStore (in-process)
}
