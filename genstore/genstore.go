// Package genstore holds one generation counter per list namespace.
//
// A mutation on a list (create/update/delete of a role, template, ...) bumps
// the namespace generation. Totals stored under an older generation are then
// treated as missing by every reader, no matter which filter they were counted
// for.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live. Use LocalGenStore for a single
// process, RedisGenStore when several processes share one totals provider.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, key string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, key string) (uint64, error)
	// Cleanup prunes old metadata if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	Close(context.Context) error
}
