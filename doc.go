// Package listcount tracks the total row count of a paginated list view so
// the server is asked for COUNT(*) only when the answer can have changed.
//
// A list request carries count_num. The server computes and returns a total
// only when count_num is true. A Manager decides count_num per request:
//
//   - first request of the view
//   - the filter identity changed since the last request
//   - Reset/Invalidate was called after a create/update/delete
//
// Page turns under the same filters reuse the cached total.
//
// Components:
//   - Identity: deterministic key of a FilterSet (nulls dropped, core
//     deterministic CBOR, hex).
//   - Manager: per-view cache entry {identity, total, dirty} plus a generation
//     that advances on every identity change and reset.
//   - Store: optional shared store of last known totals (see package totals),
//     used to show a total right away on a fresh view.
//
// Stale-response pattern:
//
//	q := m.Begin(ctx, filters, page)   // decides count_num, snapshots generation
//	res, err := fetch(ctx, q)          // server call
//	m.Absorb(ctx, q, res)              // dropped if filters changed or Reset ran meanwhile
//
// One Manager per list view. Do not share a Manager between different lists.
package listcount
