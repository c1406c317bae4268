// Package totals is a provider-backed store of last known list totals,
// implementing listcount.Store.
//
// Entries are keyed by list namespace and filter identity and framed with the
// namespace generation they were written under. A mutation on the list bumps
// the namespace generation (Invalidate); every entry written before reads as a
// miss afterwards, for every filter, in every process sharing the GenStore.
//
// Keys:
//
//	total:<ns>:<hash(identity)>  - snapshots (provider)
//	ns:<ns>                      - namespace generation (GenStore)
//
// CAS pattern:
//
//	obs := store.SnapshotGen(ctx, ns)    // before the server request
//	n   := countFromServer(...)
//	_   = store.SetWithGen(ctx, ns, id, listcount.Snapshot{Total: n}, obs, 0)
package totals
