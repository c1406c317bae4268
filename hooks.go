package listcount

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; wrap slow ones with
// hooks/async.
type Hooks interface {
	// A response was dropped because the filters changed or a reset happened
	// after its request was issued.
	StaleResultDropped(identity string, observedGen, currentGen uint64)

	// A response arrived without total while the cached total was dirty.
	// The next request asks for the count again.
	CountMissing(identity string)

	// A stored snapshot was rejected on read. It is deleted unless the reason
	// is "identity_mismatch".
	// reason ∈ {"corrupt", "identity_mismatch", "gen_mismatch", "value_decode"}
	SelfHeal(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// GenStore errors.
	GenSnapshotError(namespace string, err error)
	GenBumpError(namespace string, err error)

	// Both the generation bump and the snapshot delete failed during
	// Invalidate (likely backend outage).
	InvalidateOutage(namespace string, bumpErr, delErr error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) StaleResultDropped(string, uint64, uint64) {}
func (NopHooks) CountMissing(string)                       {}
func (NopHooks) SelfHeal(string, string)                   {}
func (NopHooks) ProviderSetRejected(string)                {}
func (NopHooks) GenSnapshotError(string, error)            {}
func (NopHooks) GenBumpError(string, error)                {}
func (NopHooks) InvalidateOutage(string, error, error)     {}
