package nscache

// Hooks are lightweight callbacks for high-signal events. Because the cache
// swallows every store failure, hooks are the only way calling code can see
// an outage at all. Implementations MUST be cheap and non-blocking; the
// cache calls them on hot paths (wrap with hooks/async otherwise).
type Hooks interface {
	// A store call failed and the failure was swallowed.
	// op ∈ {"get", "set", "add", "delete"}
	StoreError(op, storageKey string, err error)

	// An entry was deleted by the cache on read.
	// reason ∈ {"corrupt", "value_decode"}
	SelfHeal(storageKey, reason string)

	// A namespace token was created on first access (this caller's Add won;
	// a racing caller that lost still converges on the winner's token).
	TokenCreated(namespace, token string)

	// A namespace was invalidated by rotating its token.
	TokenRotated(namespace, token string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) StoreError(string, string, error) {}
func (NopHooks) SelfHeal(string, string)          {}
func (NopHooks) TokenCreated(string, string)      {}
func (NopHooks) TokenRotated(string, string)      {}
