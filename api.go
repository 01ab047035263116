package nscache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/nscache/codec"
	st "github.com/unkn0wn-root/nscache/store"
)

// Cache is the namespaced cache API. V is the caller's value type;
// serialization is handled by a pluggable Codec[V].
//
// No method returns an error: store failures are swallowed by design and
// reported as a miss (reads) or ok=false (writes), with the detail routed to
// Hooks and the Logger. Treat every result as a hint; a miss may mean "not
// cached", "cache unavailable", or "deliberately absent".
type Cache[V any] interface {
	Enabled() bool
	Close(context.Context) error

	// Get returns the value stored under (namespace, key), if any.
	Get(ctx context.Context, namespace, key string) (v V, ok bool)

	// Set stores value under (namespace, key). ttl 0 means the configured
	// default. ok=false means the write did not happen.
	Set(ctx context.Context, namespace, key string, value V, ttl time.Duration) (ok bool)

	// Delete removes a single entry.
	Delete(ctx context.Context, namespace, key string) (ok bool)

	// DeleteNamespace invalidates every entry in the namespace at once by
	// rotating its token. Old entries become unreachable and expire on
	// their own TTL; nothing is enumerated or deleted.
	DeleteNamespace(ctx context.Context, namespace string) (ok bool)

	// NamespaceToken resolves the namespace's current token, creating one
	// if absent. Exposed so invalidation is observable: the token changes
	// across a DeleteNamespace call.
	NamespaceToken(ctx context.Context, namespace string) (token string, ok bool)
}

// Options tune the cache. Only Store and Codec are required; others have
// sensible defaults.
type Options[V any] struct {
	// Required
	Store st.Store
	Codec c.Codec[V]

	Prefix     string        // application key prefix; "" => "nscache"
	Logger     Logger        // if nil, NopLogger is used
	Hooks      Hooks         // if nil, NopHooks is used
	DefaultTTL time.Duration // entries; 0 => 24h (20s when Dev)
	TokenTTL   time.Duration // namespace tokens; 0 => 24h
	Dev        bool          // fast-iteration mode: short default entry TTL
	Disabled   bool          // default false (enabled)
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
