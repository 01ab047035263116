// Package nscache implements a namespaced facade over an external key-value
// store with O(1) namespace invalidation via token rotation. Every entry key
// embeds the namespace's current token; rotating the token orphans all prior
// entries at once without enumerating them (they age out on their own TTL).
//
// Components:
//   - store.Store: byte store with TTL and atomic set-if-absent
//     (e.g. Redis, in-process memory, BigCache, Ristretto).
//   - codec.Codec[V]: (de)serializes V <-> []byte.
//   - Hooks/Logger: the observability channel for swallowed store failures.
//
// Keys:
//
//	<prefix>:<ns>:<token>:<xxhash(key)>  - entries
//	<prefix>:<ns>!:<xxhash("namespace:"+ns)> - the namespace token
//
// The cache is a hint, never a guarantee: store failures degrade reads to a
// miss and writes to a reported no-op (ok=false). Callers must always have a
// fallback computation path.
//
// Invalidation pattern:
//
//	cache.Set(ctx, "users", "42", u, 0)
//	cache.DeleteNamespace(ctx, "users") // rotate token
//	_, ok := cache.Get(ctx, "users", "42") // ok == false
package nscache
