// Package keys derives the physical store keys used by nscache.
//
// All derived keys are short ASCII strings (prefix + separators + 16 hex
// chars per hashed part), which keeps them inside the length and charset
// limits of memcached-style stores regardless of what callers pass in.
package keys

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Hash returns the xxhash64 hex digest of s (16 lowercase hex chars).
func Hash(s string) string {
	return strconv.FormatUint(xxhash.Sum64String(s), 16)
}

// Entry returns the composite key for a cache entry:
//
//	<prefix>:<ns>:<token>:<hash(key)>
//
// The namespace token is part of the address. Rotating the token changes
// every entry key in the namespace, which is what makes DeleteNamespace O(1):
// old entries stop resolving and age out on their own TTL.
func Entry(prefix, ns, token, key string) string {
	return prefix + ":" + ns + ":" + token + ":" + Hash(key)
}

// Token returns the key under which a namespace's current token is stored.
// The "!" suffix on the namespace segment keeps the token keyspace disjoint
// from entry keys even for adversarial namespace names.
func Token(prefix, ns string) string {
	return prefix + ":" + ns + "!:" + Hash("namespace:"+ns)
}

// FreshToken produces a new token value for ns. The namespace name is mixed
// in so two namespaces rotated in the same nanosecond still get distinct
// tokens.
func FreshToken(ns string) string {
	return Hash(ns + strconv.FormatInt(time.Now().UnixNano(), 10))
}
