// Package store defines the key-value store abstraction used by nscache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set or Add for a key (no
// prepended/appended metadata, no re-encoding, no mutation). If a store
// performs internal transforms (e.g., compression), they MUST be fully
// reversed so that the bytes returned by Get are identical to the bytes
// provided to Set.
//
// Important: every key under the cache's configured prefix is owned by
// nscache. External code MUST NOT write values under that prefix. Foreign
// writes fail wire-format validation and are deleted on read.
package store

import (
	"context"
	"time"
)

// Store is a minimal byte store with per-key TTLs. Implementations must be
// safe for concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL, overwriting any existing value.
	// ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Add stores value only if the key does not already exist. Returns
	// (true, nil) when the value was created and (false, nil) when the key
	// was already present. The existence check and the write MUST be atomic
	// with respect to concurrent Add calls for the same key.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes a key (best-effort; deleting a missing key is not an
	// error).
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
