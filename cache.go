package nscache

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/nscache/codec"
	"github.com/unkn0wn-root/nscache/internal/keys"
	"github.com/unkn0wn-root/nscache/internal/wire"
	"github.com/unkn0wn-root/nscache/store"
)

const (
	defaultPrefix   = "nscache"
	defaultEntryTTL = 24 * time.Hour
	devEntryTTL     = 20 * time.Second
	defaultTokenTTL = 24 * time.Hour
)

type cache[V any] struct {
	prefix     string
	store      store.Store
	codec      codec.Codec[V]
	log        Logger
	hooks      Hooks
	enabled    bool
	defaultTTL time.Duration
	tokenTTL   time.Duration
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("nscache: store is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("nscache: codec is required")
	}

	c := &cache[V]{
		prefix:  coalesce(opts.Prefix, defaultPrefix),
		store:   opts.Store,
		codec:   opts.Codec,
		enabled: !opts.Disabled,
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.tokenTTL = coalesce(opts.TokenTTL, defaultTokenTTL)
	if opts.Dev {
		c.defaultTTL = coalesce(opts.DefaultTTL, devEntryTTL)
	} else {
		c.defaultTTL = coalesce(opts.DefaultTTL, defaultEntryTTL)
	}

	return c, nil
}

func (c *cache[V]) Enabled() bool { return c.enabled }

func (c *cache[V]) Close(ctx context.Context) error {
	if c.store != nil {
		return c.store.Close(ctx)
	}
	return nil
}

func (c *cache[V]) Get(ctx context.Context, ns, key string) (V, bool) {
	var zero V
	if !c.enabled {
		return zero, false
	}
	k, ok := c.entryKey(ctx, ns, key)
	if !ok {
		return zero, false
	}
	raw, ok, err := c.store.Get(ctx, k)
	if err != nil {
		c.storeError(ctx, "get", k, err)
		return zero, false
	}
	if !ok {
		return zero, false
	}
	payload, err := wire.DecodeEntry(raw)
	if err != nil {
		c.selfHeal(ctx, k, "corrupt")
		return zero, false
	}
	v, err := c.codec.Decode(payload)
	if err != nil {
		c.selfHeal(ctx, k, "value_decode")
		return zero, false
	}
	return v, true
}

func (c *cache[V]) Set(ctx context.Context, ns, key string, value V, ttl time.Duration) bool {
	if !c.enabled {
		return false
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	k, ok := c.entryKey(ctx, ns, key)
	if !ok {
		return false
	}
	payload, err := c.codec.Encode(value)
	if err != nil {
		c.log.Warn("Set skipped (encode failed)", Fields{"ns": ns, "err": err})
		return false
	}
	if err := c.store.Set(ctx, k, wire.EncodeEntry(payload), ttl); err != nil {
		c.storeError(ctx, "set", k, err)
		return false
	}
	return true
}

func (c *cache[V]) Delete(ctx context.Context, ns, key string) bool {
	if !c.enabled {
		return false
	}
	k, ok := c.entryKey(ctx, ns, key)
	if !ok {
		return false
	}
	if err := c.store.Delete(ctx, k); err != nil {
		c.storeError(ctx, "delete", k, err)
		return false
	}
	return true
}

// DeleteNamespace rotates the namespace token. The write is an unconditional
// overwrite, not an Add: rotation must win even against a concurrent
// first-access creating the token.
func (c *cache[V]) DeleteNamespace(ctx context.Context, ns string) bool {
	if !c.enabled {
		return false
	}
	tk := keys.Token(c.prefix, ns)
	fresh := keys.FreshToken(ns)
	if err := c.store.Set(ctx, tk, []byte(fresh), c.tokenTTL); err != nil {
		c.storeError(ctx, "set", tk, err)
		return false
	}
	c.hooks.TokenRotated(ns, fresh)
	c.log.Debug("namespace invalidated (token rotated)", Fields{"ns": ns, "token": fresh})
	return true
}

func (c *cache[V]) NamespaceToken(ctx context.Context, ns string) (string, bool) {
	if !c.enabled {
		return "", false
	}
	tok, err := c.resolveToken(ctx, ns)
	if err != nil {
		return "", false
	}
	return tok, true
}

// resolveToken returns the namespace's current token, lazily creating one.
// Creation uses Add followed by a re-read: if two callers race, both end up
// on whichever value the store committed first instead of diverging.
// Store failures are reported here, against the store call that failed.
func (c *cache[V]) resolveToken(ctx context.Context, ns string) (string, error) {
	tk := keys.Token(c.prefix, ns)
	raw, ok, err := c.store.Get(ctx, tk)
	if err != nil {
		c.storeError(ctx, "get", tk, err)
		return "", err
	}
	if ok {
		return string(raw), nil
	}

	fresh := keys.FreshToken(ns)
	created, err := c.store.Add(ctx, tk, []byte(fresh), c.tokenTTL)
	if err != nil {
		c.storeError(ctx, "add", tk, err)
		return "", err
	}
	if created {
		c.hooks.TokenCreated(ns, fresh)
		c.log.Debug("namespace token created", Fields{"ns": ns, "token": fresh})
	}

	// Re-read rather than trusting our own write; the store holds the one
	// winning value.
	raw, ok, err = c.store.Get(ctx, tk)
	if err != nil {
		c.storeError(ctx, "get", tk, err)
		return "", err
	}
	if !ok {
		// Token expired in the window between Add and re-read. Ours is as
		// good as any; the next access will recreate one.
		return fresh, nil
	}
	return string(raw), nil
}

func (c *cache[V]) entryKey(ctx context.Context, ns, key string) (string, bool) {
	tok, err := c.resolveToken(ctx, ns)
	if err != nil {
		return "", false
	}
	return keys.Entry(c.prefix, ns, tok, key), true
}

func (c *cache[V]) storeError(_ context.Context, op, storageKey string, err error) {
	c.hooks.StoreError(op, storageKey, err)
	c.log.Warn("store error swallowed", Fields{"op": op, "key": storageKey, "err": err})
}

func (c *cache[V]) selfHeal(ctx context.Context, storageKey, reason string) {
	_ = c.store.Delete(ctx, storageKey)
	c.hooks.SelfHeal(storageKey, reason)
	c.log.Debug("self-healed entry", Fields{"key": storageKey, "reason": reason})
}
