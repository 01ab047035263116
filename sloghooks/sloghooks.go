package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/nscache"
)

type Options struct {
	// Sampling to avoid floods during a store outage; 0/1 = log all.
	StoreErrorEvery uint64
	SelfHealEvery   uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

// Hooks logs cache events to slog. Since the cache swallows store failures,
// this is the minimum viable monitoring for an outage.
type Hooks struct {
	l    *slog.Logger
	opts Options

	storeErrCtr atomic.Uint64
	selfHealCtr atomic.Uint64
}

var _ nscache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) StoreError(op, storageKey string, err error) {
	if h.l == nil || !sample(h.opts.StoreErrorEvery, &h.storeErrCtr) {
		return
	}
	h.l.Warn("nscache.store_error",
		"op", op,
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("nscache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) TokenCreated(ns, token string) {
	if h.l == nil {
		return
	}
	h.l.Debug("nscache.token_created",
		"ns", ns,
		"token", token)
}

func (h *Hooks) TokenRotated(ns, token string) {
	if h.l == nil {
		return
	}
	h.l.Info("nscache.token_rotated",
		"ns", ns,
		"token", token)
}
