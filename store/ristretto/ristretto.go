package ristretto

import (
	"context"
	"errors"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	st "github.com/unkn0wn-root/nscache/store"
)

// Store adapts Ristretto. Ristretto admits writes asynchronously and may
// drop them under pressure; that is acceptable for cache entries (the facade
// treats every write as best-effort) but Add forces visibility with Wait so
// token creation stays race-safe within the process.
type Store struct {
	c     *rc.Cache
	addMu sync.Mutex
}

var _ st.Store = (*Store)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Store, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// drop unexpected entry shape
		s.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.c.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

func (s *Store) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.addMu.Lock()
	defer s.addMu.Unlock()
	if _, ok := s.c.Get(key); ok {
		return false, nil
	}
	s.c.SetWithTTL(key, value, int64(len(value)), ttl)
	s.c.Wait() // make the write visible before releasing the mutex
	return true, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.c.Del(key)
	return nil
}

func (s *Store) Close(_ context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics exposes ristretto's counters when enabled in Config (not part of
// the store contract).
func (s *Store) Metrics() *rc.Metrics { return s.c.Metrics }
