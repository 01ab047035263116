package bigcache

import (
	"context"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	st "github.com/unkn0wn-root/nscache/store"
)

// Store adapts BigCache. BigCache has no per-entry TTL: every entry lives
// for the global LifeWindow, so per-call TTLs are ignored. Keep LifeWindow
// at or below the cache's token TTL or rotated-out entries will linger
// longer than intended (they are unreachable either way).
type Store struct {
	c *bc.BigCache

	// BigCache has no native set-if-absent; Add serializes through this
	// mutex. Atomicity holds only within this process, which matches the
	// scope of an in-process backend.
	addMu sync.Mutex
}

var _ st.Store = (*Store)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Store, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := s.c.Get(key)
	if err == bc.ErrEntryNotFound {
		return nil, false, nil
	}
	return b, err == nil, err
}

func (s *Store) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	return s.c.Set(key, value)
}

func (s *Store) Add(ctx context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	s.addMu.Lock()
	defer s.addMu.Unlock()
	if _, ok, err := s.Get(ctx, key); err != nil {
		return false, err
	} else if ok {
		return false, nil
	}
	return true, s.c.Set(key, value)
}

func (s *Store) Delete(_ context.Context, key string) error {
	err := s.c.Delete(key)
	if err == bc.ErrEntryNotFound {
		return nil
	}
	return err
}

func (s *Store) Close(_ context.Context) error {
	return s.c.Close()
}
