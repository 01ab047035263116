// Package memory provides an in-process store for tests and single-process
// deployments. Entries expire lazily on read plus a periodic sweep.
package memory

import (
	"context"
	"sync"
	"time"

	st "github.com/unkn0wn-root/nscache/store"
)

type entry struct {
	value []byte
	exp   time.Time // zero => no expiry
}

type Memory struct {
	mu     sync.RWMutex
	m      map[string]entry
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ st.Store = (*Memory)(nil)

// New creates an in-process store. sweepInterval > 0 starts a background
// loop that prunes expired entries; 0 disables the sweep (entries still
// expire lazily on Get).
func New(sweepInterval time.Duration) *Memory {
	s := &Memory{m: make(map[string]entry)}
	if sweepInterval > 0 {
		s.ticker = time.NewTicker(sweepInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.sweep()
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		s.mu.Lock()
		// re-check under the write lock; a fresh value may have landed
		if cur, ok := s.m[key]; ok && !cur.exp.IsZero() && time.Now().After(cur.exp) {
			delete(s.m, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.m[key] = entry{value: cloneBytes(value), exp: deadline(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *Memory) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[key]; ok && (e.exp.IsZero() || now.Before(e.exp)) {
		return false, nil
	}
	s.m[key] = entry{value: cloneBytes(value), exp: deadline(ttl)}
	return true, nil
}

func (s *Memory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *Memory) Close(_ context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop()
			s.wg.Wait()
		}
	})
	return nil
}

func (s *Memory) sweep() {
	now := time.Now()
	s.mu.Lock()
	for k, e := range s.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(s.m, k)
		}
	}
	s.mu.Unlock()
}

// Len reports the number of live entries (expired-but-unswept included).
// Intended for tests and diagnostics.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func deadline(ttl time.Duration) time.Time {
	if ttl > 0 {
		return time.Now().Add(ttl)
	}
	return time.Time{}
}

// values are copied in; callers may reuse their buffers after Set/Add.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
