package nscache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	c "github.com/unkn0wn-root/nscache/codec"
	"github.com/unkn0wn-root/nscache/internal/keys"
	"github.com/unkn0wn-root/nscache/internal/wire"
	st "github.com/unkn0wn-root/nscache/store"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// memStore is a minimal in-memory store fake. It also records the TTL of the
// last Set/Add per key so TTL defaulting is observable.
type memStore struct {
	mu       sync.Mutex
	m        map[string]memEntry
	lastTTLs map[string]time.Duration
}

var _ st.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{m: make(map[string]memEntry), lastTTLs: make(map[string]time.Duration)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(s.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.m[key] = memEntry{v: value, exp: exp}
	s.lastTTLs[key] = ttl
	return nil
}

func (s *memStore) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[key]; ok && (e.exp.IsZero() || time.Now().Before(e.exp)) {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.m[key] = memEntry{v: value, exp: exp}
	s.lastTTLs[key] = ttl
	return true, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *memStore) Close(_ context.Context) error { return nil }

func (s *memStore) put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = memEntry{v: value}
}

func (s *memStore) lastTTL(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTTLs[key]
}

// failStore errors on every call.
type failStore struct{}

var errStoreDown = errors.New("store down")

var _ st.Store = failStore{}

func (failStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errStoreDown }
func (failStore) Set(context.Context, string, []byte, time.Duration) error {
	return errStoreDown
}
func (failStore) Add(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, errStoreDown
}
func (failStore) Delete(context.Context, string) error { return errStoreDown }
func (failStore) Close(context.Context) error          { return nil }

// recHooks records every hook invocation.
type recHooks struct {
	mu          sync.Mutex
	storeErrs   []string // op
	selfHeals   []string // reason
	tokCreated  []string // namespace
	tokRotated  []string // namespace
	lastRotated string   // token
}

var _ Hooks = (*recHooks)(nil)

func (h *recHooks) StoreError(op, _ string, _ error) {
	h.mu.Lock()
	h.storeErrs = append(h.storeErrs, op)
	h.mu.Unlock()
}
func (h *recHooks) SelfHeal(_, reason string) {
	h.mu.Lock()
	h.selfHeals = append(h.selfHeals, reason)
	h.mu.Unlock()
}
func (h *recHooks) TokenCreated(ns, _ string) {
	h.mu.Lock()
	h.tokCreated = append(h.tokCreated, ns)
	h.mu.Unlock()
}
func (h *recHooks) TokenRotated(ns, token string) {
	h.mu.Lock()
	h.tokRotated = append(h.tokRotated, ns)
	h.lastRotated = token
	h.mu.Unlock()
}

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestCache(t *testing.T, s st.Store, optsOpt func(*Options[user])) Cache[user] {
	t.Helper()
	opts := Options[user]{
		Store: s,
		Codec: c.JSON[user]{},
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	cc, err := New[user](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cc
}

func TestNewValidation(t *testing.T) {
	if _, err := New[user](Options[user]{Codec: c.JSON[user]{}}); err == nil {
		t.Fatal("expected error for missing store")
	}
	if _, err := New[user](Options[user]{Store: newMemStore()}); err == nil {
		t.Fatal("expected error for missing codec")
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, newMemStore(), nil)
	defer cc.Close(ctx)

	v := user{ID: "42", Name: "Ada"}

	if _, ok := cc.Get(ctx, "users", "42"); ok {
		t.Fatal("expected miss before set")
	}
	if !cc.Set(ctx, "users", "42", v, 0) {
		t.Fatal("Set reported failure")
	}
	got, ok := cc.Get(ctx, "users", "42")
	if !ok || got != v {
		t.Fatalf("Get after set: ok=%v got=%+v", ok, got)
	}
}

func TestDeleteThenGetMisses(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, newMemStore(), nil)
	defer cc.Close(ctx)

	if !cc.Set(ctx, "users", "1", user{ID: "1"}, 0) {
		t.Fatal("Set reported failure")
	}
	if !cc.Delete(ctx, "users", "1") {
		t.Fatal("Delete reported failure")
	}
	if _, ok := cc.Get(ctx, "users", "1"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestDeleteNamespaceRotatesToken(t *testing.T) {
	ctx := context.Background()
	hooks := &recHooks{}
	cc := newTestCache(t, newMemStore(), func(o *Options[user]) { o.Hooks = hooks })
	defer cc.Close(ctx)

	v := user{ID: "42", Name: "Ada"}
	cc.Set(ctx, "users", "42", v, 0)

	before, ok := cc.NamespaceToken(ctx, "users")
	if !ok || before == "" {
		t.Fatalf("NamespaceToken before: ok=%v token=%q", ok, before)
	}

	if !cc.DeleteNamespace(ctx, "users") {
		t.Fatal("DeleteNamespace reported failure")
	}

	after, ok := cc.NamespaceToken(ctx, "users")
	if !ok {
		t.Fatal("NamespaceToken after rotation failed")
	}
	if after == before {
		t.Fatalf("token did not rotate: %q", after)
	}
	if _, ok := cc.Get(ctx, "users", "42"); ok {
		t.Fatal("entry still reachable after namespace invalidation")
	}
	if len(hooks.tokRotated) != 1 || hooks.tokRotated[0] != "users" {
		t.Fatalf("expected one TokenRotated for users, got %v", hooks.tokRotated)
	}
	if hooks.lastRotated != after {
		t.Fatalf("rotated token %q does not match resolved %q", hooks.lastRotated, after)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, newMemStore(), nil)
	defer cc.Close(ctx)

	a := user{ID: "1", Name: "A"}
	b := user{ID: "1", Name: "B"}
	cc.Set(ctx, "nsA", "1", a, 0)
	cc.Set(ctx, "nsB", "1", b, 0)

	cc.DeleteNamespace(ctx, "nsA")

	if _, ok := cc.Get(ctx, "nsA", "1"); ok {
		t.Fatal("nsA should be invalidated")
	}
	if got, ok := cc.Get(ctx, "nsB", "1"); !ok || got != b {
		t.Fatalf("nsB entry lost by nsA invalidation: ok=%v got=%+v", ok, got)
	}
}

func TestTokenCreationConvergesOnWinner(t *testing.T) {
	ctx := context.Background()

	// A racing caller commits the winning token between our first read and
	// our Add; the store's add-if-absent rejects ours and the re-read must
	// surface the winner.
	winner := "deadbeefcafe0123"
	rs := &raceStore{Store: newMemStore(), tokenKey: keys.Token("nscache", "users"), winner: []byte(winner)}
	rc := newTestCache(t, rs, nil)
	defer rc.Close(ctx)

	tok, ok := rc.NamespaceToken(ctx, "users")
	if !ok {
		t.Fatal("NamespaceToken failed")
	}
	if tok != winner {
		t.Fatalf("expected winner token %q, got %q", winner, tok)
	}
}

// raceStore injects a competing write on the token key after the first miss.
type raceStore struct {
	st.Store
	tokenKey string
	winner   []byte

	mu     sync.Mutex
	missed bool
}

func (s *raceStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key != s.tokenKey {
		return s.Store.Get(ctx, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.missed {
		s.missed = true
		return nil, false, nil // first read: absent
	}
	return s.winner, true, nil // winner landed
}

func (s *raceStore) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if key == s.tokenKey {
		return false, nil // lost the race
	}
	return s.Store.Add(ctx, key, value, ttl)
}

func TestConcurrentFirstAccessAgreesOnToken(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, newMemStore(), nil)
	defer cc.Close(ctx)

	const n = 16
	tokens := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			tok, ok := cc.NamespaceToken(ctx, "race")
			if ok {
				tokens[i] = tok
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if tokens[i] != tokens[0] {
			t.Fatalf("token divergence: %q vs %q", tokens[0], tokens[i])
		}
	}
	if tokens[0] == "" {
		t.Fatal("no token resolved")
	}
}

func TestTokenExpiredBetweenAddAndReread(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	es := &evaporatingStore{Store: ms, tokenKey: keys.Token("nscache", "users")}
	cc := newTestCache(t, es, nil)
	defer cc.Close(ctx)

	tok, ok := cc.NamespaceToken(ctx, "users")
	if !ok || tok == "" {
		t.Fatalf("expected fallback to own token, ok=%v token=%q", ok, tok)
	}
}

// evaporatingStore never retains the token key: the Add "succeeds" but every
// Get misses, modeling expiry inside the create/re-read window.
type evaporatingStore struct {
	st.Store
	tokenKey string
}

func (s *evaporatingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == s.tokenKey {
		return nil, false, nil
	}
	return s.Store.Get(ctx, key)
}

func (s *evaporatingStore) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if key == s.tokenKey {
		return true, nil
	}
	return s.Store.Add(ctx, key, value, ttl)
}

func TestStoreFailureInjection(t *testing.T) {
	ctx := context.Background()
	hooks := &recHooks{}
	cc := newTestCache(t, failStore{}, func(o *Options[user]) { o.Hooks = hooks })
	defer cc.Close(ctx)

	if _, ok := cc.Get(ctx, "users", "1"); ok {
		t.Fatal("Get must degrade to a miss when the store is down")
	}
	if cc.Set(ctx, "users", "1", user{ID: "1"}, 0) {
		t.Fatal("Set must report failure when the store is down")
	}
	if cc.Delete(ctx, "users", "1") {
		t.Fatal("Delete must report failure when the store is down")
	}
	if cc.DeleteNamespace(ctx, "users") {
		t.Fatal("DeleteNamespace must report failure when the store is down")
	}
	if _, ok := cc.NamespaceToken(ctx, "users"); ok {
		t.Fatal("NamespaceToken must report failure when the store is down")
	}
	if len(hooks.storeErrs) == 0 {
		t.Fatal("swallowed failures must be visible through hooks")
	}
}

// addFailStore misses on reads but errors on Add, so only token creation
// fails.
type addFailStore struct {
	st.Store
}

func (s addFailStore) Add(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, errStoreDown
}

func TestTokenCreateFailureReportsAddOp(t *testing.T) {
	ctx := context.Background()
	hooks := &recHooks{}
	cc := newTestCache(t, addFailStore{Store: newMemStore()}, func(o *Options[user]) { o.Hooks = hooks })
	defer cc.Close(ctx)

	if _, ok := cc.NamespaceToken(ctx, "users"); ok {
		t.Fatal("NamespaceToken must fail when token creation fails")
	}
	if len(hooks.storeErrs) != 1 || hooks.storeErrs[0] != "add" {
		t.Fatalf("failing Add must be reported as op=add, got %v", hooks.storeErrs)
	}
}

func TestCorruptEntrySelfHeals(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	hooks := &recHooks{}
	cc := newTestCache(t, ms, func(o *Options[user]) { o.Hooks = hooks })
	defer cc.Close(ctx)

	tok, ok := cc.NamespaceToken(ctx, "users")
	if !ok {
		t.Fatal("NamespaceToken failed")
	}
	k := keys.Entry("nscache", "users", tok, "42")
	ms.put(k, []byte("not an nscache entry"))

	if _, ok := cc.Get(ctx, "users", "42"); ok {
		t.Fatal("corrupt entry must read as a miss")
	}
	if _, present, _ := ms.Get(ctx, k); present {
		t.Fatal("corrupt entry must be deleted")
	}
	if len(hooks.selfHeals) != 1 || hooks.selfHeals[0] != "corrupt" {
		t.Fatalf("expected one corrupt self-heal, got %v", hooks.selfHeals)
	}
}

func TestUndecodableValueSelfHeals(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	hooks := &recHooks{}
	cc := newTestCache(t, ms, func(o *Options[user]) { o.Hooks = hooks })
	defer cc.Close(ctx)

	tok, ok := cc.NamespaceToken(ctx, "users")
	if !ok {
		t.Fatal("NamespaceToken failed")
	}
	k := keys.Entry("nscache", "users", tok, "42")
	// valid frame, invalid JSON inside
	ms.put(k, wire.EncodeEntry([]byte("{nope")))

	if _, ok := cc.Get(ctx, "users", "42"); ok {
		t.Fatal("undecodable value must read as a miss")
	}
	if len(hooks.selfHeals) != 1 || hooks.selfHeals[0] != "value_decode" {
		t.Fatalf("expected one value_decode self-heal, got %v", hooks.selfHeals)
	}
}

func TestDisabledCache(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, newMemStore(), func(o *Options[user]) { o.Disabled = true })
	defer cc.Close(ctx)

	if cc.Enabled() {
		t.Fatal("Enabled must report false")
	}
	if cc.Set(ctx, "users", "1", user{ID: "1"}, 0) {
		t.Fatal("disabled Set must report false")
	}
	if _, ok := cc.Get(ctx, "users", "1"); ok {
		t.Fatal("disabled Get must miss")
	}
	if cc.DeleteNamespace(ctx, "users") {
		t.Fatal("disabled DeleteNamespace must report false")
	}
}

func TestTTLDefaults(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	cc := newTestCache(t, ms, nil)
	defer cc.Close(ctx)

	tok, _ := cc.NamespaceToken(ctx, "users")
	cc.Set(ctx, "users", "42", user{ID: "42"}, 0)

	if got := ms.lastTTL(keys.Entry("nscache", "users", tok, "42")); got != 24*time.Hour {
		t.Fatalf("default entry TTL: got %v want 24h", got)
	}
	if got := ms.lastTTL(keys.Token("nscache", "users")); got != 24*time.Hour {
		t.Fatalf("token TTL: got %v want 24h", got)
	}

	cc.Set(ctx, "users", "42", user{ID: "42"}, time.Minute)
	if got := ms.lastTTL(keys.Entry("nscache", "users", tok, "42")); got != time.Minute {
		t.Fatalf("explicit TTL: got %v want 1m", got)
	}
}

func TestDevModeShortTTL(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	cc := newTestCache(t, ms, func(o *Options[user]) { o.Dev = true })
	defer cc.Close(ctx)

	tok, _ := cc.NamespaceToken(ctx, "users")
	cc.Set(ctx, "users", "42", user{ID: "42"}, 0)

	if got := ms.lastTTL(keys.Entry("nscache", "users", tok, "42")); got != 20*time.Second {
		t.Fatalf("dev entry TTL: got %v want 20s", got)
	}
	// token TTL stays at 24h regardless of dev mode
	if got := ms.lastTTL(keys.Token("nscache", "users")); got != 24*time.Hour {
		t.Fatalf("dev token TTL: got %v want 24h", got)
	}
}

func TestCustomPrefix(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	cc := newTestCache(t, ms, func(o *Options[user]) { o.Prefix = "myapp" })
	defer cc.Close(ctx)

	cc.Set(ctx, "users", "42", user{ID: "42"}, 0)

	ms.mu.Lock()
	defer ms.mu.Unlock()
	for k := range ms.m {
		if !strings.HasPrefix(k, "myapp:") {
			t.Fatalf("store key %q does not carry the configured prefix", k)
		}
	}
}
