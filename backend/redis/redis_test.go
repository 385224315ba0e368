package redis

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/scopecache"
	"github.com/unkn0wn-root/scopecache/codec"
)

// fakeClient is a semantic in-memory stand-in for the redis protocol
// client, built on the goredis.New*Result test helpers. SCAN pages over
// a snapshot taken at cursor 0 so batch deletion between pages behaves
// like a real server.
type fakeClient struct {
	store map[string][]byte

	getErr  error
	setErr  error
	delErr  error
	scanErr error

	delCalls  int
	closed    int
	scanSnap  []string
	lastMatch string
}

var _ Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{store: make(map[string][]byte)}
}

func (f *fakeClient) Get(_ context.Context, key string) *goredis.StringCmd {
	if f.getErr != nil {
		return goredis.NewStringResult("", f.getErr)
	}
	v, ok := f.store[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(string(v), nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, _ time.Duration) *goredis.StatusCmd {
	if f.setErr != nil {
		return goredis.NewStatusResult("", f.setErr)
	}
	f.store[key] = []byte(value.([]byte))
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	f.delCalls++
	if f.delErr != nil {
		return goredis.NewIntResult(0, f.delErr)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.store[k]; ok {
			delete(f.store, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func (f *fakeClient) Exists(_ context.Context, keys ...string) *goredis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.store[k]; ok {
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func (f *fakeClient) Scan(_ context.Context, cursor uint64, match string, count int64) *goredis.ScanCmd {
	if f.scanErr != nil {
		return goredis.NewScanCmdResult(nil, 0, f.scanErr)
	}
	if cursor == 0 || match != f.lastMatch {
		f.lastMatch = match
		f.scanSnap = f.scanSnap[:0]
		// the backend escapes glob metachars; undo for plain matching
		plain := strings.ReplaceAll(match, `\`, "")
		for k := range f.store {
			if scopecache.MatchPattern(plain, k) {
				f.scanSnap = append(f.scanSnap, k)
			}
		}
		sort.Strings(f.scanSnap)
	}
	start := int(cursor)
	end := start + int(count)
	if end > len(f.scanSnap) {
		end = len(f.scanSnap)
	}
	keys := f.scanSnap[start:end]
	var next uint64
	if end < len(f.scanSnap) {
		next = uint64(end)
	}
	return goredis.NewScanCmdResult(keys, next, nil)
}

func (f *fakeClient) Close() error {
	f.closed++
	return nil
}

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestBackend(t *testing.T, fc *fakeClient, opts scopecache.Options) *Backend[user] {
	t.Helper()
	b, err := New[user](Config[user]{
		Client:  fc,
		Options: opts,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New[user](Config[user]{}); !errors.Is(err, ErrNilClient) {
		t.Fatalf("expected ErrNilClient, got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	b := newTestBackend(t, fc, scopecache.Options{Prefix: "app"})

	v := user{ID: "1", Name: "Ada"}
	if !b.Set(ctx, "u:1", v, scopecache.DefaultTTL) {
		t.Fatalf("Set failed")
	}
	if _, ok := fc.store["app:u:1"]; !ok {
		t.Fatalf("stored key should carry prefix; have %v", keysOf(fc))
	}
	got, ok := b.Get(ctx, "u:1")
	if !ok || got != v {
		t.Fatalf("Get: ok=%v got=%+v", ok, got)
	}
	if !b.Has(ctx, "u:1") {
		t.Fatalf("Has should see the entry")
	}
}

func keysOf(fc *fakeClient) []string {
	out := make([]string, 0, len(fc.store))
	for k := range fc.store {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Transport errors fail open: logged, counted as a miss, never surfaced.
func TestGetTransportErrorIsMiss(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	b := newTestBackend(t, fc, scopecache.Options{})

	fc.getErr = errors.New("connection refused")
	if _, ok := b.Get(ctx, "k"); ok {
		t.Fatalf("transport error should read as miss")
	}
	if st := b.Stats(ctx); st.Misses != 1 {
		t.Fatalf("miss not counted: %+v", st)
	}
}

type healHooks struct {
	scopecache.NopHooks
	keys []string
}

func (h *healHooks) SelfHealed(k string, _ error) { h.keys = append(h.keys, k) }

// An unparseable payload is a logged miss, the corrupt entry is removed
// best-effort, and the self-heal hook fires.
func TestCorruptPayloadSelfHeals(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	hooks := &healHooks{}
	b, err := New[user](Config[user]{Client: fc, Hooks: hooks})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close(ctx)

	fc.store["bad"] = []byte("{not json")
	if _, ok := b.Get(ctx, "bad"); ok {
		t.Fatalf("corrupt payload should miss")
	}
	if _, ok := fc.store["bad"]; ok {
		t.Fatalf("corrupt entry should have been deleted")
	}
	if len(hooks.keys) != 1 || hooks.keys[0] != "bad" {
		t.Fatalf("self-heal hook saw %v", hooks.keys)
	}
}

func TestSetEncodeFailureSkipsWrite(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	b, err := New[chan int](Config[chan int]{Client: fc})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close(ctx)

	if b.Set(ctx, "k", make(chan int), scopecache.DefaultTTL) {
		t.Fatalf("unencodable value should skip the write")
	}
	if len(fc.store) != 0 {
		t.Fatalf("nothing should have been stored")
	}
}

func TestDisabled(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	b := newTestBackend(t, fc, scopecache.Options{Disabled: true})

	if b.Set(ctx, "k", user{}, scopecache.DefaultTTL) {
		t.Fatalf("Set on disabled cache should no-op")
	}
	if len(fc.store) != 0 {
		t.Fatalf("disabled cache must not write")
	}
	if _, ok := b.Get(ctx, "k"); ok {
		t.Fatalf("disabled cache must miss")
	}
}

// Bulk deletion walks the cursor in bounded batches and deletes each
// batch as it arrives.
func TestDeleteByPatternScansInBatches(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	b := newTestBackend(t, fc, scopecache.Options{})

	for i := 0; i < 250; i++ {
		fc.store["user:"+strconv.Itoa(i)] = []byte(`{}`)
	}
	fc.store["order:1"] = []byte(`{}`)

	n := b.DeleteByPattern(ctx, "user:*")
	if n != 250 {
		t.Fatalf("deleted %d, want 250", n)
	}
	if _, ok := fc.store["order:1"]; !ok {
		t.Fatalf("non-matching key deleted")
	}
	// 250 keys at batch size 100 → three delete round-trips
	if fc.delCalls != 3 {
		t.Fatalf("delete round-trips = %d, want 3", fc.delCalls)
	}
}

func TestKeysPattern(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	b := newTestBackend(t, fc, scopecache.Options{Prefix: "app"})

	b.Set(ctx, "user:1", user{ID: "1"}, scopecache.DefaultTTL)
	b.Set(ctx, "user:2", user{ID: "2"}, scopecache.DefaultTTL)
	b.Set(ctx, "order:1", user{ID: "3"}, scopecache.DefaultTTL)

	keys := b.Keys(ctx, "user:*")
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "app:user:1" || keys[1] != "app:user:2" {
		t.Fatalf("Keys = %v", keys)
	}
}

func TestClearByPrefixExactness(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	b := newTestBackend(t, fc, scopecache.Options{Prefix: "a"})

	b.Set(ctx, "k", user{ID: "1"}, scopecache.DefaultTTL)
	fc.store["ab:k"] = []byte(`{}`) // sibling prefix, not ours

	b.ClearByPrefix(ctx)

	if _, ok := fc.store["a:k"]; ok {
		t.Fatalf("own key should be gone")
	}
	if _, ok := fc.store["ab:k"]; !ok {
		t.Fatalf("'ab:' keys must survive clearing 'a:'")
	}
}

func TestClearResetsCounters(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	b := newTestBackend(t, fc, scopecache.Options{})

	b.Set(ctx, "k", user{ID: "1"}, scopecache.DefaultTTL)
	b.Get(ctx, "k")
	b.Get(ctx, "missing")

	b.Clear(ctx)

	st := b.Stats(ctx)
	if st.Hits != 0 || st.Misses != 0 || st.Size != 0 {
		t.Fatalf("Clear should wipe entries and counters: %+v", st)
	}
}

func TestStatsErrorMarker(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	b := newTestBackend(t, fc, scopecache.Options{})

	fc.scanErr = errors.New("server gone")
	st := b.Stats(ctx)
	if st.Error == "" {
		t.Fatalf("stats should carry an error marker when the size scan fails")
	}
	if st.Backend != scopecache.KindRedis {
		t.Fatalf("backend = %q", st.Backend)
	}
}

func TestCloseIdempotentAndOwnsClient(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	b, err := New[user](Config[user]{Client: fc, CloseClient: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if fc.closed != 1 {
		t.Fatalf("client closed %d times, want 1", fc.closed)
	}
	if b.Set(ctx, "k", user{}, scopecache.DefaultTTL) {
		t.Fatalf("Set after Close should no-op")
	}
}

func TestUnownedClientSurvivesClose(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	b := newTestBackend(t, fc, scopecache.Options{})

	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if fc.closed != 0 {
		t.Fatalf("shared client must not be closed by the backend")
	}
}

// The codec is pluggable; Msgpack round-trips like JSON.
func TestMsgpackCodec(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	b, err := New[user](Config[user]{
		Client: fc,
		Codec:  codec.Msgpack[user]{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close(ctx)

	v := user{ID: "7", Name: "Grace"}
	b.Set(ctx, "k", v, scopecache.DefaultTTL)
	got, ok := b.Get(ctx, "k")
	if !ok || got != v {
		t.Fatalf("msgpack round trip: ok=%v got=%+v", ok, got)
	}
}
