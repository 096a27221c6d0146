package stats_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openverse/image-worker/internal/sharedstate"
	"github.com/openverse/image-worker/internal/stats"
)

// fakeStore is an in-memory sharedstate.Store mirroring the behavior of
// the original Python test suite's FakeRedis: unset counters read as
// zero, operations are buffered by the pipeline and applied on Exec in
// buffering order.
type fakeStore struct {
	mu       sync.Mutex
	counters map[string]int64
	zsets    map[string][]zMember
}

type zMember struct {
	score  float64
	member string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counters: make(map[string]int64),
		zsets:    make(map[string][]zMember),
	}
}

func (f *fakeStore) Set(ctx context.Context, key string, value interface{}) error { return nil }

func (f *fakeStore) Incr(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[key]++
	return f.counters[key], nil
}

func (f *fakeStore) Decr(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[key]--
	return f.counters[key], nil
}

func (f *fakeStore) Pipeline() sharedstate.Pipeline {
	return &fakePipeline{store: f}
}

func (f *fakeStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.counters[key]; ok {
		return true
	}
	_, ok := f.zsets[key]
	return ok
}

func (f *fakeStore) count(key string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[key]
}

func (f *fakeStore) members(key string) []zMember {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]zMember, len(f.zsets[key]))
	copy(out, f.zsets[key])
	return out
}

type fakePipeline struct {
	store *fakeStore
	todo  []func()
}

func (p *fakePipeline) Incr(key string) {
	p.todo = append(p.todo, func() {
		p.store.mu.Lock()
		p.store.counters[key]++
		p.store.mu.Unlock()
	})
}

func (p *fakePipeline) RPush(key string, value interface{}) {
	p.todo = append(p.todo, func() {})
}

func (p *fakePipeline) ZAdd(key string, score float64, member string) {
	p.todo = append(p.todo, func() {
		p.store.mu.Lock()
		p.store.zsets[key] = append(p.store.zsets[key], zMember{score: score, member: member})
		p.store.mu.Unlock()
	})
}

func (p *fakePipeline) ZRemRangeByScore(key string, min, max string) {
	p.todo = append(p.todo, func() {
		p.store.mu.Lock()
		defer p.store.mu.Unlock()
		kept := p.store.zsets[key][:0]
		for _, m := range p.store.zsets[key] {
			if !inRemovalRange(m.score, min, max) {
				kept = append(kept, m)
			}
		}
		p.store.zsets[key] = kept
	})
}

func (p *fakePipeline) Exec(ctx context.Context) error {
	for _, task := range p.todo {
		task()
	}
	return nil
}

// inRemovalRange parses the same "-inf"/"(<n>"/"<n>" forms stats.go emits.
func inRemovalRange(score float64, min, max string) bool {
	lo := parseBound(min, -1<<62)
	hiExclusive := false
	hiStr := max
	if len(max) > 0 && max[0] == '(' {
		hiExclusive = true
		hiStr = max[1:]
	}
	hi := parseBound(hiStr, 1<<62)
	if hiExclusive {
		return score >= lo && score < hi
	}
	return score >= lo && score <= hi
}

func parseBound(s string, fallback float64) float64 {
	if s == "-inf" {
		return -1 << 62
	}
	if s == "+inf" {
		return 1 << 62
	}
	var f float64
	var neg bool
	i := 0
	if len(s) > 0 && s[0] == '-' {
		neg = true
		i = 1
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return fallback
		}
		f = f*10 + float64(s[i]-'0')
	}
	if neg {
		f = -f
	}
	return f
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestRecordSuccessIncrementsCounters(t *testing.T) {
	store := newFakeStore()
	agg := stats.New(store, testLogger(), nil)

	agg.RecordSuccess(context.Background(), "example.gov")

	if store.count("num_resized") != 1 {
		t.Fatalf("expected num_resized == 1, got %d", store.count("num_resized"))
	}
	if store.count("num_resized:example.gov") != 1 {
		t.Fatalf("expected num_resized:example.gov == 1, got %d", store.count("num_resized:example.gov"))
	}
}

func TestRecordErrorWritesAllExpectedKeys(t *testing.T) {
	store := newFakeStore()
	agg := stats.New(store, testLogger(), nil)

	agg.RecordError(context.Background(), "example.gov", 403)

	expected := []string{
		"resize_errors",
		"resize_errors:example.gov",
		"resize_errors:example.gov:403",
		"err60s:example.gov",
		"err1hr:example.gov",
		"err12hr:example.gov",
	}
	for _, key := range expected {
		if !store.has(key) {
			t.Fatalf("expected key %q to be present", key)
		}
	}
}

func TestRecordErrorNeverTrimsItsOwnEvent(t *testing.T) {
	store := newFakeStore()
	agg := stats.New(store, testLogger(), []stats.Window{{Label: "60s", Duration: 60 * time.Second}})

	agg.RecordError(context.Background(), "example.gov", 500)

	members := store.members("err60s:example.gov")
	if len(members) != 1 {
		t.Fatalf("expected the just-added event to survive its own trim, got %d members", len(members))
	}
}

func TestWindowTrimRemovesOnlyExpiredEntries(t *testing.T) {
	store := newFakeStore()
	base := time.Unix(1_700_000_000, 0)
	var tick int
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 40 * time.Second)
	}
	agg := stats.New(store, testLogger(), []stats.Window{{Label: "60s", Duration: 60 * time.Second}}, stats.WithClock(clock))

	agg.RecordError(context.Background(), "example.gov", 500) // t = base+40s
	agg.RecordError(context.Background(), "example.gov", 500) // t = base+80s
	agg.RecordError(context.Background(), "example.gov", 500) // t = base+120s, cutoff base+60s: trims base+40s

	members := store.members("err60s:example.gov")
	for _, m := range members {
		if m.score < float64(base.Add(60*time.Second).Unix()) {
			t.Fatalf("found stale member with score %v after trim", m.score)
		}
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 surviving members, got %d", len(members))
	}
}
