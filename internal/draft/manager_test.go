package draft

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/edudisplej/loopplan/internal/model"
)

func TestMarkAndPersistSetsDirtyAndWrites(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	m := NewManager(cache, 7, `{"published":true}`)

	m.MarkAndPersist(ctx, `{"edited":true}`, 0)
	if !m.IsDirty() {
		t.Fatal("diverging snapshot must set dirty")
	}

	raw, ok, err := cache.Get(ctx, Key(7))
	if err != nil || !ok {
		t.Fatalf("expected cached draft, ok=%v err=%v", ok, err)
	}
	var entry model.DraftSnapshot
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Snapshot != `{"edited":true}` || entry.SavedAt == "" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestMarkAndPersistBackToPublishedClearsDraft(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	m := NewManager(cache, 7, `{"published":true}`)

	m.MarkAndPersist(ctx, `{"edited":true}`, 0)
	m.MarkAndPersist(ctx, `{"published":true}`, 0)

	if m.IsDirty() {
		t.Fatal("snapshot equal to baseline must clear dirty")
	}
	if _, ok, _ := cache.Get(ctx, Key(7)); ok {
		t.Fatal("stale draft entry should be removed")
	}
}

func TestTryRestoreEqualSnapshotDiscardedSilently(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	entry, _ := json.Marshal(model.DraftSnapshot{Snapshot: `{"published":true}`, SavedAt: "2024-06-10T09:00:00Z"})
	_ = cache.Set(ctx, Key(7), string(entry))

	m := NewManager(cache, 7, `{"published":true}`)
	result, err := m.TryRestore(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Draft != nil {
		t.Fatal("snapshot equal to baseline must not surface a choice")
	}
	if _, ok, _ := cache.Get(ctx, Key(7)); ok {
		t.Fatal("equal snapshot should be discarded from the cache")
	}
	if m.IsDirty() {
		t.Fatal("nothing to restore, session stays clean")
	}
}

func TestTryRestoreDivergingSnapshotSurfacesChoice(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	entry, _ := json.Marshal(model.DraftSnapshot{Snapshot: `{"edited":true}`, SavedAt: "2024-06-10T09:00:00Z"})
	_ = cache.Set(ctx, Key(7), string(entry))

	m := NewManager(cache, 7, `{"published":true}`)
	result, err := m.TryRestore(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Draft == nil || result.Draft.Snapshot != `{"edited":true}` {
		t.Fatalf("diverging draft must be handed back, got %+v", result)
	}

	// Declining keeps the cache entry and flags the session dirty.
	m.DeclineRestore()
	if !m.IsDirty() {
		t.Fatal("declining a restore must leave the session dirty")
	}
	if _, ok, _ := cache.Get(ctx, Key(7)); !ok {
		t.Fatal("declining must not delete the draft")
	}
}

func TestTryRestoreCorruptEntryTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	_ = cache.Set(ctx, Key(7), `{not json`)

	m := NewManager(cache, 7, `{"published":true}`)
	result, err := m.TryRestore(ctx)
	if err != nil {
		t.Fatalf("corrupt drafts must not fail the load path: %v", err)
	}
	if result.Draft != nil {
		t.Fatal("corrupt draft must read as empty")
	}
	if _, ok, _ := cache.Get(ctx, Key(7)); ok {
		t.Fatal("corrupt entry should be deleted")
	}
}

func TestDiscardClearsStateAndReturnsBaseline(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	m := NewManager(cache, 7, `{"published":true}`)
	m.MarkAndPersist(ctx, `{"edited":true}`, 0)

	published := m.Discard(ctx)
	if published != `{"published":true}` {
		t.Fatalf("discard must hand back the published snapshot, got %q", published)
	}
	if m.IsDirty() {
		t.Fatal("discard clears the dirty flag")
	}
	if _, ok, _ := cache.Get(ctx, Key(7)); ok {
		t.Fatal("discard clears the cache entry")
	}
}

func TestAdvanceBaseline(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	m := NewManager(cache, 7, `{"v":1}`)
	m.MarkAndPersist(ctx, `{"v":2}`, 0)

	m.AdvanceBaseline(ctx, `{"v":2}`)
	if m.IsDirty() {
		t.Fatal("publishing clears dirty")
	}
	if m.LastPublished() != `{"v":2}` {
		t.Fatal("baseline must advance to the published snapshot")
	}
	if _, ok, _ := cache.Get(ctx, Key(7)); ok {
		t.Fatal("publishing clears the draft cache")
	}
}

func TestAdvanceBaselineKeepsNewerEdits(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	m := NewManager(cache, 7, `{"v":1}`)
	m.MarkAndPersist(ctx, `{"v":3}`, 0)

	// A publish of an older snapshot settles while {"v":3} is pending.
	m.AdvanceBaseline(ctx, `{"v":2}`)
	if !m.IsDirty() {
		t.Fatal("pending edits newer than the published snapshot must stay dirty")
	}
	if _, ok, _ := cache.Get(ctx, Key(7)); !ok {
		t.Fatal("the cached draft of the newer edits must survive")
	}
	if m.LastPublished() != `{"v":2}` {
		t.Fatal("baseline must still advance to what was published")
	}

	m.AdvanceBaseline(ctx, `{"v":3}`)
	if m.IsDirty() {
		t.Fatal("publishing the pending snapshot clears dirty")
	}
	if _, ok, _ := cache.Get(ctx, Key(7)); ok {
		t.Fatal("publishing the pending snapshot clears the cache")
	}
}

type failingCache struct{ KeyValueCache }

func (f failingCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

func TestTryRestoreCacheErrorIsTransient(t *testing.T) {
	m := NewManager(failingCache{NewMemoryCache()}, 7, "")
	if _, err := m.TryRestore(context.Background()); err == nil {
		t.Fatal("cache read failures should surface as errors")
	}
	if m.IsDirty() {
		t.Fatal("a failed read must not mark the session dirty")
	}
}
