// Package draft keeps unpublished plan edits alive across editor reloads:
// it detects divergence from the last published snapshot and persists the
// working copy to an external key-value cache on a debounce timer.
package draft

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edudisplej/loopplan/internal/model"
)

// DefaultPersistDelay debounces continuous edits; high-priority actions like
// item removal pass a shorter delay instead.
const DefaultPersistDelay = 250 * time.Millisecond

// Manager tracks dirtiness of one group's plan against its last published
// snapshot and owns the debounced cache persistence timer.
type Manager struct {
	mu            sync.Mutex
	cache         KeyValueCache
	groupID       int
	lastPublished string
	dirty         bool
	pending       string
	timer         *time.Timer
	now           func() time.Time
}

// NewManager starts clean at the given published baseline.
func NewManager(cache KeyValueCache, groupID int, lastPublished string) *Manager {
	return &Manager{
		cache:         cache,
		groupID:       groupID,
		lastPublished: lastPublished,
		now:           time.Now,
	}
}

// IsDirty reports divergence from the last published snapshot.
func (m *Manager) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

// LastPublished returns the serialized baseline plan.
func (m *Manager) LastPublished() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPublished
}

// MarkAndPersist records the current serialized plan and schedules a cache
// write after delay. A pending timer is always cancelled and restarted so a
// stale snapshot never fires; delay <= 0 writes synchronously.
func (m *Manager) MarkAndPersist(ctx context.Context, snapshot string, delay time.Duration) {
	m.mu.Lock()
	m.dirty = snapshot != m.lastPublished
	m.pending = snapshot
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if delay <= 0 {
		m.mu.Unlock()
		m.persistPending(ctx)
		return
	}
	m.timer = time.AfterFunc(delay, func() {
		m.persistPending(context.Background())
	})
	m.mu.Unlock()
}

func (m *Manager) persistPending(ctx context.Context) {
	m.mu.Lock()
	snapshot := m.pending
	dirty := m.dirty
	m.mu.Unlock()

	if !dirty {
		// Editing back to the published state: drop any stale draft.
		if err := m.cache.Delete(ctx, Key(m.groupID)); err != nil {
			log.Warn().Err(err).Int("group_id", m.groupID).Msg("draft cleanup failed")
		}
		return
	}

	entry := model.DraftSnapshot{
		Snapshot: snapshot,
		SavedAt:  m.now().UTC().Format(time.RFC3339),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Int("group_id", m.groupID).Msg("draft encode failed")
		return
	}
	if err := m.cache.Set(ctx, Key(m.groupID), string(raw)); err != nil {
		// Transient: the in-memory plan still holds the edits.
		log.Warn().Err(err).Int("group_id", m.groupID).Msg("draft save failed")
	}
}

// Flush forces a pending debounced write out immediately.
func (m *Manager) Flush(ctx context.Context) {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	hasPending := m.pending != ""
	m.mu.Unlock()
	if hasPending {
		m.persistPending(ctx)
	}
}

// RestoreResult is what TryRestore found in the cache.
type RestoreResult struct {
	// Draft is non-nil when a cached snapshot differs from the published
	// baseline; the caller decides whether to apply it. Auto-applying is
	// deliberately not done here.
	Draft *model.DraftSnapshot
}

// TryRestore inspects the cached draft on load. A snapshot equal to the
// published baseline is discarded silently; a corrupt entry is treated as an
// empty draft and removed; a diverging snapshot is handed back for the
// restore/discard decision.
func (m *Manager) TryRestore(ctx context.Context) (RestoreResult, error) {
	raw, ok, err := m.cache.Get(ctx, Key(m.groupID))
	if err != nil {
		return RestoreResult{}, &cacheError{op: "draft read", err: err}
	}
	if !ok || raw == "" {
		return RestoreResult{}, nil
	}

	var entry model.DraftSnapshot
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.Snapshot == "" {
		log.Warn().Int("group_id", m.groupID).Msg("corrupt draft entry discarded")
		_ = m.cache.Delete(ctx, Key(m.groupID))
		return RestoreResult{}, nil
	}

	m.mu.Lock()
	published := m.lastPublished
	m.mu.Unlock()

	if entry.Snapshot == published {
		_ = m.cache.Delete(ctx, Key(m.groupID))
		return RestoreResult{}, nil
	}
	return RestoreResult{Draft: &entry}, nil
}

// AcceptRestore marks the session dirty after the caller applied the draft.
func (m *Manager) AcceptRestore() {
	m.mu.Lock()
	m.dirty = true
	m.mu.Unlock()
}

// DeclineRestore keeps the cached draft but flags the session dirty, so the
// user is not silently left believing they are on published data.
func (m *Manager) DeclineRestore() {
	m.mu.Lock()
	m.dirty = true
	m.mu.Unlock()
}

// Discard abandons local edits: the caller reapplies the returned published
// snapshot, and the cache entry and dirty flag are cleared.
func (m *Manager) Discard(ctx context.Context) string {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.pending = ""
	m.dirty = false
	published := m.lastPublished
	m.mu.Unlock()

	if err := m.cache.Delete(ctx, Key(m.groupID)); err != nil {
		log.Warn().Err(err).Int("group_id", m.groupID).Msg("draft cleanup failed")
	}
	return published
}

// AdvanceBaseline moves the published baseline after a successful publish.
// Only when the pending edits are exactly what was published do the draft
// cache and dirty flag clear; edits that landed while the publish was in
// flight stay dirty and keep their pending cache write.
func (m *Manager) AdvanceBaseline(ctx context.Context, snapshot string) {
	m.mu.Lock()
	m.lastPublished = snapshot
	m.dirty = m.pending != "" && m.pending != snapshot
	clean := !m.dirty
	if clean {
		if m.timer != nil {
			m.timer.Stop()
			m.timer = nil
		}
		m.pending = ""
	}
	m.mu.Unlock()

	if clean {
		if err := m.cache.Delete(ctx, Key(m.groupID)); err != nil {
			log.Warn().Err(err).Int("group_id", m.groupID).Msg("draft cleanup failed")
		}
	}
}

type cacheError struct {
	op  string
	err error
}

func (e *cacheError) Error() string { return e.op + ": " + e.err.Error() }
func (e *cacheError) Unwrap() error { return e.err }
