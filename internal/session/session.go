// Package session ties one group's plan store, draft manager and publish
// controller together behind a single mutex, giving the engine its
// single-writer-per-group semantics.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edudisplej/loopplan/internal/draft"
	"github.com/edudisplej/loopplan/internal/model"
	"github.com/edudisplej/loopplan/internal/plan"
	"github.com/edudisplej/loopplan/internal/publish"
)

// Persist delays: continuous edits debounce at the default, destructive
// actions flush sooner.
const (
	persistDelayDefault = draft.DefaultPersistDelay
	persistDelayUrgent  = 120 * time.Millisecond
)

// Session is the exclusive owner of one group's editing state. All exported
// methods serialize on the session mutex.
type Session struct {
	mu        *sync.Mutex
	group     model.Group
	store     *plan.Store
	drafts    *draft.Manager
	publisher *publish.Controller
	technical model.ContentItem

	defaultDelay time.Duration
	urgentDelay  time.Duration
}

func newSession(group model.Group, store *plan.Store, drafts *draft.Manager, publisher *publish.Controller, technical model.ContentItem, mu *sync.Mutex) *Session {
	return &Session{
		mu:           mu,
		group:        group,
		store:        store,
		drafts:       drafts,
		publisher:    publisher,
		technical:    technical,
		defaultDelay: persistDelayDefault,
		urgentDelay:  persistDelayUrgent,
	}
}

// Group returns the group this session edits.
func (s *Session) Group() model.Group {
	return s.group
}

// ActiveStyleID is the style currently open in the editor.
func (s *Session) ActiveStyleID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ActiveStyleID()
}

// IsDirty reports unpublished local edits.
func (s *Session) IsDirty() bool {
	return s.drafts.IsDirty()
}

// VersionToken returns the last published plan version.
func (s *Session) VersionToken() string {
	return s.publisher.VersionToken()
}

// Payload renders the current plan in wire form for the editor.
func (s *Session) Payload() *model.WirePlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := publish.BuildPayload(s.store.Plan())
	out.PlanVersion = s.publisher.VersionToken()
	return out
}

func (s *Session) editable() error {
	if s.group.IsDefault {
		return plan.ErrGroupNotEditable
	}
	return nil
}

// markDirty persists the current snapshot on the debounce timer.
func (s *Session) markDirty(ctx context.Context, delay time.Duration) {
	s.drafts.MarkAndPersist(ctx, publish.Snapshot(s.store.Plan()), delay)
}

// CreateStyle adds a named loop style.
func (s *Session) CreateStyle(ctx context.Context, name string) (*model.LoopStyle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return nil, err
	}
	style, err := s.store.CreateStyle(name)
	if err != nil {
		return nil, err
	}
	s.markDirty(ctx, s.defaultDelay)
	return style, nil
}

// DuplicateStyle copies a style under a collision-free name.
func (s *Session) DuplicateStyle(ctx context.Context, id int) (*model.LoopStyle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return nil, err
	}
	style, err := s.store.DuplicateStyle(id)
	if err != nil {
		return nil, err
	}
	s.markDirty(ctx, s.defaultDelay)
	return style, nil
}

// RenameStyle renames a style.
func (s *Session) RenameStyle(ctx context.Context, id int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if err := s.store.RenameStyle(id, name); err != nil {
		return err
	}
	s.markDirty(ctx, s.defaultDelay)
	return nil
}

// ReplaceStyleItems swaps a style's content items.
func (s *Session) ReplaceStyleItems(ctx context.Context, id int, items []model.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if err := s.store.ReplaceStyleItems(id, items); err != nil {
		return err
	}
	// Item removal must not sit in the debounce window.
	s.markDirty(ctx, s.urgentDelay)
	return nil
}

// DeleteStyle removes a style, cascading to its blocks.
func (s *Session) DeleteStyle(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if err := s.store.DeleteStyle(id); err != nil {
		return err
	}
	s.markDirty(ctx, s.urgentDelay)
	return nil
}

// SetActiveStyle switches editor focus; focus is not part of the published
// plan, so it does not dirty the draft.
func (s *Session) SetActiveStyle(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.SetActiveStyle(id)
}

// UpsertTimeBlock gates a block through the conflict resolver and inserts it.
func (s *Session) UpsertTimeBlock(ctx context.Context, block model.TimeBlock, policy plan.ConflictPolicy) (*model.TimeBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return nil, err
	}
	inserted, err := s.store.UpsertTimeBlock(block, policy)
	if err != nil {
		return nil, err
	}
	s.markDirty(ctx, s.defaultDelay)
	return inserted, nil
}

// DeleteTimeBlock removes a block.
func (s *Session) DeleteTimeBlock(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if err := s.store.DeleteTimeBlock(id); err != nil {
		return err
	}
	s.markDirty(ctx, s.urgentDelay)
	return nil
}

// ResolveScopeAt answers which scope governs an instant.
func (s *Session) ResolveScopeAt(at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return plan.ResolveScope(s.store.Plan(), at)
}

// GoverningItemsAt returns the loop that should play at an instant.
func (s *Session) GoverningItemsAt(at time.Time) []model.ContentItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneItems(plan.GoverningItems(s.store.Plan(), at, s.group.IsDefault))
}

// TryRestoreDraft surfaces a cached diverging draft, if any.
func (s *Session) TryRestoreDraft(ctx context.Context) (*model.DraftSnapshot, error) {
	result, err := s.drafts.TryRestore(ctx)
	if err != nil {
		return nil, err
	}
	return result.Draft, nil
}

// ApplyDraft replaces the working plan with a cached draft snapshot and
// leaves the session dirty.
func (s *Session) ApplyDraft(snapshot string) error {
	var wire model.WirePlan
	if err := json.Unmarshal([]byte(snapshot), &wire); err != nil {
		return &plan.ValidationError{Field: "snapshot", Reason: "draft snapshot is not valid JSON"}
	}
	technical := s.technical
	s.mu.Lock()
	s.store = plan.NewStoreFromWire(&wire, &technical)
	s.mu.Unlock()
	s.drafts.AcceptRestore()
	return nil
}

// DeclineDraft keeps the cached draft and marks the session dirty so the
// user is not silently left on stale data.
func (s *Session) DeclineDraft() {
	s.drafts.DeclineRestore()
}

// DiscardDraft reverts to the published plan and clears the cache.
func (s *Session) DiscardDraft(ctx context.Context) error {
	published := s.drafts.Discard(ctx)
	if published == "" {
		return nil
	}
	var wire model.WirePlan
	if err := json.Unmarshal([]byte(published), &wire); err != nil {
		log.Error().Int("group_id", s.group.ID).Msg("published baseline is unparseable")
		return &plan.PersistenceError{Op: "discard", Err: err}
	}
	technical := s.technical
	s.mu.Lock()
	s.store = plan.NewStoreFromWire(&wire, &technical)
	s.mu.Unlock()
	return nil
}

// Publish commits the current plan. A default group never publishes. The
// provider re-clones the live store on every attempt, so a coalesced retry
// publishes edits made while the first attempt was in flight.
func (s *Session) Publish(ctx context.Context) (publish.Result, error) {
	if err := s.editable(); err != nil {
		return publish.Result{}, err
	}
	current := func() *model.Plan {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.store.Plan().Clone()
	}
	return s.publisher.Publish(ctx, current, s.drafts)
}
