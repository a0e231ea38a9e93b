package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/edudisplej/loopplan/internal/draft"
	"github.com/edudisplej/loopplan/internal/model"
	"github.com/edudisplej/loopplan/internal/plan"
	"github.com/edudisplej/loopplan/internal/publish"
)

// PlanSource is the persistence surface a session manager needs.
type PlanSource interface {
	GetGroup(ctx context.Context, id int) (*model.Group, error)
	GetPublishedPlan(ctx context.Context, groupID int) (*model.PublishedPlan, error)
	SavePublishedPlan(ctx context.Context, groupID int, planJSON string) (string, error)
}

// Manager hands out at most one Session per group.
type Manager struct {
	mu        sync.Mutex
	source    PlanSource
	cache     draft.KeyValueCache
	notifier  publish.Notifier
	technical model.ContentItem
	sessions  map[int]*Session
}

// NewManager builds a session registry. technical is the placeholder item
// injected into empty loops.
func NewManager(source PlanSource, cache draft.KeyValueCache, notifier publish.Notifier, technical model.ContentItem) *Manager {
	return &Manager{
		source:    source,
		cache:     cache,
		notifier:  notifier,
		technical: technical,
		sessions:  make(map[int]*Session),
	}
}

// Session returns the group's session, creating it from persisted state on
// first use.
func (m *Manager) Session(ctx context.Context, groupID int) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[groupID]; ok {
		return s, nil
	}

	group, err := m.source.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	technical := m.technical
	store, versionToken, baseline := m.loadStore(ctx, groupID, &technical)

	drafts := draft.NewManager(m.cache, groupID, baseline)
	controller := publish.NewController(&sourcePublisher{source: m.source}, m.notifier, groupID)
	controller.SeedVersion(versionToken)

	s := newSession(*group, store, drafts, controller, m.technical, &sync.Mutex{})
	m.sessions[groupID] = s
	return s, nil
}

// Evict drops a cached session, forcing the next access to reload from
// persisted state. A pending debounced draft write is flushed first so the
// dropped session loses no edits.
func (m *Manager) Evict(ctx context.Context, groupID int) {
	m.mu.Lock()
	s, ok := m.sessions[groupID]
	delete(m.sessions, groupID)
	m.mu.Unlock()
	if ok {
		s.drafts.Flush(ctx)
	}
}

// loadStore rebuilds the working plan from the published row. A missing or
// unparseable row yields a fresh empty plan.
func (m *Manager) loadStore(ctx context.Context, groupID int, technical *model.ContentItem) (*plan.Store, string, string) {
	published, err := m.source.GetPublishedPlan(ctx, groupID)
	if err != nil || published == nil {
		if err != nil {
			log.Warn().Err(err).Int("group_id", groupID).Msg("loading published plan failed, starting empty")
		}
		return plan.NewStore(&model.Plan{}, technical), "", ""
	}

	var wire model.WirePlan
	if err := json.Unmarshal([]byte(published.PlanJSON), &wire); err != nil {
		log.Error().Err(err).Int("group_id", groupID).Msg("published plan row is unparseable, starting empty")
		return plan.NewStore(&model.Plan{}, technical), "", ""
	}

	store := plan.NewStoreFromWire(&wire, technical)
	return store, published.PlanVersion, publish.Snapshot(store.Plan())
}

// sourcePublisher adapts the persistence layer to the publish controller.
type sourcePublisher struct {
	source PlanSource
}

func (p *sourcePublisher) PublishPlan(ctx context.Context, groupID int, payload *model.WirePlan) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return p.source.SavePublishedPlan(ctx, groupID, string(raw))
}
