package publish

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edudisplej/loopplan/internal/model"
	"github.com/edudisplej/loopplan/internal/plan"
)

// Publisher commits a wire payload and returns the new opaque version token.
type Publisher interface {
	PublishPlan(ctx context.Context, groupID int, payload *model.WirePlan) (string, error)
}

// Notifier announces a successful publish to listening kiosks. Nil disables
// notification.
type Notifier interface {
	PlanPublished(groupID int, versionToken string)
}

// DefaultTimeout bounds a publish attempt; past it the attempt counts as
// failed and local state is preserved.
const DefaultTimeout = 15 * time.Second

// Controller performs at-most-one-in-flight publishing per group. A request
// arriving while an attempt is outstanding is coalesced into a single
// follow-up, never stacked.
type Controller struct {
	mu             sync.Mutex
	publisher      Publisher
	notifier       Notifier
	groupID        int
	inFlight       bool
	retryRequested bool
	versionToken   string
	timeout        time.Duration
}

func NewController(publisher Publisher, notifier Notifier, groupID int) *Controller {
	return &Controller{
		publisher: publisher,
		notifier:  notifier,
		groupID:   groupID,
		timeout:   DefaultTimeout,
	}
}

// VersionToken is the token returned by the last successful publish.
func (c *Controller) VersionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versionToken
}

// SeedVersion primes the token from persisted state at startup.
func (c *Controller) SeedVersion(token string) {
	c.mu.Lock()
	c.versionToken = token
	c.mu.Unlock()
}

// Result reports how a publish request ended.
type Result struct {
	// Published is false when the call was an idempotent no-op or was
	// coalesced behind an in-flight attempt.
	Published    bool
	Coalesced    bool
	VersionToken string
}

// PlanProvider hands the controller the plan state to publish. It is invoked
// fresh for every attempt, so a coalesced follow-up picks up edits that landed
// while the previous attempt was in flight.
type PlanProvider func() *model.Plan

// Publish resolves the current plan through the provider and commits it.
// Unchanged plans are no-ops. An empty plan is rejected. On success the
// manager's baseline advances and listeners are notified; on failure the
// dirty flag and draft cache are left intact so no work is lost.
//
// baseline is the manager owning lastPublishedSnapshot; a follow-up attempt
// runs when a publish was requested while another was in flight.
func (c *Controller) Publish(ctx context.Context, current PlanProvider, baseline Baseline) (Result, error) {
	p := current()
	snapshot := Snapshot(p)
	if snapshot == baseline.LastPublished() {
		return Result{Published: false, VersionToken: c.VersionToken()}, nil
	}

	payload := BuildPayload(p)
	if TotalItems(payload) == 0 {
		return Result{}, plan.ErrEmptyPlan
	}

	c.mu.Lock()
	if c.inFlight {
		// Coalesce: one follow-up attempt after the current one settles.
		c.retryRequested = true
		c.mu.Unlock()
		return Result{Coalesced: true}, nil
	}
	c.inFlight = true
	c.mu.Unlock()

	result, err := c.attempt(ctx, snapshot, payload, baseline)

	c.mu.Lock()
	c.inFlight = false
	retry := c.retryRequested
	c.retryRequested = false
	c.mu.Unlock()

	if retry {
		// The plan may have moved on while we were publishing; re-resolve
		// from the provider so the follow-up carries the latest edits.
		log.Debug().Int("group_id", c.groupID).Msg("coalesced publish retry")
		return c.Publish(ctx, current, baseline)
	}
	return result, err
}

func (c *Controller) attempt(ctx context.Context, snapshot string, payload *model.WirePlan, baseline Baseline) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.publisher.PublishPlan(ctx, c.groupID, payload)
	if err != nil {
		log.Error().Err(err).Int("group_id", c.groupID).Msg("publish failed")
		return Result{}, &plan.PersistenceError{Op: "publish", Err: err}
	}

	c.mu.Lock()
	c.versionToken = token
	c.mu.Unlock()

	baseline.AdvanceBaseline(ctx, snapshot)
	if c.notifier != nil {
		c.notifier.PlanPublished(c.groupID, token)
	}
	log.Info().Int("group_id", c.groupID).Str("plan_version", token).Msg("plan published")
	return Result{Published: true, VersionToken: token}, nil
}

// Baseline is the slice of the draft manager the controller needs: reading
// the published snapshot and advancing it on success.
type Baseline interface {
	LastPublished() string
	AdvanceBaseline(ctx context.Context, snapshot string)
}
