package packets

import "github.com/edudisplej/loopplan/internal/model"

// GroupResponse mirrors model.Group but flattens times to RFC3339.
type GroupResponse struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// LoopResponse is the editor view of a group's plan.
type LoopResponse struct {
	Plan          *model.WirePlan `json:"plan"`
	ActiveStyleID int             `json:"active_style_id,omitempty"`
	Dirty         bool            `json:"dirty"`
}

// DraftResponse surfaces a cached draft that diverges from the published
// plan. Draft is null when there is nothing to restore.
type DraftResponse struct {
	Draft *model.DraftSnapshot `json:"draft"`
}

type PublishResponse struct {
	Published   bool   `json:"published"`
	Coalesced   bool   `json:"coalesced"`
	PlanVersion string `json:"plan_version,omitempty"`
}

// ScopeResponse answers "which scope governs instant t".
type ScopeResponse struct {
	At    string              `json:"at"`
	Scope string              `json:"scope"`
	Items []model.ContentItem `json:"items"`
}
