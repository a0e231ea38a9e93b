package packets

import "github.com/edudisplej/loopplan/internal/model"

// ResolvedLoopResponse is what a kiosk plays right now.
type ResolvedLoopResponse struct {
	GroupID     int                 `json:"group_id"`
	Scope       string              `json:"scope"`
	Items       []model.ContentItem `json:"items"`
	PlanVersion string              `json:"plan_version"`
	ServerTime  string              `json:"server_time"`
}

// VersionResponse answers the cheap poll kiosks issue between full fetches.
type VersionResponse struct {
	PlanVersion string `json:"plan_version"`
}
