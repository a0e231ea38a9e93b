package model

import "time"

// Group represents a display group of kiosks sharing one loop plan.
// A default group is uneditable and always serves its DEFAULT loop.
type Group struct {
	ID        int       `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	IsDefault bool      `db:"is_default" json:"is_default"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PublishedPlan is the stored, served plan for one group.
type PublishedPlan struct {
	GroupID     int       `db:"group_id"     json:"group_id"`
	PlanJSON    string    `db:"plan_json"    json:"plan_json"`
	PlanVersion string    `db:"plan_version" json:"plan_version"`
	UpdatedAt   time.Time `db:"updated_at"   json:"updated_at"`
}
