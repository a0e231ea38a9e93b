package model

import "time"

// Admin is an editor account allowed to modify and publish loop plans.
type Admin struct {
	ID             int       `db:"id"              json:"id"`
	Email          string    `db:"email"           json:"email"`
	Name           *string   `db:"name"            json:"name,omitempty"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}
