// Package db persists groups, published loop plans and editor accounts.
package db

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/edudisplej/loopplan/internal/model"
)

// Store is the persistence surface handed to the API layer and the session
// manager.
type Store interface {
	// group functions
	GetGroup(ctx context.Context, id int) (*model.Group, error)
	ListGroups(ctx context.Context) ([]model.Group, error)
	CreateGroup(ctx context.Context, name string, isDefault bool) (*model.Group, error)
	RenameGroup(ctx context.Context, id int, name string) (*model.Group, error)
	DeleteGroup(ctx context.Context, id int) error

	// published plan functions
	GetPublishedPlan(ctx context.Context, groupID int) (*model.PublishedPlan, error)
	SavePublishedPlan(ctx context.Context, groupID int, planJSON string) (string, error)

	// admin account functions
	GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error)
	GetAdminByID(ctx context.Context, id int) (*model.Admin, error)
	CreateAdmin(ctx context.Context, email, hashedPassword string, name *string) (int, error)
}

type pgStore struct {
	db *sqlx.DB
}

// compile-time check that pgStore implements Store
var _ Store = (*pgStore)(nil)

func NewStore() Store {
	return &pgStore{db: DB}
}
