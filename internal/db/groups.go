package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/edudisplej/loopplan/internal/model"
)

func (s *pgStore) GetGroup(ctx context.Context, id int) (*model.Group, error) {
	var g model.Group
	err := s.db.GetContext(ctx, &g, `
		SELECT id, name, is_default, created_at, updated_at
		  FROM kiosk_groups
		 WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *pgStore) ListGroups(ctx context.Context) ([]model.Group, error) {
	var groups []model.Group
	err := s.db.SelectContext(ctx, &groups, `
		SELECT id, name, is_default, created_at, updated_at
		  FROM kiosk_groups
		 ORDER BY is_default DESC, name ASC
	`)
	return groups, err
}

func (s *pgStore) CreateGroup(ctx context.Context, name string, isDefault bool) (*model.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}
	var g model.Group
	err := s.db.GetContext(ctx, &g, `
		INSERT INTO kiosk_groups (name, is_default)
		VALUES ($1, $2)
		RETURNING id, name, is_default, created_at, updated_at
	`, name, isDefault)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *pgStore) RenameGroup(ctx context.Context, id int, name string) (*model.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}
	var g model.Group
	err := s.db.GetContext(ctx, &g, `
		UPDATE kiosk_groups
		   SET name       = $1,
		       updated_at = now()
		 WHERE id = $2
		RETURNING id, name, is_default, created_at, updated_at
	`, name, id)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// DeleteGroup removes a non-default group and its published plan.
func (s *pgStore) DeleteGroup(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM kiosk_groups WHERE id = $1 AND is_default = false
	`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
