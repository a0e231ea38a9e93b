package db

import (
	"context"

	"github.com/edudisplej/loopplan/internal/model"
)

func (s *pgStore) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var a model.Admin
	err := s.db.GetContext(ctx, &a, `
		SELECT id, email, name, hashed_password, created_at, updated_at
		  FROM admins
		 WHERE email = $1
	`, email)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *pgStore) GetAdminByID(ctx context.Context, id int) (*model.Admin, error) {
	var a model.Admin
	err := s.db.GetContext(ctx, &a, `
		SELECT id, email, name, hashed_password, created_at, updated_at
		  FROM admins
		 WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *pgStore) CreateAdmin(ctx context.Context, email, hashedPassword string, name *string) (int, error) {
	var id int
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO admins (email, hashed_password, name)
		VALUES ($1, $2, $3)
		RETURNING id
	`, email, hashedPassword, name)
	return id, err
}
