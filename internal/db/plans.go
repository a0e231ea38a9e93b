package db

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/edudisplej/loopplan/internal/model"
)

// GetPublishedPlan returns the stored plan row, or nil when the group has
// never published.
func (s *pgStore) GetPublishedPlan(ctx context.Context, groupID int) (*model.PublishedPlan, error) {
	var p model.PublishedPlan
	err := s.db.GetContext(ctx, &p, `
		SELECT group_id, plan_json, plan_version, updated_at
		  FROM group_loop_plans
		 WHERE group_id = $1
	`, groupID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePublishedPlan upserts the group's plan and returns the new version
// token, a millisecond epoch stamp.
func (s *pgStore) SavePublishedPlan(ctx context.Context, groupID int, planJSON string) (string, error) {
	token := strconv.FormatInt(time.Now().UnixMilli(), 10)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_loop_plans (group_id, plan_json, plan_version, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (group_id) DO UPDATE
		   SET plan_json    = EXCLUDED.plan_json,
		       plan_version = EXCLUDED.plan_version,
		       updated_at   = now()
	`, groupID, planJSON, token)
	if err != nil {
		return "", err
	}
	return token, nil
}
