package packets

import "github.com/edudisplej/loopplan/internal/model"

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

type RenameGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateStyleRequest struct {
	Name string `json:"name" binding:"required"`
}

type RenameStyleRequest struct {
	Name string `json:"name" binding:"required"`
}

type ReplaceItemsRequest struct {
	Items []model.ContentItem `json:"items"`
}

// UpsertBlockRequest carries a time block to insert or update. A zero or
// negative ID inserts; the conflict policy rides in the X-Conflict-Policy
// header.
type UpsertBlockRequest struct {
	ID           int     `json:"id"`
	BlockName    string  `json:"block_name"`
	BlockType    string  `json:"block_type" binding:"required"`
	SpecificDate *string `json:"specific_date"`
	StartTime    string  `json:"start_time" binding:"required"`
	EndTime      string  `json:"end_time" binding:"required"`
	DaysMask     string  `json:"days_mask"`
	Priority     int     `json:"priority"`
	LoopStyleID  int     `json:"loop_style_id" binding:"required"`
	IsActive     *bool   `json:"is_active"`
	IsLocked     bool    `json:"is_locked"`
}
