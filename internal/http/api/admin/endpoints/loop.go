package endpoints

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/edudisplej/loopplan/internal/http/api"
	"github.com/edudisplej/loopplan/internal/http/api/admin/packets"
	"github.com/edudisplej/loopplan/internal/model"
	"github.com/edudisplej/loopplan/internal/plan"
	"github.com/edudisplej/loopplan/internal/session"
)

// ConflictPolicyHeader selects how an overlapping block edit is resolved.
// Absent or "abort" rejects the edit, "trim" truncates the overlapped
// blocks, "delete" removes them.
const ConflictPolicyHeader = "X-Conflict-Policy"

// LoopModule mounts the plan editing endpoints.
func LoopModule(sessions *session.Manager) api.Module {
	ctl := &loopController{sessions: sessions}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/groups/:id/loop", ctl.loadLoop)
		c.POST("/groups/:id/loop/publish", ctl.publish)
		c.GET("/groups/:id/loop/scope", ctl.resolveScope)

		c.GET("/groups/:id/loop/draft", ctl.checkDraft)
		c.POST("/groups/:id/loop/draft/restore", ctl.restoreDraft)
		c.POST("/groups/:id/loop/draft/decline", ctl.declineDraft)
		c.DELETE("/groups/:id/loop/draft", ctl.discardDraft)

		c.POST("/groups/:id/loop/styles", ctl.createStyle)
		c.POST("/groups/:id/loop/styles/:style_id/duplicate", ctl.duplicateStyle)
		c.POST("/groups/:id/loop/styles/:style_id/activate", ctl.activateStyle)
		c.PUT("/groups/:id/loop/styles/:style_id", ctl.renameStyle)
		c.PUT("/groups/:id/loop/styles/:style_id/items", ctl.replaceItems)
		c.DELETE("/groups/:id/loop/styles/:style_id", ctl.deleteStyle)

		c.POST("/groups/:id/loop/blocks", ctl.upsertBlock)
		c.DELETE("/groups/:id/loop/blocks/:block_id", ctl.deleteBlock)
	})
}

type loopController struct {
	sessions *session.Manager
}

func (l *loopController) sessionFor(ctx *gin.Context) (*session.Session, *api.Error) {
	id, apiErr := pathID(ctx, "id")
	if apiErr != nil {
		return nil, apiErr
	}
	s, err := l.sessions.Session(ctx.Request.Context(), id)
	if err != nil {
		log.Error().Err(err).Int("group_id", id).Msg("[loop] could not open session")
		return nil, &api.Error{Code: http.StatusNotFound, Message: "group not found"}
	}
	return s, nil
}

func (l *loopController) loopResponse(s *session.Session) packets.LoopResponse {
	return packets.LoopResponse{
		Plan:          s.Payload(),
		ActiveStyleID: s.ActiveStyleID(),
		Dirty:         s.IsDirty(),
	}
}

// GET /api/admin/groups/:id/loop
func (l *loopController) loadLoop(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	s, apiErr := l.sessionFor(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	return l.loopResponse(s), nil
}

// POST /api/admin/groups/:id/loop/publish
func (l *loopController) publish(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	s, apiErr := l.sessionFor(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	result, err := s.Publish(ctx.Request.Context())
	if err != nil {
		return nil, api.DomainError(err, "publish failed")
	}
	return packets.PublishResponse{
		Published:   result.Published,
		Coalesced:   result.Coalesced,
		PlanVersion: result.VersionToken,
	}, nil
}

// GET /api/admin/groups/:id/loop/scope?at=2006-01-02T15:04:05Z
func (l *loopController) resolveScope(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	s, apiErr := l.sessionFor(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	at := time.Now()
	if raw := ctx.Query("at"); raw != "" {
		parsed, err := parseInstant(raw)
		if err != nil {
			return nil, &api.Error{Code: http.StatusBadRequest, Message: "invalid at parameter"}
		}
		at = parsed
	}
	return packets.ScopeResponse{
		At:    at.Format(time.RFC3339),
		Scope: s.ResolveScopeAt(at),
		Items: s.GoverningItemsAt(at),
	}, nil
}

func parseInstant(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02 15:04:05", raw, time.Local)
}

// GET /api/admin/groups/:id/loop/draft
func (l *loopController) checkDraft(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	s, apiErr := l.sessionFor(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	found, err := s.TryRestoreDraft(ctx.Request.Context())
	if err != nil {
		return nil, api.DomainError(err, "could not check draft cache")
	}
	return packets.DraftResponse{Draft: found}, nil
}

// POST /api/admin/groups/:id/loop/draft/restore
func (l *loopController) restoreDraft(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	s, apiErr := l.sessionFor(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	found, err := s.TryRestoreDraft(ctx.Request.Context())
	if err != nil {
		return nil, api.DomainError(err, "could not check draft cache")
	}
	if found == nil {
		return nil, &api.Error{Code: http.StatusNotFound, Message: "no draft to restore"}
	}
	if err := s.ApplyDraft(found.Snapshot); err != nil {
		return nil, api.DomainError(err, "could not apply draft")
	}
	return l.loopResponse(s), nil
}

// POST /api/admin/groups/:id/loop/draft/decline
func (l *loopController) declineDraft(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	s, apiErr := l.sessionFor(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	s.DeclineDraft()
	return l.loopResponse(s), nil
}

// DELETE /api/admin/groups/:id/loop/draft
func (l *loopController) discardDraft(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	s, apiErr := l.sessionFor(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := s.DiscardDraft(ctx.Request.Context()); err != nil {
		return nil, api.DomainError(err, "could not discard draft")
	}
	return l.loopResponse(s), nil
}

// POST /api/admin/groups/:id/loop/styles
func (l *loopController) createStyle(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	s, apiErr := l.sessionFor(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	var request packets.CreateStyleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.Error{Code: http.StatusBadRequest, Message: err.Error()}
	}
	style, err := s.CreateStyle(ctx.Request.Context(), request.Name)
	if err != nil {
		return nil, api.DomainError(err, "could not create style")
	}
	return style, nil
}

// POST /api/admin/groups/:id/loop/styles/:style_id/duplicate
func (l *loopController) duplicateStyle(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	s, apiErr := l.sessionFor(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	styleID, apiErr := pathID(ctx, "style_id")
	if apiErr != nil {
		return nil, apiErr
	}
	style, err := s.DuplicateStyle(ctx.Request.Context(), styleID)
	if err != nil {
		return nil, api.DomainError(err, "could not duplicate style")
	}
	return style, nil
}

// POST /api/admin/groups/:id/loop/styles/:style_id/activate
func (l *loopController) activateStyle(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	s, apiErr := l.sessionFor(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	styleID, apiErr := pathID(ctx, "style_id")
	if apiErr != nil {
		return nil, apiErr
	}
	if err := s.SetActiveStyle(styleID); err != nil {
		return nil, api.DomainError(err, "could not activate style")
	}
	return gin.H{"active_style_id": styleID}, nil
}

// PUT /api/admin/groups/:id/loop/styles/:style_id
func (l *loopController) renameStyle(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	s, apiErr := l.sessionFor(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	styleID, apiErr := pathID(ctx, "style_id")
	if apiErr != nil {
		return nil, apiErr
	}
	var request packets.RenameStyleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.Error{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if err := s.RenameStyle(ctx.Request.Context(), styleID, request.Name); err != nil {
		return nil, api.DomainError(err, "could not rename style")
	}
	return l.loopResponse(s), nil
}

// PUT /api/admin/groups/:id/loop/styles/:style_id/items
func (l *loopController) replaceItems(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	s, apiErr := l.sessionFor(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	styleID, apiErr := pathID(ctx, "style_id")
	if apiErr != nil {
		return nil, apiErr
	}
	var request packets.ReplaceItemsRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.Error{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if err := s.ReplaceStyleItems(ctx.Request.Context(), styleID, request.Items); err != nil {
		return nil, api.DomainError(err, "could not replace items")
	}
	return l.loopResponse(s), nil
}

// DELETE /api/admin/groups/:id/loop/styles/:style_id
func (l *loopController) deleteStyle(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	s, apiErr := l.sessionFor(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	styleID, apiErr := pathID(ctx, "style_id")
	if apiErr != nil {
		return nil, apiErr
	}
	if err := s.DeleteStyle(ctx.Request.Context(), styleID); err != nil {
		return nil, api.DomainError(err, "could not delete style")
	}
	return l.loopResponse(s), nil
}

// POST /api/admin/groups/:id/loop/blocks
func (l *loopController) upsertBlock(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	s, apiErr := l.sessionFor(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	var request packets.UpsertBlockRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.Error{Code: http.StatusBadRequest, Message: err.Error()}
	}
	policy, apiErr := conflictPolicy(ctx)
	if apiErr != nil {
		return nil, apiErr
	}

	block := model.TimeBlock{
		ID:           request.ID,
		BlockName:    request.BlockName,
		BlockType:    model.BlockKind(request.BlockType),
		SpecificDate: request.SpecificDate,
		StartTime:    request.StartTime,
		EndTime:      request.EndTime,
		DaysMask:     request.DaysMask,
		Priority:     request.Priority,
		LoopStyleID:  request.LoopStyleID,
		IsActive:     true,
		IsLocked:     model.IntBool(request.IsLocked),
	}
	if request.IsActive != nil {
		block.IsActive = model.IntBool(*request.IsActive)
	}

	inserted, err := s.UpsertTimeBlock(ctx.Request.Context(), block, policy)
	if err != nil {
		return nil, api.DomainError(err, "could not save time block")
	}
	return inserted, nil
}

// DELETE /api/admin/groups/:id/loop/blocks/:block_id
func (l *loopController) deleteBlock(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	s, apiErr := l.sessionFor(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	blockID, apiErr := pathID(ctx, "block_id")
	if apiErr != nil {
		return nil, apiErr
	}
	if err := s.DeleteTimeBlock(ctx.Request.Context(), blockID); err != nil {
		return nil, api.DomainError(err, "could not delete time block")
	}
	return l.loopResponse(s), nil
}

func conflictPolicy(ctx *gin.Context) (plan.ConflictPolicy, *api.Error) {
	switch ctx.GetHeader(ConflictPolicyHeader) {
	case "", "abort":
		return plan.PolicyAbort, nil
	case "trim":
		return plan.PolicyTrimOverlapping, nil
	case "delete":
		return plan.PolicyDeleteOverlapping, nil
	default:
		return 0, &api.Error{Code: http.StatusBadRequest, Message: "invalid " + ConflictPolicyHeader + " header"}
	}
}
