package endpoints

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/edudisplej/loopplan/internal/db"
	"github.com/edudisplej/loopplan/internal/http/api"
	"github.com/edudisplej/loopplan/internal/http/api/admin/packets"
	"github.com/edudisplej/loopplan/internal/model"
	"github.com/edudisplej/loopplan/internal/session"
)

// GroupModule mounts group CRUD endpoints.
func GroupModule(store db.Store, sessions *session.Manager) api.Module {
	ctl := &groupController{store: store, sessions: sessions}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/groups", ctl.listGroups)
		c.POST("/groups", ctl.createGroup)
		c.GET("/groups/:id", ctl.getGroup)
		c.PUT("/groups/:id", ctl.renameGroup)
		c.DELETE("/groups/:id", ctl.deleteGroup)
	})
}

type groupController struct {
	store    db.Store
	sessions *session.Manager
}

func mapGroup(g model.Group) packets.GroupResponse {
	return packets.GroupResponse{
		ID:        g.ID,
		Name:      g.Name,
		IsDefault: g.IsDefault,
		CreatedAt: g.CreatedAt.Format(time.RFC3339),
		UpdatedAt: g.UpdatedAt.Format(time.RFC3339),
	}
}

func pathID(ctx *gin.Context, name string) (int, *api.Error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, &api.Error{Code: http.StatusBadRequest, Message: "invalid " + name}
	}
	return id, nil
}

// GET /api/admin/groups
func (g *groupController) listGroups(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	groups, err := g.store.ListGroups(ctx.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("[groups] list: query failed")
		return nil, api.DomainError(err, "could not list groups")
	}
	out := make([]packets.GroupResponse, 0, len(groups))
	for _, grp := range groups {
		out = append(out, mapGroup(grp))
	}
	return out, nil
}

// POST /api/admin/groups
func (g *groupController) createGroup(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	var request packets.CreateGroupRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.Error{Code: http.StatusBadRequest, Message: err.Error()}
	}
	created, err := g.store.CreateGroup(ctx.Request.Context(), request.Name, false)
	if err != nil {
		log.Error().Err(err).Str("name", request.Name).Msg("[groups] create failed")
		return nil, api.DomainError(err, "could not create group")
	}
	return mapGroup(*created), nil
}

// GET /api/admin/groups/:id
func (g *groupController) getGroup(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	id, apiErr := pathID(ctx, "id")
	if apiErr != nil {
		return nil, apiErr
	}
	grp, err := g.store.GetGroup(ctx.Request.Context(), id)
	if err != nil {
		return nil, api.DomainError(err, "could not load group")
	}
	return mapGroup(*grp), nil
}

// PUT /api/admin/groups/:id
func (g *groupController) renameGroup(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	id, apiErr := pathID(ctx, "id")
	if apiErr != nil {
		return nil, apiErr
	}
	var request packets.RenameGroupRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.Error{Code: http.StatusBadRequest, Message: err.Error()}
	}
	renamed, err := g.store.RenameGroup(ctx.Request.Context(), id, request.Name)
	if err != nil {
		return nil, api.DomainError(err, "could not rename group")
	}
	g.sessions.Evict(ctx.Request.Context(), id)
	return mapGroup(*renamed), nil
}

// DELETE /api/admin/groups/:id
func (g *groupController) deleteGroup(ctx *gin.Context, _ *model.Admin) (any, *api.Error) {
	id, apiErr := pathID(ctx, "id")
	if apiErr != nil {
		return nil, apiErr
	}
	if err := g.store.DeleteGroup(ctx.Request.Context(), id); err != nil {
		return nil, api.DomainError(err, "could not delete group")
	}
	g.sessions.Evict(ctx.Request.Context(), id)
	return gin.H{"deleted": id}, nil
}
