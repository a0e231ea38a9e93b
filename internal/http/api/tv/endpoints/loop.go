package endpoints

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/edudisplej/loopplan/internal/db"
	"github.com/edudisplej/loopplan/internal/http/api"
	"github.com/edudisplej/loopplan/internal/http/api/tv/packets"
	"github.com/edudisplej/loopplan/internal/model"
	"github.com/edudisplej/loopplan/internal/plan"
)

// LoopModule mounts the unauthenticated kiosk endpoints. Kiosks poll the
// version endpoint and refetch the resolved loop when the token moves.
func LoopModule(store db.Store, technical model.ContentItem) api.Module {
	ctl := &loopController{store: store, technical: technical}
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUBLIC_GET("/groups/:id/loop", ctl.resolvedLoop)
		c.PUBLIC_GET("/groups/:id/loop/version", ctl.planVersion)
		c.PUBLIC_GET("/groups/:id/loop/full", ctl.fullPlan)
	})
}

type loopController struct {
	store     db.Store
	technical model.ContentItem
}

func (l *loopController) groupID(ctx *gin.Context) (int, *api.Error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, &api.Error{Code: http.StatusBadRequest, Message: "invalid id"}
	}
	return id, nil
}

func (l *loopController) load(ctx *gin.Context) (*model.Group, *model.PublishedPlan, *api.Error) {
	id, apiErr := l.groupID(ctx)
	if apiErr != nil {
		return nil, nil, apiErr
	}
	group, err := l.store.GetGroup(ctx.Request.Context(), id)
	if err != nil {
		return nil, nil, api.DomainError(err, "could not load group")
	}
	published, err := l.store.GetPublishedPlan(ctx.Request.Context(), id)
	if err != nil {
		log.Error().Err(err).Int("group_id", id).Msg("[tv] published plan query failed")
		return nil, nil, api.DomainError(err, "could not load plan")
	}
	return group, published, nil
}

// GET /api/tv/groups/:id/loop
//
// Resolves the published plan against the current wall clock so the kiosk
// does not need to understand scheduling at all.
func (l *loopController) resolvedLoop(ctx *gin.Context) (any, *api.Error) {
	group, published, apiErr := l.load(ctx)
	if apiErr != nil {
		return nil, apiErr
	}

	now := time.Now()
	if raw := ctx.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, &api.Error{Code: http.StatusBadRequest, Message: "invalid at parameter"}
		}
		now = parsed
	}
	response := packets.ResolvedLoopResponse{
		GroupID:    group.ID,
		Scope:      model.ScopeBase,
		ServerTime: now.Format(time.RFC3339),
	}

	technical := l.technical
	if published == nil {
		// Never published: serve the placeholder so the screen shows
		// setup instructions instead of going dark.
		response.Items = []model.ContentItem{technical}
		return response, nil
	}

	var wire model.WirePlan
	if err := json.Unmarshal([]byte(published.PlanJSON), &wire); err != nil {
		log.Error().Err(err).Int("group_id", group.ID).Msg("[tv] stored plan is unparseable")
		return nil, &api.Error{Code: http.StatusInternalServerError, Message: "stored plan is unparseable"}
	}

	store := plan.NewStoreFromWire(&wire, &technical)
	response.PlanVersion = published.PlanVersion
	response.Scope = plan.ResolveScope(store.Plan(), now)
	response.Items = model.CloneItems(plan.GoverningItems(store.Plan(), now, group.IsDefault))
	return response, nil
}

// GET /api/tv/groups/:id/loop/version
func (l *loopController) planVersion(ctx *gin.Context) (any, *api.Error) {
	id, apiErr := l.groupID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	published, err := l.store.GetPublishedPlan(ctx.Request.Context(), id)
	if err != nil {
		return nil, api.DomainError(err, "could not load plan")
	}
	var token string
	if published != nil {
		token = published.PlanVersion
	}
	return packets.VersionResponse{PlanVersion: token}, nil
}

// GET /api/tv/groups/:id/loop/full
//
// Serves the whole published payload for kiosks that resolve scheduling
// locally and survive offline windows.
func (l *loopController) fullPlan(ctx *gin.Context) (any, *api.Error) {
	_, published, apiErr := l.load(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if published == nil {
		return nil, &api.Error{Code: http.StatusNotFound, Message: "no published plan"}
	}
	var wire model.WirePlan
	if err := json.Unmarshal([]byte(published.PlanJSON), &wire); err != nil {
		return nil, &api.Error{Code: http.StatusInternalServerError, Message: "stored plan is unparseable"}
	}
	wire.PlanVersion = published.PlanVersion
	return wire, nil
}
