package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/edudisplej/loopplan/internal/db"
	"github.com/edudisplej/loopplan/internal/http/middleware"
)

// Controller is the mount point handed to modules, a thin wrapper over the
// gin group the module's routes attach to.
type Controller struct {
	Group *gin.RouterGroup
}

// Authenticated routes resolve the admin before the handler runs.
func (c *Controller) GET(path string, h HandlerFuncWithAuth)    { c.Group.GET(path, ResolveEndpointWithAuth(h)) }
func (c *Controller) POST(path string, h HandlerFuncWithAuth)   { c.Group.POST(path, ResolveEndpointWithAuth(h)) }
func (c *Controller) PUT(path string, h HandlerFuncWithAuth)    { c.Group.PUT(path, ResolveEndpointWithAuth(h)) }
func (c *Controller) DELETE(path string, h HandlerFuncWithAuth) { c.Group.DELETE(path, ResolveEndpointWithAuth(h)) }

// PUBLIC_* routes skip admin resolution.
func (c *Controller) PUBLIC_GET(path string, h HandlerFunc)  { c.Group.GET(path, ResolveEndpoint(h)) }
func (c *Controller) PUBLIC_POST(path string, h HandlerFunc) { c.Group.POST(path, ResolveEndpoint(h)) }

// Module is a pluggable feature that attaches its endpoints to a Controller.
type Module interface {
	Mount(c *Controller)
}

// ModuleFunc lets you define a Module with a simple function.
type ModuleFunc func(c *Controller)

func (f ModuleFunc) Mount(c *Controller) { f(c) }

// GroupConfig tells the api package how to mount a group.
type GroupConfig struct {
	Prefix     string
	Auth       bool
	SecretKey  string            // required if Auth == true
	Store      db.Store          // required if Auth == true
	Middleware []gin.HandlerFunc // optional additional middleware
}

// MountGroup mounts one or more Modules under a prefix with optional auth.
func MountGroup(parent gin.IRoutes, cfg GroupConfig, modules ...Module) {
	var grp *gin.RouterGroup

	switch v := parent.(type) {
	case *gin.Engine:
		grp = v.Group(cfg.Prefix)
	case *gin.RouterGroup:
		if cfg.Prefix != "" {
			grp = v.Group(cfg.Prefix)
		} else {
			grp = v
		}
	default:
		log.Fatal().Str("type", fmt.Sprintf("%T", parent)).Msg("api.MountGroup: unsupported router type")
	}

	// Apply middleware in a deterministic order.
	for _, mw := range cfg.Middleware {
		grp.Use(mw)
	}
	if cfg.Auth {
		if cfg.SecretKey == "" {
			log.Fatal().Msg("api.MountGroup: Auth enabled but SecretKey is empty")
		}
		grp.Use(middleware.JWTMiddleware(cfg.SecretKey, cfg.Store))
	}

	controller := &Controller{Group: grp}

	for _, m := range modules {
		m.Mount(controller)
	}
}
