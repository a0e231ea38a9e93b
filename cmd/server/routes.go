package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/edudisplej/loopplan/internal/db"
	"github.com/edudisplej/loopplan/internal/http/api"
	adminapi "github.com/edudisplej/loopplan/internal/http/api/admin/endpoints"
	tvapi "github.com/edudisplej/loopplan/internal/http/api/tv/endpoints"
	"github.com/edudisplej/loopplan/internal/model"
	"github.com/edudisplej/loopplan/internal/session"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, env Environment, store db.Store, sessions *session.Manager, technical model.ContentItem) {
	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
			adminapi.ConflictPolicyHeader,
		},
		ExposeHeaders: []string{
			"Content-Length",
		},
		AllowCredentials: false,
	}))

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/admin",
		Auth:   false,
	},
		adminapi.AuthModule(env.SecretKey, store),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api/admin",
		Auth:      true,
		SecretKey: env.SecretKey,
		Store:     store,
	},
		adminapi.GroupModule(store, sessions),
		adminapi.LoopModule(sessions),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/tv",
	},
		tvapi.LoopModule(store, technical),
	)
}
