package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/edudisplej/loopplan/internal/db"
	"github.com/edudisplej/loopplan/internal/http/api"
	"github.com/edudisplej/loopplan/internal/http/api/admin/packets"
	"github.com/edudisplej/loopplan/internal/http/middleware"
)

// AuthModule mounts the public login endpoint.
func AuthModule(jwtSecret string, store db.Store) api.Module {
	ctl := &authController{jwtSecret: jwtSecret, store: store}
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUBLIC_POST("/auth/login", ctl.login)
	})
}

type authController struct {
	jwtSecret string
	store     db.Store
}

// POST /api/admin/auth/login
func (a *authController) login(ctx *gin.Context) (any, *api.Error) {
	var request packets.LoginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.Error{Code: http.StatusBadRequest, Message: err.Error()}
	}

	admin, err := a.store.GetAdminByEmail(ctx.Request.Context(), request.Email)
	if err != nil || admin == nil || !middleware.CheckPassword(admin.HashedPassword, request.Password) {
		log.Warn().Str("email", request.Email).Msg("failed login attempt")
		return nil, &api.Error{Code: http.StatusUnauthorized, Message: middleware.ErrInvalidCredentials.Error()}
	}

	token, err := middleware.GenerateJWT(admin.ID, a.jwtSecret)
	if err != nil {
		return nil, &api.Error{Code: http.StatusInternalServerError, Message: "could not generate token"}
	}

	return gin.H{"token": token}, nil
}
