package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edudisplej/loopplan/internal/http/middleware"
	"github.com/edudisplej/loopplan/internal/model"
	"github.com/edudisplej/loopplan/internal/plan"
)

// Error is the uniform failure shape endpoints return. Details carries
// structured payloads such as the overlapping blocks of a rejected edit.
type Error struct {
	Code    int
	Message string
	Details any
}

type HandlerFuncWithAuth func(ctx *gin.Context, admin *model.Admin) (any, *Error)
type HandlerFunc func(ctx *gin.Context) (any, *Error)

func ResolveEndpointWithAuth(h HandlerFuncWithAuth) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		admin, ok := middleware.GetCurrentAdmin(ctx)
		if !ok {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		result, apiErr := h(ctx, admin)
		if apiErr != nil {
			writeError(ctx, apiErr)
			return
		}

		ctx.JSON(http.StatusOK, result)
	}
}

func ResolveEndpoint(h HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, apiErr := h(ctx)
		if apiErr != nil {
			writeError(ctx, apiErr)
			return
		}

		ctx.JSON(http.StatusOK, result)
	}
}

func writeError(ctx *gin.Context, apiErr *Error) {
	body := gin.H{"error": apiErr.Message}
	if apiErr.Details != nil {
		body["details"] = apiErr.Details
	}
	ctx.JSON(apiErr.Code, body)
}

// DomainError maps engine errors onto HTTP failures. Unrecognized errors
// become a 500 with the fallback message.
func DomainError(err error, fallback string) *Error {
	var validation *plan.ValidationError
	var invariant *plan.InvariantViolation
	var conflict *plan.ConflictError
	var persistence *plan.PersistenceError

	switch {
	case errors.As(err, &conflict):
		return &Error{
			Code:    http.StatusConflict,
			Message: conflict.Error(),
			Details: gin.H{"overlapping_blocks": conflict.Overlaps},
		}
	case errors.As(err, &validation):
		return &Error{Code: http.StatusUnprocessableEntity, Message: validation.Error()}
	case errors.As(err, &invariant):
		return &Error{Code: http.StatusConflict, Message: invariant.Error()}
	case errors.Is(err, plan.ErrGroupNotEditable):
		return &Error{Code: http.StatusForbidden, Message: "default group cannot be edited"}
	case errors.Is(err, plan.ErrBlockLocked):
		return &Error{Code: http.StatusForbidden, Message: "time block is locked"}
	case errors.Is(err, plan.ErrEmptyPlan):
		return &Error{Code: http.StatusUnprocessableEntity, Message: "plan has no content items"}
	case errors.As(err, &persistence):
		return &Error{Code: http.StatusBadGateway, Message: persistence.Error()}
	case errors.Is(err, sql.ErrNoRows):
		return &Error{Code: http.StatusNotFound, Message: "not found"}
	default:
		return &Error{Code: http.StatusInternalServerError, Message: fallback}
	}
}
