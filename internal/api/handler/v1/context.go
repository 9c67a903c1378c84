package v1

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/rifalibre/rifa-api/internal/api/handler/v1/response"
	"github.com/rifalibre/rifa-api/internal/api/middleware"
)

var errMissingUser = errors.New("no authenticated user in request context")

// currentUserID pulls the authenticated user id set by the JWT
// middleware.
func currentUserID(ctx *gin.Context) (uint, *response.Err) {
	value, exists := ctx.Get(middleware.ContextKeyUserID)
	if !exists {
		return 0, response.ErrUnauthorized(errMissingUser.Error())
	}

	userID, ok := value.(uint)
	if !ok || userID == 0 {
		return 0, response.ErrUnauthorized(errMissingUser.Error())
	}

	return userID, nil
}
