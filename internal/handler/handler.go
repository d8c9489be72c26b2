package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
	"github.com/jwalitptl/medicare-api/pkg/httputil"
)

// ParseID reads a uuid path parameter and writes a 400 when it is malformed.
func ParseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewBadRequest("invalid "+param, err))
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON decodes the body into obj and writes a 400 on failure.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		httputil.RespondWithError(c, apperrors.NewBadRequest("invalid request body", err))
		return false
	}
	return true
}

// BindQuery decodes query parameters into obj and writes a 400 on failure.
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		httputil.RespondWithError(c, apperrors.NewBadRequest("invalid query parameters", err))
		return false
	}
	return true
}
