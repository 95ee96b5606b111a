package rest

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-indexer/internal/api/errors"
	"github.com/feral-file/ff-transfer-indexer/internal/api/middleware"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
)

// respond writes apiErr with its status, tagged with the request id
func respond(c *gin.Context, apiErr *errors.APIError) {
	apiErr.RequestID = c.Writer.Header().Get(middleware.RequestIDHeader)
	c.JSON(apiErr.Status(), apiErr)
}

func respondBadRequest(c *gin.Context, message string, details ...string) {
	respond(c, errors.NewBadRequestError(message, details...))
}

func respondValidationError(c *gin.Context, message string) {
	respond(c, errors.NewValidationError(message))
}

// respondInternalError logs err and hides it from the caller
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.ErrorCtx(c.Request.Context(), err, fields...)
	respond(c, errors.NewInternalError(message))
}

func respondUnavailable(c *gin.Context, message string, details ...string) {
	respond(c, errors.NewUnavailableError(message, details...))
}
