package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	apierrors "github.com/feral-file/ff-transfer-indexer/internal/api/errors"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
)

const RequestIDHeader = "X-Request-Id"

// Logger logs one line per request. The request context carries request_id so
// handler logs can be correlated with the access line.
// Requests to quietPaths, such as health checks and scrapes, are logged at debug level.
func Logger(quietPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(
			logger.WithFields(c.Request.Context(), zap.String("request_id", requestID)))

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		level := levelFor(status)
		if _, ok := quiet[c.Request.URL.Path]; ok && level == zapcore.InfoLevel {
			level = zapcore.DebugLevel
		}

		logger.FromContext(c.Request.Context()).Log(level, "Ops request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// levelFor maps a response status to a log level
func levelFor(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// Recovery turns a handler panic into a 500 response
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.ErrorCtx(c.Request.Context(), fmt.Errorf("ops handler panic: %v", r),
				zap.String("route", c.FullPath()),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, apierrors.NewInternalError("Internal server error"))
		}()
		c.Next()
	}
}
