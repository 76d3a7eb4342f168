package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mxl4r/Prism-LLM-frontend/pkg/api"
)

// ErrorHandler renders the last error attached by a handler as an RFC 9457
// problem document. Responses already written (e.g. a started SSE stream)
// are left alone.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		var problem *api.Problem
		if !errors.As(err, &problem) {
			logger.Error("Unhandled error", zap.Error(err))
			problem = api.NewError(
				http.StatusInternalServerError,
				"Internal Server Error",
				"An unexpected error occurred.",
			)
		} else if problem.Log != nil {
			logger.Debug("Request failed", zap.Int("status", problem.Status), zap.Error(problem.Log))
		}

		if problem.Instance == "" {
			problem.Instance = c.Request.URL.Path
		}

		c.Header("Content-Type", api.ProblemContentType)
		c.AbortWithStatusJSON(problem.Status, problem)
	}
}
