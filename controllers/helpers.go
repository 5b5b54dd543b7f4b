package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"civicreport-be/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// writeError maps domain errors onto HTTP statuses. Anything unrecognised is
// logged and surfaced as a generic 500 without internal detail.
func writeError(c *gin.Context, log *zap.SugaredLogger, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrConflict):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
		msg = err.Error()
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusUnauthorized
		msg = err.Error()
	}

	if status >= http.StatusInternalServerError {
		log.Errorw("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// bindJSON decodes the request body into dst, mapping decode failures to
// validation errors.
func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", models.ErrValidation, err)
	}
	return nil
}

func withTimeout(c *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(c.Request.Context(), d)
}
