package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"studx/messaging"
	"studx/middleware"
)

const defaultTimeout = 10 * time.Second

// base carries what every handler needs: a logger and the per-request deadline.
type base struct {
	logger  zerolog.Logger
	timeout time.Duration
}

func newBase(logger zerolog.Logger, timeout time.Duration) base {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return base{logger: logger, timeout: timeout}
}

func (b base) context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), b.timeout)
}

// callerID reads the authenticated user id; it writes a 401 and returns false
// when the id is absent or malformed.
func callerID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, err := primitive.ObjectIDFromHex(c.GetString(middleware.UserIDKey))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return primitive.NilObjectID, false
	}
	return userID, true
}

// respondError maps messaging error kinds to status codes. Anything
// unrecognised is logged and reported as a generic 500.
func (b base) respondError(c *gin.Context, err error) {
	var msgErr *messaging.Error
	switch {
	case errors.As(err, &msgErr) && errors.Is(err, messaging.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgErr.Message})
	case errors.As(err, &msgErr) && errors.Is(err, messaging.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgErr.Message})
	default:
		b.serverError(c, err)
	}
}

func (b base) serverError(c *gin.Context, err error) {
	b.logger.Error().
		Err(err).
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
}
