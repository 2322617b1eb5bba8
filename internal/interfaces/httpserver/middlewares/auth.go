package middlewares

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/domain/access"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/responses"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

const requesterContextKey = "requester"

// Authenticator resolves the requester behind an HTTP request.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (access.Requester, error)
}

// OptionalAuth lets anonymous requests through but rejects credentials that fail validation.
func OptionalAuth(authenticator Authenticator, logger zerolog.Logger) gin.HandlerFunc {
	return authenticate(authenticator, logger, false)
}

// RequiredAuth rejects anonymous requests.
func RequiredAuth(authenticator Authenticator, logger zerolog.Logger) gin.HandlerFunc {
	return authenticate(authenticator, logger, true)
}

func authenticate(authenticator Authenticator, logger zerolog.Logger, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		requester, err := authenticator.Authenticate(c.Request.Context(), c.Request)
		if err != nil {
			logger.Warn().Err(err).Str("path", c.FullPath()).Msg("token validation failed")
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "invalid or expired token",
				"a4d8e2b6-0c7f-4f31-9a5e-3b1d9f7c5e20")
			return
		}
		if required && requester.IsAnonymous() {
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required",
				"e6b0c4a8-2f9d-4d53-8b7e-5d3f1b9e7a42")
			return
		}

		c.Set(requesterContextKey, requester)
		if !requester.IsAnonymous() {
			c.Set("user_id", requester.UserID)
		}
		c.Next()
	}
}

// RequesterFromContext returns the requester resolved by the auth middleware.
func RequesterFromContext(c *gin.Context) (access.Requester, bool) {
	val, ok := c.Get(requesterContextKey)
	if !ok {
		return access.Anonymous(), false
	}
	requester, ok := val.(access.Requester)
	return requester, ok
}
