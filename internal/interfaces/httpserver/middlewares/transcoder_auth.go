package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/vidflow/video-api/internal/interfaces/httpserver/responses"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

// TranscoderSecretHeader carries the shared secret on transcoder callbacks.
const TranscoderSecretHeader = "X-Transcoder-Secret"

// SecretChecker verifies the transcoder's shared secret.
type SecretChecker interface {
	Configured() bool
	Authenticate(presented string) bool
}

// TranscoderAuth admits only callers presenting a configured shared secret.
// The boundary stays closed while no secret is configured.
func TranscoderAuth(checker SecretChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !checker.Configured() {
			responses.HandleNewError(c, platformerrors.ErrorTypeInternal, "transcoder callback is not configured",
				"0f7a3d9c-5b2e-4e86-a1c4-8d6b2f0e4a73")
			return
		}
		if !checker.Authenticate(c.GetHeader(TranscoderSecretHeader)) {
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "invalid transcoder secret",
				"3c9e5b1f-7d4a-4a28-b6f0-2e8c4a0d6b95")
			return
		}
		c.Next()
	}
}
