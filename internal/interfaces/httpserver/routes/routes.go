package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/interfaces/httpserver/handlers"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/middlewares"
)

// Routes encapsulates API route registration.
type Routes struct {
	handlers      *handlers.Provider
	authenticator middlewares.Authenticator
	secrets       middlewares.SecretChecker
	log           zerolog.Logger
}

func NewRoutes(provider *handlers.Provider, authenticator middlewares.Authenticator, secrets middlewares.SecretChecker, log zerolog.Logger) *Routes {
	return &Routes{
		handlers:      provider,
		authenticator: authenticator,
		secrets:       secrets,
		log:           log.With().Str("component", "auth-middleware").Logger(),
	}
}

// Register attaches the API routes to router. Reads accept anonymous callers;
// writes require a bearer token.
func (r *Routes) Register(router gin.IRouter) {
	optional := middlewares.OptionalAuth(r.authenticator, r.log)
	required := middlewares.RequiredAuth(r.authenticator, r.log)

	videos := router.Group("/videos")
	videos.POST("/initiate", required, r.handlers.Upload.Initiate)
	videos.POST("/complete", required, r.handlers.Upload.Complete)
	videos.GET("/uploads/*key", required, r.handlers.Upload.Get)
	videos.GET("", optional, r.handlers.Video.List)
	videos.GET("/user/:userId", optional, r.handlers.Video.ByOwner)
	videos.GET("/:id", optional, r.handlers.Video.Get)
	videos.PUT("/:id", required, r.handlers.Video.Update)
	videos.DELETE("/:id", required, r.handlers.Video.Delete)
	videos.GET("/:id/stream", optional, r.handlers.Video.Stream)

	likes := router.Group("/likes")
	likes.POST("/:videoId", required, r.handlers.Like.Toggle)
	likes.DELETE("/:videoId", required, r.handlers.Like.Remove)
	likes.GET("/:videoId/status", required, r.handlers.Like.Status)
	likes.GET("/:videoId/counts", optional, r.handlers.Like.Counts)

	router.POST("/transcoder/callback", middlewares.TranscoderAuth(r.secrets), r.handlers.Transcoder.Callback)
}
