package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	domain "github.com/vidflow/video-api/internal/domain/like"
	"github.com/vidflow/video-api/internal/infrastructure/metrics"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/requests"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/responses"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

// LikeHandler exposes reaction endpoints.
type LikeHandler struct {
	service *domain.Service
	log     zerolog.Logger
}

func NewLikeHandler(service *domain.Service, log zerolog.Logger) *LikeHandler {
	return &LikeHandler{
		service: service,
		log:     log.With().Str("component", "like-handler").Logger(),
	}
}

// Toggle godoc
// @Summary      Like or dislike a video
// @Description  Sets the caller's single reaction on a video. Repeating the same reaction is a no-op.
// @Tags         likes
// @Accept       json
// @Produce      json
// @Param        videoId  path      string                     true  "Video ID"
// @Param        request  body      requests.ToggleLikeRequest  true  "Reaction"
// @Success      200      {object}  domain.Reaction
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      404      {object}  responses.ErrorResponse
// @Failure      409      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /likes/{videoId} [post]
func (h *LikeHandler) Toggle(c *gin.Context) {
	var req requests.ToggleLikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "5c9e3a7f-1d4b-4f62-8e0a-7b3d9f5c1a86")
		return
	}
	kind, ok := domain.ParseKind(req.Type)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "type must be like or dislike", "8a2d6f0b-4e7c-4c35-b9d1-0e6a2c8f4b73")
		return
	}

	reaction, err := h.service.Toggle(c.Request.Context(), c.Param("videoId"), requester(c), kind)
	if err != nil {
		logFailure(h.log, err)
		responses.HandleError(c, err, "failed to record reaction")
		return
	}
	metrics.RecordReaction(string(kind))
	c.JSON(http.StatusOK, reaction)
}

// Remove godoc
// @Summary      Remove a reaction
// @Description  Clears the caller's reaction. Removing an absent reaction succeeds.
// @Tags         likes
// @Produce      json
// @Param        videoId  path      string  true  "Video ID"
// @Success      200      {object}  responses.MessageResponse
// @Failure      404      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /likes/{videoId} [delete]
func (h *LikeHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("videoId"), requester(c)); err != nil {
		logFailure(h.log, err)
		responses.HandleError(c, err, "failed to remove reaction")
		return
	}
	metrics.RecordReaction("remove")
	c.JSON(http.StatusOK, responses.MessageResponse{Message: "reaction removed"})
}

// Status godoc
// @Summary      Get the caller's reaction
// @Tags         likes
// @Produce      json
// @Param        videoId  path      string  true  "Video ID"
// @Success      200      {object}  responses.LikeStatusResponse
// @Failure      404      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /likes/{videoId}/status [get]
func (h *LikeHandler) Status(c *gin.Context) {
	status, err := h.service.StatusFor(c.Request.Context(), c.Param("videoId"), requester(c))
	if err != nil {
		logFailure(h.log, err)
		responses.HandleError(c, err, "failed to get reaction status")
		return
	}
	c.JSON(http.StatusOK, responses.LikeStatusResponse{Status: status})
}

// Counts godoc
// @Summary      Get reaction counts
// @Tags         likes
// @Produce      json
// @Param        videoId  path      string  true  "Video ID"
// @Success      200      {object}  domain.Counts
// @Failure      404      {object}  responses.ErrorResponse
// @Router       /likes/{videoId}/counts [get]
func (h *LikeHandler) Counts(c *gin.Context) {
	counts, err := h.service.CountsFor(c.Request.Context(), c.Param("videoId"), requester(c))
	if err != nil {
		logFailure(h.log, err)
		responses.HandleError(c, err, "failed to get reaction counts")
		return
	}
	c.JSON(http.StatusOK, counts)
}
