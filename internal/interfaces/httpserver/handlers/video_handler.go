package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/domain/access"
	domain "github.com/vidflow/video-api/internal/domain/video"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/middlewares"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/requests"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/responses"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

// VideoHandler exposes catalog endpoints.
type VideoHandler struct {
	service *domain.Service
	log     zerolog.Logger
}

func NewVideoHandler(service *domain.Service, log zerolog.Logger) *VideoHandler {
	return &VideoHandler{
		service: service,
		log:     log.With().Str("component", "video-handler").Logger(),
	}
}

// List godoc
// @Summary      List public videos
// @Description  Public, published videos only. Supports search and sorting by date, likes, length or title.
// @Tags         videos
// @Produce      json
// @Param        page       query     int     false  "Page number (1-based)"
// @Param        pageSize   query     int     false  "Page size"
// @Param        q          query     string  false  "Search in title and description"
// @Param        sortBy     query     string  false  "date | likes | length | title"
// @Param        sortOrder  query     string  false  "asc | desc"
// @Success      200        {object}  domain.Page
// @Failure      400        {object}  responses.ErrorResponse
// @Router       /videos [get]
func (h *VideoHandler) List(c *gin.Context) {
	var query requests.ListVideosQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid query parameters", "b1e5a9d3-7c2f-4f80-8a6e-0d4c8b2f6e19")
		return
	}

	page, err := h.service.List(c.Request.Context(), requester(c), query.ToDomain())
	if err != nil {
		h.fail(c, err, "failed to list videos")
		return
	}
	c.JSON(http.StatusOK, page)
}

// ByOwner godoc
// @Summary      List a user's videos
// @Description  The owner and admins see every visibility and videos still processing; others see public, published ones.
// @Tags         videos
// @Produce      json
// @Param        userId     path      string  true   "Owner ID"
// @Param        page       query     int     false  "Page number (1-based)"
// @Param        pageSize   query     int     false  "Page size"
// @Param        sortBy     query     string  false  "date | likes | length | title"
// @Param        sortOrder  query     string  false  "asc | desc"
// @Success      200        {object}  domain.Page
// @Failure      400        {object}  responses.ErrorResponse
// @Router       /videos/user/{userId} [get]
func (h *VideoHandler) ByOwner(c *gin.Context) {
	var query requests.ListVideosQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid query parameters", "6d0a4e8c-2b7f-4c13-9e5a-8f1d3b7c0a64")
		return
	}

	page, err := h.service.ByOwner(c.Request.Context(), requester(c), c.Param("userId"), query.ToDomain())
	if err != nil {
		h.fail(c, err, "failed to list videos")
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get godoc
// @Summary      Get a video
// @Description  Videos the caller may not view are reported as not found.
// @Tags         videos
// @Produce      json
// @Param        id   path      string  true  "Video ID"
// @Success      200  {object}  domain.Video
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /videos/{id} [get]
func (h *VideoHandler) Get(c *gin.Context) {
	v, err := h.service.Get(c.Request.Context(), requester(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to get video")
		return
	}
	c.JSON(http.StatusOK, v)
}

// Update godoc
// @Summary      Edit video metadata
// @Tags         videos
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Video ID"
// @Param        request  body      requests.UpdateVideoRequest  true  "Fields to change"
// @Success      200      {object}  domain.Video
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      403      {object}  responses.ErrorResponse
// @Failure      404      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /videos/{id} [put]
func (h *VideoHandler) Update(c *gin.Context) {
	var req requests.UpdateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "9f3b7d1e-5a8c-4e26-b0d4-2c6e0a8f4b31")
		return
	}

	v, err := h.service.Update(c.Request.Context(), requester(c), c.Param("id"), req.ToDomain())
	if err != nil {
		h.fail(c, err, "failed to update video")
		return
	}
	c.JSON(http.StatusOK, v)
}

// Delete godoc
// @Summary      Delete a video
// @Description  Removes the video, its reactions and its stored object. Owner or admin.
// @Tags         videos
// @Param        id   path  string  true  "Video ID"
// @Success      204
// @Failure      403  {object}  responses.ErrorResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /videos/{id} [delete]
func (h *VideoHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), requester(c), c.Param("id")); err != nil {
		h.fail(c, err, "failed to delete video")
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream godoc
// @Summary      Get a playback URL
// @Description  Returns a short-lived signed URL for a video the caller may view.
// @Tags         videos
// @Produce      json
// @Param        id   path      string  true  "Video ID"
// @Success      200  {object}  responses.StreamResponse
// @Failure      404  {object}  responses.ErrorResponse
// @Failure      409  {object}  responses.ErrorResponse
// @Router       /videos/{id}/stream [get]
func (h *VideoHandler) Stream(c *gin.Context) {
	url, ttl, err := h.service.StreamURL(c.Request.Context(), requester(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to issue stream url")
		return
	}
	c.JSON(http.StatusOK, responses.StreamResponse{URL: url, ExpiresAt: time.Now().UTC().Add(ttl)})
}

func (h *VideoHandler) fail(c *gin.Context, err error, message string) {
	logFailure(h.log, err)
	responses.HandleError(c, err, message)
}

func requester(c *gin.Context) access.Requester {
	r, _ := middlewares.RequesterFromContext(c)
	return r
}

// logFailure logs server-side failures; client errors are already in the access log.
func logFailure(log zerolog.Logger, err error) {
	perr := platformerrors.GetPlatformError(err)
	if perr == nil {
		log.Error().Err(err).Msg("request failed")
		return
	}
	if platformerrors.ErrorTypeToHTTPStatus(perr.Type) >= http.StatusInternalServerError {
		platformerrors.LogError(log, perr)
	}
}
