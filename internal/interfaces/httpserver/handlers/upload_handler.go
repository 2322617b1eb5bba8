package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	domain "github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/infrastructure/metrics"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/requests"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/responses"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

// UploadHandler exposes the two-phase upload endpoints.
type UploadHandler struct {
	service *domain.Service
	log     zerolog.Logger
}

func NewUploadHandler(service *domain.Service, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		log:     log.With().Str("component", "upload-handler").Logger(),
	}
}

// Initiate godoc
// @Summary      Start an upload
// @Description  Validates the declared file and returns a presigned form the client posts straight to storage.
// @Tags         uploads
// @Accept       json
// @Produce      json
// @Param        request  body      requests.InitiateUploadRequest  true  "Upload declaration"
// @Success      201      {object}  domain.InitiateResult
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      401      {object}  responses.ErrorResponse
// @Failure      502      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /videos/initiate [post]
func (h *UploadHandler) Initiate(c *gin.Context) {
	var req requests.InitiateUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "2e6c0a4f-8d3b-4b71-9f5e-1a7d5c9b3e08")
		return
	}
	if err := req.Validate(); err != nil {
		metrics.RecordUpload("initiate", "rejected")
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, requests.Describe(err), "c4e8a2f6-0b5d-4d93-8a1f-6e2c9b7d3f50")
		return
	}

	result, err := h.service.Initiate(c.Request.Context(), requester(c), req.ToDomain())
	if err != nil {
		metrics.RecordUpload("initiate", "error")
		logFailure(h.log, err)
		responses.HandleError(c, err, "failed to initiate upload")
		return
	}
	metrics.RecordUpload("initiate", "success")
	metrics.RecordDeclaredBytes(req.DeclaredSize)
	c.JSON(http.StatusCreated, result)
}

// Complete godoc
// @Summary      Complete an upload
// @Description  Verifies the uploaded object and creates the video in processing state.
// @Tags         uploads
// @Accept       json
// @Produce      json
// @Param        request  body      requests.CompleteUploadRequest  true  "Upload completion"
// @Success      201      {object}  responses.CompleteUploadResponse
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      403      {object}  responses.ErrorResponse
// @Failure      404      {object}  responses.ErrorResponse
// @Failure      409      {object}  responses.ErrorResponse
// @Failure      422      {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /videos/complete [post]
func (h *UploadHandler) Complete(c *gin.Context) {
	var req requests.CompleteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "7b1f5d9a-3c6e-4e28-a0b4-6d2f8e0c4a57")
		return
	}
	if err := req.Validate(); err != nil {
		metrics.RecordUpload("complete", "rejected")
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, requests.Describe(err), "e1a5d9c3-7f2b-4a06-b8e4-3c7f1a5e9d21")
		return
	}

	v, err := h.service.Complete(c.Request.Context(), requester(c), req.ToDomain())
	if err != nil {
		metrics.RecordUpload("complete", "error")
		logFailure(h.log, err)
		responses.HandleError(c, err, "failed to complete upload")
		return
	}
	metrics.RecordUpload("complete", "success")
	c.JSON(http.StatusCreated, responses.CompleteUploadResponse{Video: v})
}

// Get godoc
// @Summary      Get an upload session
// @Description  Reports the state of an upload to its owner or an admin.
// @Tags         uploads
// @Produce      json
// @Param        key  path      string  true  "Storage key"
// @Success      200  {object}  domain.Session
// @Failure      404  {object}  responses.ErrorResponse
// @Security     BearerAuth
// @Router       /videos/uploads/{key} [get]
func (h *UploadHandler) Get(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	session, err := h.service.Get(c.Request.Context(), requester(c), key)
	if err != nil {
		logFailure(h.log, err)
		responses.HandleError(c, err, "failed to get upload session")
		return
	}
	c.JSON(http.StatusOK, session)
}
