package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/domain/transcoder"
	"github.com/vidflow/video-api/internal/infrastructure/metrics"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/responses"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

// TranscoderHandler receives transcoder callbacks. The shared secret is
// checked by middleware before the handler runs.
type TranscoderHandler struct {
	gateway *transcoder.Gateway
	log     zerolog.Logger
}

func NewTranscoderHandler(gateway *transcoder.Gateway, log zerolog.Logger) *TranscoderHandler {
	return &TranscoderHandler{
		gateway: gateway,
		log:     log.With().Str("component", "transcoder-handler").Logger(),
	}
}

// Callback godoc
// @Summary      Report a transcode outcome
// @Description  Publishes or fails the video behind an upload session. Repeats of an applied outcome are acknowledged without change.
// @Tags         transcoder
// @Accept       json
// @Produce      json
// @Param        X-Transcoder-Secret  header    string             true  "Shared secret"
// @Param        request              body      transcoder.Report  true  "Transcode outcome"
// @Success      200                  {object}  responses.TransitionResponse
// @Failure      400                  {object}  responses.ErrorResponse
// @Failure      401                  {object}  responses.ErrorResponse
// @Failure      404                  {object}  responses.ErrorResponse
// @Failure      409                  {object}  responses.ErrorResponse
// @Router       /transcoder/callback [post]
func (h *TranscoderHandler) Callback(c *gin.Context) {
	var report transcoder.Report
	if err := c.ShouldBindJSON(&report); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "4f8b2e6a-0d5c-4a93-8c1f-9e3b7d1a5c20")
		return
	}

	transition, err := h.gateway.Report(c.Request.Context(), report)
	if err != nil {
		logFailure(h.log, err)
		responses.HandleError(c, err, "failed to apply transcoder report")
		return
	}
	metrics.RecordTransition(string(transition.Session.State), transition.Changed)
	c.JSON(http.StatusOK, responses.BuildTransitionResponse(transition))
}
