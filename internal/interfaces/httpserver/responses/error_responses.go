package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

// ErrorResponse represents an error response with platform error details
type ErrorResponse struct {
	Code          string `json:"code"` // UUID from PlatformError
	Error         string `json:"error"`
	Message       string `json:"message,omitempty"`
	ErrorInstance error  `json:"-"`
	RequestID     string `json:"request_id,omitempty"`
	Retry         string `json:"retry,omitempty"`
}

// HandleError handles domain errors and returns appropriate HTTP responses
func HandleError(reqCtx *gin.Context, err error, message string) {
	var domainErr *platformerrors.PlatformError
	if errors.As(err, &domainErr) {
		statusCode := platformerrors.ErrorTypeToHTTPStatus(domainErr.GetErrorType())

		errorMessage := domainErr.Message
		if errorMessage == "" || statusCode >= http.StatusInternalServerError {
			errorMessage = message
		}

		requestID := domainErr.GetRequestID()
		if requestID == "" {
			requestID = platformerrors.RequestIDFromContext(reqCtx.Request.Context())
		}

		_ = reqCtx.Error(err)
		reqCtx.AbortWithStatusJSON(statusCode, ErrorResponse{
			Code:          domainErr.GetUUID(),
			Error:         string(domainErr.GetErrorType()),
			Message:       errorMessage,
			ErrorInstance: domainErr,
			RequestID:     requestID,
			Retry:         string(domainErr.Retry),
		})
		return
	}
	// Non-platform errors
	_ = reqCtx.Error(err)
	reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error:         string(platformerrors.ErrorTypeInternal),
		Message:       message,
		ErrorInstance: err,
		RequestID:     platformerrors.RequestIDFromContext(reqCtx.Request.Context()),
	})
}

// HandleNewError creates a new typed error at the route layer and handles it
func HandleNewError(reqCtx *gin.Context, errorType platformerrors.ErrorType, message string, uuid string) {
	err := platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerRoute, errorType, message, nil, uuid)
	HandleError(reqCtx, err, message)
}
