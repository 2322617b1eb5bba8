package requests

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vidflow/video-api/internal/domain/access"
	"github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/domain/video"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Describe renders validation failures using the JSON field names.
func Describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "gt":
			parts = append(parts, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		case "gte":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(parts, "; ")
}

// InitiateUploadRequest declares an upload.
type InitiateUploadRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Visibility   string `json:"visibility"`
	Filename     string `json:"filename" validate:"required"`
	ContentType  string `json:"contentType"`
	DeclaredSize int64  `json:"declaredSize" validate:"gt=0"`
}

func (r *InitiateUploadRequest) Validate() error {
	return validate.Struct(r)
}

// ToDomain converts request to domain model
func (r *InitiateUploadRequest) ToDomain() upload.InitiateRequest {
	return upload.InitiateRequest{
		Filename:     r.Filename,
		ContentType:  r.ContentType,
		DeclaredSize: r.DeclaredSize,
		Title:        r.Title,
		Description:  r.Description,
		Visibility:   r.Visibility,
	}
}

// CompleteUploadRequest finalizes the client side of an upload.
type CompleteUploadRequest struct {
	Key         string `json:"key" validate:"required"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
	VideoLength int    `json:"videoLength" validate:"gte=0"`
}

func (r *CompleteUploadRequest) Validate() error {
	return validate.Struct(r)
}

// ToDomain converts request to domain model
func (r *CompleteUploadRequest) ToDomain() upload.CompleteRequest {
	return upload.CompleteRequest{
		Key:         r.Key,
		Title:       r.Title,
		Description: r.Description,
		Visibility:  r.Visibility,
		VideoLength: r.VideoLength,
	}
}

// UpdateVideoRequest is a partial metadata edit. Absent fields are untouched.
type UpdateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Visibility  *string `json:"visibility"`
}

// ToDomain converts request to domain model. Visibility is validated by the service.
func (r *UpdateVideoRequest) ToDomain() video.Patch {
	patch := video.Patch{Title: r.Title, Description: r.Description}
	if r.Visibility != nil {
		v := access.Visibility(*r.Visibility)
		patch.Visibility = &v
	}
	return patch
}

// ListVideosQuery is bound from the query string.
type ListVideosQuery struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
	Search    string `form:"q"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

// ToDomain converts request to domain model
func (q *ListVideosQuery) ToDomain() video.ListQuery {
	return video.ListQuery{
		Search:    q.Search,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      q.Page,
		PageSize:  q.PageSize,
	}
}

// ToggleLikeRequest carries the reaction kind.
type ToggleLikeRequest struct {
	Type string `json:"type"`
}
