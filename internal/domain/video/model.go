package video

import (
	"strings"
	"time"

	"github.com/vidflow/video-api/internal/domain/access"
)

// State is the processing state of a video.
type State string

const (
	StateProcessing State = "processing"
	StatePublished  State = "published"
	StateFailed     State = "failed"
)

// Video is a catalog entry. Like and dislike counts are derived from reactions on read.
type Video struct {
	ID              string            `json:"id"`
	OwnerID         string            `json:"userId"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Visibility      access.Visibility `json:"visibility"`
	DurationSeconds int               `json:"videoLength"`
	StorageKey      string            `json:"-"`
	ContentType     string            `json:"contentType"`
	State           State             `json:"state"`
	LikeCount       int64             `json:"likeCount"`
	DislikeCount    int64             `json:"dislikeCount"`
	CreatedAt       time.Time         `json:"date"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// Resource projects the video onto the access policy input.
func (v *Video) Resource() access.Resource {
	return access.Resource{
		OwnerID:    v.OwnerID,
		Visibility: v.Visibility,
		Published:  v.State == StatePublished,
	}
}

// SortKey names a catalog ordering.
type SortKey string

const (
	SortByDate   SortKey = "date"
	SortByLikes  SortKey = "likes"
	SortByLength SortKey = "length"
	SortByTitle  SortKey = "title"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListQuery is the caller-facing listing request.
type ListQuery struct {
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// Filter is the normalized listing request handed to the repository.
type Filter struct {
	OwnerID   string
	Search    string
	Scope     access.Scope
	SortBy    SortKey
	SortOrder SortOrder
	Offset    int
	Limit     int
}

// Page is one page of catalog results.
type Page struct {
	Videos     []*Video   `json:"videos"`
	Pagination Pagination `json:"pagination"`
}

// Pagination describes the page window.
type Pagination struct {
	Page         int   `json:"page"`
	PageSize     int   `json:"pageSize"`
	TotalResults int64 `json:"totalResults"`
	TotalPages   int   `json:"totalPages"`
}

// Patch carries optional metadata changes.
type Patch struct {
	Title       *string
	Description *string
	Visibility  *access.Visibility
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Visibility == nil
}

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
)

// NormalizeTitle trims and checks a title.
func NormalizeTitle(raw string) (string, bool) {
	title := strings.TrimSpace(raw)
	return title, title != "" && len(title) <= MaxTitleLength
}

// NormalizeDescription trims and checks a description.
func NormalizeDescription(raw string) (string, bool) {
	description := strings.TrimSpace(raw)
	return description, len(description) <= MaxDescriptionLength
}
