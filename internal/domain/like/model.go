package like

import (
	"strings"
	"time"
)

// Kind is the type of a reaction.
type Kind string

const (
	KindLike    Kind = "like"
	KindDislike Kind = "dislike"
)

// ParseKind validates raw input.
func ParseKind(raw string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	return k, k == KindLike || k == KindDislike
}

// Status is what a user currently holds on a video.
type Status string

const (
	StatusLike    Status = "like"
	StatusDislike Status = "dislike"
	StatusNone    Status = "none"
)

// Reaction is the single row a user may hold per video.
type Reaction struct {
	UserID    string    `json:"userId"`
	VideoID   string    `json:"videoId"`
	Kind      Kind      `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Counts are the live tallies for a video.
type Counts struct {
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
}
