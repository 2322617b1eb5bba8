package upload

import (
	"time"

	"github.com/vidflow/video-api/internal/domain/access"
	"github.com/vidflow/video-api/internal/domain/video"
)

// State is the lifecycle state of an upload session.
type State string

const (
	StateInitiated State = "initiated"
	StateUploaded  State = "uploaded"
	StatePublished State = "published"
	StateFailed    State = "failed"
	StateAbandoned State = "abandoned"
)

// ValidTransitions defines allowed session transitions.
var ValidTransitions = map[State][]State{
	StateInitiated: {StateUploaded, StateAbandoned},
	StateUploaded:  {StatePublished, StateFailed, StateAbandoned},
	StatePublished: {},
	StateFailed:    {},
	StateAbandoned: {},
}

// CanTransitionTo checks if a transition from the current state to target is valid.
func (s State) CanTransitionTo(target State) bool {
	for _, t := range ValidTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StatePublished || s == StateFailed || s == StateAbandoned
}

// Expirable reports whether the sweeper may reclaim a session in this state.
func (s State) Expirable() bool {
	return s == StateInitiated || s == StateUploaded
}

// Session tracks one upload attempt, keyed by its storage key.
type Session struct {
	Key           string            `json:"key"`
	OwnerID       string            `json:"userId"`
	Filename      string            `json:"filename"`
	ContentType   string            `json:"contentType"`
	DeclaredSize  int64             `json:"declaredSize"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Visibility    access.Visibility `json:"visibility"`
	State         State             `json:"state"`
	VideoID       string            `json:"videoId,omitempty"`
	FailureReason string            `json:"failureReason,omitempty"`
	ExpiresAt     time.Time         `json:"expiresAt"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// InitiateRequest declares an upload before any bytes move.
type InitiateRequest struct {
	Filename     string
	ContentType  string
	DeclaredSize int64
	Title        string
	Description  string
	Visibility   string
}

// UploadTarget is a presigned POST form the client submits straight to storage.
type UploadTarget struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// InitiateResult is returned to the uploader.
type InitiateResult struct {
	Key       string       `json:"key"`
	Upload    UploadTarget `json:"upload"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// CompleteRequest turns an uploaded object into a provisional video.
type CompleteRequest struct {
	Key         string
	Title       string
	Description string
	Visibility  string
	VideoLength int
}

// Outcome is what the transcoder reports for a session.
type Outcome struct {
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// Transition reports the effect of a terminal callback.
type Transition struct {
	Session *Session
	Video   *video.Video
	// Changed is false when the call repeated an already applied outcome.
	Changed bool
}

// TranscodeJob is handed to the external transcoder once an upload is complete.
type TranscodeJob struct {
	SessionKey  string    `json:"session_key"`
	VideoID     string    `json:"video_id"`
	OwnerID     string    `json:"owner_id"`
	StorageKey  string    `json:"storage_key"`
	ContentType string    `json:"content_type"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ObjectInfo is the metadata of a stored object.
type ObjectInfo struct {
	Size        int64
	ContentType string
}
