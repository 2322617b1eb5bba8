// Package transcoder is the trusted boundary the external transcoder reports through.
package transcoder

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

// Result is the outcome the transcoder reports.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Metadata carries what the transcoder learned about the media.
type Metadata struct {
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// Report is one transcoder callback.
type Report struct {
	SessionKey string   `json:"session_key"`
	Result     Result   `json:"result"`
	Metadata   Metadata `json:"metadata"`
}

// Finalizer applies terminal transitions to upload sessions.
type Finalizer interface {
	MarkPublished(ctx context.Context, key string, outcome upload.Outcome) (*upload.Transition, error)
	MarkFailed(ctx context.Context, key string, outcome upload.Outcome) (*upload.Transition, error)
}

// Gateway authenticates and applies transcoder reports. Delivery is at least
// once: a repeat of an applied outcome is a no-op and a contradicting one is a conflict.
type Gateway struct {
	secrets   [][]byte
	finalizer Finalizer
	log       zerolog.Logger
}

func NewGateway(secrets []string, finalizer Finalizer, log zerolog.Logger) *Gateway {
	g := &Gateway{
		finalizer: finalizer,
		log:       log.With().Str("component", "transcoder-gateway").Logger(),
	}
	for _, s := range secrets {
		if s = strings.TrimSpace(s); s != "" {
			g.secrets = append(g.secrets, []byte(s))
		}
	}
	return g
}

// Configured reports whether at least one secret is set. Without one the boundary stays closed.
func (g *Gateway) Configured() bool {
	return len(g.secrets) > 0
}

// Authenticate compares presented against every accepted secret in constant time.
func (g *Gateway) Authenticate(presented string) bool {
	if presented == "" {
		return false
	}
	candidate := []byte(presented)
	matched := 0
	for _, secret := range g.secrets {
		matched |= subtle.ConstantTimeCompare(candidate, secret)
	}
	return matched == 1
}

// Report applies a callback to its upload session.
func (g *Gateway) Report(ctx context.Context, report Report) (*upload.Transition, error) {
	key := strings.TrimSpace(report.SessionKey)
	if key == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"session_key is required", nil, "b3e7a1d5-9c4f-4e28-8a6b-2d0f5c9e3a71")
	}

	var (
		transition *upload.Transition
		err        error
	)
	switch Result(strings.ToLower(strings.TrimSpace(string(report.Result)))) {
	case ResultSuccess:
		transition, err = g.finalizer.MarkPublished(ctx, key, upload.Outcome{DurationSeconds: report.Metadata.DurationSeconds})
	case ResultFailure:
		transition, err = g.finalizer.MarkFailed(ctx, key, upload.Outcome{Reason: strings.TrimSpace(report.Metadata.Reason)})
	default:
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"result must be success or failure", nil, "6a0d4e8b-2f7c-4b93-a1e5-8c3f7b1d5e09", map[string]any{"result": report.Result})
	}
	if err != nil {
		return nil, err
	}

	g.log.Info().
		Str("key", key).
		Str("result", string(report.Result)).
		Str("state", string(transition.Session.State)).
		Bool("changed", transition.Changed).
		Msg("transcoder report applied")
	return transition, nil
}
