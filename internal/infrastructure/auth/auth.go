package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/config"
	"github.com/vidflow/video-api/internal/domain/access"
)

// Headers trusted when token validation is delegated to an upstream gateway.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Validator turns bearer tokens into requesters. Tokens are verified against a
// JWKS endpoint when one is configured, otherwise against a shared HMAC secret.
type Validator struct {
	cfg     *config.Config
	log     zerolog.Logger
	jwks    *keyfunc.JWKS
	secret  []byte
	methods []string
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	v := &Validator{cfg: cfg, log: log.With().Str("component", "auth").Logger()}
	if !cfg.AuthEnabled {
		v.log.Warn().Msg("token validation disabled; identity is taken from gateway headers")
		return v, nil
	}

	if cfg.AuthJWKSURL == "" {
		v.secret = []byte(cfg.AuthJWTSecret)
		v.methods = []string{"HS256"}
		return v, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			v.log.Error().Err(err).Msg("jwks refresh error")
		},
	}
	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	v.jwks = jwks
	v.methods = []string{"RS256", "RS384", "RS512"}
	return v, nil
}

// Enabled reports whether bearer tokens are verified by this service.
func (v *Validator) Enabled() bool {
	return v != nil && v.cfg.AuthEnabled
}

// Ready reports whether keys are available to verify tokens.
func (v *Validator) Ready() bool {
	if !v.Enabled() {
		return true
	}
	if v.jwks != nil {
		return len(v.jwks.KIDs()) > 0
	}
	return len(v.secret) > 0
}

// Close stops the background JWKS refresh.
func (v *Validator) Close() {
	if v != nil && v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// Authenticate resolves the requester of r. A request without credentials is
// anonymous; credentials that are present but invalid are an error.
func (v *Validator) Authenticate(ctx context.Context, r *http.Request) (access.Requester, error) {
	if !v.Enabled() {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			return access.Anonymous(), nil
		}
		return access.Requester{UserID: userID, Role: roleOf([]string{r.Header.Get(HeaderUserRole)})}, nil
	}

	header := r.Header.Get("Authorization")
	if strings.TrimSpace(header) == "" {
		return access.Anonymous(), nil
	}
	raw := BearerToken(header)
	if raw == "" {
		return access.Requester{}, ErrInvalidToken
	}
	return v.Validate(ctx, raw)
}

// Validate verifies a raw JWT and maps its claims to a requester.
func (v *Validator) Validate(_ context.Context, raw string) (access.Requester, error) {
	if raw == "" {
		return access.Requester{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(v.methods), jwt.WithExpirationRequired()}
	if v.cfg.AuthIssuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.AuthIssuer))
	}
	if v.cfg.AuthAudience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.AuthAudience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, v.keyfunc, opts...)
	if err != nil || !token.Valid {
		v.log.Debug().Err(err).Msg("token rejected")
		return access.Requester{}, ErrInvalidToken
	}

	userID := claimString(claims["sub"])
	if userID == "" {
		userID = claimString(claims["id"])
	}
	if userID == "" {
		return access.Requester{}, ErrInvalidToken
	}
	return access.Requester{UserID: userID, Role: roleOf(rolesOf(claims))}, nil
}

func (v *Validator) keyfunc(token *jwt.Token) (interface{}, error) {
	if v.jwks != nil {
		return v.jwks.Keyfunc(token)
	}
	return v.secret, nil
}

// rolesOf collects roles from a flat "role"/"roles" claim and Keycloak realm_access.
func rolesOf(claims jwt.MapClaims) []string {
	var roles []string
	roles = append(roles, claimStrings(claims["role"])...)
	roles = append(roles, claimStrings(claims["roles"])...)
	if realmAccess, ok := claims["realm_access"].(map[string]any); ok {
		roles = append(roles, claimStrings(realmAccess["roles"])...)
	}
	return roles
}

func roleOf(roles []string) access.Role {
	for _, role := range roles {
		if strings.EqualFold(strings.TrimSpace(role), string(access.RoleAdmin)) {
			return access.RoleAdmin
		}
	}
	return access.RoleUser
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func claimString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

func claimStrings(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
