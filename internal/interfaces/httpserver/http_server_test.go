package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidflow/video-api/internal/config"
	"github.com/vidflow/video-api/internal/domain/like"
	"github.com/vidflow/video-api/internal/domain/transcoder"
	"github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/domain/video"
	"github.com/vidflow/video-api/internal/infrastructure/auth"
	"github.com/vidflow/video-api/internal/infrastructure/queue"
	"github.com/vidflow/video-api/internal/infrastructure/repository/memory"
	"github.com/vidflow/video-api/internal/interfaces/httpserver"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/handlers"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/responses"
)

const (
	jwtSecret        = "http-test-secret"
	transcoderSecret = "transcoder-secret"
)

type fakeStorage struct {
	mu       sync.Mutex
	objects  map[string]int64
	disabled bool
}

func (f *fakeStorage) PresignPost(_ context.Context, key, contentType string, _ int64, _ time.Duration) (*upload.UploadTarget, error) {
	return &upload.UploadTarget{URL: "https://storage.test/videos", Fields: map[string]string{"key": key, "Content-Type": contentType}}, nil
}

func (f *fakeStorage) Head(_ context.Context, key string) (*upload.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	size, ok := f.objects[key]
	if !ok {
		return nil, nil
	}
	return &upload.ObjectInfo{Size: size, ContentType: "video/mp4"}, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.test/videos/" + key + "?signature=x", nil
}

func (f *fakeStorage) Enabled() bool { return !f.disabled }

func (f *fakeStorage) Health(context.Context) error { return nil }

func (f *fakeStorage) put(key string, size int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = size
}

type testServer struct {
	handler http.Handler
	storage *fakeStorage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		ServiceName:          "video-api-test",
		Environment:          "test",
		AuthEnabled:          true,
		AuthJWTSecret:        jwtSecret,
		MaxUploadBytes:       10 << 20,
		UploadURLTTL:         15 * time.Minute,
		UploadSessionTTL:     2 * time.Hour,
		ProcessingTTL:        24 * time.Hour,
		StreamURLTTL:         5 * time.Minute,
		DefaultPageSize:      20,
		MaxPageSize:          100,
		TranscoderSecretList: transcoderSecret,
	}
	log := zerolog.Nop()

	validator, err := auth.NewValidator(context.Background(), cfg, log)
	require.NoError(t, err)

	store := memory.NewStore()
	storage := &fakeStorage{objects: map[string]int64{}}

	videos := video.NewService(cfg, store.Videos(), storage, log)
	likes := like.NewService(store.Likes(), store.Videos(), log)
	uploads := upload.NewService(cfg, store.Uploads(), store.Videos(), storage, queue.NewLogDispatcher(log), log)
	gateway := transcoder.NewGateway(cfg.TranscoderSecrets(), uploads, log)

	provider := handlers.NewProvider(videos, uploads, likes, gateway, log)
	server := httpserver.New(cfg, log, provider, validator, gateway, store, storage)
	return &testServer{handler: server.Handler(), storage: storage}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": userID, "exp": time.Now().Add(time.Hour).Unix()}
	if role != "" {
		claims["role"] = role
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// publish runs initiate, upload, complete and a successful transcoder callback.
func (s *testServer) publish(t *testing.T, owner, visibility string) *video.Video {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/videos/initiate", owner, map[string]any{
		"title":        "Trip",
		"filename":     "trip.mp4",
		"contentType":  "video/mp4",
		"declaredSize": 2048,
		"visibility":   visibility,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	initiated := decode[upload.InitiateResult](t, rec)
	require.NotEmpty(t, initiated.Key)
	assert.Equal(t, initiated.Key, initiated.Upload.Fields["key"])

	s.storage.put(initiated.Key, 2048)

	rec = s.do(t, http.MethodPost, "/videos/complete", owner, map[string]any{"key": initiated.Key, "videoLength": 61})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	completed := decode[responses.CompleteUploadResponse](t, rec)
	require.NotNil(t, completed.Video)
	assert.Equal(t, video.StateProcessing, completed.Video.State)

	rec = s.do(t, http.MethodPost, "/transcoder/callback", "", map[string]any{
		"session_key": initiated.Key,
		"result":      "success",
		"metadata":    map[string]any{"duration_seconds": 61},
	}, "X-Transcoder-Secret", transcoderSecret)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	transition := decode[responses.TransitionResponse](t, rec)
	assert.True(t, transition.Changed)
	require.NotNil(t, transition.Video)
	return transition.Video
}

func TestCoreRoutes(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/", "/healthz", "/readyz", "/health/auth"} {
		rec := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vidflow_video_api_requests_total")
}

func TestReadyz_ReportsStorageState(t *testing.T) {
	s := newTestServer(t)

	type readiness struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}

	rec := s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[readiness](t, rec).Checks["storage"])

	s.storage.disabled = true
	rec = s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[readiness](t, rec)
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, "disabled", body.Checks["storage"])
	assert.Equal(t, "ok", body.Checks["database"])
}

func TestHiddenVideoScenario(t *testing.T) {
	s := newTestServer(t)
	alice := token(t, "alice", "")
	bob := token(t, "bob", "")
	admin := token(t, "root", "admin")

	v := s.publish(t, alice, "public")
	path := "/videos/" + v.ID

	rec := s.do(t, http.MethodPut, path, alice, map[string]any{"visibility": "hidden"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	tests := []struct {
		name   string
		bearer string
		want   int
	}{
		{name: "anonymous", bearer: "", want: http.StatusNotFound},
		{name: "stranger", bearer: bob, want: http.StatusNotFound},
		{name: "owner", bearer: alice, want: http.StatusOK},
		{name: "admin", bearer: admin, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.do(t, http.MethodGet, path, tt.bearer, nil).Code)
			assert.Equal(t, tt.want, s.do(t, http.MethodGet, path+"/stream", tt.bearer, nil).Code)
			assert.Equal(t, tt.want, s.do(t, http.MethodGet, "/likes/"+v.ID+"/counts", tt.bearer, nil).Code)
		})
	}

	list := decode[video.Page](t, s.do(t, http.MethodGet, "/videos", "", nil))
	assert.Empty(t, list.Videos)

	strangerView := decode[video.Page](t, s.do(t, http.MethodGet, "/videos/user/alice", bob, nil))
	assert.Empty(t, strangerView.Videos)
	ownerView := decode[video.Page](t, s.do(t, http.MethodGet, "/videos/user/alice", alice, nil))
	require.Len(t, ownerView.Videos, 1)
	assert.Equal(t, v.ID, ownerView.Videos[0].ID)

	rec = s.do(t, http.MethodPost, "/likes/"+v.ID, bob, map[string]any{"type": "like"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, path, bob, map[string]any{"title": "mine now"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLikeFlow(t *testing.T) {
	s := newTestServer(t)
	alice := token(t, "alice", "")
	bob := token(t, "bob", "")
	v := s.publish(t, alice, "public")
	likesPath := "/likes/" + v.ID

	rec := s.do(t, http.MethodPost, likesPath, bob, map[string]any{"type": "like"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, like.KindLike, decode[like.Reaction](t, rec).Kind)

	rec = s.do(t, http.MethodPost, likesPath, bob, map[string]any{"type": "like"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, likesPath, bob, map[string]any{"type": "dislike"})
	require.Equal(t, http.StatusOK, rec.Code)

	counts := decode[like.Counts](t, s.do(t, http.MethodGet, likesPath+"/counts", "", nil))
	assert.Equal(t, like.Counts{Likes: 0, Dislikes: 1}, counts)

	status := decode[responses.LikeStatusResponse](t, s.do(t, http.MethodGet, likesPath+"/status", bob, nil))
	assert.Equal(t, like.StatusDislike, status.Status)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, likesPath, bob, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, likesPath, bob, nil).Code)

	status = decode[responses.LikeStatusResponse](t, s.do(t, http.MethodGet, likesPath+"/status", bob, nil))
	assert.Equal(t, like.StatusNone, status.Status)

	rec = s.do(t, http.MethodPost, likesPath, bob, map[string]any{"type": "love"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, likesPath+"/status", "", nil).Code)
}

func TestAuthenticationErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/videos/initiate", "", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/videos", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[responses.ErrorResponse](t, rec)
	assert.Equal(t, "UNAUTHORIZED", body.Error)
	assert.NotEmpty(t, body.Code)
	assert.NotEmpty(t, body.RequestID)
	assert.Equal(t, body.RequestID, rec.Header().Get("X-Request-ID"))
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t)
	alice := token(t, "alice", "")
	bob := token(t, "bob", "")

	rec := s.do(t, http.MethodPost, "/videos/initiate", alice, map[string]any{"title": "Empty"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "filename is required; declaredSize must be greater than 0", decode[responses.ErrorResponse](t, rec).Message)

	rec = s.do(t, http.MethodPost, "/videos/initiate", alice, map[string]any{
		"title": "Doc", "filename": "notes.pdf", "contentType": "application/pdf", "declaredSize": 10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/videos/initiate", alice, map[string]any{
		"title": "Clip", "filename": "clip.mp4", "contentType": "video/mp4", "declaredSize": 100,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	key := decode[upload.InitiateResult](t, rec).Key

	rec = s.do(t, http.MethodPost, "/videos/complete", alice, map[string]any{"key": key})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "retryable", decode[responses.ErrorResponse](t, rec).Retry)

	rec = s.do(t, http.MethodGet, "/videos/uploads/"+key, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, upload.StateInitiated, decode[upload.Session](t, rec).State)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/videos/uploads/"+key, bob, nil).Code)

	s.storage.put(key, 100)
	rec = s.do(t, http.MethodPost, "/videos/complete", bob, map[string]any{"key": key})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTranscoderCallback(t *testing.T) {
	s := newTestServer(t)
	alice := token(t, "alice", "")
	v := s.publish(t, alice, "public")

	rec := s.do(t, http.MethodPost, "/transcoder/callback", "", map[string]any{"session_key": "k", "result": "success"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/transcoder/callback", "", map[string]any{"session_key": "k", "result": "success"},
		"X-Transcoder-Secret", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/videos/initiate", alice, map[string]any{
		"title": "Second", "filename": "second.mp4", "contentType": "video/mp4", "declaredSize": 64,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	key := decode[upload.InitiateResult](t, rec).Key
	s.storage.put(key, 64)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/videos/complete", alice, map[string]any{"key": key}).Code)

	callback := func(result string) *httptest.ResponseRecorder {
		return s.do(t, http.MethodPost, "/transcoder/callback", "", map[string]any{"session_key": key, "result": result},
			"X-Transcoder-Secret", transcoderSecret)
	}

	rec = callback("failure")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[responses.TransitionResponse](t, rec).Changed)

	rec = callback("failure")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[responses.TransitionResponse](t, rec).Changed)

	rec = callback("success")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "terminal", decode[responses.ErrorResponse](t, rec).Retry)

	rec = callback("maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/videos/"+v.ID, "", nil).Code)
}
