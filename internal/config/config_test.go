package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryBackendDefaults(t *testing.T) {
	t.Setenv("DATABASE_BACKEND", "memory")
	t.Setenv("AUTH_JWT_SECRET", "dev-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsMemoryDatabase())
	assert.Equal(t, "log", cfg.TranscodeDispatch)
	assert.Equal(t, 20, cfg.DefaultPageSize)
	assert.Equal(t, 100, cfg.MaxPageSize)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without dsn", map[string]string{"DATABASE_BACKEND": "postgres", "AUTH_ENABLED": "false"}},
		{"auth without keys", map[string]string{"DATABASE_BACKEND": "memory"}},
		{"redis dispatch without url", map[string]string{"DATABASE_BACKEND": "memory", "AUTH_ENABLED": "false", "TRANSCODE_DISPATCH": "redis"}},
		{"sqs dispatch without queue", map[string]string{"DATABASE_BACKEND": "memory", "AUTH_ENABLED": "false", "TRANSCODE_DISPATCH": "sqs"}},
		{"unknown dispatch", map[string]string{"DATABASE_BACKEND": "memory", "AUTH_ENABLED": "false", "TRANSCODE_DISPATCH": "kafka"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestTranscoderSecrets(t *testing.T) {
	cfg := &Config{TranscoderSecretList: " current , previous ,,"}
	assert.Equal(t, []string{"current", "previous"}, cfg.TranscoderSecrets())

	empty := &Config{}
	assert.Empty(t, empty.TranscoderSecrets())
}

func TestSQSRegionOrDefault(t *testing.T) {
	cfg := &Config{S3Region: "eu-west-1"}
	assert.Equal(t, "eu-west-1", cfg.SQSRegionOrDefault())
	cfg.SQSRegion = "us-east-2"
	assert.Equal(t, "us-east-2", cfg.SQSRegionOrDefault())
}
