package config

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-flow/pkg/contentflow"
	"github.com/tendant/content-flow/pkg/contentflow/repo/memory"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Equal(t, "content_flow", cfg.DBSchema)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{"empty port", []Option{WithPort("")}, true},
		{"non-numeric port", []Option{WithPort("http")}, true},
		{"port out of range", []Option{WithPort("70000")}, true},
		{"bad database type", []Option{WithDatabase("mysql", "x")}, true},
		{"postgres without url", []Option{WithDatabase("postgres", "")}, true},
		{"postgres with url", []Option{WithDatabase("postgres", "postgres://localhost/db")}, false},
		{"bad log level", []Option{WithLogging("loud", "text")}, true},
		{"bad log format", []Option{WithLogging("info", "xml")}, true},
		{"json logging", []Option{WithLogging("warn", "json")}, false},
		{"empty report bucket", []Option{WithReportBucket("", "", "")}, true},
		{"production needs secret", []Option{WithEnvironment("production")}, true},
		{"production with secret", []Option{WithEnvironment("production"), WithJWTSecret("k")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAppConfigListensOnPort(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	appConfig, err := cfg.AppConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, appConfig.Port)

	cfg, err = Load(WithPort("9090"))
	require.NoError(t, err)
	appConfig, err = cfg.AppConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, appConfig.Port)
}

func TestLogger(t *testing.T) {
	cfg, err := Load(WithLogging("warn", "json"))
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestBuildServiceWithMemoryRepository(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	repo, closeRepo, err := cfg.BuildRepository(context.Background())
	require.NoError(t, err)
	defer closeRepo()

	svc, err := cfg.BuildService(repo, nil)
	require.NoError(t, err)

	admin := contentflow.Principal{ID: uuid.New(), TenantID: uuid.New(), Role: contentflow.RolePrivileged}
	ctx := contentflow.WithPrincipal(context.Background(), admin)
	c, err := svc.CreateContent(ctx, contentflow.CreateContentRequest{Name: "hello"})
	require.NoError(t, err)
	assert.Equal(t, string(contentflow.ContentStatusPending), c.Status)
}

type countingSink struct {
	contentflow.NoopEventSink
	created int
}

func (s *countingSink) ContentCreated(ctx context.Context, c *contentflow.Content) error {
	s.created++
	return nil
}

func TestBuildServiceExtraSinks(t *testing.T) {
	for _, disable := range []bool{false, true} {
		cfg, err := Load()
		require.NoError(t, err)
		cfg.DisableMetrics = disable

		sink := &countingSink{}
		svc, err := cfg.BuildService(memory.New(), nil, sink)
		require.NoError(t, err)

		admin := contentflow.Principal{ID: uuid.New(), TenantID: uuid.New(), Role: contentflow.RolePrivileged}
		_, err = svc.CreateContent(contentflow.WithPrincipal(context.Background(), admin),
			contentflow.CreateContentRequest{Name: "hello"})
		require.NoError(t, err)
		assert.Equal(t, 1, sink.created, "disable metrics = %v", disable)
	}
}

func TestS3Config(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	_, err = cfg.S3Config()
	assert.Error(t, err)

	cfg, err = Load(WithReportBucket("reports", "eu-west-1", "exports"))
	require.NoError(t, err)
	s3cfg, err := cfg.S3Config()
	require.NoError(t, err)
	assert.Equal(t, "reports", s3cfg.Bucket)
	assert.Equal(t, "eu-west-1", s3cfg.Region)
	assert.Equal(t, "exports", s3cfg.Prefix)
}
