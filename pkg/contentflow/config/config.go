package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/content-flow/pkg/contentflow"
	"github.com/tendant/content-flow/pkg/contentflow/repo/memory"
	repopg "github.com/tendant/content-flow/pkg/contentflow/repo/postgres"
	"github.com/tendant/content-flow/pkg/contentflow/repo/postgres/migrations"
	reports3 "github.com/tendant/content-flow/pkg/contentflow/report/s3"
	"github.com/tendant/content-flow/pkg/contentflow/telemetry"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		LogLevel:     "info",
		LogFormat:    "text",
		DatabaseType: "memory",
		DBSchema:     "content_flow",
		Report: ReportConfig{
			Region: "us-east-1",
		},
	}
}

// ServerConfig represents configuration for the content-flow service
type ServerConfig struct {
	Port        string // listen port handed to the chi-demo app
	Environment string // development, production, testing
	LogLevel    string // debug, info, warn, error
	LogFormat   string // text, json

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use (default: content_flow)
	AutoMigrate  bool   // Run embedded migrations on startup

	// HS256 secret for bearer tokens
	JWTSecret string

	DisableMetrics bool

	Report ReportConfig
}

// ReportConfig locates the bucket metric reports are exported to
type ReportConfig struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string
	UsePathStyle    bool
	AccessKeyID     string
	SecretAccessKey string

	EnableSSE    bool
	SSEAlgorithm string // AES256 or aws:kms
	SSEKMSKeyID  string
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if _, err := parsePort(c.Port); err != nil {
		return err
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if c.Environment == "production" && c.JWTSecret == "" {
		return errors.New("jwt_secret is required in production")
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be 'text' or 'json', got: %s", c.LogFormat)
	}
	if c.Report.EnableSSE && c.Report.SSEAlgorithm != "AES256" && c.Report.SSEAlgorithm != "aws:kms" {
		return fmt.Errorf("report sse algorithm must be 'AES256' or 'aws:kms', got: %q", c.Report.SSEAlgorithm)
	}

	return nil
}

func parsePort(port string) (int, error) {
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("port must be a number between 1 and 65535, got: %s", port)
	}
	return n, nil
}

// AppConfig returns the chi-demo app settings read from the environment,
// with the listen port replaced by Port.
func (c *ServerConfig) AppConfig() (app.AppConfig, error) {
	port, err := parsePort(c.Port)
	if err != nil {
		return app.AppConfig{}, err
	}
	appConfig := app.DefaultAppConfig()
	appConfig.Port = port
	return appConfig, nil
}

// Logger returns a slog.Logger writing to w in the configured format and level.
func (c *ServerConfig) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", s, err)
	}
	return level, nil
}

// OpenPool connects to Postgres with search_path set to the configured schema.
func (c *ServerConfig) OpenPool(ctx context.Context) (*pgxpool.Pool, error) {
	if c.DatabaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	schema := c.DBSchema
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if schema == "" {
			return nil
		}
		// set search_path for this session
		_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// Migrate creates the schema if needed and applies the embedded migrations.
func (c *ServerConfig) Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if c.DBSchema != "" {
		if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{c.DBSchema}.Sanitize()); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return migrations.MigrateUp(db, c.DBSchema)
}

// MigrationStatus reports the schema version of the configured database.
func (c *ServerConfig) MigrationStatus(pool *pgxpool.Pool) (migrations.Status, error) {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return migrations.CheckStatus(db, c.DBSchema)
}

// BuildRepository creates a Repository based on the configuration. The
// returned close function releases the database pool, if any.
func (c *ServerConfig) BuildRepository(ctx context.Context) (contentflow.Repository, func(), error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), func() {}, nil
	case "postgres":
		pool, err := c.OpenPool(ctx)
		if err != nil {
			return nil, nil, err
		}
		if c.AutoMigrate {
			if err := c.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return repopg.NewWithPool(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// BuildService creates a Service on top of repo. Events go to the Prometheus
// sink, unless metrics are disabled, and to every extra sink.
func (c *ServerConfig) BuildService(repo contentflow.Repository, logger *slog.Logger, sinks ...contentflow.EventSink) (contentflow.Service, error) {
	options := []contentflow.Option{contentflow.WithRepository(repo)}
	if logger != nil {
		options = append(options, contentflow.WithLogger(logger))
	}
	if !c.DisableMetrics {
		sinks = append([]contentflow.EventSink{telemetry.NewSink()}, sinks...)
	}
	switch len(sinks) {
	case 0:
	case 1:
		options = append(options, contentflow.WithEventSink(sinks[0]))
	default:
		options = append(options, contentflow.WithEventSink(contentflow.MultiEventSink(sinks)))
	}
	return contentflow.New(options...)
}

// S3Config maps the report settings onto the S3 uploader config
func (c *ServerConfig) S3Config() (reports3.Config, error) {
	if c.Report.Bucket == "" {
		return reports3.Config{}, errors.New("report bucket is not configured")
	}
	return reports3.Config{
		Region:          c.Report.Region,
		Bucket:          c.Report.Bucket,
		Prefix:          c.Report.Prefix,
		AccessKeyID:     c.Report.AccessKeyID,
		SecretAccessKey: c.Report.SecretAccessKey,
		Endpoint:        c.Report.Endpoint,
		UsePathStyle:    c.Report.UsePathStyle,
		EnableSSE:       c.Report.EnableSSE,
		SSEAlgorithm:    c.Report.SSEAlgorithm,
		SSEKMSKeyID:     c.Report.SSEKMSKeyID,
	}, nil
}
