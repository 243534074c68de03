package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig mirrors the variables WithEnv understands. Unset variables leave
// the corresponding ServerConfig field untouched.
type envConfig struct {
	Port           string `env:"PORT"`
	Environment    string `env:"ENVIRONMENT"`
	LogLevel       string `env:"LOG_LEVEL"`
	LogFormat      string `env:"LOG_FORMAT"`
	DatabaseURL    string `env:"DATABASE_URL"`
	DBSchema       string `env:"DB_SCHEMA"`
	AutoMigrate    bool   `env:"AUTO_MIGRATE"`
	JWTSecret      string `env:"JWT_SECRET"`
	DisableMetrics bool   `env:"DISABLE_METRICS"`

	Report struct {
		Bucket          string `env:"REPORT_S3_BUCKET"`
		Region          string `env:"REPORT_S3_REGION"`
		Prefix          string `env:"REPORT_S3_PREFIX"`
		Endpoint        string `env:"REPORT_S3_ENDPOINT"`
		UsePathStyle    bool   `env:"REPORT_S3_PATH_STYLE"`
		EnableSSE       bool   `env:"REPORT_S3_SSE"`
		SSEAlgorithm    string `env:"REPORT_S3_SSE_ALGORITHM"`
		SSEKMSKeyID     string `env:"REPORT_S3_SSE_KMS_KEY_ID"`
		AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
		SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	}
}

// WithEnv applies environment variable overrides.
//
// Database:
//
//	DATABASE_URL - "memory" (or empty) for the in-memory store, or a
//	               "postgres://" / "postgresql://" connection string
//	DB_SCHEMA    - Postgres schema (default: content_flow)
//	AUTO_MIGRATE - apply embedded migrations on startup
//
// Server: PORT, ENVIRONMENT, LOG_LEVEL, LOG_FORMAT, JWT_SECRET, DISABLE_METRICS.
//
// Reports: REPORT_S3_BUCKET, REPORT_S3_REGION, REPORT_S3_PREFIX,
// REPORT_S3_ENDPOINT, REPORT_S3_PATH_STYLE, AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY. REPORT_S3_SSE turns on server-side encryption with
// REPORT_S3_SSE_ALGORITHM (AES256 or aws:kms) and REPORT_S3_SSE_KMS_KEY_ID.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		setString(&c.Port, env.Port)
		setString(&c.Environment, env.Environment)
		setString(&c.LogLevel, env.LogLevel)
		setString(&c.LogFormat, env.LogFormat)
		setString(&c.DBSchema, env.DBSchema)
		setString(&c.JWTSecret, env.JWTSecret)
		c.AutoMigrate = c.AutoMigrate || env.AutoMigrate
		c.DisableMetrics = c.DisableMetrics || env.DisableMetrics

		setString(&c.Report.Bucket, env.Report.Bucket)
		setString(&c.Report.Region, env.Report.Region)
		setString(&c.Report.Prefix, env.Report.Prefix)
		setString(&c.Report.Endpoint, env.Report.Endpoint)
		setString(&c.Report.AccessKeyID, env.Report.AccessKeyID)
		setString(&c.Report.SecretAccessKey, env.Report.SecretAccessKey)
		c.Report.UsePathStyle = c.Report.UsePathStyle || env.Report.UsePathStyle
		setString(&c.Report.SSEAlgorithm, env.Report.SSEAlgorithm)
		setString(&c.Report.SSEKMSKeyID, env.Report.SSEKMSKeyID)
		c.Report.EnableSSE = c.Report.EnableSSE || env.Report.EnableSSE

		return applyDatabaseURL(env.DatabaseURL, c)
	}
}

// applyDatabaseURL picks the database type from the URL scheme
func applyDatabaseURL(dbURL string, c *ServerConfig) error {
	switch {
	case dbURL == "":
		return nil
	case dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
