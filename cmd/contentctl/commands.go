package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tendant/content-flow/pkg/contentflow"
	"github.com/tendant/content-flow/pkg/contentflow/api"
	"github.com/tendant/content-flow/pkg/contentflow/repo/postgres/migrations"
	"github.com/tendant/content-flow/pkg/contentflow/report"
	reports3 "github.com/tendant/content-flow/pkg/contentflow/report/s3"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			pool, err := cfg.OpenPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := cfg.Migrate(cmd.Context(), pool); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Schema %s is up to date\n", cfg.DBSchema)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			pool, err := cfg.OpenPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			st, err := cfg.MigrationStatus(pool)
			return printMigrationStatus(cmd.OutOrStdout(), cfg.DBSchema, st, err)
		},
	})

	return cmd
}

// printMigrationStatus writes st unless err left it undetermined. A known
// status is printed before err is returned so a dirty or stale schema is shown.
func printMigrationStatus(w io.Writer, schema string, st migrations.Status, err error) error {
	if err != nil && st.Latest == 0 {
		return err
	}
	fmt.Fprintf(w, "Schema:  %s\n", schema)
	fmt.Fprintf(w, "Version: %d (latest %d)\n", st.Version, st.Latest)
	fmt.Fprintf(w, "Dirty:   %t\n", st.Dirty)
	return err
}

// NewReportCommand creates the report command
func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Tenant engagement reports",
	}
	cmd.AddCommand(newReportExportCommand())
	return cmd
}

func newReportExportCommand() *cobra.Command {
	var tenant string
	var stdout bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build a tenant engagement report",
		Long: `Build the engagement report of a tenant and upload it to the configured
S3 bucket. With --stdout, or when no bucket is configured, the report is
printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid tenant ID: %w", err)
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := cfg.Logger(os.Stderr)

			repo, closeRepo, err := cfg.BuildRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeRepo()

			r, err := report.Build(cmd.Context(), repo, tenantID, time.Now().UTC())
			if err != nil {
				return err
			}

			if stdout || cfg.Report.Bucket == "" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}

			s3cfg, err := cfg.S3Config()
			if err != nil {
				return err
			}
			uploader, err := reports3.New(cmd.Context(), s3cfg)
			if err != nil {
				return err
			}
			key, err := report.NewExporter(uploader, logger).Export(cmd.Context(), r)
			if err != nil {
				return err
			}
			fmt.Printf("Report uploaded: s3://%s/%s\n", s3cfg.Bucket, key)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant ID (required)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "print the report instead of uploading it")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

// NewTokenCommand creates the token command
func NewTokenCommand() *cobra.Command {
	var user, tenant, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("invalid user ID: %w", err)
			}
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid tenant ID: %w", err)
			}
			r := contentflow.Role(role)
			if r != contentflow.RolePrivileged && r != contentflow.RoleStandard {
				return fmt.Errorf("unknown role %q", role)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}

			token, err := api.IssueToken(api.NewTokenAuth(cfg.JWTSecret),
				contentflow.Principal{ID: userID, TenantID: tenantID, Role: r})
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user ID (required)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant ID (required)")
	cmd.Flags().StringVar(&role, "role", string(contentflow.RoleStandard), "privileged or standard")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}
