// vstructure - Golden record structural validation
// Validates CSV extracts against versioned configuration metadata.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vstructure/vstructure/pkg/config"
	"github.com/vstructure/vstructure/pkg/metadata"
	"github.com/vstructure/vstructure/pkg/telemetry"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	verbose bool

	instanceID  string
	versionFlag string
	formatFlags []string
	outputDir   string
	workers     int
	batchSize   int
	ruleFlags   []string

	// Watch flags
	watchDir      string
	watchPatterns []string

	// Metadata flags
	metadataDir string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vstructure",
	Short: "vstructure - Validate golden record CSV files against metadata",
	Long: `vstructure validates golden record CSV extracts against versioned
configuration metadata: required columns, required values, data types,
lengths and patterns.

Examples:
  vstructure validate -i acme -f export.csv
  vstructure validate -i acme --metadata-version v3 -f export.csv --format xlsx
  vstructure watch -i acme --dir /data/drops
  vstructure rules
  vstructure versions -i acme`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&metadataDir, "metadata-dir", "", "Metadata snapshot directory (overrides config)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig merges config files and env, then applies CLI overrides.
func loadConfig() (*config.Config, error) {
	mgr := config.NewManager()
	if err := mgr.Load(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := mgr.Get()

	if metadataDir != "" {
		cfg.Metadata.Dir = metadataDir
	}
	if workers > 0 {
		cfg.Validation.Workers = workers
	}
	if batchSize > 0 {
		cfg.Validation.BatchSize = batchSize
	}
	if len(ruleFlags) > 0 {
		cfg.Validation.Rules = ruleFlags
	}
	return cfg, nil
}

// buildStore selects the snapshot store: S3 when enabled, local
// filesystem otherwise.
func buildStore(ctx context.Context, cfg *config.Config) (metadata.Store, error) {
	if cfg.Metadata.S3.Enabled {
		s3cfg := metadata.DefaultS3Config(cfg.Metadata.S3.Bucket)
		s3cfg.Prefix = cfg.Metadata.S3.Prefix
		s3cfg.Region = cfg.Metadata.S3.Region
		s3cfg.Endpoint = cfg.Metadata.S3.Endpoint
		s3cfg.UsePathStyle = cfg.Metadata.S3.UsePathStyle
		if cfg.Metadata.S3.Timeout > 0 {
			s3cfg.Timeout = cfg.Metadata.S3.Timeout
		}
		return metadata.NewS3Store(ctx, s3cfg)
	}
	return metadata.NewFSStore(cfg.Metadata.Dir), nil
}

// setupTelemetry initializes OTLP tracing when configured. The
// returned shutdown func is always safe to call.
func setupTelemetry(ctx context.Context, cfg *config.Config) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if !cfg.Telemetry.Enabled {
		return noop
	}

	otlpCfg := telemetry.DefaultOTLPConfig("vstructure")
	otlpCfg.ServiceVersion = version
	if cfg.Telemetry.Endpoint != "" {
		otlpCfg.Endpoint = cfg.Telemetry.Endpoint
	}

	shutdown, err := telemetry.InitOTLP(otlpCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
		return noop
	}
	return shutdown
}
