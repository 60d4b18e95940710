package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vstructure/vstructure/pkg/config"
	"github.com/vstructure/vstructure/pkg/metadata"
	"github.com/vstructure/vstructure/pkg/tui"
	"github.com/vstructure/vstructure/pkg/validate"
)

var csvFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a golden record CSV file",
	Long: `Validate a golden record CSV extract against the configuration
metadata of an instance.

Examples:
  vstructure validate -i acme -f export.csv
  vstructure validate -i acme --metadata-version v3 -f export.csv
  vstructure validate -i acme -f export.csv --format json --format xlsx
  vstructure validate -i acme -f export.csv --workers 4 --rules not_null,data_type`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&instanceID, "instance", "i", "", "Instance whose metadata to validate against (required)")
	validateCmd.Flags().StringVarP(&csvFile, "file", "f", "", "Golden record CSV file path (required)")
	validateCmd.Flags().StringVar(&versionFlag, "metadata-version", "", "Metadata snapshot version (latest if omitted)")
	validateCmd.Flags().StringArrayVar(&formatFlags, "format", nil, "Report format (csv, json, xlsx); repeatable")
	validateCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Report output directory (overrides config)")
	validateCmd.Flags().IntVar(&workers, "workers", 0, "Parallel validation workers (0 = sequential)")
	validateCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Rows per validation batch (overrides config)")
	validateCmd.Flags().StringSliceVar(&ruleFlags, "rules", nil, "Rules to enable, disabling the rest (comma-separated)")

	validateCmd.MarkFlagRequired("instance")
	validateCmd.MarkFlagRequired("file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(csvFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", csvFile)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted, cleaning up...")
		cancel()
	}()

	shutdown := setupTelemetry(ctx, cfg)
	defer shutdown(context.Background())

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open metadata store: %w", err)
	}

	if verbose {
		tui.PrintHeader(version)
		fmt.Printf("  %s %s\n", "Instance:", instanceID)
		fmt.Printf("  %s %s\n", "File:", csvFile)
	}

	result, elapsed, err := executeRun(ctx, cfg, store, validate.Request{
		InstanceID: instanceID,
		Version:    versionFlag,
		CSVPath:    csvFile,
		Formats:    formatFlags,
		OutputDir:  outputDir,
	})
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tui.PrintRunReport(&tui.RunReport{
		GoldenRecordPath: result.GoldenRecordPath,
		InstanceID:       result.InstanceID,
		Version:          result.Version,
		Success:          result.Success,
		Fatal:            result.Errors,
		Warnings:         result.Warnings,
		Report:           result.Report,
		ReportFiles:      result.ReportFiles,
		Duration:         elapsed,
	})
	if verbose {
		tui.PrintWarnings(result.Warnings)
	}

	if !result.Success {
		// Non-zero exit without cobra re-printing a usage error.
		os.Exit(2)
	}
	return nil
}

// executeRun wires a progress bar to the runner and times the run.
func executeRun(ctx context.Context, cfg *config.Config, store metadata.Store, req validate.Request) (*validate.Result, time.Duration, error) {
	runner := validate.NewRunner(cfg, store)

	bar := tui.ShowProgress(-1, "validating")
	runner.OnProgress = func(p validate.Progress) {
		bar.Set(p.Rows)
	}

	start := time.Now()
	result, err := runner.Execute(ctx, req)
	elapsed := time.Since(start)

	bar.Finish()
	tui.ClearLine()

	return result, elapsed, err
}
