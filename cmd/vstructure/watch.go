package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vstructure/vstructure/pkg/tui"
	"github.com/vstructure/vstructure/pkg/validate"
	"github.com/vstructure/vstructure/pkg/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory and validate dropped CSV files",
	Long: `Watch a drop directory and run a validation for every CSV file
that lands in it. Reports are written to the configured output
directory.

Examples:
  vstructure watch -i acme --dir /data/drops
  vstructure watch -i acme --dir /data/drops --pattern "export_*.csv"`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&instanceID, "instance", "i", "", "Instance whose metadata to validate against (required)")
	watchCmd.Flags().StringVar(&versionFlag, "metadata-version", "", "Metadata snapshot version (latest if omitted)")
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "Directory to watch (overrides config)")
	watchCmd.Flags().StringArrayVar(&watchPatterns, "pattern", nil, "Filename glob to react to; repeatable (default *.csv)")
	watchCmd.Flags().StringArrayVar(&formatFlags, "format", nil, "Report format (csv, json, xlsx); repeatable")
	watchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Report output directory (overrides config)")
	watchCmd.Flags().IntVar(&workers, "workers", 0, "Parallel validation workers (0 = sequential)")

	watchCmd.MarkFlagRequired("instance")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := cfg.Watch.Dir
	if watchDir != "" {
		dir = watchDir
	}
	if dir == "" {
		return fmt.Errorf("no watch directory configured, pass --dir or set watch.dir")
	}
	patterns := cfg.Watch.Patterns
	if len(watchPatterns) > 0 {
		patterns = watchPatterns
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping watcher...")
		cancel()
	}()

	shutdown := setupTelemetry(ctx, cfg)
	defer shutdown(context.Background())

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open metadata store: %w", err)
	}

	watcher, err := watch.NewWatcher(dir, patterns, cfg.Watch.Debounce)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	defer watcher.Close()

	watcher.OnFile = func(path string) error {
		fmt.Printf("\n▸ %s\n", filepath.Base(path))

		result, elapsed, err := executeRun(ctx, cfg, store, validate.Request{
			InstanceID: instanceID,
			Version:    versionFlag,
			CSVPath:    path,
			Formats:    formatFlags,
			OutputDir:  outputDir,
		})
		if err != nil {
			return err
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
		return nil
	}
	watcher.OnError = func(path string, err error) {
		if path != "" {
			fmt.Fprintf(os.Stderr, "watch error for %s: %v\n", path, err)
			return
		}
		fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
	}

	tui.PrintHeader(version)
	fmt.Printf("  Watching %s for %v\n", dir, patterns)
	fmt.Println("  Press Ctrl+C to stop.")

	if err := watcher.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
