// Package tui renders CLI output for validation runs.
// Simple, streaming, no complex TUI - just clean prompts and output.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/vstructure/vstructure/internal/model"
	"github.com/vstructure/vstructure/pkg/report"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	warning = lipgloss.Color("#FFAA00")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(warning)
	codeStyle    = lipgloss.NewStyle().Background(lipgloss.Color("#1a1a1a")).Foreground(white).Padding(0, 1)
)

// PrintHeader prints the tool banner.
func PrintHeader(version string) {
	fmt.Println()
	fmt.Println(titleStyle.Render("  VSTRUCTURE") + mutedStyle.Render(" v"+version))
	fmt.Println(mutedStyle.Render("  Golden record structural validation"))
	fmt.Println()
}

// RunReport summarizes a finished validation run for display.
type RunReport struct {
	GoldenRecordPath string
	InstanceID       string
	Version          string

	Success  bool
	Fatal    []model.ValidationError
	Warnings []model.ValidationError

	Report      *report.Report
	ReportFiles map[string]string
	Duration    time.Duration
}

// PrintRunReport prints the outcome of a validation run.
func PrintRunReport(r *RunReport) {
	fmt.Println()
	if r.Success {
		fmt.Println(successStyle.Render("  ✓ VALIDATION COMPLETE"))
	} else {
		fmt.Println(accentStyle.Render("  ✗ VALIDATION FAILED"))
	}
	fmt.Println()
	fmt.Printf("  %s %s\n", mutedStyle.Render("File:"), titleStyle.Render(r.GoldenRecordPath))
	fmt.Printf("  %s %s\n", mutedStyle.Render("Metadata:"), titleStyle.Render(r.InstanceID+" / "+r.Version))

	for _, e := range r.Fatal {
		fmt.Printf("  %s %s: %s\n", accentStyle.Render("✗"), e.Code, e.Message)
	}

	if r.Report != nil {
		m := r.Report.Metrics
		fmt.Printf("  %s %s rows in %s batches\n",
			mutedStyle.Render("Processed:"),
			titleStyle.Render(formatNumber(int64(m.TotalRows))),
			titleStyle.Render(fmt.Sprintf("%d", m.TotalBatches)))
		fmt.Printf("  %s %s errors, %s warnings\n",
			mutedStyle.Render("Findings:"),
			renderCount(m.TotalErrors, accentStyle),
			renderCount(m.TotalWarnings, warnStyle))
		printCodeCounts(m.ErrorCounts)
	}

	if r.Duration > 0 {
		fmt.Printf("  %s %s\n", mutedStyle.Render("Time:"), titleStyle.Render(formatDuration(r.Duration)))
	}

	for format, path := range r.ReportFiles {
		fmt.Printf("  %s %s\n", mutedStyle.Render(format+":"), codeStyle.Render(path))
	}
	fmt.Println()
}

func renderCount(n int, nonZero lipgloss.Style) string {
	s := fmt.Sprintf("%d", n)
	if n == 0 {
		return successStyle.Render(s)
	}
	return nonZero.Render(s)
}

func printCodeCounts(counts map[string]int) {
	for code, n := range counts {
		fmt.Printf("    %s %s (%d)\n", mutedStyle.Render("·"), code, n)
	}
}

// PrintWarnings prints non-fatal loader and transform findings.
func PrintWarnings(warnings []model.ValidationError) {
	for _, w := range warnings {
		fmt.Printf("  %s %s: %s\n", warnStyle.Render("⚠"), w.Code, w.Message)
	}
}

// ClearLine clears the current line.
func ClearLine() {
	fmt.Print("\r\033[K")
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

// ShowProgress creates a progress bar for batch processing. Pass -1 as
// total when the row count is not known up front.
func ShowProgress(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
