package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vstructure/vstructure/internal/model"
	"github.com/vstructure/vstructure/pkg/comparator"
)

// Aggregate folds per-batch results into a single report with entries,
// metrics and a human-readable summary.
func Aggregate(results []comparator.BatchResult, sourceCSV, sourceMetadata string) *Report {
	now := time.Now()
	r := &Report{
		ReportID:       "validation_" + now.Format("20060102_150405"),
		Timestamp:      now,
		SourceCSV:      sourceCSV,
		SourceMetadata: sourceMetadata,
		Metrics:        newMetrics(),
	}

	for _, batch := range results {
		r.Metrics.TotalBatches++
		r.Metrics.TotalRows += batch.ProcessedRows
		r.Metrics.ValidationSec += batch.ValidationTime.Seconds()

		for _, finding := range batch.Errors {
			r.Entries = append(r.Entries, toEntry(finding))
			r.count(finding)
		}
	}

	r.Summary = summarize(r.Metrics)
	return r
}

func toEntry(e model.ValidationError) Entry {
	return Entry{
		Identifier:   e.Identifier,
		FieldID:      e.FieldID,
		ColumnName:   e.ColumnName,
		ErrorCode:    e.Code,
		Message:      e.Message,
		Level:        LevelFor(e.Severity),
		Expected:     e.Expected,
		Actual:       e.Actual,
		MetadataPath: e.MetadataPath,
		Details:      e.Details,
	}
}

func (r *Report) count(e model.ValidationError) {
	r.Metrics.SeverityCounts[string(e.Severity)]++
	r.Metrics.ErrorCounts[e.Code]++
	if e.Identifier != "" {
		r.Metrics.IdentifierCounts[e.Identifier]++
	}

	switch e.Severity {
	case model.SeverityFatal, model.SeverityError:
		r.Metrics.TotalErrors++
	case model.SeverityWarning:
		r.Metrics.TotalWarnings++
	}
}

func summarize(m Metrics) string {
	if m.TotalErrors == 0 && m.TotalWarnings == 0 {
		return "✅ Validation completed without errors or warnings."
	}

	var parts []string
	if m.TotalErrors > 0 {
		parts = append(parts, fmt.Sprintf("❌ %d errors", m.TotalErrors))
	}
	if m.TotalWarnings > 0 {
		parts = append(parts, fmt.Sprintf("⚠️ %d warnings", m.TotalWarnings))
	}
	summary := fmt.Sprintf("Validation completed with %s.", strings.Join(parts, " and "))

	if top := topErrorCodes(m.ErrorCounts, 3); len(top) > 0 {
		summary += fmt.Sprintf(" Most frequent: %s.", strings.Join(top, ", "))
	}
	return summary
}

// topErrorCodes returns the n most frequent codes, ties broken by
// code so the summary is stable.
func topErrorCodes(counts map[string]int, n int) []string {
	type codeCount struct {
		code  string
		count int
	}
	ranked := make([]codeCount, 0, len(counts))
	for code, count := range counts {
		ranked = append(ranked, codeCount{code, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].code < ranked[j].code
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]string, len(ranked))
	for i, cc := range ranked {
		out[i] = fmt.Sprintf("%s (%d)", cc.code, cc.count)
	}
	return out
}
