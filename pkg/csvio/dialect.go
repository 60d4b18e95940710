package csvio

import (
	"strings"

	"github.com/vstructure/vstructure/internal/model"
)

// Dialect describes how a CSV file is delimited and quoted.
type Dialect struct {
	Delimiter rune
	Quote     rune
}

var candidateDelimiters = []rune{',', ';', '|', '\t'}

// maxDialectLines bounds how many sample lines are scored.
const maxDialectLines = 50

// DetectDialect inspects a decoded sample of the file and picks the
// delimiter with the highest total count outside quoted regions.
// Blank lines and comment lines are ignored.
func DetectDialect(sample string) (Dialect, []model.ValidationError) {
	quote := detectQuote(sample)

	lines := usableLines(sample)
	if len(lines) == 0 {
		return Dialect{}, []model.ValidationError{{
			Code:     "CSV_DIALECT_DETECTION_FAILED",
			Severity: model.SeverityFatal,
			Message:  "no usable lines found while detecting the CSV dialect",
			Scope:    model.ScopeGlobal,
		}}
	}

	best := rune(0)
	bestScore := 0
	for _, delim := range candidateDelimiters {
		score := scoreDelimiter(lines, delim, quote)
		if score > bestScore {
			best = delim
			bestScore = score
		}
	}

	// Only when no candidate appears anywhere does detection fail.
	if bestScore == 0 {
		return Dialect{}, []model.ValidationError{{
			Code:     "CSV_DIALECT_DETECTION_FAILED",
			Severity: model.SeverityFatal,
			Message:  "no candidate delimiter appears in the file sample",
			Scope:    model.ScopeGlobal,
		}}
	}

	return Dialect{Delimiter: best, Quote: quote}, nil
}

func usableLines(sample string) []string {
	var lines []string
	for _, line := range strings.Split(sample, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
		if len(lines) == maxDialectLines {
			break
		}
	}
	return lines
}

// scoreDelimiter sums occurrences of delim outside quoted regions
// across all sample lines. Lines without the delimiter contribute
// nothing; they surface later as row column count mismatches.
func scoreDelimiter(lines []string, delim, quote rune) int {
	total := 0
	for _, line := range lines {
		total += countOutsideQuotes(line, delim, quote)
	}
	return total
}

func countOutsideQuotes(line string, delim, quote rune) int {
	count := 0
	inQuotes := false
	for _, r := range line {
		switch {
		case r == quote:
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			count++
		}
	}
	return count
}

// detectQuote picks the quote character. Double quote wins unless the
// sample only ever uses single quotes.
func detectQuote(sample string) rune {
	if !strings.ContainsRune(sample, '"') && strings.ContainsRune(sample, '\'') {
		return '\''
	}
	return '"'
}
