package csvio

import (
	"bytes"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/vstructure/vstructure/internal/model"
)

// Canonical encoding names, tried in order when detection is inconclusive.
const (
	EncUTF8Sig = "utf-8-sig"
	EncUTF8    = "utf-8"
	EncLatin1  = "latin-1"
	EncCP1252  = "cp1252"
	EncISO8859 = "iso-8859-1"
)

var encodingPriority = []string{EncUTF8Sig, EncUTF8, EncLatin1, EncCP1252, EncISO8859}

// sampleSize is how many bytes are read for charset detection.
const sampleSize = 10 * 1024

// minDetectionConfidence is the chardet confidence (0-100) below which
// the detector result is ignored in favor of the priority list.
const minDetectionConfidence = 70

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// EncodingResolver determines the character encoding of a CSV file.
type EncodingResolver struct {
	SampleSize int
}

// NewEncodingResolver returns a resolver with the default sample size.
func NewEncodingResolver() *EncodingResolver {
	return &EncodingResolver{SampleSize: sampleSize}
}

// Resolve detects the encoding of the file at path. It returns the
// canonical encoding name and any non-fatal findings (for example when
// the file only decodes with replacement characters). Fatal conditions
// (empty file, undecodable content) are returned as FATAL findings.
func (r *EncodingResolver) Resolve(path string) (string, []model.ValidationError, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	sample := make([]byte, r.SampleSize)
	n, err := io.ReadFull(f, sample)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, err
	}
	sample = sample[:n]

	if len(sample) == 0 {
		return "", []model.ValidationError{{
			Code:     "EMPTY_FILE",
			Severity: model.SeverityFatal,
			Message:  "input file is empty: " + path,
			Scope:    model.ScopeGlobal,
		}}, nil
	}

	// A UTF-8 BOM settles the question immediately.
	if bytes.HasPrefix(sample, utf8BOM) {
		return EncUTF8Sig, nil, nil
	}

	// Valid UTF-8 (ASCII included) needs no statistical guess.
	if utf8.Valid(sample) {
		return EncUTF8, nil, nil
	}

	// Ask the statistical detector.
	if res, derr := chardet.NewTextDetector().DetectBest(sample); derr == nil {
		if name, ok := normalizeCharset(res.Charset); ok && res.Confidence > minDetectionConfidence {
			if decodesStrictly(sample, name) {
				return name, nil, nil
			}
		}
	}

	// Fall back to the priority list with strict decoding.
	for _, name := range encodingPriority {
		if decodesStrictly(sample, name) {
			return name, nil, nil
		}
	}

	// Last chance: decode as UTF-8 with replacement characters.
	if decodesWithReplacement(sample) {
		return EncUTF8, []model.ValidationError{{
			Code:     "INVALID_CHARACTERS",
			Severity: model.SeverityWarning,
			Message:  "file contains bytes invalid for the detected encoding; they will be replaced",
			Scope:    model.ScopeGlobal,
		}}, nil
	}

	return "", []model.ValidationError{{
		Code:     "ENCODING_DETECTION_FAILED",
		Severity: model.SeverityFatal,
		Message:  "unable to determine a usable encoding for " + path,
		Scope:    model.ScopeGlobal,
	}}, nil
}

// normalizeCharset maps detector charset names to canonical names.
func normalizeCharset(name string) (string, bool) {
	switch strings.ToLower(name) {
	case "utf-8", "ascii", "us-ascii":
		return EncUTF8, true
	case "windows-1252":
		return EncCP1252, true
	case "iso-8859-1":
		return EncLatin1, true
	default:
		return "", false
	}
}

// cp1252 leaves a handful of byte values undefined.
var cp1252Undefined = map[byte]bool{0x81: true, 0x8D: true, 0x8F: true, 0x90: true, 0x9D: true}

// decodesStrictly reports whether data decodes without loss under enc.
func decodesStrictly(data []byte, enc string) bool {
	switch enc {
	case EncUTF8Sig:
		return bytes.HasPrefix(data, utf8BOM) && utf8.Valid(data[len(utf8BOM):])
	case EncUTF8:
		return utf8.Valid(data)
	case EncLatin1, EncISO8859:
		// Every byte value maps to a code point.
		return true
	case EncCP1252:
		for _, b := range data {
			if cp1252Undefined[b] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func decodesWithReplacement(data []byte) bool {
	return len(data) > 0
}

// DecodeReader wraps r so it yields UTF-8 text regardless of the
// source encoding.
func DecodeReader(r io.Reader, enc string) io.Reader {
	switch enc {
	case EncUTF8Sig:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	case EncLatin1, EncISO8859:
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	case EncCP1252:
		return transform.NewReader(r, charmap.Windows1252.NewDecoder())
	default:
		// UTF-8 input needs no transformation; invalid sequences were
		// either rejected upstream or flagged for replacement.
		return transform.NewReader(r, unicode.UTF8.NewDecoder())
	}
}
