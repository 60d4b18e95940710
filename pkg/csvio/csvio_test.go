package csvio

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vstructure/vstructure/internal/model"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestResolveEncoding_UTF8(t *testing.T) {
	path := writeFile(t, "plain.csv", []byte("personInfo_id,personInfo_name\nID,Name\n1,Ana\n"))

	enc, findings, err := NewEncodingResolver().Resolve(path)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("Expected no findings, got %v", findings)
	}
	if enc != EncUTF8 && enc != EncUTF8Sig {
		t.Errorf("Expected utf-8 family, got %s", enc)
	}
}

func TestResolveEncoding_BOM(t *testing.T) {
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a_b,c_d\n")...)
	path := writeFile(t, "bom.csv", content)

	enc, _, err := NewEncodingResolver().Resolve(path)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if enc != EncUTF8Sig {
		t.Errorf("Expected %s, got %s", EncUTF8Sig, enc)
	}
}

func TestResolveEncoding_Latin1(t *testing.T) {
	// 0xE9 is é in latin-1 and invalid as a standalone UTF-8 byte.
	path := writeFile(t, "latin.csv", []byte{'a', '_', 'b', ',', 'c', '_', 'd', '\n', 'J', 0xE9, '\n'})

	enc, _, err := NewEncodingResolver().Resolve(path)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if enc != EncLatin1 && enc != EncCP1252 {
		t.Errorf("Expected a single-byte encoding, got %s", enc)
	}
}

func TestResolveEncoding_EmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", nil)

	_, findings, err := NewEncodingResolver().Resolve(path)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(findings) != 1 || findings[0].Code != "EMPTY_FILE" {
		t.Fatalf("Expected EMPTY_FILE finding, got %v", findings)
	}
	if findings[0].Severity != model.SeverityFatal {
		t.Errorf("EMPTY_FILE must be fatal")
	}
}

func TestDecodeReader_Latin1(t *testing.T) {
	raw := []byte{'J', 0xE9, 'r', 0xF4, 'm', 'e'}
	out, err := io.ReadAll(DecodeReader(strings.NewReader(string(raw)), EncLatin1))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(out) != "Jérôme" {
		t.Errorf("Expected Jérôme, got %q", out)
	}
}

func TestDetectDialect(t *testing.T) {
	tests := []struct {
		name   string
		sample string
		want   rune
	}{
		{"comma", "a_b,c_d,e_f\n1,2,3\n", ','},
		{"semicolon", "a_b;c_d;e_f\n1;2;3\n", ';'},
		{"pipe", "a_b|c_d|e_f\n1|2|3\n", '|'},
		{"tab", "a_b\tc_d\n1\t2\n", '\t'},
		{"quoted delimiters ignored", "a_b,c_d\n\"x;y;z\",2\n", ','},
		{"delimiter-free footer tolerated", "personInfo_id,personInfo_name\nID,Name\nEMP1,Ana\nTOTALS\nEMP2,Luis\n", ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, findings := DetectDialect(tt.sample)
			if len(findings) != 0 {
				t.Fatalf("unexpected findings: %v", findings)
			}
			if d.Delimiter != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, d.Delimiter)
			}
		})
	}
}

func TestDetectDialect_Failure(t *testing.T) {
	_, findings := DetectDialect("justonecolumn\nvalue\n")
	if len(findings) != 1 || findings[0].Code != "CSV_DIALECT_DETECTION_FAILED" {
		t.Fatalf("Expected CSV_DIALECT_DETECTION_FAILED, got %v", findings)
	}
}

func TestDetectStructure(t *testing.T) {
	rows := [][]string{
		{"personInfo_id", "personInfo_name"},
		{"ID", "Name"},
		{"1", "Ana"},
	}
	st, findings := DetectStructure(rows)
	if len(findings) != 0 {
		t.Fatalf("unexpected findings: %v", findings)
	}
	if st.DataStartIndex != 2 {
		t.Errorf("Expected data start 2, got %d", st.DataStartIndex)
	}
	if !st.HasDataRows {
		t.Error("Expected data rows present")
	}
	if len(st.Labels) != 2 {
		t.Errorf("Expected 2 labels, got %d", len(st.Labels))
	}
}

func TestDetectStructure_HeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		code string
	}{
		{"empty name", [][]string{{"a_b", ""}}, "EMPTY_COLUMN_NAME"},
		{"duplicate", [][]string{{"a_b", "a_b"}}, "DUPLICATED_COLUMN"},
		{"no underscore", [][]string{{"a_b", "plain"}}, "INVALID_COLUMN_IDENTIFIER"},
		{"no rows at all", nil, "MISSING_HEADER_ROW"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, findings := DetectStructure(tt.rows)
			found := false
			for _, f := range findings {
				if f.Code == tt.code {
					found = true
					if f.Severity != model.SeverityFatal {
						t.Errorf("%s must be fatal", tt.code)
					}
				}
			}
			if !found {
				t.Errorf("Expected %s in %v", tt.code, findings)
			}
		})
	}
}

func TestDetectStructure_NoDataRows(t *testing.T) {
	_, findings := DetectStructure([][]string{{"a_b"}, {"Label"}})
	if len(findings) != 1 || findings[0].Code != "NO_DATA_ROWS" {
		t.Fatalf("Expected NO_DATA_ROWS, got %v", findings)
	}
	if findings[0].Severity != model.SeverityWarning {
		t.Error("NO_DATA_ROWS must be a warning")
	}
}

func TestBatchReader_PreservesIndexOfExcludedRows(t *testing.T) {
	csvData := strings.Join([]string{
		"a_b,c_d",
		"Label A,Label B",
		"1,one",
		"2,two,EXTRA",
		"3,three",
	}, "\n") + "\n"

	br := NewBatchReader(strings.NewReader(csvData), nil, Dialect{Delimiter: ',', Quote: '"'}, 2, 100)
	defer br.Close()

	batch, err := br.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	if len(batch.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(batch.Rows))
	}
	if batch.Rows[0].Index != 0 || batch.Rows[1].Index != 2 {
		t.Errorf("Excluded row must keep its slot: got indices %d and %d",
			batch.Rows[0].Index, batch.Rows[1].Index)
	}
	if batch.Rows[1].CSVIndex != 4 {
		t.Errorf("Expected CSV index 4 for third data row, got %d", batch.Rows[1].CSVIndex)
	}

	if len(batch.Errors) != 1 {
		t.Fatalf("Expected 1 excluded-row finding, got %d", len(batch.Errors))
	}
	if batch.Errors[0].Code != "ROW_COLUMN_COUNT_MISMATCH" || batch.Errors[0].RowIndex != 1 {
		t.Errorf("Unexpected finding: %+v", batch.Errors[0])
	}

	if _, err := br.Next(context.Background()); err != io.EOF {
		t.Errorf("Expected EOF, got %v", err)
	}
}

func TestBatchReader_Batching(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("a_b,c_d\nLabel,Label\n")
	for i := 0; i < 25; i++ {
		sb.WriteString("x,y\n")
	}

	br := NewBatchReader(strings.NewReader(sb.String()), nil, Dialect{Delimiter: ','}, 2, 10)
	defer br.Close()

	var sizes []int
	for {
		batch, err := br.Next(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		sizes = append(sizes, len(batch.Rows))
	}

	if len(sizes) != 3 || sizes[0] != 10 || sizes[1] != 10 || sizes[2] != 5 {
		t.Errorf("Expected batches [10 10 5], got %v", sizes)
	}
	if br.RowsRead() != 25 {
		t.Errorf("Expected 25 rows read, got %d", br.RowsRead())
	}
}

func TestLoader_Load(t *testing.T) {
	content := "personInfo_person-id-external;personInfo_first-name\nID;First Name\nEMP001;Ana\n"
	path := writeFile(t, "golden.csv", []byte(content))

	fc, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if fc.Fatal() {
		t.Fatalf("Unexpected fatal findings: %v", fc.Errors)
	}
	if fc.Dialect.Delimiter != ';' {
		t.Errorf("Expected semicolon delimiter, got %q", fc.Dialect.Delimiter)
	}
	if fc.TotalColumns != 2 {
		t.Errorf("Expected 2 columns, got %d", fc.TotalColumns)
	}
	if fc.Headers[0] != "personInfo_person-id-external" {
		t.Errorf("Unexpected header: %v", fc.Headers)
	}
}

func TestLoader_LoadMissingFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "absent.csv"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}
