package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vstructure/vstructure/internal/model"
	"github.com/vstructure/vstructure/pkg/config"
	"github.com/vstructure/vstructure/pkg/metadata"
)

const testDocument = `{
  "instance_id": "acme",
  "version": "v1",
  "root": {
    "tag": "hris-elements",
    "node_type": "element",
    "children": [
      {
        "tag": "hris-element",
        "technical_id": "personInfo",
        "node_type": "element",
        "children": [
          {
            "tag": "hris-field",
            "technical_id": "person-id-external",
            "node_type": "field",
            "attributes": {"required": "true"}
          },
          {
            "tag": "hris-field",
            "technical_id": "date-of-birth",
            "node_type": "field",
            "attributes": {"type": "date"}
          }
        ]
      }
    ]
  }
}`

func writeMetadata(t *testing.T, root string) {
	t.Helper()
	dir := filepath.Join(root, "acme", "v1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "document.json"), []byte(testDocument), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func writeCSV(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "golden_record.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func testRunner(t *testing.T, workers int) (*Runner, string) {
	t.Helper()
	metaRoot := t.TempDir()
	writeMetadata(t, metaRoot)

	outDir := t.TempDir()
	cfg := config.Default()
	cfg.Validation.Workers = workers
	cfg.Report.OutputDir = outDir
	cfg.Report.Formats = []string{"json", "csv"}

	return NewRunner(cfg, metadata.NewFSStore(metaRoot)), outDir
}

func TestRunner_Execute(t *testing.T) {
	runner, outDir := testRunner(t, 0)

	csvPath := writeCSV(t, t.TempDir(),
		"personInfo_person-id-external,personInfo_date-of-birth\n"+
			"Employee ID,Date of Birth\n"+
			"EMP001,1990-05-17\n"+
			"EMP002,not-a-date\n"+
			",1991-01-01\n")

	result, err := runner.Execute(context.Background(), Request{
		InstanceID: "acme",
		Version:    "v1",
		CSVPath:    csvPath,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !result.Success {
		t.Errorf("run should succeed despite data errors, got errors %v", result.Errors)
	}
	if result.ExecutionID == "" {
		t.Error("execution id missing")
	}
	if result.Report == nil {
		t.Fatal("report missing")
	}
	if result.Report.Metrics.TotalRows != 3 {
		t.Errorf("expected 3 rows, got %d", result.Report.Metrics.TotalRows)
	}
	if result.Report.Metrics.ErrorCounts["INVALID_DATA_TYPE"] != 1 {
		t.Error("invalid date not reported")
	}
	if result.Report.Metrics.ErrorCounts["REQUIRED_VALUE_MISSING"] != 1 {
		t.Error("empty required value not reported")
	}

	for _, format := range []string{"json", "csv"} {
		path := result.ReportFiles[format]
		if strings.HasPrefix(path, "ERROR:") {
			t.Fatalf("%s export failed: %s", format, path)
		}
		if !strings.HasPrefix(path, outDir) {
			t.Errorf("%s report outside output dir: %s", format, path)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s report not written: %v", format, err)
		}
	}
}

func TestRunner_ReportFatalDoesNotFailRun(t *testing.T) {
	const doc = `{
	  "instance_id": "acme",
	  "version": "v1",
	  "root": {
	    "tag": "hris-elements",
	    "node_type": "element",
	    "children": [
	      {
	        "tag": "hris-element",
	        "technical_id": "personInfo",
	        "node_type": "element",
	        "children": [
	          {
	            "tag": "hris-field",
	            "technical_id": "person-id-external",
	            "node_type": "field",
	            "attributes": {"required": "true", "pattern": "("}
	          }
	        ]
	      }
	    ]
	  }
	}`

	metaRoot := t.TempDir()
	dir := filepath.Join(metaRoot, "acme", "v1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "document.json"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg := config.Default()
	cfg.Report.OutputDir = t.TempDir()
	cfg.Report.Formats = []string{"json"}
	cfg.Validation.Rules = []string{"required_columns", "not_null", "data_type", "max_length", "pattern"}
	runner := NewRunner(cfg, metadata.NewFSStore(metaRoot))

	csvPath := writeCSV(t, t.TempDir(),
		"personInfo_person-id-external,personInfo_name\nEmployee ID,Name\nEMP001,Ana\n")

	result, err := runner.Execute(context.Background(), Request{
		InstanceID: "acme",
		Version:    "v1",
		CSVPath:    csvPath,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected run-level errors: %v", result.Errors)
	}
	if result.Report.Metrics.SeverityCounts[string(model.SeverityFatal)] == 0 {
		t.Fatal("malformed pattern should record a fatal finding in the report")
	}
	if !result.Success {
		t.Error("a run that produced a report must succeed despite fatal findings in it")
	}
}

func TestRunner_MissingCSV(t *testing.T) {
	runner, _ := testRunner(t, 0)

	result, err := runner.Execute(context.Background(), Request{
		InstanceID: "acme",
		Version:    "v1",
		CSVPath:    "/no/such/file.csv",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Success {
		t.Error("missing file should fail the run")
	}
	if len(result.Errors) == 0 || result.Errors[0].Severity != model.SeverityFatal {
		t.Errorf("expected a fatal run error, got %v", result.Errors)
	}
}

func TestRunner_MissingMetadata(t *testing.T) {
	runner, _ := testRunner(t, 0)

	csvPath := writeCSV(t, t.TempDir(),
		"personInfo_person-id-external,personInfo_date-of-birth\nEmployee ID,Date of Birth\nEMP001,1990-01-02\n")

	result, err := runner.Execute(context.Background(), Request{
		InstanceID: "nobody",
		Version:    "v1",
		CSVPath:    csvPath,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Success {
		t.Error("missing metadata should fail the run")
	}

	found := false
	for _, e := range result.Errors {
		if e.Code == "METADATA_ADAPTATION_FAILED" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected METADATA_ADAPTATION_FAILED, got %v", result.Errors)
	}
}

func TestRunner_LatestVersion(t *testing.T) {
	runner, _ := testRunner(t, 0)

	csvPath := writeCSV(t, t.TempDir(),
		"personInfo_person-id-external,personInfo_date-of-birth\nEmployee ID,Date of Birth\nEMP001,1990-01-02\n")

	result, err := runner.Execute(context.Background(), Request{
		InstanceID: "acme",
		CSVPath:    csvPath,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Version != "v1" {
		t.Errorf("latest version not resolved, got %q", result.Version)
	}
}

func TestRunner_ParallelMatchesSequential(t *testing.T) {
	var body strings.Builder
	body.WriteString("personInfo_person-id-external,personInfo_date-of-birth\n")
	body.WriteString("Employee ID,Date of Birth\n")
	for i := 0; i < 95; i++ {
		date := "1990-01-02"
		if i%10 == 0 {
			date = "bad-date"
		}
		fmt.Fprintf(&body, "EMP%03d,%s\n", i, date)
	}
	csvDir := t.TempDir()

	run := func(workers int) *Result {
		runner, _ := testRunner(t, workers)
		runner.cfg.Validation.BatchSize = 10
		csvPath := writeCSV(t, csvDir, body.String())
		result, err := runner.Execute(context.Background(), Request{
			InstanceID: "acme",
			Version:    "v1",
			CSVPath:    csvPath,
		})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		return result
	}

	sequential := run(0)
	parallel := run(4)

	if sequential.Report.Metrics.TotalRows != 95 || parallel.Report.Metrics.TotalRows != 95 {
		t.Errorf("row totals differ: %d vs %d",
			sequential.Report.Metrics.TotalRows, parallel.Report.Metrics.TotalRows)
	}
	if sequential.Report.Metrics.TotalBatches != 10 || parallel.Report.Metrics.TotalBatches != 10 {
		t.Errorf("batch totals differ: %d vs %d",
			sequential.Report.Metrics.TotalBatches, parallel.Report.Metrics.TotalBatches)
	}
	if sequential.Report.Metrics.ErrorCounts["INVALID_DATA_TYPE"] !=
		parallel.Report.Metrics.ErrorCounts["INVALID_DATA_TYPE"] {
		t.Error("parallel run found a different error count")
	}
}

func TestRunner_Progress(t *testing.T) {
	runner, _ := testRunner(t, 0)
	runner.cfg.Validation.BatchSize = 2

	var last Progress
	runner.OnProgress = func(p Progress) { last = p }

	csvPath := writeCSV(t, t.TempDir(),
		"personInfo_person-id-external,personInfo_date-of-birth\n"+
			"Employee ID,Date of Birth\n"+
			"EMP001,1990-01-02\nEMP002,1990-01-03\nEMP003,1990-01-04\n")

	if _, err := runner.Execute(context.Background(), Request{
		InstanceID: "acme",
		Version:    "v1",
		CSVPath:    csvPath,
	}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if last.Rows != 3 || last.Batches != 2 {
		t.Errorf("unexpected final progress %+v", last)
	}
}
