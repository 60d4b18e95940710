package transform

import (
	"testing"

	"github.com/vstructure/vstructure/pkg/csvio"
)

func TestParser_Parse(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name       string
		column     string
		entity     string
		field      string
		country    string
		countrySpc bool
	}{
		{"simple", "personInfo_first-name", "personInfo", "first-name", "", false},
		{"multi segment field", "employmentInfo_contract_reason", "employmentInfo", "contract_reason", "", false},
		{"compound entity", "homeAddress_fiscal_street", "homeAddress_fiscal", "street", "", false},
		{"scoped simple", "MEX_jobInfo_position", "jobInfo", "position", "MEX", true},
		{"scoped compound", "MEX_homeAddress_fiscal_street", "homeAddress_fiscal", "street", "MEX", true},
		{"scoped multi field", "USA_jobInfo_pay_grade", "jobInfo", "pay_grade", "USA", true},
		{"lowercase prefix is not country", "mx_jobInfo_position", "mx", "jobInfo_position", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, err := p.Parse(tt.column)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.column, err)
			}
			if col.EntityID != tt.entity {
				t.Errorf("entity: expected %q, got %q", tt.entity, col.EntityID)
			}
			if col.FieldID != tt.field {
				t.Errorf("field: expected %q, got %q", tt.field, col.FieldID)
			}
			if col.CountryCode != tt.country {
				t.Errorf("country: expected %q, got %q", tt.country, col.CountryCode)
			}
			if col.IsCountrySpecific != tt.countrySpc {
				t.Errorf("country specific: expected %v", tt.countrySpc)
			}
		})
	}
}

func TestParser_ParseErrors(t *testing.T) {
	p := NewParser()
	for _, bad := range []string{"", "nounderscore", "a_", "_b"} {
		if _, err := p.Parse(bad); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}

func TestParser_ParseAll_Placeholder(t *testing.T) {
	p := NewParser()
	cols, errs := p.ParseAll([]string{"personInfo_id", "broken"})

	if len(cols) != 2 {
		t.Fatalf("Expected 2 columns to keep indices aligned, got %d", len(cols))
	}
	if cols[1].EntityID != "ERROR_1" {
		t.Errorf("Expected placeholder entity ERROR_1, got %q", cols[1].EntityID)
	}
	if len(errs) != 1 || errs[0].Code != "INVALID_COLUMN_COMPOSITION" {
		t.Errorf("Expected INVALID_COLUMN_COMPOSITION, got %v", errs)
	}
}

func TestParser_UnknownCountryFlagged(t *testing.T) {
	p := NewParser()
	_, errs := p.ParseAll([]string{"ZZ_jobInfo_position"})

	found := false
	for _, e := range errs {
		if e.Code == "UNKNOWN_COUNTRY_CODE" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected UNKNOWN_COUNTRY_CODE warning, got %v", errs)
	}
}

func TestMapEntities(t *testing.T) {
	p := NewParser()
	cols, _ := p.ParseAll([]string{
		"personInfo_id",
		"personInfo_name",
		"jobInfo_position",
	})

	entities, colToEntity := MapEntities(cols)

	if len(entities) != 2 {
		t.Fatalf("Expected 2 entities, got %d", len(entities))
	}
	pi := entities["personInfo"]
	if pi == nil || len(pi.Columns) != 2 {
		t.Fatalf("personInfo should have 2 columns: %+v", pi)
	}
	if colToEntity[2] != "jobInfo" {
		t.Errorf("Column 2 should map to jobInfo, got %q", colToEntity[2])
	}
	if pi.ColumnIndexes[1].FieldID != "name" {
		t.Errorf("Column 1 should be the name field")
	}
}

func TestCheckEntities_DuplicateField(t *testing.T) {
	p := NewParser()
	cols, _ := p.ParseAll([]string{"personInfo_id", "personInfo_id2", "personInfo_id"})
	entities, _ := MapEntities(cols)

	errs := CheckEntities(entities)
	found := false
	for _, e := range errs {
		if e.Code == "DUPLICATE_FIELD_IN_ENTITY" && e.FieldID == "id" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected DUPLICATE_FIELD_IN_ENTITY for id, got %v", errs)
	}
}

func testContext(t *testing.T, headers []string) *Context {
	t.Helper()
	fc := &csvio.FileContext{
		Headers:        headers,
		TotalColumns:   len(headers),
		DataStartIndex: csvio.DataStartIndex,
	}
	return Build(fc, NewParser())
}

func TestTransformRow(t *testing.T) {
	ctx := testContext(t, []string{
		"personInfo_person-id-external",
		"personInfo_first-name",
		"jobInfo_position",
	})

	row := csvio.Row{Index: 5, CSVIndex: 7, Values: []string{"EMP001", "Ana", "Engineer"}}
	out := ctx.TransformRow(row)

	if out.RowIndex != 5 || out.CSVRowIndex != 7 {
		t.Errorf("Row positions lost: %+v", out)
	}
	if out.ByEntity["personInfo"]["first-name"] != "Ana" {
		t.Errorf("Expected Ana, got %q", out.ByEntity["personInfo"]["first-name"])
	}
	if out.ByEntity["jobInfo"]["position"] != "Engineer" {
		t.Errorf("Expected Engineer, got %q", out.ByEntity["jobInfo"]["position"])
	}
	if len(out.RawValues) != 3 || out.RawValues[0] != "EMP001" {
		t.Errorf("Raw values must be preserved: %v", out.RawValues)
	}
	if len(out.Errors) != 0 {
		t.Errorf("Unexpected row findings: %v", out.Errors)
	}
}

func TestTransformRow_UnmappedColumn(t *testing.T) {
	ctx := testContext(t, []string{"personInfo_id"})

	// A row wider than the header still transforms the mapped cells.
	row := csvio.Row{Index: 0, CSVIndex: 2, Values: []string{"EMP001", "stray"}}
	out := ctx.TransformRow(row)

	if out.ByEntity["personInfo"]["id"] != "EMP001" {
		t.Errorf("Mapped cell lost: %v", out.ByEntity)
	}
	if len(out.Errors) != 1 || out.Errors[0].Code != "ROW_TRANSFORMATION_ERROR" {
		t.Errorf("Expected ROW_TRANSFORMATION_ERROR, got %v", out.Errors)
	}
}

func TestColumnName(t *testing.T) {
	ctx := testContext(t, []string{"MEX_jobInfo_position"})
	if got := ctx.ColumnName("jobInfo", "position"); got != "MEX_jobInfo_position" {
		t.Errorf("Expected original name back, got %q", got)
	}
	if got := ctx.ColumnName("jobInfo", "absent"); got != "" {
		t.Errorf("Expected empty for unknown field, got %q", got)
	}
}
