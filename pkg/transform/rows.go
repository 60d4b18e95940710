package transform

import (
	"fmt"

	"github.com/vstructure/vstructure/internal/model"
	"github.com/vstructure/vstructure/pkg/csvio"
)

// TransformRow projects one data row onto the entity structure.
// Cells that cannot be resolved to an entity field are recorded as
// findings on the row; the remaining cells still go through.
func (c *Context) TransformRow(row csvio.Row) TransformedRow {
	out := TransformedRow{
		RowIndex:    row.Index,
		CSVRowIndex: row.CSVIndex,
		ByEntity:    make(map[string]map[string]string, len(c.Entities)),
		RawValues:   append([]string(nil), row.Values...),
	}

	for entityID := range c.Entities {
		out.ByEntity[entityID] = make(map[string]string)
	}

	for colIdx, value := range row.Values {
		entityID, ok := c.ColumnToEntity[colIdx]
		if !ok {
			out.Errors = append(out.Errors, rowTransformError(row, colIdx, "column not mapped to an entity"))
			continue
		}
		e := c.Entities[entityID]
		col, ok := e.ColumnIndexes[colIdx]
		if !ok {
			out.Errors = append(out.Errors, rowTransformError(row, colIdx,
				fmt.Sprintf("column missing from entity %q", entityID)))
			continue
		}
		out.ByEntity[entityID][col.FieldID] = value
	}

	return out
}

// TransformBatch projects every row of a batch.
func (c *Context) TransformBatch(batch *csvio.Batch) []TransformedRow {
	rows := make([]TransformedRow, 0, len(batch.Rows))
	for _, row := range batch.Rows {
		rows = append(rows, c.TransformRow(row))
	}
	return rows
}

func rowTransformError(row csvio.Row, colIdx int, detail string) model.ValidationError {
	return model.ValidationError{
		Code:        "ROW_TRANSFORMATION_ERROR",
		Severity:    model.SeverityError,
		Message:     fmt.Sprintf("row %d, column %d: %s", row.Index, colIdx, detail),
		Scope:       model.ScopeRow,
		RowIndex:    row.Index,
		CSVRowIndex: row.CSVIndex,
		ColumnName:  fmt.Sprintf("col_%d", colIdx),
	}
}
