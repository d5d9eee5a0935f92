// Package export writes a listing of records as JSON or as an Excel
// workbook.
package export

import (
	"encoding/json"
	"io"
	"strings"

	"railctl/internal/console"
	"railctl/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Format is an output format.
type Format string

const (
	JSON Format = "json"
	XLSX Format = "xlsx"
)

// Formats lists the supported formats.
var Formats = []Format{JSON, XLSX}

// ParseFormat accepts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.NewValidationError("format", "unknown export format "+s+" (json, xlsx)", nil)
}

// Table is a listing laid out as columns and display-formatted rows.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
	Records []any
}

// FromRecords lays records out using their JSON field names as columns.
func FromRecords(name string, records []any) Table {
	t := Table{Name: name, Records: records}
	for _, rec := range records {
		fields := console.RecordFields(rec)
		if t.Columns == nil {
			for _, f := range fields {
				t.Columns = append(t.Columns, f.Name)
			}
		}
		row := make([]string, len(fields))
		for i, f := range fields {
			row[i] = f.Value
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Write renders t in format f.
func Write(w io.Writer, f Format, t Table) error {
	switch f {
	case JSON:
		return writeJSON(w, t)
	case XLSX:
		return writeXLSX(w, t)
	}
	return errors.NewValidationError("format", "unknown export format "+string(f), nil)
}

func writeJSON(w io.Writer, t Table) error {
	records := t.Records
	if records == nil {
		records = []any{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return errors.Wrap(err, "encode json export")
	}
	return nil
}

// sheetName trims name to what Excel accepts.
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "export"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

func writeXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Name)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(err, "name sheet")
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrap(err, "write header")
	}
	if len(t.Columns) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return errors.Wrap(err, "header style")
		}
		last, err := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err != nil {
			return errors.Wrap(err, "header range")
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return errors.Wrap(err, "style header")
		}
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "row address")
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return errors.Wrapf(err, "write row %d", i+1)
		}
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}
