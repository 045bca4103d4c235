package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-scraper/internal/model"
)

// Format is a file export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat resolves a format name, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Header returns the column names for fields.
func Header(fields []model.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

// Write serializes records to w in the given format. Columns follow the
// order of fields.
func Write(w io.Writer, format Format, fields []model.Field, records []model.Record) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, fields, records)
	case FormatJSON:
		return WriteJSON(w, fields, records)
	case FormatXLSX:
		return WriteXLSX(w, fields, records)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// WriteCSV writes a header row followed by one row per record.
func WriteCSV(w io.Writer, fields []model.Field, records []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(fields)); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, rec := range records {
		if err := cw.Write(rec.Values(fields)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

// WriteJSON writes an indented array of objects holding only the given fields.
func WriteJSON(w io.Writer, fields []model.Field, records []model.Record) error {
	out := make([]map[string]string, len(records))
	for i, rec := range records {
		obj := make(map[string]string, len(fields))
		for _, f := range fields {
			obj[string(f)] = rec[f]
		}
		out[i] = obj
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}

// WriteXLSX writes a single "Leads" worksheet with a header row.
func WriteXLSX(w io.Writer, fields []model.Field, records []model.Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(DefaultSheetName)
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}
	addRow(sheet, Header(fields))
	for _, rec := range records {
		addRow(sheet, rec.Values(fields))
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
