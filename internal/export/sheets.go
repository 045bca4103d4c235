package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scraper/internal/model"
	"github.com/sells-group/lead-scraper/pkg/sheets"
)

// DefaultSheetName is the tab written to when none is given.
const DefaultSheetName = "Leads"

// Sheets appends records to a Google spreadsheet tab.
type Sheets struct {
	client sheets.Client
}

// NewSheets returns a spreadsheet exporter.
func NewSheets(client sheets.Client) *Sheets {
	return &Sheets{client: client}
}

// Export appends records to sheetName, one column per field. A header row is
// written first when the tab has no header yet.
func (s *Sheets) Export(ctx context.Context, spreadsheetID, sheetName string, fields []model.Field, records []model.Record) (Summary, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return Summary{Status: StatusError, Message: "spreadsheet id is required"}, eris.New("export: spreadsheet id is required")
	}
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	tab := quoteSheet(sheetName)

	existing, err := s.client.Values(ctx, spreadsheetID, tab+"!1:1")
	if err != nil {
		return Summary{Status: StatusError, Message: err.Error()}, eris.Wrap(err, "export: read sheet header")
	}

	rows := make([][]any, 0, len(records)+1)
	if len(existing) == 0 {
		rows = append(rows, toCells(Header(fields)))
	}
	for _, rec := range records {
		rows = append(rows, toCells(rec.Values(fields)))
	}

	updated, err := s.client.Append(ctx, spreadsheetID, tab+"!A1", rows)
	if err != nil {
		return Summary{Status: StatusError, Message: err.Error()}, eris.Wrap(err, "export: append rows")
	}

	zap.L().Info("sheets export finished",
		zap.String("spreadsheet_id", spreadsheetID),
		zap.String("sheet", sheetName),
		zap.Int("updated_rows", updated),
	)
	return Summary{
		Status:      StatusSuccess,
		Message:     fmt.Sprintf("Appended %d rows to sheet %s", len(records), sheetName),
		UpdatedRows: updated,
	}, nil
}

// quoteSheet quotes a tab name for use in A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
