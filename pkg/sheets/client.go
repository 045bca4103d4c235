// Package sheets wraps the Google Sheets values API.
package sheets

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Client defines the spreadsheet operations used by this application.
type Client interface {
	// Values returns the cells of rangeA1, or nil when the range is empty.
	Values(ctx context.Context, spreadsheetID, rangeA1 string) ([][]any, error)
	// Append adds rows after the last row of the table in rangeA1 and reports
	// how many rows were written.
	Append(ctx context.Context, spreadsheetID, rangeA1 string, rows [][]any) (int, error)
}

type apiClient struct {
	svc *gsheets.Service
}

// NewClient creates a Sheets client. Callers pass credentials through opts,
// for example option.WithCredentialsFile.
func NewClient(ctx context.Context, opts ...option.ClientOption) (Client, error) {
	opts = append([]option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}, opts...)
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create service")
	}
	return &apiClient{svc: svc}, nil
}

func (c *apiClient) Values(ctx context.Context, spreadsheetID, rangeA1 string) ([][]any, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rangeA1).Context(ctx).Do()
	if err != nil {
		return nil, eris.Wrapf(err, "sheets: read %s", rangeA1)
	}
	return resp.Values, nil
}

func (c *apiClient) Append(ctx context.Context, spreadsheetID, rangeA1 string, rows [][]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	resp, err := c.svc.Spreadsheets.Values.
		Append(spreadsheetID, rangeA1, &gsheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, eris.Wrapf(err, "sheets: append %s", rangeA1)
	}
	if resp.Updates == nil {
		return len(rows), nil
	}
	return int(resp.Updates.UpdatedRows), nil
}
