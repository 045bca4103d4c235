package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scraper/internal/export"
	"github.com/sells-group/lead-scraper/internal/model"
	"github.com/sells-group/lead-scraper/internal/normalize"
	"github.com/sells-group/lead-scraper/internal/task"
)

// specRequest is a scrape request body that converts to a job.
type specRequest interface {
	Spec() (model.JobSpec, error)
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{
		"message": "Lead Scraper API is running",
		"version": Version,
	}, http.StatusOK)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "healthy",
		"timestamp": s.deps.Now().UTC().Format(time.RFC3339),
		"version":   Version,
		"services": map[string]string{
			"apify":         readiness(s.deps.BackendToken),
			"google_sheets": readiness(s.deps.SheetsConfigured),
			"notion":        readiness(s.deps.NotionToken != ""),
		},
	}, http.StatusOK)
}

func readiness(ok bool) string {
	if ok {
		return "ready"
	}
	return "not_configured"
}

// decode reads and validates a JSON body. It writes the error response and
// returns false when the request is rejected.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeJSON(w, ErrorResponse{Detail: "validation failed", Errors: fieldErrors(err)}, http.StatusUnprocessableEntity)
		return false
	}
	return true
}

func (s *Server) scrapeContacts(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if s.decode(w, r, &req) {
		s.submit(w, r, req, req.ApifyToken)
	}
}

func (s *Server) scrapePlaces(w http.ResponseWriter, r *http.Request) {
	var req PlacesScrapeRequest
	if s.decode(w, r, &req) {
		s.submit(w, r, req, req.ApifyToken)
	}
}

func (s *Server) scrapeCombined(w http.ResponseWriter, r *http.Request) {
	var req CombinedScrapeRequest
	if s.decode(w, r, &req) {
		s.submit(w, r, req, req.ApifyToken)
	}
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, req specRequest, token string) {
	if strings.TrimSpace(token) == "" && !s.deps.BackendToken {
		writeJSON(w, ErrorResponse{
			Detail: "validation failed",
			Errors: []FieldError{{Field: "apify_token", Reason: "is required"}},
		}, http.StatusUnprocessableEntity)
		return
	}
	spec, err := req.Spec()
	if err != nil {
		writeJSON(w, ErrorResponse{Detail: "validation failed", Errors: []FieldError{{Field: "fields", Reason: err.Error()}}}, http.StatusUnprocessableEntity)
		return
	}

	t, err := s.deps.Tasks.Submit(r.Context(), spec)
	if err != nil {
		var verr *task.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, ErrorResponse{Detail: verr.Error(), Errors: []FieldError{{Field: verr.Field, Reason: verr.Reason}}}, http.StatusUnprocessableEntity)
		case errors.Is(err, task.ErrClosed):
			writeError(w, "server is shutting down", http.StatusServiceUnavailable)
		default:
			zap.L().Error("api: submit failed", zap.Error(err))
			writeError(w, fmt.Sprintf("Failed to start scraping: %v", err), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, ScrapeResponse{TaskID: t.ID, Status: "started", Message: t.Message}, http.StatusAccepted)
}

func (s *Server) taskStatus(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Tasks.Status(chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, "Task not found", http.StatusNotFound)
		return
	}
	writeJSON(w, t, http.StatusOK)
}

func (s *Server) exportFile(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, "Unsupported export format", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "taskID")
	t, err := s.deps.Tasks.Status(id)
	if err != nil {
		writeError(w, "Task not found", http.StatusNotFound)
		return
	}
	if len(t.Records) == 0 {
		writeError(w, "No data available for export", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, t.Fields, t.Records); err != nil {
		zap.L().Error("api: file export failed", zap.String("task_id", id), zap.Error(err))
		writeError(w, fmt.Sprintf("%s export failed: %v", strings.ToUpper(string(format)), err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leads_%s.%s", id, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// records resolves the rows of an export request: a finished task's records
// when taskID is set, inline data otherwise.
func (s *Server) records(w http.ResponseWriter, taskID string, data []map[string]any) ([]model.Field, []model.Record, bool) {
	if taskID != "" {
		t, err := s.deps.Tasks.Status(taskID)
		if err != nil {
			writeError(w, "Task not found", http.StatusNotFound)
			return nil, nil, false
		}
		if len(t.Records) == 0 {
			writeError(w, "No data available for export", http.StatusBadRequest)
			return nil, nil, false
		}
		return t.Fields, t.Records, true
	}
	if len(data) == 0 {
		writeJSON(w, ErrorResponse{
			Detail: "validation failed",
			Errors: []FieldError{{Field: "data", Reason: "data or task_id is required"}},
		}, http.StatusUnprocessableEntity)
		return nil, nil, false
	}
	fields, recs := inlineRecords(data)
	return fields, recs, true
}

func (s *Server) exportSheets(w http.ResponseWriter, r *http.Request) {
	var req SheetsExportRequest
	if !s.decode(w, r, &req) {
		return
	}
	fields, records, ok := s.records(w, req.TaskID, req.Data)
	if !ok {
		return
	}
	if len(req.Fields) > 0 {
		fields = make([]model.Field, len(req.Fields))
		for i, name := range req.Fields {
			fields[i] = model.Field(name)
		}
	}

	creds := bytes.TrimSpace(req.GoogleCredentials)
	if bytes.Equal(creds, []byte("null")) {
		creds = nil
	}
	if len(creds) == 0 && !s.deps.SheetsConfigured {
		writeJSON(w, ErrorResponse{
			Detail: "validation failed",
			Errors: []FieldError{{Field: "google_credentials", Reason: "is required"}},
		}, http.StatusUnprocessableEntity)
		return
	}
	if s.deps.NewSheets == nil {
		writeError(w, "Google Sheets export is not available", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.deps.ExportTimeout)
	defer cancel()

	zap.L().Info("api: exporting to sheets",
		zap.String("spreadsheet_id", req.SpreadsheetID),
		zap.String("sheet", req.SheetName),
		zap.Int("records", len(records)),
	)
	client, err := s.deps.NewSheets(ctx, creds)
	if err != nil {
		writeError(w, fmt.Sprintf("Export failed: %v", err), http.StatusInternalServerError)
		return
	}
	sum, err := export.NewSheets(client).Export(ctx, req.SpreadsheetID, req.SheetName, fields, records)
	if err != nil {
		zap.L().Error("api: sheets export failed", zap.Error(err))
		writeError(w, fmt.Sprintf("Export failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, sum, http.StatusOK)
}

func (s *Server) exportNotion(w http.ResponseWriter, r *http.Request) {
	var req NotionExportRequest
	if !s.decode(w, r, &req) {
		return
	}
	_, records, ok := s.records(w, req.TaskID, req.Data)
	if !ok {
		return
	}

	token := strings.TrimSpace(req.NotionToken)
	if token == "" {
		token = s.deps.NotionToken
	}
	if token == "" {
		writeJSON(w, ErrorResponse{
			Detail: "validation failed",
			Errors: []FieldError{{Field: "notion_token", Reason: "is required"}},
		}, http.StatusUnprocessableEntity)
		return
	}
	if s.deps.NewNotion == nil {
		writeError(w, "Notion export is not available", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.deps.ExportTimeout)
	defer cancel()

	zap.L().Info("api: exporting to notion",
		zap.String("database_id", req.DatabaseID),
		zap.Int("entries", len(records)),
	)
	exp := export.NewNotion(s.deps.NewNotion(token), s.deps.NotionDatabaseID)
	sum, err := exp.Export(ctx, req.DatabaseID, records)
	if err != nil {
		if errors.Is(err, export.ErrNoDatabase) {
			writeJSON(w, sum, http.StatusUnprocessableEntity)
			return
		}
		zap.L().Error("api: notion export failed", zap.Error(err))
		writeError(w, fmt.Sprintf("Export failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, sum, http.StatusOK)
}

func (s *Server) notionDatabaseInfo(w http.ResponseWriter, r *http.Request) {
	if s.deps.NotionToken == "" || s.deps.NewNotion == nil {
		writeError(w, "Notion is not configured", http.StatusServiceUnavailable)
		return
	}
	exp := export.NewNotion(s.deps.NewNotion(s.deps.NotionToken), s.deps.NotionDatabaseID)
	info, err := exp.DatabaseInfo(r.Context(), r.URL.Query().Get("database_id"))
	if err != nil {
		if errors.Is(err, export.ErrNoDatabase) {
			writeError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		zap.L().Error("api: notion database info failed", zap.Error(err))
		writeError(w, fmt.Sprintf("Failed to get database info: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, info, http.StatusOK)
}

func (s *Server) fields(w http.ResponseWriter, _ *http.Request) {
	all := model.AllFields()
	infos := make([]FieldInfo, len(all))
	for i, f := range all {
		infos[i] = FieldInfo{Name: string(f), Category: normalize.CategoryOf(f).String()}
	}
	writeJSON(w, map[string]any{
		"fields": infos,
		"defaults": map[string][]model.Field{
			string(model.JobKindContacts): model.DefaultContactFields,
			string(model.JobKindPlaces):   model.DefaultPlacesFields,
			string(model.JobKindCombined): model.DefaultContactFields,
		},
	}, http.StatusOK)
}
