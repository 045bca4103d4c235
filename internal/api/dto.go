package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sells-group/lead-scraper/internal/model"
)

// Request defaults.
const (
	defaultLeadCount = 100
	defaultMaxPlaces = 50
)

// ScrapeRequest starts a contacts job.
type ScrapeRequest struct {
	URLs       []string `json:"urls" validate:"omitempty,max=10,dive,http_url"`
	LeadCount  *int     `json:"lead_count" validate:"omitempty,min=1,max=50000"`
	Fields     []string `json:"fields" validate:"omitempty,dive,lead_field"`
	ApifyToken string   `json:"apify_token"`
}

// PlacesScrapeRequest starts a Google Maps job.
type PlacesScrapeRequest struct {
	SearchTerms       []string `json:"search_terms" validate:"omitempty,max=10"`
	Location          string   `json:"location" validate:"max=200"`
	MapsURLs          []string `json:"maps_urls" validate:"omitempty,max=10,dive,maps_url"`
	MaxPlaces         *int     `json:"max_places" validate:"omitempty,min=1,max=1000"`
	MinStars          string   `json:"min_stars" validate:"omitempty,oneof=1 2 3 4 5"`
	EnrichmentRecords int      `json:"enrichment_records" validate:"min=0,max=10"`
	SkipClosed        bool     `json:"skip_closed"`
	Fields            []string `json:"fields" validate:"omitempty,dive,lead_field"`
	ApifyToken        string   `json:"apify_token"`
}

// CombinedScrapeRequest starts a job over both sources.
type CombinedScrapeRequest struct {
	ApolloURLs        []string `json:"apollo_urls" validate:"omitempty,max=10,dive,http_url"`
	SearchTerms       []string `json:"search_terms" validate:"omitempty,max=10"`
	Location          string   `json:"location" validate:"max=200"`
	MapsURLs          []string `json:"maps_urls" validate:"omitempty,max=10,dive,maps_url"`
	MaxPlaces         *int     `json:"max_places" validate:"omitempty,min=1,max=1000"`
	MinStars          string   `json:"min_stars" validate:"omitempty,oneof=1 2 3 4 5"`
	EnrichmentRecords int      `json:"enrichment_records" validate:"min=0,max=10"`
	SkipClosed        bool     `json:"skip_closed"`
	LeadCount         *int     `json:"lead_count" validate:"omitempty,min=1,max=50000"`
	Fields            []string `json:"fields" validate:"omitempty,dive,lead_field"`
	ApifyToken        string   `json:"apify_token"`
}

// ScrapeResponse acknowledges a submitted job.
type ScrapeResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SheetsExportRequest appends records to a spreadsheet. Records come either
// inline in Data or from a finished task.
type SheetsExportRequest struct {
	SpreadsheetID     string           `json:"spreadsheet_id" validate:"required"`
	SheetName         string           `json:"sheet_name" validate:"max=100"`
	TaskID            string           `json:"task_id"`
	Data              []map[string]any `json:"data"`
	Fields            []string         `json:"fields" validate:"omitempty,dive,required"`
	GoogleCredentials json.RawMessage  `json:"google_credentials"`
}

// NotionExportRequest creates Notion pages from records.
type NotionExportRequest struct {
	DatabaseID  string           `json:"database_id"`
	TaskID      string           `json:"task_id"`
	Data        []map[string]any `json:"data"`
	NotionToken string           `json:"notion_token"`
}

// FieldInfo describes one selectable output field.
type FieldInfo struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("lead_field", func(fl validator.FieldLevel) bool {
		_, err := model.ParseField(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("maps_url", func(fl validator.FieldLevel) bool {
		u := strings.ToLower(strings.TrimSpace(fl.Field().String()))
		return (strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")) &&
			strings.Contains(u, "google.com/maps")
	})
	return v
}

// fieldErrors converts validator errors to response entries.
func fieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Reason: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe), Reason: reason(fe)})
	}
	return out
}

// fieldPath strips the struct name from a validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "http_url":
		return "invalid URL format"
	case "maps_url":
		return "invalid Google Maps URL format"
	case "lead_field":
		return fmt.Sprintf("unknown field %q", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func parseFields(names []string, defaults []model.Field) ([]model.Field, error) {
	if len(names) == 0 {
		out := make([]model.Field, len(defaults))
		copy(out, defaults)
		return out, nil
	}
	return model.ParseFields(names)
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// Spec converts the request to a contacts job.
func (r ScrapeRequest) Spec() (model.JobSpec, error) {
	fields, err := parseFields(r.Fields, model.DefaultContactFields)
	if err != nil {
		return model.JobSpec{}, err
	}
	return model.JobSpec{
		Kind:         model.JobKindContacts,
		Contacts:     &model.ContactsQuery{URLs: r.URLs},
		Fields:       fields,
		MaxRecords:   intOr(r.LeadCount, defaultLeadCount),
		BackendToken: r.ApifyToken,
	}, nil
}

// Spec converts the request to a places job. Places jobs are bounded by
// MaxPlaces per search, not by a record count.
func (r PlacesScrapeRequest) Spec() (model.JobSpec, error) {
	fields, err := parseFields(r.Fields, model.DefaultPlacesFields)
	if err != nil {
		return model.JobSpec{}, err
	}
	return model.JobSpec{
		Kind: model.JobKindPlaces,
		Places: &model.PlacesQuery{
			SearchTerms:       r.SearchTerms,
			Location:          r.Location,
			URLs:              r.MapsURLs,
			MaxPlaces:         intOr(r.MaxPlaces, defaultMaxPlaces),
			MinStars:          r.MinStars,
			EnrichmentRecords: r.EnrichmentRecords,
			SkipClosed:        r.SkipClosed,
		},
		Fields:       fields,
		MaxRecords:   model.MaxRecordsLimit,
		BackendToken: r.ApifyToken,
	}, nil
}

// Spec converts the request to a combined job.
func (r CombinedScrapeRequest) Spec() (model.JobSpec, error) {
	fields, err := parseFields(r.Fields, model.DefaultContactFields)
	if err != nil {
		return model.JobSpec{}, err
	}
	return model.JobSpec{
		Kind:     model.JobKindCombined,
		Contacts: &model.ContactsQuery{URLs: r.ApolloURLs},
		Places: &model.PlacesQuery{
			SearchTerms:       r.SearchTerms,
			Location:          r.Location,
			URLs:              r.MapsURLs,
			MaxPlaces:         intOr(r.MaxPlaces, defaultMaxPlaces),
			MinStars:          r.MinStars,
			EnrichmentRecords: r.EnrichmentRecords,
			SkipClosed:        r.SkipClosed,
		},
		Fields:       fields,
		MaxRecords:   intOr(r.LeadCount, defaultLeadCount),
		BackendToken: r.ApifyToken,
	}, nil
}

// inlineRecords converts request data to records and derives the column
// order: known fields in canonical order, then other keys alphabetically.
func inlineRecords(data []map[string]any) ([]model.Field, []model.Record) {
	seen := make(map[model.Field]struct{})
	records := make([]model.Record, 0, len(data))
	for _, item := range data {
		rec := make(model.Record, len(item))
		for k, v := range item {
			f := model.Field(k)
			rec[f] = cellString(v)
			seen[f] = struct{}{}
		}
		records = append(records, rec)
	}

	var fields, extra []model.Field
	for _, f := range model.AllFields() {
		if _, ok := seen[f]; ok {
			fields = append(fields, f)
			delete(seen, f)
		}
	}
	for f := range seen {
		extra = append(extra, f)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	fields = append(fields, extra...)

	// Every record holds every column.
	for _, rec := range records {
		for _, f := range fields {
			if _, ok := rec[f]; !ok {
				rec[f] = ""
			}
		}
	}
	return fields, records
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
