package model

import "strings"

// Source identifies an external scraping backend.
type Source string

const (
	SourceContacts Source = "contacts"
	SourcePlaces   Source = "places"
)

// DisplayName is the human-readable backend name used in task messages.
func (s Source) DisplayName() string {
	switch s {
	case SourceContacts:
		return "Apollo.io"
	case SourcePlaces:
		return "Google Maps"
	default:
		return string(s)
	}
}

// RawRecord is one unstructured item returned by a scraping backend.
type RawRecord map[string]any

// Record maps canonical fields to formatted values. Every requested field is
// present, possibly with an empty value.
type Record map[Field]string

// Blank reports whether every value is empty after trimming.
func (r Record) Blank() bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Values returns the record's values in the order of fields.
func (r Record) Values(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = r[f]
	}
	return out
}
