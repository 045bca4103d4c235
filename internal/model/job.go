package model

import "strings"

// ContactsQuery selects people from the professional-contacts backend.
type ContactsQuery struct {
	URLs []string `json:"urls" yaml:"urls"`
}

// PlacesQuery selects businesses from the places backend. Either URLs or
// SearchTerms together with Location must be set.
type PlacesQuery struct {
	SearchTerms       []string `json:"search_terms" yaml:"search_terms"`
	Location          string   `json:"location" yaml:"location"`
	URLs              []string `json:"maps_urls" yaml:"maps_urls"`
	MaxPlaces         int      `json:"max_places" yaml:"max_places"`
	MinStars          string   `json:"min_stars" yaml:"min_stars"`
	EnrichmentRecords int      `json:"enrichment_records" yaml:"enrichment_records"`
	SkipClosed        bool     `json:"skip_closed" yaml:"skip_closed"`
}

// HasSearch reports whether both search terms and a location are present.
func (q *PlacesQuery) HasSearch() bool {
	return q != nil && len(NonBlank(q.SearchTerms)) > 0 && strings.TrimSpace(q.Location) != ""
}

// HasURLs reports whether at least one place URL is present.
func (q *PlacesQuery) HasURLs() bool {
	return q != nil && len(NonBlank(q.URLs)) > 0
}

// JobSpec is a scraping request as accepted by the orchestrator.
type JobSpec struct {
	Kind       JobKind        `json:"kind" yaml:"kind"`
	Contacts   *ContactsQuery `json:"contacts,omitempty" yaml:"contacts"`
	Places     *PlacesQuery   `json:"places,omitempty" yaml:"places"`
	Fields     []Field        `json:"fields" yaml:"fields"`
	MaxRecords int            `json:"max_records" yaml:"max_records"`

	// BackendToken overrides the configured backend credential for this job.
	BackendToken string `json:"-" yaml:"backend_token"`
}

// HasContacts reports whether the contacts source is enabled.
func (s JobSpec) HasContacts() bool {
	return s.Contacts != nil && len(NonBlank(s.Contacts.URLs)) > 0
}

// HasPlaces reports whether the places source is enabled.
func (s JobSpec) HasPlaces() bool {
	return s.Places.HasSearch() || s.Places.HasURLs()
}

// Sources returns the enabled sources in invocation order.
func (s JobSpec) Sources() []Source {
	var out []Source
	if s.HasContacts() && s.Kind != JobKindPlaces {
		out = append(out, SourceContacts)
	}
	if s.HasPlaces() && s.Kind != JobKindContacts {
		out = append(out, SourcePlaces)
	}
	return out
}

// NonBlank returns the trimmed, non-empty entries of in.
func NonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Limits accepted for JobSpec.MaxRecords.
const (
	MinRecords      = 1
	MaxRecordsLimit = 50000
)
