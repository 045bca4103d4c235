package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobSpec_Sources(t *testing.T) {
	t.Parallel()

	contacts := &ContactsQuery{URLs: []string{"https://app.apollo.io/#/people"}}
	search := &PlacesQuery{SearchTerms: []string{"dentist"}, Location: "Austin, TX"}

	tests := []struct {
		name string
		spec JobSpec
		want []Source
	}{
		{"contacts", JobSpec{Kind: JobKindContacts, Contacts: contacts}, []Source{SourceContacts}},
		{"contacts ignores places", JobSpec{Kind: JobKindContacts, Contacts: contacts, Places: search}, []Source{SourceContacts}},
		{"places by search", JobSpec{Kind: JobKindPlaces, Places: search}, []Source{SourcePlaces}},
		{"places by url", JobSpec{Kind: JobKindPlaces, Places: &PlacesQuery{URLs: []string{"https://www.google.com/maps/place/x"}}}, []Source{SourcePlaces}},
		{"combined both", JobSpec{Kind: JobKindCombined, Contacts: contacts, Places: search}, []Source{SourceContacts, SourcePlaces}},
		{"combined places only", JobSpec{Kind: JobKindCombined, Places: search}, []Source{SourcePlaces}},
		{"blank urls", JobSpec{Kind: JobKindCombined, Contacts: &ContactsQuery{URLs: []string{" ", ""}}}, nil},
		{"search without location", JobSpec{Kind: JobKindPlaces, Places: &PlacesQuery{SearchTerms: []string{"dentist"}}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.spec.Sources())
		})
	}
}

func TestPlacesQuery_NilSafe(t *testing.T) {
	t.Parallel()

	var q *PlacesQuery
	assert.False(t, q.HasSearch())
	assert.False(t, q.HasURLs())
}

func TestNonBlank(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b"}, NonBlank([]string{" a ", "", "\t", "b"}))
	assert.Nil(t, NonBlank(nil))
}
