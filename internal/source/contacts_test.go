package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-scraper/internal/model"
	"github.com/sells-group/lead-scraper/internal/resilience"
)

func contactsSpec(urls ...string) model.JobSpec {
	return model.JobSpec{
		Kind:       model.JobKindContacts,
		Contacts:   &model.ContactsQuery{URLs: urls},
		Fields:     []model.Field{model.FieldName, model.FieldEmail},
		MaxRecords: 100,
	}
}

func TestContacts_MissingURLsNoBackendCall(t *testing.T) {
	backend := new(mockContactsBackend)
	res := NewContacts(backend, fastOpts()...).Run(context.Background(), contactsSpec(" ", ""))

	assert.False(t, res.OK())
	assert.Equal(t, model.SourceContacts, res.Source)
	assert.Contains(t, res.Message, "URL is required")
	backend.AssertNotCalled(t, "FetchContacts", mock.Anything, mock.Anything)
}

func TestContacts_SucceedsOnThirdAttempt(t *testing.T) {
	backend := new(mockContactsBackend)
	backend.On("FetchContacts", mock.Anything, mock.Anything).Return(nil, errors.New("run aborted")).Twice()
	backend.On("FetchContacts", mock.Anything, mock.Anything).Return([]model.RawRecord{
		{"fullName": "ada lovelace", "email": "ADA@EXAMPLE.COM"},
		{"unrelated": "x"},
	}, nil).Once()

	res := NewContacts(backend, fastOpts()...).Run(context.Background(), contactsSpec("https://app.apollo.io/#/people?x=1"))

	require.True(t, res.OK(), res.Message)
	assert.Equal(t, 2, res.RawCount)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Ada Lovelace", res.Records[0][model.FieldName])
	assert.Equal(t, "ada@example.com", res.Records[0][model.FieldEmail])
	assert.Equal(t, "Successfully scraped 1 leads", res.Message)
	backend.AssertNumberOfCalls(t, "FetchContacts", 3)
}

func TestContacts_ExhaustedRetries(t *testing.T) {
	backend := new(mockContactsBackend)
	backend.On("FetchContacts", mock.Anything, mock.Anything).Return(nil, errors.New("actor crashed"))

	res := NewContacts(backend, fastOpts()...).Run(context.Background(), contactsSpec("https://app.apollo.io/a"))

	assert.False(t, res.OK())
	assert.Equal(t, "Scraping failed: actor crashed", res.Message)
	var be *BackendError
	require.ErrorAs(t, res.Err, &be)
	assert.Equal(t, 3, be.Attempts)
	assert.Empty(t, res.Records)
	backend.AssertNumberOfCalls(t, "FetchContacts", 3)
}

func TestContacts_PermanentErrorNotRetried(t *testing.T) {
	backend := new(mockContactsBackend)
	backend.On("FetchContacts", mock.Anything, mock.Anything).
		Return(nil, resilience.NewPermanentError(errors.New("token rejected"), 401))

	res := NewContacts(backend, fastOpts()...).Run(context.Background(), contactsSpec("https://app.apollo.io/a"))

	assert.False(t, res.OK())
	backend.AssertNumberOfCalls(t, "FetchContacts", 1)
}

func TestContacts_SkipsFailedURLs(t *testing.T) {
	backend := new(mockContactsBackend)
	backend.On("FetchContacts", mock.Anything, mock.MatchedBy(func(r ContactsRequest) bool {
		return r.URL == "https://bad"
	})).Return(nil, errors.New("boom"))
	backend.On("FetchContacts", mock.Anything, mock.MatchedBy(func(r ContactsRequest) bool {
		return r.URL == "https://good"
	})).Return([]model.RawRecord{{"name": "grace hopper"}}, nil)

	res := NewContacts(backend, fastOpts()...).Run(context.Background(), contactsSpec("https://bad", "https://good"))

	require.True(t, res.OK())
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Grace Hopper", res.Records[0][model.FieldName])
}

func TestContacts_RequestShape(t *testing.T) {
	backend := new(mockContactsBackend)
	backend.On("FetchContacts", mock.Anything, ContactsRequest{
		URL:        "https://app.apollo.io/a",
		MaxResults: 1000,
		Fields:     []string{"name", "email"},
		Token:      "tok",
	}).Return([]model.RawRecord{}, nil)

	spec := contactsSpec(" https://app.apollo.io/a ")
	spec.MaxRecords = 5000
	spec.BackendToken = "tok"
	res := NewContacts(backend, fastOpts()...).Run(context.Background(), spec)

	assert.True(t, res.OK())
	assert.Empty(t, res.Records)
	backend.AssertExpectations(t)
}

func TestContacts_PacesBetweenURLs(t *testing.T) {
	backend := new(mockContactsBackend)
	backend.On("FetchContacts", mock.Anything, mock.Anything).Return([]model.RawRecord{}, nil)

	opts := append(fastOpts(), WithPace(30*time.Millisecond))
	start := time.Now()
	res := NewContacts(backend, opts...).Run(context.Background(), contactsSpec("https://a", "https://b", "https://c"))

	assert.True(t, res.OK())
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
	backend.AssertNumberOfCalls(t, "FetchContacts", 3)
}
