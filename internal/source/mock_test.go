package source

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/lead-scraper/internal/model"
	"github.com/sells-group/lead-scraper/internal/resilience"
)

type mockContactsBackend struct {
	mock.Mock
}

func (m *mockContactsBackend) FetchContacts(ctx context.Context, req ContactsRequest) ([]model.RawRecord, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RawRecord), args.Error(1)
}

type mockPlacesBackend struct {
	mock.Mock
}

func (m *mockPlacesBackend) FetchPlaces(ctx context.Context, req PlacesRequest) ([]model.RawRecord, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RawRecord), args.Error(1)
}

func fastOpts() []Option {
	return []Option{
		WithPolicy(resilience.Policy{
			Attempts:       3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
			Multiplier:     2,
		}),
		WithPace(0),
	}
}
