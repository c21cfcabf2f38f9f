package mocks

import (
	"context"
	"time"

	"github.com/amirulm/aidlog/internal/domain/activity"
	"github.com/stretchr/testify/mock"
)

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Insert(ctx context.Context, rec *activity.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *ActivityRepository) Update(ctx context.Context, rec *activity.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *ActivityRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ActivityRepository) Get(ctx context.Context, id string) (*activity.Record, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*activity.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActivityRepository) ResolveID(ctx context.Context, idOrPrefix string) (string, error) {
	args := m.Called(ctx, idOrPrefix)
	return args.String(0), args.Error(1)
}

func (m *ActivityRepository) ListRecent(ctx context.Context, limit, offset int) ([]activity.Record, error) {
	args := m.Called(ctx, limit, offset)
	if recs, ok := args.Get(0).([]activity.Record); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ActivityRepository) ListBetween(ctx context.Context, from, to time.Time) ([]activity.Record, error) {
	args := m.Called(ctx, from, to)
	if recs, ok := args.Get(0).([]activity.Record); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}
