package mocks

import (
	"context"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockRecordStore is a mock implementation of protocol.RecordStore interface.
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) FindRecord(ctx context.Context, id int64) (*models.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Record), args.Error(1)
}

func (m *MockRecordStore) CreateRecord(ctx context.Context, moduleID int64, data map[string]any, createdBy *int64) (int64, error) {
	args := m.Called(ctx, moduleID, data, createdBy)

	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRecordStore) UpdateRecord(ctx context.Context, id int64, fields map[string]any, updatedBy *int64) error {
	args := m.Called(ctx, id, fields, updatedBy)

	return args.Error(0)
}

func (m *MockRecordStore) DeleteRecord(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockRecordStore) FindRecordsByField(ctx context.Context, moduleID int64, field string, value any) ([]*models.Record, error) {
	args := m.Called(ctx, moduleID, field, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Record), args.Error(1)
}

func (m *MockRecordStore) CountRecordsByField(ctx context.Context, moduleID int64, field string, value any) (int, error) {
	args := m.Called(ctx, moduleID, field, value)

	return args.Int(0), args.Error(1)
}

// MockUserStore is a mock implementation of protocol.UserStore interface.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) ExpandRole(ctx context.Context, roleID int64) ([]int64, error) {
	args := m.Called(ctx, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]int64), args.Error(1)
}

// MockNotifier is a mock implementation of protocol.Notifier interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, notification models.Notification) error {
	args := m.Called(ctx, notification)

	return args.Error(0)
}
