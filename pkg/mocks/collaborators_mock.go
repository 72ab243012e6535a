package mocks

import (
	"context"
	"net/http"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/stretchr/testify/mock"
)

// MockLocker is a mock implementation of protocol.Locker interface.
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Acquire(ctx context.Context, key string, wait, ttl time.Duration) (protocol.ReleaseFunc, error) {
	args := m.Called(ctx, key, wait, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(protocol.ReleaseFunc), args.Error(1)
}

// MockCache is a mock implementation of protocol.Cache interface.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)

	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockCache) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)

	return args.Error(0)
}

// MockEmailSender is a mock implementation of protocol.EmailSender interface.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Account(ctx context.Context, accountID, userID *int64) (*models.EmailAccount, error) {
	args := m.Called(ctx, accountID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.EmailAccount), args.Error(1)
}

func (m *MockEmailSender) Send(ctx context.Context, message *models.EmailMessage) (bool, error) {
	args := m.Called(ctx, message)

	return args.Bool(0), args.Error(1)
}

func (m *MockEmailSender) SendFromTemplate(ctx context.Context, account models.EmailAccount, templateID int64, recipients models.Recipients, data map[string]any, link models.RecordLink) (*models.EmailMessage, error) {
	args := m.Called(ctx, account, templateID, recipients, data, link)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.EmailMessage), args.Error(1)
}

// MockConditionEvaluator is a mock implementation of protocol.ConditionEvaluator interface.
type MockConditionEvaluator struct {
	mock.Mock
}

func (m *MockConditionEvaluator) Evaluate(ctx context.Context, conditions any, execCtx models.ExecutionContext) bool {
	args := m.Called(ctx, conditions, execCtx)

	return args.Bool(0)
}

// MockHTTPDoer is a mock implementation of protocol.HTTPDoer interface.
type MockHTTPDoer struct {
	mock.Mock
}

func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*http.Response), args.Error(1)
}
