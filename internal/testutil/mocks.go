package testutil

import (
	"context"
	"encoding/json"

	"flashcards/internal/storage"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock for storage.Client. Its On is the storage event
// subscription, so expectations are set with client.Mock.On.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) DeclareType(ctx context.Context, name string, schema json.RawMessage) error {
	args := m.Called(ctx, name, schema)
	return args.Error(0)
}

func (m *MockClient) StoreObject(ctx context.Context, typeName, path string, obj any) error {
	args := m.Called(ctx, typeName, path, obj)
	return args.Error(0)
}

func (m *MockClient) GetObject(ctx context.Context, path string) (json.RawMessage, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockClient) Remove(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockClient) GetListing(ctx context.Context, path string) ([]string, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockClient) GetAll(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]json.RawMessage), args.Error(1)
}

func (m *MockClient) On(event string, handler storage.Handler) {
	m.Called(event, handler)
}

// MockUserRepository is a mock for UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) IsAuthorized(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) AuthorizeUser(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) EnsureUserExists(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
