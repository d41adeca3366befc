package storage

import (
	"context"

	"github.com/echefulouis/DeepFake/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockArchiveBackend implements interfaces.ArchiveBackend for testing
type MockArchiveBackend struct {
	mock.Mock
	BackendName string
}

func (m *MockArchiveBackend) Store(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockArchiveBackend) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockArchiveBackend) Name() string {
	if m.BackendName == "" {
		return "mock"
	}
	return m.BackendName
}

func (m *MockArchiveBackend) LocationURI() string {
	return "mock:" + m.Name()
}

// MockImageArchiver implements interfaces.ImageArchiver for testing
type MockImageArchiver struct {
	mock.Mock
}

func (m *MockImageArchiver) Archive(ctx context.Context, data []byte) (*interfaces.ArchivedImage, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.ArchivedImage), args.Error(1)
}
