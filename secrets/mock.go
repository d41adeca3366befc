package secrets

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockCredentialProvider implements interfaces.CredentialProvider for testing
type MockCredentialProvider struct {
	mock.Mock
}

func (m *MockCredentialProvider) Credential(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockCredentialProvider) Invalidate() {
	m.Called()
}

func (m *MockCredentialProvider) Name() string {
	return "mock"
}
