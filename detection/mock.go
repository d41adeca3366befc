package detection

import (
	"context"

	"github.com/echefulouis/DeepFake/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockDetector implements interfaces.Detector for testing
type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) Detect(ctx context.Context, imageBase64 string, credential string) (interfaces.DetectionResult, error) {
	args := m.Called(ctx, imageBase64, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(interfaces.DetectionResult), args.Error(1)
}
