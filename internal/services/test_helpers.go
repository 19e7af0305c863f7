package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gctidash/internal/dataset"
)

// MockDatasetProvider is a mock for the DatasetProvider interface
type MockDatasetProvider struct {
	mock.Mock
}

func (m *MockDatasetProvider) Get(ctx context.Context, key dataset.Key) (*dataset.Dataset, error) {
	args := m.Called(ctx, key)
	ds, _ := args.Get(0).(*dataset.Dataset)
	return ds, args.Error(1)
}

func (m *MockDatasetProvider) Stats() dataset.CacheStats {
	args := m.Called()
	return args.Get(0).(dataset.CacheStats)
}

// MockMetricsRecorder is a mock for the MetricsRecorder interface
type MockMetricsRecorder struct {
	mock.Mock
}

func (m *MockMetricsRecorder) RecordUpload(ctx context.Context, format, outcome string) {
	m.Called(ctx, format, outcome)
}

func (m *MockMetricsRecorder) RecordInsufficientData(ctx context.Context, view string) {
	m.Called(ctx, view)
}

// MockClientCounter is a mock for the ClientCounter interface
type MockClientCounter struct {
	mock.Mock
}

func (m *MockClientCounter) ClientCount() int {
	return m.Called().Int(0)
}
