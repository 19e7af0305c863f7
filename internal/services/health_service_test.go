package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gctidash/internal/dashboard"
	"gctidash/internal/shared/testutil"
)

func TestHealthService_ReadinessCheck(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("ready", func(t *testing.T) {
		provider := &MockDatasetProvider{}
		provider.On("Get", mock.Anything, testKey).Return(testutil.Incidents(testutil.High(30)), nil)
		clients := &MockClientCounter{}
		clients.On("ClientCount").Return(2)

		sessions := dashboard.NewStore(logger)
		sessions.Create(ctx)

		hs := NewHealthService("1.2.3", provider, testKey, sessions, clients, logger)
		status := hs.ReadinessCheck(ctx)

		assert.Equal(t, HealthReady, status.Status)
		assert.Equal(t, "1.2.3", status.Version)
		require.Contains(t, status.Services, "dataset")
		assert.Equal(t, "1 rows for 100/7", status.Services["dataset"].Message)
		assert.Equal(t, "1 active sessions", status.Services["sessions"].Message)
		assert.Equal(t, "2 clients connected", status.Services["websocket"].Message)
		provider.AssertExpectations(t)
	})

	t.Run("dataset failure", func(t *testing.T) {
		provider := &MockDatasetProvider{}
		provider.On("Get", mock.Anything, testKey).Return(nil, errors.New("boom"))

		log, handler := testutil.NewTestLogger(t)
		hs := NewHealthService("1.2.3", provider, testKey, dashboard.NewStore(logger), nil, log)
		status := hs.ReadinessCheck(ctx)

		assert.Equal(t, HealthNotReady, status.Status)
		assert.Equal(t, HealthNotReady, status.Services["dataset"].Status)
		assert.Equal(t, HealthReady, status.Services["websocket"].Status)
		testutil.AssertLogContains(t, handler, slog.LevelWarn, "service not ready")
	})
}

func TestHealthService_Liveness(t *testing.T) {
	hs := NewHealthService("1.2.3", nil, testKey, nil, nil, nil)

	assert.Equal(t, HealthOK, hs.HealthCheck(context.Background()).Status)

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, HealthAlive, live.Status)
	require.NotNil(t, live.Runtime)
	assert.Positive(t, live.Runtime.Goroutines)

	ready := hs.ReadinessCheck(context.Background())
	assert.Equal(t, HealthNotReady, ready.Status)
	assert.Equal(t, "dataset provider not initialized", ready.Services["dataset"].Message)
}

func TestHealthService_Version(t *testing.T) {
	hs := NewHealthService("1.2.3", nil, testKey, nil, nil, nil)
	v := hs.Version()

	assert.Equal(t, "1.2.3", v["version"])
	assert.Equal(t, "v1", v["api_version"])
	assert.Contains(t, v, "go_version")
}
