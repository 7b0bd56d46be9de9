package printing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHealthChecker_CheckDevices(t *testing.T) {
	tests := []struct {
		name      string
		adapter   *fakeAdapter
		wantReady []string
		attempts  []int
	}{
		{
			name:      "all ready",
			adapter:   &fakeAdapter{ready: true},
			wantReady: []string{"Office-Laser", "Hall-Printer"},
			attempts:  []int{1, 1},
		},
		{
			name:      "first recovers on retry",
			adapter:   &fakeAdapter{readySeq: []bool{false, true, true}},
			wantReady: []string{"Office-Laser", "Hall-Printer"},
			attempts:  []int{2, 1},
		},
		{
			name:      "none ready",
			adapter:   &fakeAdapter{readyErr: errors.New("lpstat: scheduler not running")},
			wantReady: []string{},
			attempts:  []int{3, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			core, logs := observer.New(zapcore.InfoLevel)
			h := NewHealthChecker(testDevices(), tt.adapter, notifier, HealthCheckConfig{Backoff: -1}, zap.New(core))
			var readyCount int
			h.OnReadyCount(func(n int) { readyCount = n })

			results, err := h.CheckDevices(context.Background())

			require.NoError(t, err)
			require.Len(t, results, 2)
			for i, r := range results {
				assert.Equal(t, tt.attempts[i], r.Attempts, r.Name)
			}
			require.Len(t, notifier.devices, 1)
			assert.Equal(t, tt.wantReady, notifier.devices[0])
			assert.Equal(t, len(tt.wantReady), readyCount)
			assert.Equal(t, 1, logs.FilterMessage("Device health check finished").Len())
		})
	}
}

func TestHealthChecker_ReportsCheckError(t *testing.T) {
	adapter := &fakeAdapter{readyErr: errors.New("connection refused")}
	h := NewHealthChecker(testDevices(), adapter, nil, HealthCheckConfig{Attempts: 1, Backoff: -1}, zap.NewNop())

	results, err := h.CheckDevices(context.Background())

	require.NoError(t, err)
	assert.False(t, results[0].Ready)
	assert.Equal(t, "connection refused", results[0].Error)
}

func TestHealthChecker_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := NewHealthChecker(testDevices(), &fakeAdapter{ready: true}, nil, HealthCheckConfig{}, zap.NewNop())

	_, err := h.CheckDevices(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}
