package printing

import (
	"context"
	"fmt"
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/infrastructure/backend"
	"go.uber.org/zap"
)

// Health check defaults
const (
	DefaultHealthCheckAttempts = 3
	DefaultHealthCheckBackoff  = 2 * time.Second
)

// HealthCheckConfig bounds the startup readiness check
type HealthCheckConfig struct {
	Attempts int
	Backoff  time.Duration
}

// DeviceHealth is the readiness of one device
type DeviceHealth struct {
	Name     string `json:"name"`
	Ready    bool   `json:"ready"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// HealthChecker checks the enabled devices and broadcasts the ready ones
type HealthChecker struct {
	catalog  printing.DeviceCatalog
	backend  backend.Adapter
	notifier Notifier
	logger   *zap.Logger
	config   HealthCheckConfig
	ready    func(n int)
}

// NewHealthChecker creates a checker; zero config values use the defaults
func NewHealthChecker(catalog printing.DeviceCatalog, adapter backend.Adapter, notifier Notifier, cfg HealthCheckConfig, logger *zap.Logger) *HealthChecker {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultHealthCheckAttempts
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	} else if cfg.Backoff == 0 {
		cfg.Backoff = DefaultHealthCheckBackoff
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &HealthChecker{
		catalog:  catalog,
		backend:  adapter,
		notifier: notifier,
		logger:   logger,
		config:   cfg,
	}
}

// OnReadyCount registers a callback receiving the number of ready devices
func (h *HealthChecker) OnReadyCount(fn func(n int)) {
	h.ready = fn
}

// CheckDevices checks every enabled device with bounded retries, logs the
// outcome and broadcasts the names of the ready devices
func (h *HealthChecker) CheckDevices(ctx context.Context) ([]DeviceHealth, error) {
	devices, err := h.catalog.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load devices: %w", err)
	}

	names := printing.EnabledNames(devices)
	results := make([]DeviceHealth, 0, len(names))
	ready := make([]string, 0, len(names))
	for _, name := range names {
		res := h.checkDevice(ctx, name)
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, res)
		if res.Ready {
			ready = append(ready, name)
			h.logger.Info("Device ready", zap.String("printer", name), zap.Int("attempts", res.Attempts))
		} else {
			h.logger.Warn("Device not ready",
				zap.String("printer", name),
				zap.Int("attempts", res.Attempts),
				zap.String("error", res.Error))
		}
	}

	h.logger.Info("Device health check finished",
		zap.Int("devices", len(names)),
		zap.Int("ready", len(ready)))
	if h.ready != nil {
		h.ready(len(ready))
	}
	h.notifier.BroadcastDeviceList(ctx, ready)
	return results, nil
}

func (h *HealthChecker) checkDevice(ctx context.Context, name string) DeviceHealth {
	res := DeviceHealth{Name: name}
	for attempt := 1; attempt <= h.config.Attempts; attempt++ {
		res.Attempts = attempt
		ok, err := h.backend.IsDeviceReady(ctx, name)
		if err == nil && ok {
			res.Ready = true
			res.Error = ""
			return res
		}
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Error = "device is not accepting jobs"
		}
		if attempt == h.config.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return res
		case <-time.After(h.config.Backoff):
		}
	}
	return res
}
