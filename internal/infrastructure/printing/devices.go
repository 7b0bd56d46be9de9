package printing

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// StaticCatalog serves a fixed device list, all enabled
type StaticCatalog struct {
	devices []printing.Device
}

// NewStaticCatalog creates a catalog from device names
func NewStaticCatalog(names []string) *StaticCatalog {
	devices := make([]printing.Device, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		devices = append(devices, printing.Device{Name: n, Enabled: true})
	}
	return &StaticCatalog{devices: devices}
}

// Devices returns the configured devices
func (c *StaticCatalog) Devices(_ context.Context) ([]printing.Device, error) {
	out := make([]printing.Device, len(c.devices))
	copy(out, c.devices)
	return out, nil
}

type deviceFile struct {
	Devices []printing.Device `yaml:"devices"`
}

// FileCatalog reads devices from a YAML file:
//
//	devices:
//	  - name: office-laser
//	    enabled: true
//	    location: 2nd floor
type FileCatalog struct {
	path    string
	devices []printing.Device
}

// LoadFileCatalog parses the YAML device file at path
func LoadFileCatalog(path string) (*FileCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device file %s: %w", path, err)
	}
	var f deviceFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse device file %s: %w", path, err)
	}
	seen := make(map[string]bool, len(f.Devices))
	for i, d := range f.Devices {
		if d.Name == "" {
			return nil, fmt.Errorf("device file %s: entry %d has no name", path, i)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("device file %s: duplicate device %q", path, d.Name)
		}
		seen[d.Name] = true
	}
	return &FileCatalog{path: path, devices: f.Devices}, nil
}

// Devices returns the devices read from the file
func (c *FileCatalog) Devices(_ context.Context) ([]printing.Device, error) {
	out := make([]printing.Device, len(c.devices))
	copy(out, c.devices)
	return out, nil
}

// DeviceLister enumerates devices known to the print backend
type DeviceLister interface {
	ListDevices(ctx context.Context) ([]string, error)
}

// DiscoveryCatalog asks the backend for its devices and caches the answer for ttl
type DiscoveryCatalog struct {
	lister DeviceLister
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	cached  []printing.Device
	fetched time.Time
}

// NewDiscoveryCatalog creates a catalog over a backend lister
func NewDiscoveryCatalog(lister DeviceLister, ttl time.Duration, logger *zap.Logger) *DiscoveryCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscoveryCatalog{lister: lister, ttl: ttl, logger: logger}
}

// Devices returns the cached list, refreshing it when stale. A failed refresh
// falls back to the previous list if there is one.
func (c *DiscoveryCatalog) Devices(ctx context.Context) ([]printing.Device, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.fetched) < c.ttl {
		return append([]printing.Device(nil), c.cached...), nil
	}

	names, err := c.lister.ListDevices(ctx)
	if err != nil {
		if c.cached != nil {
			c.logger.Warn("device discovery failed, serving cached list", zap.Error(err))
			return append([]printing.Device(nil), c.cached...), nil
		}
		return nil, fmt.Errorf("failed to discover devices: %w", err)
	}

	devices := make([]printing.Device, 0, len(names))
	for _, n := range names {
		devices = append(devices, printing.Device{Name: n, Enabled: true})
	}
	c.cached = devices
	c.fetched = time.Now()
	return append([]printing.Device(nil), devices...), nil
}

var (
	_ printing.DeviceCatalog = (*StaticCatalog)(nil)
	_ printing.DeviceCatalog = (*FileCatalog)(nil)
	_ printing.DeviceCatalog = (*DiscoveryCatalog)(nil)
)
