package printing

import "context"

// Device is one output device the service may dispatch to
type Device struct {
	Name        string `yaml:"name" json:"name"`
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Location    string `yaml:"location,omitempty" json:"location,omitempty"`
}

// DeviceCatalog resolves the configured devices
type DeviceCatalog interface {
	// Devices returns every known device, enabled or not
	Devices(ctx context.Context) ([]Device, error)
}

// FindEnabled returns the enabled device with the given name
func FindEnabled(devices []Device, name string) (Device, bool) {
	for _, d := range devices {
		if d.Name == name && d.Enabled {
			return d, true
		}
	}
	return Device{}, false
}

// EnabledNames returns the names of the enabled devices in catalog order
func EnabledNames(devices []Device) []string {
	names := make([]string, 0, len(devices))
	for _, d := range devices {
		if d.Enabled {
			names = append(names, d.Name)
		}
	}
	return names
}
