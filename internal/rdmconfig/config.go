// Package rdmconfig loads the YAML port-configuration file the CLI front
// ends take as input. The core rdm package has no config loader of its own —
// it is handed an already-built *rdm.Port — the way the teacher's library
// code never reads a config file itself and leaves that to cmd/.
package rdmconfig

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GPIODirection describes a direction (RTS) line driven through a GPIO chip
// rather than through the UART's own RTS signal.
type GPIODirection struct {
	Chip   string `yaml:"chip"`
	Offset int    `yaml:"offset"`
	Invert bool   `yaml:"invert"`
}

// Port describes one configured DMX/RDM bus.
type Port struct {
	Name string `yaml:"name"`

	// Device is the serial device path, e.g. /dev/ttyUSB0.
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`

	// GPIODirection, if set, drives the direction line over a GPIO chip
	// instead of the UART's own RTS. Leave nil for adapters whose RTS is
	// wired through the UART.
	GPIODirection *GPIODirection `yaml:"gpio_direction,omitempty"`

	// DiscoveryTimeoutMillis bounds how long a DISC_UNIQUE_BRANCH waits
	// for a response before the transaction engine reports a timeout.
	DiscoveryTimeoutMillis int `yaml:"discovery_timeout_ms"`

	// ManufacturerID and DeviceID make up this port's own UID, used as
	// SrcUID when a request doesn't supply one.
	ManufacturerID uint16 `yaml:"manufacturer_id"`
	DeviceID       uint32 `yaml:"device_id"`
}

// DiscoveryTimeout returns the configured discovery timeout, defaulting to
// 1s when unset.
func (p Port) DiscoveryTimeout() time.Duration {
	if p.DiscoveryTimeoutMillis <= 0 {
		return time.Second
	}
	return time.Duration(p.DiscoveryTimeoutMillis) * time.Millisecond
}

// Config is the top-level shape of a port-configuration file: a list of
// independently configured ports (§1 "each port is independent" carries
// through to configuration).
type Config struct {
	Ports []Port `yaml:"ports"`
}

// Load reads and parses a port-configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rdmconfig: open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("rdmconfig: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("rdmconfig: parse %s: %w", path, err)
	}
	for i, p := range cfg.Ports {
		if p.Device == "" {
			return nil, fmt.Errorf("rdmconfig: port %d (%q) missing device", i, p.Name)
		}
	}
	return &cfg, nil
}
