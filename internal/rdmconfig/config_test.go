package rdmconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
ports:
  - name: fixture-bar
    device: /dev/ttyUSB0
    baud: 250000
    manufacturer_id: 0x5AFE
    device_id: 0x00000001
    discovery_timeout_ms: 500
    gpio_direction:
      chip: gpiochip0
      offset: 17
      invert: true
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ports.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func Test_Load_ParsesPorts(t *testing.T) {
	path := writeTemp(t, sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Ports, 1)

	p := cfg.Ports[0]
	assert.Equal(t, "fixture-bar", p.Name)
	assert.Equal(t, "/dev/ttyUSB0", p.Device)
	assert.Equal(t, 250000, p.Baud)
	require.NotNil(t, p.GPIODirection)
	assert.Equal(t, "gpiochip0", p.GPIODirection.Chip)
	assert.Equal(t, 17, p.GPIODirection.Offset)
	assert.True(t, p.GPIODirection.Invert)
}

func Test_Load_RejectsMissingDevice(t *testing.T) {
	path := writeTemp(t, "ports:\n  - name: broken\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func Test_Load_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func Test_Port_DiscoveryTimeout_Default(t *testing.T) {
	p := Port{}
	assert.Equal(t, "1s", p.DiscoveryTimeout().String())
}
