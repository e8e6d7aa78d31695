package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DCP_INTERFACE", "eth0")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "eth0", cfg.Interface)
	assert.Equal(t, 10*time.Millisecond, cfg.Tick)
	assert.Equal(t, time.Second, cfg.Hello.Interval)
	assert.Equal(t, 3, cfg.Signal.Flashes)
	assert.Equal(t, 500*time.Millisecond, cfg.Signal.HalfPeriod)
	assert.Equal(t, uint16(0x0493), cfg.Identity.VendorID)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enable)
	assert.False(t, cfg.Hello.NoAnnounce)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
interface: enp3s0
storage: /tmp/identity.yaml
identity:
  stationName: plc-1
  vendorID: 42
  ip:
    address: 192.168.0.10
    mask: 255.255.255.0
    gateway: 192.168.0.1
hello:
  repeats: 2
  interval: 250ms
  noAnnounce: true
metrics:
  enable: true
  addr: 127.0.0.1:9000
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "enp3s0", cfg.Interface)
	assert.Equal(t, "/tmp/identity.yaml", cfg.Storage)
	assert.Equal(t, "plc-1", cfg.Identity.StationName)
	assert.Equal(t, 2, cfg.Hello.Repeats)
	assert.Equal(t, 250*time.Millisecond, cfg.Hello.Interval)
	assert.True(t, cfg.Hello.NoAnnounce)
	assert.True(t, cfg.Metrics.Enable)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	factory, err := cfg.Factory()
	require.NoError(t, err)
	assert.Equal(t, "plc-1", factory.StationName)
	assert.Equal(t, uint16(42), factory.VendorID)
	assert.Equal(t, "192.168.0.10", factory.IP.Address.String())
	assert.Equal(t, "192.168.0.1", factory.IP.Gateway.String())
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "interface: eth0\nidentity:\n  stationName: from-file\n")
	t.Setenv("DCP_IDENTITY_STATIONNAME", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Identity.StationName)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing interface", func(t *testing.T) {
		_, err := LoadConfig("")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad tick", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "interface: eth0\ntick: 0s\n"))
		assert.Error(t, err)
	})
}

func TestFactoryRejectsBadIP(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "interface: eth0\nidentity:\n  ip:\n    address: not-an-ip\n"))
	require.NoError(t, err)

	_, err = cfg.Factory()
	assert.Error(t, err)
}

func TestFactoryWithoutIP(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "interface: eth0\n"))
	require.NoError(t, err)

	factory, err := cfg.Factory()
	require.NoError(t, err)
	assert.True(t, factory.IP.IsZero())
}
