package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/backkem/dcp/pkg/block"
	"github.com/backkem/dcp/pkg/identity"
)

// IdentityConfig holds the factory identity of the device.
type IdentityConfig struct {
	StationName string `mapstructure:"stationName"`
	VendorName  string `mapstructure:"vendorName"`
	VendorID    uint16 `mapstructure:"vendorID"`
	DeviceID    uint16 `mapstructure:"deviceID"`
	IP          struct {
		Address string `mapstructure:"address"`
		Mask    string `mapstructure:"mask"`
		Gateway string `mapstructure:"gateway"`
	} `mapstructure:"ip"`
	AllowInstanceSet bool `mapstructure:"allowInstanceSet"`
}

// LumberjackConfig configures log file rotation.
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig selects log level, encoding and file output.
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Addr   string `mapstructure:"addr"`
	Path   string `mapstructure:"path"`
}

// Config is the daemon configuration.
type Config struct {
	Interface string         `mapstructure:"interface"`
	Storage   string         `mapstructure:"storage"`
	Identity  IdentityConfig `mapstructure:"identity"`

	// LED is the sysfs brightness file of the signal LED. Empty logs only.
	LED string `mapstructure:"led"`

	// Capture is the CBOR capture file. Empty disables capture.
	Capture string `mapstructure:"capture"`

	Tick time.Duration `mapstructure:"tick"`

	Hello struct {
		Disabled   bool          `mapstructure:"disabled"`
		Repeats    int           `mapstructure:"repeats"`
		Interval   time.Duration `mapstructure:"interval"`
		NoAnnounce bool          `mapstructure:"noAnnounce"`
	} `mapstructure:"hello"`

	Signal struct {
		Flashes    int           `mapstructure:"flashes"`
		HalfPeriod time.Duration `mapstructure:"halfPeriod"`
	} `mapstructure:"signal"`

	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoadConfig reads path (YAML, TOML or JSON) and DCP_* environment
// variables. A missing path uses defaults and the environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Interface == "" {
		return nil, errors.New("config: interface is required")
	}
	if cfg.Tick <= 0 {
		return nil, fmt.Errorf("config: tick %v must be positive", cfg.Tick)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interface", "")
	v.SetDefault("storage", "/var/lib/dcp-device/identity.yaml")
	v.SetDefault("led", "")
	v.SetDefault("capture", "")
	v.SetDefault("tick", "10ms")

	v.SetDefault("identity.stationName", "")
	v.SetDefault("identity.vendorName", identity.DefaultVendorName)
	v.SetDefault("identity.vendorID", identity.DefaultVendorID)
	v.SetDefault("identity.deviceID", identity.DefaultDeviceID)
	v.SetDefault("identity.ip.address", "")
	v.SetDefault("identity.ip.mask", "")
	v.SetDefault("identity.ip.gateway", "")
	v.SetDefault("identity.allowInstanceSet", false)

	v.SetDefault("hello.disabled", false)
	v.SetDefault("hello.repeats", 0)
	v.SetDefault("hello.interval", "1s")
	v.SetDefault("hello.noAnnounce", false)

	v.SetDefault("signal.flashes", 3)
	v.SetDefault("signal.halfPeriod", "500ms")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 28)
	v.SetDefault("logging.file.compress", false)

	v.SetDefault("metrics.enable", false)
	v.SetDefault("metrics.addr", ":9469")
	v.SetDefault("metrics.path", "/metrics")
}

// Factory converts the identity section to factory defaults.
func (c *Config) Factory() (identity.Identity, error) {
	ip, err := block.ParseIPParameter(c.Identity.IP.Address, c.Identity.IP.Mask, c.Identity.IP.Gateway)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("config: identity.ip: %w", err)
	}
	return identity.Identity{
		StationName: c.Identity.StationName,
		IP:          ip,
		VendorName:  c.Identity.VendorName,
		VendorID:    c.Identity.VendorID,
		DeviceID:    c.Identity.DeviceID,
	}, nil
}
