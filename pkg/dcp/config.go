package dcp

import (
	"net"
	"time"

	"github.com/pion/logging"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/backkem/dcp/pkg/capture"
	"github.com/backkem/dcp/pkg/identity"
	"github.com/backkem/dcp/pkg/scheduler"
	"github.com/backkem/dcp/pkg/signal"
	"github.com/backkem/dcp/pkg/transport"
)

// DefaultHelloInterval is the spacing of Hello repeats.
const DefaultHelloInterval = time.Second

// HelloConfig controls Hello announcements.
type HelloConfig struct {
	// Disabled turns off Hello requests: Hello returns ErrHelloDisabled,
	// no announcement follows a Get or Set, and DeviceInitiative reports 0.
	Disabled bool

	// Repeats is the number of extra Hellos sent after the first one.
	Repeats int

	// Interval separates consecutive repeats (default: 1s).
	Interval time.Duration

	// NoAnnounce suppresses the Hello that otherwise follows every
	// successful Get or Set. Startup Hellos are unaffected.
	NoAnnounce bool
}

// SignalConfig controls the flash sequence of a Signal request.
type SignalConfig struct {
	// Flashes is the number of ON phases (default: 3).
	Flashes int

	// HalfPeriod is the duration of each ON and OFF phase (default: 500ms).
	HalfPeriod time.Duration
}

// Config holds all configuration for a Responder.
type Config struct {
	// MAC is the device hardware address. Required.
	MAC net.HardwareAddr

	// Factory holds the factory defaults of the identity. Unset vendor
	// fields take the identity package defaults.
	Factory identity.Identity

	// Storage persists permanent writes. Default: in-memory.
	Storage identity.Storage

	// IPConfigurator receives IP suite changes. Optional.
	IPConfigurator identity.IPConfigurator

	// Policy selects optional writable blocks.
	Policy identity.Policy

	// Indicator drives the signal LED. Required.
	Indicator signal.Indicator

	// Sender emits frames. Required.
	Sender transport.Sender

	Signal SignalConfig
	Hello  HelloConfig

	// Random draws Identify response delays. Default: math/rand/v2.
	Random scheduler.RandomSource

	// Registerer receives the responder metrics. Optional.
	Registerer prometheus.Registerer

	// Capture records every received and sent frame. Optional.
	Capture capture.Logger

	// LoggerFactory is the factory for creating loggers.
	// Default: pion default logger factory.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration for errors. Identity fields are
// checked by identity.New.
func (c *Config) Validate() error {
	if c.Sender == nil {
		return ErrSenderRequired
	}
	if c.Indicator == nil {
		return ErrIndicatorRequired
	}
	if c.Hello.Repeats < 0 || c.Hello.Interval < 0 {
		return ErrInvalidHello
	}
	return nil
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.Storage == nil {
		c.Storage = identity.NewMemoryStorage()
	}
	if c.Hello.Interval == 0 {
		c.Hello.Interval = DefaultHelloInterval
	}
	if c.LoggerFactory == nil {
		c.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	c.Factory.HelloEnabled = !c.Hello.Disabled
}
