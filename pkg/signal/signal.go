// Package signal drives the identification LED of a device.
//
// A Signal request starts a flash sequence: the LED is switched off, then
// toggled every half period until it has been on Flashes times, ending off.
// With the defaults this is three flashes at 1 Hz. The controller has no
// timers of its own; time is fed in through Advance.
package signal

import (
	"time"

	"github.com/pion/logging"
)

// Sequence defaults.
const (
	DefaultFlashes    = 3
	DefaultHalfPeriod = 500 * time.Millisecond
)

// Indicator is the LED of the device.
type Indicator interface {
	LEDOn()
	LEDOff()
}

// Config configures a Controller.
type Config struct {
	// Indicator receives the LED calls. Required.
	Indicator Indicator

	// Flashes is the number of ON phases per sequence (default: 3).
	Flashes int

	// HalfPeriod is the time between toggles (default: 500ms).
	HalfPeriod time.Duration

	// LoggerFactory creates the package logger. Optional.
	LoggerFactory logging.LoggerFactory
}

func (c *Config) applyDefaults() {
	if c.Flashes <= 0 {
		c.Flashes = DefaultFlashes
	}
	if c.HalfPeriod <= 0 {
		c.HalfPeriod = DefaultHalfPeriod
	}
	if c.LoggerFactory == nil {
		c.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
}

// Controller plays flash sequences on an Indicator.
//
// Not safe for concurrent use.
type Controller struct {
	ind     Indicator
	flashes int
	half    time.Duration

	active    bool
	on        bool
	remaining int
	next      time.Duration

	log logging.LeveledLogger
}

// New creates a controller. It panics if config.Indicator is nil.
func New(config Config) *Controller {
	if config.Indicator == nil {
		panic("signal: nil Indicator")
	}
	config.applyDefaults()
	return &Controller{
		ind:     config.Indicator,
		flashes: config.Flashes,
		half:    config.HalfPeriod,
		log:     config.LoggerFactory.NewLogger("signal"),
	}
}

// Start begins a new sequence at now, discarding any sequence in progress.
// The LED is switched off immediately, even if it already is.
func (c *Controller) Start(now time.Duration) {
	if c.active {
		c.log.Debugf("preempting sequence with %d flashes left", c.remaining)
	}
	c.ind.LEDOff()
	c.on = false
	c.active = true
	c.remaining = c.flashes
	c.next = now + c.half
}

// Advance fires every toggle due at or before now and returns how many
// fired. A late call catches up on all missed toggles.
func (c *Controller) Advance(now time.Duration) int {
	fired := 0
	for c.active && now >= c.next {
		if c.on {
			c.ind.LEDOff()
			c.on = false
			if c.remaining == 0 {
				c.active = false
			}
		} else {
			c.ind.LEDOn()
			c.on = true
			c.remaining--
		}
		c.next += c.half
		fired++
	}
	return fired
}

// Sync switches the LED off when no sequence is running. It is a no-op
// while a sequence plays.
func (c *Controller) Sync() {
	if !c.active {
		c.ind.LEDOff()
	}
}

// Active reports whether a sequence is playing.
func (c *Controller) Active() bool {
	return c.active
}

// Deadline returns the time of the next toggle, if a sequence is playing.
func (c *Controller) Deadline() (time.Duration, bool) {
	return c.next, c.active
}
