package main

import (
	"os"

	"github.com/pion/logging"

	"github.com/backkem/dcp/pkg/block"
)

// sysfsLED drives an LED through its sysfs brightness file.
type sysfsLED struct {
	path string
	log  logging.LeveledLogger
}

func (l *sysfsLED) LEDOn()  { l.set(true) }
func (l *sysfsLED) LEDOff() { l.set(false) }

func (l *sysfsLED) set(on bool) {
	if l.path == "" {
		l.log.Debugf("led on=%v", on)
		return
	}
	v := "0"
	if on {
		v = "1"
	}
	if err := os.WriteFile(l.path, []byte(v), 0o644); err != nil {
		l.log.Warnf("led: %v", err)
	}
}

// loggingIPConfigurator reports IP suite changes without touching the host
// network configuration, which is left to the system network manager.
type loggingIPConfigurator struct {
	log logging.LeveledLogger
}

func (c loggingIPConfigurator) SetIPSuite(p block.IPParameter) error {
	if p.IsZero() {
		c.log.Info("ip suite cleared")
		return nil
	}
	c.log.Infof("ip suite: address=%v mask=%v gateway=%v", p.Address, p.Mask, p.Gateway)
	return nil
}
