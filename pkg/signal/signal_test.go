package signal

import (
	"testing"
	"time"
)

type countingIndicator struct {
	on, off int
	lit     bool
}

func (c *countingIndicator) LEDOn()  { c.on++; c.lit = true }
func (c *countingIndicator) LEDOff() { c.off++; c.lit = false }

func run(c *Controller, from, to, step time.Duration) {
	for now := from; now <= to; now += step {
		c.Advance(now)
	}
}

func TestFullSequence(t *testing.T) {
	ind := &countingIndicator{}
	c := New(Config{Indicator: ind})

	c.Start(0)
	if ind.off != 1 || ind.on != 0 {
		t.Fatalf("after Start: on=%d off=%d, want 0/1", ind.on, ind.off)
	}

	run(c, 0, 4*time.Second, time.Millisecond)

	if ind.on != 3 || ind.off != 4 {
		t.Errorf("on=%d off=%d, want 3/4", ind.on, ind.off)
	}
	if ind.lit {
		t.Error("LED left on")
	}
	if c.Active() {
		t.Error("sequence still active")
	}
}

func TestSequenceTiming(t *testing.T) {
	ind := &countingIndicator{}
	c := New(Config{Indicator: ind})
	c.Start(0)

	steps := []struct {
		at      time.Duration
		on, off int
	}{
		{499 * time.Millisecond, 0, 1},
		{500 * time.Millisecond, 1, 1},
		{time.Second, 1, 2},
		{1500 * time.Millisecond, 2, 2},
		{3 * time.Second, 3, 4},
		{10 * time.Second, 3, 4},
	}
	for _, s := range steps {
		c.Advance(s.at)
		if ind.on != s.on || ind.off != s.off {
			t.Errorf("at %v: on=%d off=%d, want %d/%d", s.at, ind.on, ind.off, s.on, s.off)
		}
	}
}

func TestAdvanceCatchesUp(t *testing.T) {
	ind := &countingIndicator{}
	c := New(Config{Indicator: ind})
	c.Start(0)

	if fired := c.Advance(time.Hour); fired != 6 {
		t.Errorf("Advance() fired %d toggles, want 6", fired)
	}
	if ind.on != 3 || ind.off != 4 {
		t.Errorf("on=%d off=%d, want 3/4", ind.on, ind.off)
	}
}

func TestPreemption(t *testing.T) {
	ind := &countingIndicator{}
	c := New(Config{Indicator: ind})

	c.Start(0)
	c.Advance(600 * time.Millisecond) // first flash is on
	if !ind.lit {
		t.Fatal("LED should be on before preemption")
	}

	onBefore, offBefore := ind.on, ind.off
	c.Start(600 * time.Millisecond)
	if ind.lit {
		t.Error("restart did not switch the LED off")
	}
	if d, _ := c.Deadline(); d != 1100*time.Millisecond {
		t.Errorf("Deadline() = %v, want 1.1s", d)
	}

	run(c, 600*time.Millisecond, 5*time.Second, 10*time.Millisecond)

	if got := ind.on - onBefore; got != 3 {
		t.Errorf("on calls after restart = %d, want 3", got)
	}
	if got := ind.off - offBefore; got != 4 {
		t.Errorf("off calls after restart = %d, want 4", got)
	}
}

func TestSync(t *testing.T) {
	ind := &countingIndicator{}
	c := New(Config{Indicator: ind})

	c.Sync()
	if ind.off != 1 {
		t.Errorf("Sync() idle: off=%d, want 1", ind.off)
	}

	c.Start(0)
	c.Advance(500 * time.Millisecond)
	c.Sync()
	if !ind.lit || ind.off != 2 {
		t.Errorf("Sync() during sequence changed LED: lit=%v off=%d", ind.lit, ind.off)
	}
}

func TestCustomFlashes(t *testing.T) {
	ind := &countingIndicator{}
	c := New(Config{Indicator: ind, Flashes: 1, HalfPeriod: 100 * time.Millisecond})
	c.Start(0)
	c.Advance(time.Second)
	if ind.on != 1 || ind.off != 2 {
		t.Errorf("on=%d off=%d, want 1/2", ind.on, ind.off)
	}
}
