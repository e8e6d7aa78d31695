package dcp

import (
	"net"
	"sync"

	"github.com/backkem/dcp/pkg/block"
	"github.com/backkem/dcp/pkg/signal"
	"github.com/backkem/dcp/pkg/transport"
)

// SentFrame is a frame recorded by CountingSender.
type SentFrame struct {
	Frame []byte
	Dst   net.HardwareAddr
}

// CountingSender records every frame it is asked to send.
// Set Err to make Send fail.
type CountingSender struct {
	mu     sync.Mutex
	frames []SentFrame
	Err    error
}

// Send records the frame, or returns Err if set.
func (s *CountingSender) Send(frame []byte, dst net.HardwareAddr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.frames = append(s.frames, SentFrame{
		Frame: append([]byte(nil), frame...),
		Dst:   append(net.HardwareAddr(nil), dst...),
	})
	return nil
}

// Count returns the number of frames sent.
func (s *CountingSender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Frames returns a copy of the sent frames.
func (s *CountingSender) Frames() []SentFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentFrame(nil), s.frames...)
}

// Reset forgets all recorded frames.
func (s *CountingSender) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
}

// CountingIndicator counts LED calls.
type CountingIndicator struct {
	On  int
	Off int
}

func (c *CountingIndicator) LEDOn()  { c.On++ }
func (c *CountingIndicator) LEDOff() { c.Off++ }

// CountingIPConfigurator counts IP suite commits.
// Set Err to make SetIPSuite fail.
type CountingIPConfigurator struct {
	Calls int
	Last  block.IPParameter
	Err   error
}

// SetIPSuite records p, or returns Err if set.
func (c *CountingIPConfigurator) SetIPSuite(p block.IPParameter) error {
	if c.Err != nil {
		return c.Err
	}
	c.Calls++
	c.Last = p
	return nil
}

var (
	_ transport.Sender = (*CountingSender)(nil)
	_ signal.Indicator = (*CountingIndicator)(nil)
)
