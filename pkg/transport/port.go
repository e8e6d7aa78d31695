package transport

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/pion/logging"

	"github.com/backkem/dcp/pkg/pdu"
)

// PortConfig configures a Port.
type PortConfig struct {
	// Link carries the frames. Required.
	Link Link

	// Handler is called for each received DCP frame. Required.
	Handler FrameHandler

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Port reads DCP frames from a link and sends frames on it.
type Port struct {
	link    Link
	handler FrameHandler
	closeCh chan struct{}
	wg      sync.WaitGroup
	log     logging.LeveledLogger

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewPort creates a port. Call Start to begin reading.
func NewPort(config PortConfig) (*Port, error) {
	if config.Link == nil {
		return nil, ErrNoConn
	}
	if config.Handler == nil {
		return nil, ErrNoHandler
	}
	p := &Port{
		link:    config.Link,
		handler: config.Handler,
		closeCh: make(chan struct{}),
	}
	if config.LoggerFactory != nil {
		p.log = config.LoggerFactory.NewLogger("transport")
	}
	return p, nil
}

// Start begins the read loop.
func (p *Port) Start() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.readLoop()
	return nil
}

// Stop closes the link and waits for the read loop to exit.
func (p *Port) Stop() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.closed = true
	p.mu.Unlock()

	close(p.closeCh)
	err := p.link.Close()
	p.wg.Wait()
	return err
}

// Send writes one frame to the link.
func (p *Port) Send(frame []byte, dst net.HardwareAddr) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if len(dst) != 6 {
		return ErrInvalidAddress
	}
	if len(frame) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	if p.log != nil {
		p.log.Tracef("sending %d bytes to %v", len(frame), dst)
	}
	if _, err := p.link.Write(frame); err != nil {
		if p.log != nil {
			p.log.Warnf("send to %v failed: %v", dst, err)
		}
		return err
	}
	return nil
}

func (p *Port) readLoop() {
	defer p.wg.Done()

	buf := make([]byte, MaxFrameSize)
	for {
		n, err := p.link.Read(buf)
		if err != nil {
			select {
			case <-p.closeCh:
				return
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if p.log != nil {
				p.log.Warnf("read: %v", err)
			}
			if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
				return
			}
			continue
		}

		if !pdu.IsDCP(buf[:n]) {
			continue
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		p.handler(frame)
	}
}

var _ Sender = (*Port)(nil)
