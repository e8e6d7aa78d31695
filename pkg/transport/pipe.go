package transport

import (
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v3/test"
)

// PipeConfig configures a Pipe.
type PipeConfig struct {
	// AutoProcess enables automatic frame delivery in a background goroutine.
	// Default: true
	AutoProcess bool

	// ProcessInterval is how often the auto-processor delivers frames.
	// Default: 1ms
	ProcessInterval time.Duration
}

// DefaultPipeConfig returns the default pipe configuration.
func DefaultPipeConfig() PipeConfig {
	return PipeConfig{
		AutoProcess:     true,
		ProcessInterval: time.Millisecond,
	}
}

// Pipe is an in-memory Ethernet segment between two stations. It wraps
// pion's test.Bridge and can drop frames to simulate a lossy link.
//
// With AutoProcess disabled, frames are only delivered by Tick or Process,
// which makes frame ordering deterministic in tests.
type Pipe struct {
	bridge *test.Bridge

	mu              sync.RWMutex
	dropRate        float64
	rng             *rand.Rand
	closed          bool
	autoProcess     bool
	processInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

// NewPipe creates a pipe with auto-processing enabled.
func NewPipe() *Pipe {
	return NewPipeWithConfig(DefaultPipeConfig())
}

// NewPipeWithConfig creates a pipe with the given configuration.
func NewPipeWithConfig(config PipeConfig) *Pipe {
	p := &Pipe{
		bridge:          test.NewBridge(),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		autoProcess:     config.AutoProcess,
		processInterval: config.ProcessInterval,
		stopCh:          make(chan struct{}),
	}
	if p.processInterval == 0 {
		p.processInterval = time.Millisecond
	}
	if p.autoProcess {
		p.startAutoProcess()
	}
	return p
}

func (p *Pipe) startAutoProcess() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.processInterval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.bridge.Tick()
			}
		}
	}()
}

// SetDropRate sets the probability (0.0 - 1.0) that a written frame is lost.
func (p *Pipe) SetDropRate(rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropRate = rate
}

// Station0 returns the link of the first station.
func (p *Pipe) Station0() Link {
	return &pipeLink{Conn: p.bridge.GetConn0(), pipe: p}
}

// Station1 returns the link of the second station.
func (p *Pipe) Station1() Link {
	return &pipeLink{Conn: p.bridge.GetConn1(), pipe: p}
}

// Tick delivers one frame in each direction, if queued, and returns how
// many were delivered.
func (p *Pipe) Tick() int {
	return p.bridge.Tick()
}

// Process delivers all queued frames and returns how many were delivered.
func (p *Pipe) Process() int {
	count := 0
	for {
		n := p.Tick()
		if n == 0 {
			return count
		}
		count += n
	}
}

// Close closes both stations and stops auto-processing.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.autoProcess {
		close(p.stopCh)
	}
	p.mu.Unlock()

	p.wg.Wait()

	err0 := p.bridge.GetConn0().Close()
	err1 := p.bridge.GetConn1().Close()
	if err0 != nil {
		return err0
	}
	return err1
}

// pipeLink applies the pipe's drop rate to writes.
type pipeLink struct {
	net.Conn
	pipe *Pipe
}

func (l *pipeLink) Write(b []byte) (int, error) {
	l.pipe.mu.Lock()
	rate := l.pipe.dropRate
	drop := rate > 0 && l.pipe.rng.Float64() < rate
	l.pipe.mu.Unlock()

	if drop {
		return len(b), nil
	}
	return l.Conn.Write(b)
}
