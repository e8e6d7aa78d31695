// Package integration provides test infrastructure for DCP end-to-end tests.
package integration

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pion/logging"

	"github.com/backkem/dcp/pkg/block"
	"github.com/backkem/dcp/pkg/dcp"
	"github.com/backkem/dcp/pkg/identity"
	"github.com/backkem/dcp/pkg/pdu"
	"github.com/backkem/dcp/pkg/transport"
)

var (
	// DeviceMAC is the responder station address.
	DeviceMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}

	// ToolMAC is the engineering tool station address.
	ToolMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

// LED counts indicator calls. Safe for concurrent use.
type LED struct {
	on, off atomic.Int32
}

func (l *LED) LEDOn()  { l.on.Add(1) }
func (l *LED) LEDOff() { l.off.Add(1) }

// On returns the number of LEDOn calls.
func (l *LED) On() int { return int(l.on.Load()) }

// Off returns the number of LEDOff calls.
func (l *LED) Off() int { return int(l.off.Load()) }

// TestPairConfig configures the test pair creation.
type TestPairConfig struct {
	// Factory is the responder identity. StationName defaults to "device".
	Factory identity.Identity

	// Storage defaults to a fresh memory storage.
	Storage identity.Storage

	// Hello configures the startup announcement. Hello is only sent when
	// SendHello is true.
	Hello     dcp.HelloConfig
	SendHello bool

	// Signal overrides the flash timing.
	Signal dcp.SignalConfig

	// DropRate makes the link lossy.
	DropRate float64

	// LoggerFactory for logging. If nil, uses DefaultLoggerFactory.
	LoggerFactory logging.LoggerFactory
}

// TestPair is a responder and an engineering tool joined by an in-memory
// Ethernet link. The responder runs its event loop in the background.
type TestPair struct {
	// Tool sends requests to the responder and collects what it sends.
	Tool *Tool

	// LED records signal LED activity.
	LED *LED

	// Storage is the responder identity storage.
	Storage identity.Storage

	pipe       *transport.Pipe
	devicePort *transport.Port
	cancel     context.CancelFunc
	done       chan error
}

// NewTestPair creates and starts a test pair. Close must be called.
func NewTestPair(t *testing.T, config TestPairConfig) *TestPair {
	t.Helper()

	if config.Factory.StationName == "" {
		config.Factory.StationName = "device"
	}
	if config.Storage == nil {
		config.Storage = identity.NewMemoryStorage()
	}
	lf := config.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}

	pipe := transport.NewPipe()
	pipe.SetDropRate(config.DropRate)

	frames := make(chan []byte, 64)
	devicePort, err := transport.NewPort(transport.PortConfig{
		Link:          pipe.Station0(),
		Handler: func(f []byte) {
			select {
			case frames <- f:
			default:
			}
		},
		LoggerFactory: lf,
	})
	if err != nil {
		t.Fatalf("device port: %v", err)
	}

	tool, err := newTool(pipe.Station1(), lf)
	if err != nil {
		t.Fatalf("tool: %v", err)
	}

	led := &LED{}
	r, err := dcp.NewResponder(dcp.Config{
		MAC:           DeviceMAC,
		Factory:       config.Factory,
		Storage:       config.Storage,
		Indicator:     led,
		Sender:        devicePort,
		Signal:        config.Signal,
		Hello:         config.Hello,
		LoggerFactory: lf,
	})
	if err != nil {
		t.Fatalf("responder: %v", err)
	}

	if err := devicePort.Start(); err != nil {
		t.Fatalf("device port start: %v", err)
	}
	if config.SendHello {
		if err := r.Hello(); err != nil {
			t.Fatalf("hello: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, frames, 2*time.Millisecond)
	}()

	return &TestPair{
		Tool:       tool,
		LED:        led,
		Storage:    config.Storage,
		pipe:       pipe,
		devicePort: devicePort,
		cancel:     cancel,
		done:       done,
	}
}

// Close stops the responder and releases the link.
func (p *TestPair) Close() {
	p.cancel()
	<-p.done
	p.Tool.port.Stop()
	p.devicePort.Stop()
	p.pipe.Close()
}

// Tool is a minimal engineering tool: it sends DCP requests and queues
// every decoded frame it receives.
type Tool struct {
	port *transport.Port
	recv chan *pdu.Frame

	mu  sync.Mutex
	xid uint32
}

func newTool(link transport.Link, lf logging.LoggerFactory) (*Tool, error) {
	t := &Tool{recv: make(chan *pdu.Frame, 64)}
	port, err := transport.NewPort(transport.PortConfig{
		Link: link,
		Handler: func(raw []byte) {
			f, err := pdu.Decode(raw)
			if err != nil {
				return
			}
			select {
			case t.recv <- f:
			default:
			}
		},
		LoggerFactory: lf,
	})
	if err != nil {
		return nil, err
	}
	t.port = port
	return t, port.Start()
}

// NextXid returns a fresh transaction id.
func (t *Tool) NextXid() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.xid++
	return t.xid
}

// Send transmits a frame to the responder.
func (t *Tool) Send(f *pdu.Frame) error {
	return t.port.Send(f.Encode(), f.Destination)
}

// Get sends a Get request and returns its xid.
func (t *Tool) Get(keys ...block.Key) (uint32, error) {
	xid := t.NextXid()
	return xid, t.Send(pdu.NewGetRequest(DeviceMAC, ToolMAC, xid, keys...))
}

// Set sends a Set request and returns its xid.
func (t *Tool) Set(blocks ...pdu.Block) (uint32, error) {
	xid := t.NextXid()
	return xid, t.Send(pdu.NewSetRequest(DeviceMAC, ToolMAC, xid, blocks...))
}

// Identify multicasts an Identify request and returns its xid.
func (t *Tool) Identify(delayFactor uint16, filters ...pdu.Block) (uint32, error) {
	xid := t.NextXid()
	return xid, t.Send(pdu.NewIdentifyRequest(ToolMAC, xid, delayFactor, filters...))
}

// Expect returns the first received frame that satisfies match, discarding
// the others. It returns nil after timeout.
func (t *Tool) Expect(match func(*pdu.Frame) bool, timeout time.Duration) *pdu.Frame {
	deadline := time.After(timeout)
	for {
		select {
		case f := <-t.recv:
			if match(f) {
				return f
			}
		case <-deadline:
			return nil
		}
	}
}

// Response matches the response with the given frame id and xid.
func Response(id pdu.FrameID, xid uint32) func(*pdu.Frame) bool {
	return func(f *pdu.Frame) bool {
		return f.FrameID == id && f.Header.Xid == xid && f.Header.ServiceType != pdu.ServiceTypeRequest
	}
}

// IsHello matches Hello requests.
func IsHello(f *pdu.Frame) bool {
	return f.FrameID == pdu.FrameIDHello
}

// DataBlock returns the payload of the response data block for key, with
// the block info prefix removed.
func DataBlock(f *pdu.Frame, key block.Key) ([]byte, bool) {
	for _, b := range f.Blocks {
		if b.Key != key {
			continue
		}
		if _, payload, ok := b.SplitPrefix(); ok {
			return payload, true
		}
	}
	return nil, false
}

// Codes returns the error code of every status block in f.
func Codes(f *pdu.Frame) []block.ErrorCode {
	var codes []block.ErrorCode
	for _, b := range f.Blocks {
		if _, code, ok := b.Status(); ok {
			codes = append(codes, code)
		}
	}
	return codes
}
