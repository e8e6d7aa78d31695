// Package dispatch interprets decoded DCP frames.
//
// Handle classifies a frame as Identify, Get or Set, applies its semantics
// to the device identity and signal controller, and returns an Outcome
// describing what to send. It never sends anything itself: the caller
// transmits immediate responses and schedules deferred ones.
//
// Dispatch rules:
//
//   - Frames not addressed to the device MAC, the Identify multicast address
//     or broadcast are dropped.
//   - Identify: every filter block must match the identity (AND). The All
//     selector or no filter matches. A multicast request is answered after
//     a random delay, a unicast request immediately.
//   - Get: one data block per requested key, or a status block for keys
//     that cannot be read. The All selector expands to every readable block.
//   - Set: all blocks are decoded and validated before anything is applied.
//     If any block fails nothing is applied. The response carries one
//     status block per request block.
//   - Directly addressed requests with an unknown service or service type
//     are answered with ResponseUnsupported. Responses and Hellos from
//     other stations are dropped, never answered.
//   - A successful Get or Set sets Outcome.Announce. The caller decides
//     whether a Hello follows.
package dispatch

import (
	"bytes"
	"fmt"
	"net"
	"time"

	"github.com/pion/logging"

	"github.com/backkem/dcp/pkg/block"
	"github.com/backkem/dcp/pkg/identity"
	"github.com/backkem/dcp/pkg/pdu"
	"github.com/backkem/dcp/pkg/signal"
)

// Config configures a Dispatcher.
type Config struct {
	// State is the device identity. Required.
	State *identity.State

	// Signal plays flash sequences for Signal requests. Required.
	Signal *signal.Controller

	// LoggerFactory creates the package logger. Optional.
	LoggerFactory logging.LoggerFactory
}

// Dispatcher applies DCP service semantics.
//
// Not safe for concurrent use.
type Dispatcher struct {
	state  *identity.State
	signal *signal.Controller
	log    logging.LeveledLogger
}

// New creates a dispatcher.
func New(config Config) (*Dispatcher, error) {
	if config.State == nil {
		return nil, ErrStateRequired
	}
	if config.Signal == nil {
		return nil, ErrSignalRequired
	}
	if config.LoggerFactory == nil {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	return &Dispatcher{
		state:  config.State,
		signal: config.Signal,
		log:    config.LoggerFactory.NewLogger("dispatch"),
	}, nil
}

// Handle processes one decoded frame received at now.
func (d *Dispatcher) Handle(f *pdu.Frame, now time.Duration) Outcome {
	direct := bytes.Equal(f.Destination, d.state.MAC())
	if !direct && !isGroup(f.Destination) {
		return drop(f, ReasonNotAddressed)
	}

	switch f.FrameID {
	case pdu.FrameIDHello:
		return drop(f, ReasonForeignHello)
	case pdu.FrameIDIdentifyResponse:
		return drop(f, ReasonResponse)
	case pdu.FrameIDIdentifyRequest:
		if isResponse(f.Header.ServiceType) {
			return drop(f, ReasonResponse)
		}
		if f.Header.ServiceID != pdu.ServiceIdentify || f.Header.ServiceType != pdu.ServiceTypeRequest {
			if !direct {
				return drop(f, ReasonBadService)
			}
			return d.unsupported(f)
		}
		return d.identify(f, direct)
	}

	// Get/Set FrameID from here on.
	if !direct {
		return drop(f, ReasonNotUnicast)
	}
	if isResponse(f.Header.ServiceType) {
		return drop(f, ReasonResponse)
	}
	if f.Header.ServiceType != pdu.ServiceTypeRequest {
		return d.unsupported(f)
	}

	switch f.Header.ServiceID {
	case pdu.ServiceGet:
		return d.get(f)
	case pdu.ServiceSet:
		return d.set(f, now)
	default:
		return d.unsupported(f)
	}
}

// isResponse reports whether st is one of the response types another
// station answers with. Those are never answered.
func isResponse(st pdu.ServiceType) bool {
	return st == pdu.ServiceTypeSuccess || st == pdu.ServiceTypeResponseUnsupported
}

// unsupported answers a directly addressed request whose service or
// service type the device does not implement.
func (d *Dispatcher) unsupported(f *pdu.Frame) Outcome {
	d.log.Debugf("unsupported service %v type %v from %v", f.Header.ServiceID, f.Header.ServiceType, f.Source)
	return Outcome{
		Kind:     KindUnsupported,
		Service:  f.Header.ServiceID,
		Response: pdu.NewResponse(f, d.state.MAC(), pdu.ServiceTypeResponseUnsupported, nil),
		Xid:      f.Header.Xid,
		Peer:     f.Source,
	}
}

func isGroup(mac net.HardwareAddr) bool {
	return bytes.Equal(mac, pdu.IdentifyMulticast) || bytes.Equal(mac, pdu.Broadcast)
}

func (d *Dispatcher) identify(f *pdu.Frame, direct bool) Outcome {
	if !d.matches(f.Blocks) {
		return drop(f, ReasonFilterMismatch)
	}

	build := func() *pdu.Frame {
		return pdu.NewResponse(f, d.state.MAC(), pdu.ServiceTypeSuccess, d.IdentityBlocks())
	}
	out := Outcome{
		Service:     pdu.ServiceIdentify,
		Xid:         f.Header.Xid,
		Peer:        f.Source,
		DelayFactor: f.Header.ResponseDelay,
	}
	if direct {
		out.Kind = KindRespond
		out.Response = build()
		return out
	}
	out.Kind = KindDefer
	out.Build = build
	return out
}

// matches reports whether every filter block matches the identity.
func (d *Dispatcher) matches(filters []pdu.Block) bool {
	for _, b := range filters {
		if b.Key == block.KeyAll {
			continue
		}
		c, err := block.Lookup(b.Key)
		if err != nil || !c.Filterable() {
			return false
		}
		current, err := d.state.ReadField(b.Key)
		if err != nil || !bytes.Equal(current, b.Data) {
			return false
		}
	}
	return true
}

func (d *Dispatcher) get(f *pdu.Frame) Outcome {
	var keys []block.Key
	for _, b := range f.Blocks {
		if b.Key == block.KeyAll {
			keys = append(keys, block.Readable()...)
			continue
		}
		keys = append(keys, b.Key)
	}

	var resp responseBuilder
	for _, k := range keys {
		data, err := d.state.ReadField(k)
		if err != nil {
			resp.add(pdu.NewStatusBlock(k, block.CodeFor(err)))
			continue
		}
		resp.add(pdu.NewDataBlock(k, d.state.Info(k), data))
	}
	if resp.truncated > 0 {
		d.log.Warnf("get from %v: %d blocks did not fit the response", f.Source, resp.truncated)
	}

	return Outcome{
		Kind:     KindRespond,
		Service:  pdu.ServiceGet,
		Response: pdu.NewResponse(f, d.state.MAC(), pdu.ServiceTypeSuccess, resp.blocks),
		Xid:      f.Header.Xid,
		Peer:     f.Source,
		Announce: true,
	}
}

func (d *Dispatcher) set(f *pdu.Frame, now time.Duration) Outcome {
	tx := d.state.Begin()
	results := make([]BlockResult, len(f.Blocks))
	startSignal := false
	failed := false

	// Phase one: decode and stage every block.
	for i, b := range f.Blocks {
		err := d.stage(tx, b, &startSignal)
		results[i] = BlockResult{Key: b.Key, Code: block.CodeFor(err)}
		if err != nil {
			failed = true
			d.log.Debugf("set %v from %v rejected: %v", b.Key, f.Source, err)
		}
	}

	// Phase two: apply, all or nothing.
	if failed {
		tx.Discard()
	} else if err := tx.Commit(); err != nil {
		failed = true
		d.log.Warnf("set from %v: commit failed: %v", f.Source, err)
		code := block.CodeFor(err)
		for i := range results {
			results[i].Code = code
		}
	}

	if !failed && startSignal {
		d.signal.Start(now)
	}

	var resp responseBuilder
	for _, r := range results {
		resp.add(pdu.NewStatusBlock(r.Key, r.Code))
	}

	return Outcome{
		Kind:     KindRespond,
		Service:  pdu.ServiceSet,
		Response: pdu.NewResponse(f, d.state.MAC(), pdu.ServiceTypeSuccess, resp.blocks),
		Xid:      f.Header.Xid,
		Peer:     f.Source,
		Announce: !failed,
		Results:  results,
		Signal:   !failed && startSignal,
	}
}

// stage decodes one Set block and stages it on tx.
func (d *Dispatcher) stage(tx *identity.Tx, b pdu.Block, startSignal *bool) error {
	q, payload, ok := b.SplitPrefix()
	if !ok {
		return fmt.Errorf("%w: %v without qualifier", block.ErrInvalidValue, b.Key)
	}
	c, err := block.Lookup(b.Key)
	if err != nil {
		return err
	}
	if !c.Writable() {
		return fmt.Errorf("%w: %v is read only", block.ErrNotPermitted, b.Key)
	}
	v, err := c.Decode(block.Qualifier(q), payload)
	if err != nil {
		return err
	}

	switch v := v.(type) {
	case block.Transaction:
		return nil
	case block.Signal:
		if v.Active() {
			*startSignal = true
		}
		return nil
	default:
		return tx.Write(v, block.Qualifier(q))
	}
}

// IdentityBlocks returns the data blocks announced in Identify responses
// and Hello requests: every readable block except the MAC address, which
// is already the frame source.
func (d *Dispatcher) IdentityBlocks() []pdu.Block {
	var resp responseBuilder
	for _, k := range block.Readable() {
		if k == block.KeyMACAddress {
			continue
		}
		data, err := d.state.ReadField(k)
		if err != nil {
			d.log.Errorf("read %v: %v", k, err)
			continue
		}
		resp.add(pdu.NewDataBlock(k, d.state.Info(k), data))
	}
	return resp.blocks
}

// HelloFrame builds a multicast Hello request carrying the identity blocks.
func (d *Dispatcher) HelloFrame(xid uint32) *pdu.Frame {
	return pdu.NewHello(d.state.MAC(), xid, d.IdentityBlocks())
}

// responseBuilder collects blocks up to pdu.MaxDataLength. Blocks that do
// not fit are counted and left out.
type responseBuilder struct {
	blocks    []pdu.Block
	size      int
	truncated int
}

func (r *responseBuilder) add(b pdu.Block) {
	n := pdu.BlockHeaderSize + len(b.Data)
	n += n % 2
	if r.size+n > pdu.MaxDataLength {
		r.truncated++
		return
	}
	r.size += n
	r.blocks = append(r.blocks, b)
}
