// Package dcp implements the device side of the PROFINET Discovery and
// Configuration Protocol.
//
// A Responder answers Identify, Get and Set requests from engineering tools,
// announces the device with Hello requests and flashes the signal LED on
// request. It is driven from outside: HandleFrame for every received frame
// and Tick to advance time. Run combines both in an event loop.
//
// A successful Get or Set is followed by a multicast Hello unless
// Config.Hello.NoAnnounce is set.
//
// Example:
//
//	r, err := dcp.NewResponder(dcp.Config{
//		MAC:       mac,
//		Factory:   identity.Identity{StationName: "io-device"},
//		Storage:   identity.NewFileStorage("/var/lib/dcp/identity.yaml"),
//		Indicator: led,
//		Sender:    port,
//	})
//	r.Hello()
//	r.Run(ctx, frames, 10*time.Millisecond)
//
// A Responder is not safe for concurrent use. One goroutine owns it.
package dcp

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/pion/logging"
	"golang.org/x/time/rate"

	"github.com/backkem/dcp/pkg/capture"
	"github.com/backkem/dcp/pkg/dispatch"
	"github.com/backkem/dcp/pkg/identity"
	"github.com/backkem/dcp/pkg/metrics"
	"github.com/backkem/dcp/pkg/pdu"
	"github.com/backkem/dcp/pkg/scheduler"
	"github.com/backkem/dcp/pkg/signal"
	"github.com/backkem/dcp/pkg/transport"
)

// Frame kinds used as the metrics "kind" label.
const (
	sentResponse = "response"
	sentDeferred = "deferred"
	sentHello    = "hello"
)

// dropMalformed labels frames that failed to decode.
const dropMalformed = "malformed"

// Responder is a DCP device responder.
type Responder struct {
	config Config
	log    logging.LeveledLogger

	state    *identity.State
	signal   *signal.Controller
	sched    *scheduler.Scheduler
	dispatch *dispatch.Dispatcher
	metrics  *metrics.Responder
	sender   transport.Sender
	capture  capture.Logger

	// dropLog throttles warnings about malformed frames.
	dropLog *rate.Limiter

	now time.Duration
	xid uint32
}

// NewResponder creates a responder. The identity is loaded from storage.
func NewResponder(config Config) (*Responder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	state, err := identity.New(identity.Config{
		MAC:            config.MAC,
		Factory:        config.Factory,
		Storage:        config.Storage,
		IPConfigurator: config.IPConfigurator,
		Policy:         config.Policy,
		LoggerFactory:  config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}

	sig := signal.New(signal.Config{
		Indicator:     config.Indicator,
		Flashes:       config.Signal.Flashes,
		HalfPeriod:    config.Signal.HalfPeriod,
		LoggerFactory: config.LoggerFactory,
	})

	d, err := dispatch.New(dispatch.Config{
		State:         state,
		Signal:        sig,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}

	r := &Responder{
		config:   config,
		log:      config.LoggerFactory.NewLogger("dcp"),
		state:    state,
		signal:   sig,
		dispatch: d,
		sched: scheduler.New(scheduler.Config{
			Random:        config.Random,
			LoggerFactory: config.LoggerFactory,
		}),
		metrics: metrics.NewResponder(config.Registerer),
		sender:  config.Sender,
		capture: config.Capture,
		dropLog: rate.NewLimiter(rate.Every(time.Second), 5),
	}

	id := state.Identity()
	r.log.Infof("responder ready: mac=%v name=%q hello=%v", id.MAC, id.StationName, id.HelloEnabled)
	return r, nil
}

// State returns the identity state.
func (r *Responder) State() *identity.State {
	return r.state
}

// Now returns the responder clock: the sum of all Tick durations.
func (r *Responder) Now() time.Duration {
	return r.now
}

// Pending returns the number of scheduled frames.
func (r *Responder) Pending() int {
	return r.sched.Pending()
}

// HandleFrame processes one received Ethernet frame. It reports whether
// the frame was answered, either immediately or by a scheduled response.
//
// A frame that does not decode returns the pdu error and produces no
// output. A send failure returns an error wrapping ErrSend; the request
// has still been applied.
func (r *Responder) HandleFrame(raw []byte) (bool, error) {
	f, err := pdu.Decode(raw)
	if err != nil {
		r.metrics.FramesDropped.WithLabelValues(dropMalformed).Inc()
		r.record(capture.DirectionIn, nil, raw, 0, err.Error())
		if r.dropLog.Allow() {
			r.log.Warnf("drop malformed frame (%d bytes): %v", len(raw), err)
		}
		return false, err
	}

	r.metrics.FramesReceived.WithLabelValues(serviceLabel(f.Header.ServiceID)).Inc()
	out := r.dispatch.Handle(f, r.now)
	r.record(capture.DirectionIn, f.Source, raw, f.Header.Xid, string(out.Reason))

	for _, res := range out.Results {
		r.metrics.SetBlocks.WithLabelValues(res.Code.String()).Inc()
	}
	if out.Signal {
		r.metrics.SignalsStarted.Inc()
	}

	var sendErr error
	switch out.Kind {
	case dispatch.KindDrop:
		r.metrics.FramesDropped.WithLabelValues(string(out.Reason)).Inc()
		r.log.Tracef("drop %v xid=%#x from %v: %s", out.Service, out.Xid, out.Peer, out.Reason)
		return false, nil

	case dispatch.KindRespond, dispatch.KindUnsupported:
		sendErr = r.send(out.Response, sentResponse)

	case dispatch.KindDefer:
		delay := r.sched.ScheduleRandom(out.Xid, out.Peer, out.DelayFactor, r.now, encoder(out.Build))
		r.metrics.PendingResponses.Set(float64(r.sched.Pending()))
		r.log.Debugf("identify xid=%#x from %v: respond in %v", out.Xid, out.Peer, delay)
	}

	if out.Announce && !r.config.Hello.NoAnnounce && r.state.Identity().HelloEnabled {
		if err := r.send(r.dispatch.HelloFrame(r.nextXid()), sentHello); err != nil && sendErr == nil {
			sendErr = err
		}
	}
	return true, sendErr
}

// Tick advances the clock by elapsed, sends every scheduled frame that is
// due, then fires due LED toggles.
func (r *Responder) Tick(elapsed time.Duration) {
	r.now += elapsed

	if r.sched.Pending() > 0 {
		res := r.sched.Advance(r.now, r.sendScheduled)
		if res.Failed > 0 {
			r.log.Warnf("%d scheduled frames not sent", res.Failed)
		}
		r.metrics.PendingResponses.Set(float64(r.sched.Pending()))
	}
	r.signal.Advance(r.now)
}

// Hello multicasts a Hello request now and schedules Config.Hello.Repeats
// more at Config.Hello.Interval. The signal LED is asserted OFF unless a
// flash sequence is running.
func (r *Responder) Hello() error {
	if !r.state.Identity().HelloEnabled {
		return ErrHelloDisabled
	}

	if err := r.send(r.dispatch.HelloFrame(r.nextXid()), sentHello); err != nil {
		return err
	}
	for i := 1; i <= r.config.Hello.Repeats; i++ {
		xid := r.nextXid()
		r.sched.ScheduleAfter(xid, pdu.HelloMulticast, r.now, time.Duration(i)*r.config.Hello.Interval,
			func() ([]byte, error) {
				return r.dispatch.HelloFrame(xid).Encode(), nil
			})
	}
	r.metrics.PendingResponses.Set(float64(r.sched.Pending()))

	r.signal.Sync()
	return nil
}

// Run handles frames and advances time until ctx is done or frames is
// closed. Received frames are always handled before due timers. interval
// is the timer resolution and should be well below the signal half period.
func (r *Responder) Run(ctx context.Context, frames <-chan []byte, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-frames:
			if !ok {
				return nil
			}
			r.handle(raw)

		case t := <-ticker.C:
			for drained := false; !drained; {
				select {
				case raw, ok := <-frames:
					if !ok {
						return nil
					}
					r.handle(raw)
				default:
					drained = true
				}
			}
			r.Tick(t.Sub(last))
			last = t
		}
	}
}

// handle is HandleFrame for the event loop, where errors are already
// logged and counted.
func (r *Responder) handle(raw []byte) {
	_, _ = r.HandleFrame(raw)
}

func (r *Responder) send(f *pdu.Frame, kind string) error {
	raw := f.Encode()
	if err := r.sender.Send(raw, f.Destination); err != nil {
		r.metrics.SendErrors.Inc()
		r.log.Warnf("send %s to %v: %v", kind, f.Destination, err)
		return fmt.Errorf("%w: %v", ErrSend, err)
	}
	r.metrics.FramesSent.WithLabelValues(kind).Inc()
	r.record(capture.DirectionOut, f.Destination, raw, f.Header.Xid, "")
	return nil
}

func (r *Responder) sendScheduled(xid uint32, raw []byte, dst net.HardwareAddr) error {
	if err := r.sender.Send(raw, dst); err != nil {
		r.metrics.SendErrors.Inc()
		return err
	}
	kind := sentDeferred
	if bytes.Equal(dst, pdu.HelloMulticast) {
		kind = sentHello
	}
	r.metrics.FramesSent.WithLabelValues(kind).Inc()
	r.record(capture.DirectionOut, dst, raw, xid, "")
	return nil
}

func (r *Responder) record(dir capture.Direction, peer net.HardwareAddr, raw []byte, xid uint32, note string) {
	if r.capture == nil {
		return
	}
	e := capture.NewEvent(dir, peer, raw)
	e.Xid = xid
	e.Note = note
	r.capture.Log(e)
}

func (r *Responder) nextXid() uint32 {
	r.xid++
	return r.xid
}

func encoder(build func() *pdu.Frame) scheduler.BuildFunc {
	return func() ([]byte, error) {
		return build().Encode(), nil
	}
}

func serviceLabel(s pdu.ServiceID) string {
	switch s {
	case pdu.ServiceGet:
		return "get"
	case pdu.ServiceSet:
		return "set"
	case pdu.ServiceIdentify:
		return "identify"
	case pdu.ServiceHello:
		return "hello"
	default:
		return strconv.Itoa(int(s))
	}
}
