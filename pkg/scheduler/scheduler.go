// Package scheduler holds DCP responses that are sent later: Identify
// responses delayed by a random amount to avoid response storms, and
// repeated Hello announcements at fixed intervals.
//
// Entries are keyed by (Xid, destination). The frame is built when the
// entry fires, not when it is scheduled, so it reflects the device
// identity at send time. The scheduler has no timers of its own; time is
// fed in through Advance.
package scheduler

import (
	"container/heap"
	"net"
	"time"

	"github.com/pion/logging"
)

// Unit is the granularity of the ResponseDelay factor.
const Unit = 10 * time.Millisecond

// MaxFactor bounds the ResponseDelay factor. Larger values are clamped.
const MaxFactor = 6400

// BuildFunc builds the frame to send when an entry fires. Returning an
// error drops the entry.
type BuildFunc func() ([]byte, error)

// SendFunc transmits a frame. xid is the transaction the entry was
// scheduled under.
type SendFunc func(xid uint32, frame []byte, dst net.HardwareAddr) error

// Key identifies a pending entry.
type Key struct {
	Xid uint32
	Dst string // net.HardwareAddr bytes
}

// NewKey returns the key for xid and dst.
func NewKey(xid uint32, dst net.HardwareAddr) Key {
	return Key{Xid: xid, Dst: string(dst)}
}

// Config configures a Scheduler.
type Config struct {
	// Random draws the Identify response delay. Default: DefaultRandomSource.
	Random RandomSource

	// LoggerFactory creates the package logger. Optional.
	LoggerFactory logging.LoggerFactory
}

// Result counts what an Advance call did.
type Result struct {
	Sent   int
	Failed int
}

// Scheduler is a table of pending responses ordered by fire time.
//
// Not safe for concurrent use.
type Scheduler struct {
	entries map[Key]*entry
	queue   queue
	seq     uint64

	random RandomSource
	log    logging.LeveledLogger
}

type entry struct {
	key   Key
	dst   net.HardwareAddr
	at    time.Duration
	seq   uint64
	build BuildFunc
	index int
}

// New creates an empty scheduler.
func New(config Config) *Scheduler {
	if config.Random == nil {
		config.Random = DefaultRandomSource
	}
	if config.LoggerFactory == nil {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	return &Scheduler{
		entries: make(map[Key]*entry),
		random:  config.Random,
		log:     config.LoggerFactory.NewLogger("scheduler"),
	}
}

// Delay draws a response delay in [0, factor × Unit).
func (s *Scheduler) Delay(factor uint16) time.Duration {
	f := min(int64(factor), MaxFactor)
	return time.Duration(s.random.Float64() * float64(f*int64(Unit)))
}

// ScheduleRandom schedules build to fire after a random delay derived from
// the ResponseDelay factor. An entry with the same key is replaced.
// Returns the chosen delay.
func (s *Scheduler) ScheduleRandom(xid uint32, dst net.HardwareAddr, factor uint16, now time.Duration, build BuildFunc) time.Duration {
	d := s.Delay(factor)
	s.schedule(xid, dst, now+d, build)
	return d
}

// ScheduleAfter schedules build to fire after a fixed delay. An entry with
// the same key is replaced.
func (s *Scheduler) ScheduleAfter(xid uint32, dst net.HardwareAddr, now, delay time.Duration, build BuildFunc) {
	s.schedule(xid, dst, now+delay, build)
}

func (s *Scheduler) schedule(xid uint32, dst net.HardwareAddr, at time.Duration, build BuildFunc) {
	k := NewKey(xid, dst)
	if old, ok := s.entries[k]; ok {
		heap.Remove(&s.queue, old.index)
		s.log.Debugf("replacing pending response xid=%#x dst=%v", xid, dst)
	}

	s.seq++
	e := &entry{
		key:   k,
		dst:   append(net.HardwareAddr(nil), dst...),
		at:    at,
		seq:   s.seq,
		build: build,
	}
	s.entries[k] = e
	heap.Push(&s.queue, e)
}

// Cancel removes the entry for (xid, dst). Returns false if none exists.
func (s *Scheduler) Cancel(xid uint32, dst net.HardwareAddr) bool {
	e, ok := s.entries[NewKey(xid, dst)]
	if !ok {
		return false
	}
	heap.Remove(&s.queue, e.index)
	delete(s.entries, e.key)
	return true
}

// Pending returns the number of scheduled entries.
func (s *Scheduler) Pending() int {
	return len(s.entries)
}

// Next returns the fire time of the earliest entry.
func (s *Scheduler) Next() (time.Duration, bool) {
	if len(s.queue) == 0 {
		return 0, false
	}
	return s.queue[0].at, true
}

// Advance fires every entry due at or before now, in fire-time order with
// ties broken by scheduling order. Each entry is attempted once: build or
// send failures are logged and the entry is dropped.
func (s *Scheduler) Advance(now time.Duration, send SendFunc) Result {
	var r Result
	for len(s.queue) > 0 && s.queue[0].at <= now {
		e := heap.Pop(&s.queue).(*entry)
		delete(s.entries, e.key)

		frame, err := e.build()
		if err != nil {
			s.log.Warnf("dropping response xid=%#x dst=%v: build: %v", e.key.Xid, e.dst, err)
			r.Failed++
			continue
		}
		if err := send(e.key.Xid, frame, e.dst); err != nil {
			s.log.Warnf("dropping response xid=%#x dst=%v: send: %v", e.key.Xid, e.dst, err)
			r.Failed++
			continue
		}
		r.Sent++
	}
	return r
}

// queue implements heap.Interface ordered by (at, seq).
type queue []*entry

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}
