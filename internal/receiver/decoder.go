package receiver

import (
	"sync"

	"rideon-controller/internal/types"
)

// Edge is the polarity a channel's capture unit or interrupt trigger is armed for.
type Edge uint8

const (
	EdgeRising Edge = iota
	EdgeFalling
)

func (e Edge) String() string {
	if e == EdgeFalling {
		return "falling"
	}
	return "rising"
}

// Source says how a channel's edges are timestamped.
type Source uint8

const (
	// SourceCapture channels deliver the counter value latched by the edge itself.
	SourceCapture Source = iota
	// SourceEdge channels read the shared ReferenceCounter when their handler runs.
	SourceEdge
)

// SourceOf returns the timestamping source wired to a channel.
func SourceOf(ch types.Channel) Source {
	switch ch {
	case types.ChannelSteering, types.ChannelThrottle:
		return SourceCapture
	default:
		return SourceEdge
	}
}

const (
	// TickPeriodNs is the period of one counter tick (2 MHz counters).
	TickPeriodNs = 500

	// InitialWidthUs is reported until a first complete pulse is seen.
	InitialWidthUs = 1500
)

// ReferenceCounter is the free-running 16-bit counter shared by the edge-interrupt channels.
type ReferenceCounter interface {
	Ticks() uint16
}

// PulseWidthUs converts a rise/fall counter pair into microseconds. The subtraction is
// modular so a counter wrap between the two edges is harmless.
func PulseWidthUs(rise, fall uint16) uint16 {
	counts := fall - rise
	return uint16((uint32(counts) + 1) >> 1)
}

type channelRegs struct {
	widthUs      uint16
	lastActivity uint32
	rise         uint16
	armed        Edge
}

// Decoder holds the registers written from edge handlers. Handlers and the control loop
// both go through mu; every critical section is a handful of assignments.
type Decoder struct {
	mu      sync.Mutex
	counter ReferenceCounter
	regs    [types.NumChannels]channelRegs
}

// NewDecoder arms every channel for a rising edge and stamps it active at nowMs.
func NewDecoder(counter ReferenceCounter, nowMs uint32) *Decoder {
	d := &Decoder{counter: counter}
	for i := range d.regs {
		d.regs[i] = channelRegs{
			widthUs:      InitialWidthUs,
			lastActivity: nowMs,
			armed:        EdgeRising,
		}
	}
	return d
}

// Capture handles an input-capture event carrying the latched counter value.
func (d *Decoder) Capture(ch types.Channel, ticks uint16, nowMs uint32) {
	d.edge(ch, ticks, nowMs)
}

// Trigger handles an edge interrupt; the timestamp comes from the shared reference counter.
func (d *Decoder) Trigger(ch types.Channel, nowMs uint32) {
	d.edge(ch, d.counter.Ticks(), nowMs)
}

// Armed returns the edge the channel will react to next.
func (d *Decoder) Armed(ch types.Channel) Edge {
	if !validChannel(ch) {
		return EdgeRising
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[ch].armed
}

func (d *Decoder) edge(ch types.Channel, ticks uint16, nowMs uint32) {
	if !validChannel(ch) {
		return
	}
	d.mu.Lock()
	r := &d.regs[ch]
	r.lastActivity = nowMs
	if r.armed == EdgeRising {
		r.rise = ticks
		r.armed = EdgeFalling
	} else {
		r.widthUs = PulseWidthUs(r.rise, ticks)
		r.armed = EdgeRising
	}
	d.mu.Unlock()
}

// Snapshot is a consistent copy of every channel's width and activity timestamp.
type Snapshot struct {
	WidthUs      [types.NumChannels]uint16
	LastActivity [types.NumChannels]uint32
}

func (d *Decoder) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Decoder) snapshotLocked() Snapshot {
	var s Snapshot
	for i, r := range d.regs {
		s.WidthUs[i] = r.widthUs
		s.LastActivity[i] = r.lastActivity
	}
	return s
}

// WidthUs returns the most recent completed pulse width of one channel.
func (d *Decoder) WidthUs(ch types.Channel) uint16 {
	if !validChannel(ch) {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[ch].widthUs
}

func validChannel(ch types.Channel) bool {
	return ch >= 0 && int(ch) < types.NumChannels
}
