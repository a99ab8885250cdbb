package receiver

import (
	"rideon-controller/internal/rangeutil"
	"rideon-controller/internal/types"
)

// Stick travel mapped onto the 0..255 axis.
const (
	PulseMinUs = 1100
	PulseMaxUs = 1900

	// ReverseThresholdUs: reverse is engaged above this width.
	ReverseThresholdUs = 1500
	// TakeoverThresholdUs: takeover is engaged below this width. It sits above the reverse
	// threshold so that a marginal signal reads as kid control.
	TakeoverThresholdUs = 1600
)

// MapPulse rescales a pulse width onto 0..255, clamps, and optionally inverts.
func MapPulse(us, minUs, maxUs uint16, invert bool) uint8 {
	mapped := rangeutil.Clamp(rangeutil.MapRange(us, minUs, maxUs, 0, 255), 0, 255)
	if invert {
		mapped = 255 - mapped
	}
	return uint8(mapped)
}

func ReverseEngaged(us uint16) bool {
	return us > ReverseThresholdUs
}

func TakeoverEngaged(us uint16) bool {
	return us < TakeoverThresholdUs
}

// Inputs is one cycle's view of the receiver.
type Inputs struct {
	Steering    uint8
	Throttle    uint8
	MaxThrottle uint8
	Reverse     bool
	Takeover    bool

	RawUs              [types.NumChannels]uint16
	Active             [types.NumChannels]bool
	TransmitterPowered bool
}

// Read derives the mapped inputs from the current register state. Inactive channels fall
// back to their safe values: throttle 0, forward, kid control. Power and widths come from
// one critical section so an edge cannot land between them.
func (d *Decoder) Read(nowMs uint32) Inputs {
	d.mu.Lock()
	in := Inputs{TransmitterPowered: d.transmitterPoweredLocked(nowMs)}
	snap := d.snapshotLocked()
	d.mu.Unlock()

	in.RawUs = snap.WidthUs
	for i, last := range snap.LastActivity {
		in.Active[i] = fresh(last, nowMs)
	}

	in.Steering = MapPulse(snap.WidthUs[types.ChannelSteering], PulseMinUs, PulseMaxUs, false)
	in.MaxThrottle = MapPulse(snap.WidthUs[types.ChannelMaxThrottle], PulseMinUs, PulseMaxUs, false)

	if in.Active[types.ChannelThrottle] {
		in.Throttle = MapPulse(snap.WidthUs[types.ChannelThrottle], PulseMinUs, PulseMaxUs, true)
	}
	if in.Active[types.ChannelReverse] {
		in.Reverse = ReverseEngaged(snap.WidthUs[types.ChannelReverse])
	}
	if in.Active[types.ChannelTakeover] {
		in.Takeover = TakeoverEngaged(snap.WidthUs[types.ChannelTakeover])
	}
	return in
}
