package receiver

import "rideon-controller/internal/types"

// TimeoutMs is how long a channel may stay silent before it counts as lost.
const TimeoutMs = 100

// An edge stamped after nowMs was sampled lands in the negative half and is fresh.
func fresh(last, nowMs uint32) bool {
	return int32(nowMs-last) <= TimeoutMs
}

// Active reports whether the channel saw an edge within the last TimeoutMs.
func (d *Decoder) Active(ch types.Channel, nowMs uint32) bool {
	if !validChannel(ch) {
		return false
	}
	d.mu.Lock()
	last := d.regs[ch].lastActivity
	d.mu.Unlock()
	return fresh(last, nowMs)
}

// TransmitterPowered is true only while all channels are active. When it is false, each
// stale channel's timestamp is pinned just past the timeout so that a later wrap of the
// millisecond counter cannot bring it back to life.
func (d *Decoder) TransmitterPowered(nowMs uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transmitterPoweredLocked(nowMs)
}

func (d *Decoder) transmitterPoweredLocked(nowMs uint32) bool {
	powered := true
	for i := range d.regs {
		if !fresh(d.regs[i].lastActivity, nowMs) {
			powered = false
		}
	}
	if powered {
		return true
	}
	for i := range d.regs {
		if !fresh(d.regs[i].lastActivity, nowMs) {
			d.regs[i].lastActivity = nowMs - TimeoutMs - 1
		}
	}
	return false
}
