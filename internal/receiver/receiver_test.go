package receiver

import (
	"testing"

	"rideon-controller/internal/types"
)

type fakeCounter struct {
	ticks uint16
}

func (c *fakeCounter) Ticks() uint16 { return c.ticks }

// pulse feeds one rising and one falling edge to a channel through its wired source.
func pulse(d *Decoder, c *fakeCounter, ch types.Channel, widthUs uint16, nowMs uint32) {
	rise := c.ticks
	fall := rise + widthUs*2
	if SourceOf(ch) == SourceCapture {
		d.Capture(ch, rise, nowMs)
		d.Capture(ch, fall, nowMs)
	} else {
		d.Trigger(ch, nowMs)
		c.ticks = fall
		d.Trigger(ch, nowMs)
	}
	c.ticks = fall + 1000
}

func pulseAll(d *Decoder, c *fakeCounter, widths [types.NumChannels]uint16, nowMs uint32) {
	for _, ch := range types.AllChannels {
		pulse(d, c, ch, widths[ch], nowMs)
	}
}

func neutralWidths() [types.NumChannels]uint16 {
	return [types.NumChannels]uint16{1500, 1900, 1000, 1000, 1900}
}

// ===== Decoder Tests =====

func TestPulseWidthUs(t *testing.T) {
	if got := PulseWidthUs(1000, 4000); got != 1500 {
		t.Errorf("PulseWidthUs(1000, 4000) = %d, want 1500", got)
	}
	if got := PulseWidthUs(0, 7); got != 4 {
		t.Errorf("PulseWidthUs(0, 7) = %d, want 4", got)
	}
}

func TestPulseWidthUsWraparound(t *testing.T) {
	wrapped := PulseWidthUs(65534, 5)
	straight := PulseWidthUs(0, 7)
	if wrapped != straight {
		t.Errorf("Wrapped width %d differs from straight width %d", wrapped, straight)
	}

	if got := PulseWidthUs(65000, 2464); got != 1500 {
		t.Errorf("Wrapped 1500us pulse decoded as %d", got)
	}
}

func TestDecoderInitialState(t *testing.T) {
	d := NewDecoder(&fakeCounter{}, 42)
	for _, ch := range types.AllChannels {
		if got := d.WidthUs(ch); got != InitialWidthUs {
			t.Errorf("%s: initial width %d, want %d", ch, got, InitialWidthUs)
		}
		if d.Armed(ch) != EdgeRising {
			t.Errorf("%s: expected to start armed for rising edge", ch)
		}
		if !d.Active(ch, 42+TimeoutMs) {
			t.Errorf("%s: expected active right after start", ch)
		}
	}
}

func TestCaptureTogglesPolarity(t *testing.T) {
	d := NewDecoder(&fakeCounter{}, 0)

	d.Capture(types.ChannelSteering, 100, 1)
	if d.Armed(types.ChannelSteering) != EdgeFalling {
		t.Fatal("Expected falling edge armed after rising capture")
	}
	if d.WidthUs(types.ChannelSteering) != InitialWidthUs {
		t.Error("Width must not change on a rising edge")
	}

	d.Capture(types.ChannelSteering, 100+3600, 2)
	if d.Armed(types.ChannelSteering) != EdgeRising {
		t.Fatal("Expected rising edge armed after falling capture")
	}
	if got := d.WidthUs(types.ChannelSteering); got != 1800 {
		t.Errorf("Expected 1800us, got %d", got)
	}
}

func TestTriggerUsesReferenceCounter(t *testing.T) {
	c := &fakeCounter{ticks: 65000}
	d := NewDecoder(c, 0)

	d.Trigger(types.ChannelReverse, 1)
	c.ticks = 1864 // 65000 + 2400, wrapped
	d.Trigger(types.ChannelReverse, 2)

	if got := d.WidthUs(types.ChannelReverse); got != 1200 {
		t.Errorf("Expected 1200us across counter wrap, got %d", got)
	}
}

func TestActivityUpdatedOnEveryEdge(t *testing.T) {
	d := NewDecoder(&fakeCounter{}, 0)

	d.Trigger(types.ChannelTakeover, 500)
	if !d.Active(types.ChannelTakeover, 500+TimeoutMs) {
		t.Error("Rising edge alone should refresh activity")
	}
	if d.WidthUs(types.ChannelTakeover) != InitialWidthUs {
		t.Error("Width must not change until the falling edge")
	}
}

func TestInvalidChannelIgnored(t *testing.T) {
	d := NewDecoder(&fakeCounter{}, 0)
	d.Capture(types.Channel(9), 1, 1)
	d.Trigger(types.Channel(-1), 1)
	if d.Active(types.Channel(9), 0) {
		t.Error("Invalid channel must never be active")
	}
}

// ===== Freshness Tests =====

func TestActiveTimeout(t *testing.T) {
	d := NewDecoder(&fakeCounter{}, 1000)

	if !d.Active(types.ChannelSteering, 1100) {
		t.Error("Expected active at exactly the timeout")
	}
	if d.Active(types.ChannelSteering, 1101) {
		t.Error("Expected inactive past the timeout")
	}
}

func TestActiveAcrossMillisWrap(t *testing.T) {
	d := NewDecoder(&fakeCounter{}, 0xFFFFFFF0)
	if !d.Active(types.ChannelThrottle, 0x00000010) {
		t.Error("Expected channel to stay active across millisecond wrap")
	}
}

func TestTransmitterPoweredRequiresAllChannels(t *testing.T) {
	c := &fakeCounter{}
	d := NewDecoder(c, 0)

	if !d.TransmitterPowered(50) {
		t.Fatal("Expected powered with all channels fresh")
	}

	for _, ch := range types.AllChannels {
		if ch != types.ChannelMaxThrottle {
			pulse(d, c, ch, 1500, 200)
		}
	}
	if d.TransmitterPowered(250) {
		t.Error("Expected not powered with max_throttle silent")
	}
}

func TestStaleChannelStaysStale(t *testing.T) {
	c := &fakeCounter{}
	d := NewDecoder(c, 0)

	if d.TransmitterPowered(5000) {
		t.Fatal("Expected not powered after long silence")
	}
	for now := uint32(5000); now < 5200; now += 10 {
		if d.Active(types.ChannelSteering, now) {
			t.Fatalf("Channel came back without an edge at %d", now)
		}
		d.TransmitterPowered(now)
	}

	pulse(d, c, types.ChannelSteering, 1500, 5200)
	if !d.Active(types.ChannelSteering, 5200) {
		t.Error("Expected channel active after a new edge")
	}
}

func TestNormalizationSurvivesMillisWrap(t *testing.T) {
	d := NewDecoder(&fakeCounter{}, 10)

	// Silent for most of the counter range, normalized on every cycle.
	var now uint32 = 10
	for i := 0; i < 100; i++ {
		now += 0x03000000
		if d.TransmitterPowered(now) {
			t.Fatalf("Transmitter reported powered at %#x with no edges", now)
		}
		for _, ch := range types.AllChannels {
			if d.Active(ch, now) {
				t.Fatalf("%s reported active at %#x with no edges", ch, now)
			}
		}
	}
}

func TestEdgeNewerThanCycleTime(t *testing.T) {
	c := &fakeCounter{}
	d := NewDecoder(c, 0)
	pulseAll(d, c, neutralWidths(), 1000)

	// An edge handler stamps steering after the cycle sampled its clock.
	pulse(d, c, types.ChannelSteering, 1600, 1001)

	in := d.Read(1000)
	if !in.TransmitterPowered {
		t.Fatal("Expected powered with an edge newer than the cycle time")
	}
	if !in.Active[types.ChannelSteering] {
		t.Error("Expected steering active with an edge newer than the cycle time")
	}
	if in.RawUs[types.ChannelSteering] != 1600 {
		t.Errorf("Expected the newer steering width, got %d", in.RawUs[types.ChannelSteering])
	}

	in = d.Read(1001)
	if !in.TransmitterPowered || !in.Active[types.ChannelSteering] {
		t.Errorf("Expected the newer edge to survive into the next cycle, got powered=%v steering=%v",
			in.TransmitterPowered, in.Active[types.ChannelSteering])
	}
}

// ===== Mapper Tests =====

func TestMapPulseEndpoints(t *testing.T) {
	if got := MapPulse(1100, PulseMinUs, PulseMaxUs, false); got != 0 {
		t.Errorf("map(1100) = %d, want 0", got)
	}
	if got := MapPulse(1900, PulseMinUs, PulseMaxUs, false); got != 255 {
		t.Errorf("map(1900) = %d, want 255", got)
	}
	if got := MapPulse(1500, PulseMinUs, PulseMaxUs, false); got < 127 || got > 128 {
		t.Errorf("map(1500) = %d, want about 128", got)
	}
}

func TestMapPulseMonotonicAndClamped(t *testing.T) {
	var prev uint8
	for w := 0; w <= 3000; w++ {
		got := MapPulse(uint16(w), PulseMinUs, PulseMaxUs, false)
		if got < prev {
			t.Fatalf("map not monotonic at %d: %d < %d", w, got, prev)
		}
		prev = got
	}
	if MapPulse(900, PulseMinUs, PulseMaxUs, false) != 0 {
		t.Error("Expected clamp to 0 below range")
	}
	if MapPulse(2100, PulseMinUs, PulseMaxUs, false) != 255 {
		t.Error("Expected clamp to 255 above range")
	}
}

func TestMapPulseInverted(t *testing.T) {
	for w := uint16(800); w <= 2200; w += 7 {
		plain := MapPulse(w, PulseMinUs, PulseMaxUs, false)
		inv := MapPulse(w, PulseMinUs, PulseMaxUs, true)
		if inv != 255-plain {
			t.Fatalf("invert(%d) = %d, want %d", w, inv, 255-plain)
		}
	}
}

func TestBooleanThresholds(t *testing.T) {
	if ReverseEngaged(1500) {
		t.Error("1500us must read forward")
	}
	if !ReverseEngaged(1501) {
		t.Error("1501us must read reverse")
	}
	if !TakeoverEngaged(1599) {
		t.Error("1599us must read takeover")
	}
	if TakeoverEngaged(1600) {
		t.Error("1600us must read kid control")
	}
}

func TestReadActiveChannels(t *testing.T) {
	c := &fakeCounter{}
	d := NewDecoder(c, 0)

	widths := [types.NumChannels]uint16{1900, 1100, 1800, 1200, 1500}
	pulseAll(d, c, widths, 20)

	in := d.Read(30)
	if !in.TransmitterPowered {
		t.Fatal("Expected transmitter powered")
	}
	if in.Steering != 255 {
		t.Errorf("Steering = %d, want 255", in.Steering)
	}
	if in.Throttle != 255 {
		t.Errorf("Throttle = %d, want 255 (inverted full)", in.Throttle)
	}
	if !in.Reverse {
		t.Error("Expected reverse engaged")
	}
	if !in.Takeover {
		t.Error("Expected takeover engaged")
	}
	if in.MaxThrottle < 127 || in.MaxThrottle > 128 {
		t.Errorf("MaxThrottle = %d, want about 128", in.MaxThrottle)
	}
	if in.RawUs != widths {
		t.Errorf("Raw widths %v, want %v", in.RawUs, widths)
	}
}

func TestReadFailSafeDefaults(t *testing.T) {
	c := &fakeCounter{}
	d := NewDecoder(c, 0)

	pulseAll(d, c, [types.NumChannels]uint16{1500, 1100, 1800, 1200, 1900}, 10)

	in := d.Read(500)
	if in.TransmitterPowered {
		t.Fatal("Expected transmitter off after silence")
	}
	if in.Throttle != 0 {
		t.Errorf("Throttle = %d, want 0 when inactive", in.Throttle)
	}
	if in.Reverse {
		t.Error("Reverse must default to forward when inactive")
	}
	if in.Takeover {
		t.Error("Takeover must default to kid control when inactive")
	}
	for _, ch := range types.AllChannels {
		if in.Active[ch] {
			t.Errorf("%s must be inactive", ch)
		}
	}
}

func TestReadOnlyThrottleLost(t *testing.T) {
	c := &fakeCounter{}
	d := NewDecoder(c, 0)

	pulseAll(d, c, [types.NumChannels]uint16{1500, 1100, 1000, 1000, 1900}, 10)
	for _, ch := range types.AllChannels {
		if ch != types.ChannelThrottle {
			pulse(d, c, ch, neutralWidths()[ch], 150)
		}
	}

	in := d.Read(160)
	if in.Active[types.ChannelThrottle] {
		t.Fatal("Expected throttle inactive")
	}
	if in.Throttle != 0 {
		t.Errorf("Throttle = %d, want 0", in.Throttle)
	}
	if !in.Active[types.ChannelSteering] {
		t.Error("Expected steering still active")
	}
	if in.TransmitterPowered {
		t.Error("Transmitter must read off with one channel lost")
	}
}
