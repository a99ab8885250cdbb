package hardware

import (
	"time"

	"golang.org/x/sys/unix"

	"rideon-controller/internal/receiver"
)

// MonotonicClock reads CLOCK_MONOTONIC, the same clock gpiocdev stamps line events with.
// It serves both as the millisecond clock and as the shared 2 MHz reference counter.
type MonotonicClock struct{}

func (MonotonicClock) now() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return time.Duration(ts.Nano())
}

// Millis returns milliseconds since boot, wrapping at 2^32.
func (c MonotonicClock) Millis() uint32 {
	return uint32(c.now() / time.Millisecond)
}

// Ticks returns the reference counter: 0.5 µs ticks, wrapping at 2^16.
func (c MonotonicClock) Ticks() uint16 {
	return TicksAt(c.now())
}

// TicksAt converts a monotonic timestamp to reference counter ticks.
func TicksAt(ts time.Duration) uint16 {
	return uint16(ts.Nanoseconds() / receiver.TickPeriodNs)
}
