package drive

import (
	"math"

	"rideon-controller/internal/rangeutil"
	"rideon-controller/internal/types"
)

const (
	// MaxSpeed is the largest commandable magnitude; 255 is the disable code.
	MaxSpeed = int(types.DutyMax)

	// AccelRate covers the full range in five seconds, DecelRate in one (units per second).
	AccelRate = 51.0
	DecelRate = 255.0
)

// Ramp rate-limits the drive motor toward a commanded target.
type Ramp struct {
	current    float64
	lastUpdate uint32
}

func NewRamp(nowMs uint32) *Ramp {
	return &Ramp{lastUpdate: nowMs}
}

// Update advances the ramp by the time elapsed since the previous update and returns the
// resulting motor command.
func (r *Ramp) Update(target int, nowMs uint32) types.MotorCommand {
	elapsed := nowMs - r.lastUpdate
	r.lastUpdate = nowMs
	r.Advance(target, float64(elapsed)/1000.0)
	return r.Command()
}

// Advance moves the current speed toward target by dt seconds of ramping.
func (r *Ramp) Advance(target int, dt float64) {
	goal := float64(rangeutil.Clamp(target, -MaxSpeed, MaxSpeed))
	if dt <= 0 || r.current == goal {
		return
	}

	if accelerating(r.current, goal) {
		r.current = approach(r.current, goal, AccelRate*dt)
		return
	}

	// Slowing down, reversals included. The step may carry through zero and is clamped
	// only at the target.
	r.current = approach(r.current, goal, DecelRate*dt)
}

func accelerating(current, goal float64) bool {
	if current == 0 {
		return true
	}
	if current > 0 {
		return goal > current
	}
	return goal < current
}

func approach(from, to, step float64) float64 {
	if from < to {
		return math.Min(from+step, to)
	}
	return math.Max(from-step, to)
}

// Current returns the unrounded ramp state.
func (r *Ramp) Current() float64 {
	return r.current
}

// RampedSpeed is the rounded command; zero means the vehicle is stopped.
func (r *Ramp) RampedSpeed() int {
	return int(math.Round(r.current))
}

// Command translates the ramped speed into direction lines and duty.
func (r *Ramp) Command() types.MotorCommand {
	return SpeedCommand(r.RampedSpeed())
}

// SpeedCommand maps a signed speed onto brake, forward or reverse.
func SpeedCommand(speed int) types.MotorCommand {
	speed = rangeutil.Clamp(speed, -MaxSpeed, MaxSpeed)
	switch {
	case speed > 0:
		return types.MotorCommand{Direction: types.DirForward, Duty: uint8(speed)}
	case speed < 0:
		return types.MotorCommand{Direction: types.DirReverse, Duty: uint8(-speed)}
	default:
		return types.CommandBrake
	}
}
