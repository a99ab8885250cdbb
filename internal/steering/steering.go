package steering

import (
	"rideon-controller/internal/types"
)

const (
	// Center is the mapped steering value of a centered stick.
	Center = 128
	// Deadzone is the half-width of the neutral window around Center.
	Deadzone = 16

	// HoldAfterMs is how long the motor may push at full power before dropping to hold power.
	HoldAfterMs = 2000

	FullDuty uint8 = types.DutyMax
	HoldDuty uint8 = 13
)

type side int

const (
	sideCenter side = iota
	sideLeft
	sideRight
)

func classify(input uint8) side {
	switch {
	case int(input) < Center-Deadzone:
		return sideLeft
	case int(input) >= Center+Deadzone:
		return sideRight
	default:
		return sideCenter
	}
}

// Controller drives the steering motor from the mapped steering axis. Full power is only
// applied for HoldAfterMs while the wheel sits on one side, after which it falls back to a
// low holding duty so a stalled motor at the end-stop does not overheat.
type Controller struct {
	state   types.SteeringState
	enterMs uint32
}

func NewController(nowMs uint32) *Controller {
	return &Controller{
		state:   types.SteerCenter,
		enterMs: nowMs,
	}
}

func (c *Controller) State() types.SteeringState {
	return c.state
}

// EnteredAt returns the millisecond timestamp of the last state change.
func (c *Controller) EnteredAt() uint32 {
	return c.enterMs
}

// Update advances the state machine by one cycle and returns the motor output for the new state.
func (c *Controller) Update(input uint8, nowMs uint32) types.MotorCommand {
	next := c.next(classify(input), nowMs)
	if next != c.state {
		c.state = next
		c.enterMs = nowMs
	}
	return Output(c.state)
}

func (c *Controller) next(s side, nowMs uint32) types.SteeringState {
	switch s {
	case sideCenter:
		return types.SteerCenter
	case sideRight:
		switch c.state {
		case types.SteerRight:
			if nowMs-c.enterMs >= HoldAfterMs {
				return types.SteerRightHold
			}
			return types.SteerRight
		case types.SteerRightHold:
			return types.SteerRightHold
		default:
			return types.SteerRight
		}
	default:
		switch c.state {
		case types.SteerLeft:
			if nowMs-c.enterMs >= HoldAfterMs {
				return types.SteerLeftHold
			}
			return types.SteerLeft
		case types.SteerLeftHold:
			return types.SteerLeftHold
		default:
			return types.SteerLeft
		}
	}
}

// Output maps a steering state to its H-bridge command. Right uses the forward line pattern.
func Output(state types.SteeringState) types.MotorCommand {
	switch state {
	case types.SteerRight:
		return types.MotorCommand{Direction: types.DirForward, Duty: FullDuty}
	case types.SteerRightHold:
		return types.MotorCommand{Direction: types.DirForward, Duty: HoldDuty}
	case types.SteerLeft:
		return types.MotorCommand{Direction: types.DirReverse, Duty: FullDuty}
	case types.SteerLeftHold:
		return types.MotorCommand{Direction: types.DirReverse, Duty: HoldDuty}
	default:
		return types.CommandDisable
	}
}
