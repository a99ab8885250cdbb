package core

import (
	"rideon-controller/internal/receiver"
	"rideon-controller/internal/types"
)

// ReceiverSource provides one consistent snapshot of the decoded RC channels per cycle
type ReceiverSource interface {
	Read(nowMs uint32) receiver.Inputs
}

// PedalInput defines the kid's controls wired to the vehicle
type PedalInput interface {
	ForwardPressed() bool
	ReversePressed() bool
	LowSpeedSelected() bool
}

// MotorDriver defines the H-bridge outputs needed by the Controller
type MotorDriver interface {
	SetDirectionAndDuty(motor types.Motor, dir types.Direction, duty uint8) error
}

// Clock is a free-running millisecond counter that wraps at 2^32
type Clock interface {
	Millis() uint32
}
