package types

// ControlMode is the arbitrator's supervisory state.
type ControlMode string

const (
	ModeWaitTx                   ControlMode = "WAIT_TX"
	ModeArmingRemoteControl      ControlMode = "ARMING_REMOTE_CONTROL"
	ModeArmingKidControl         ControlMode = "ARMING_KID_CONTROL"
	ModeSwitchingToRemoteControl ControlMode = "SWITCHING_TO_REMOTE_CONTROL"
	ModeSwitchingToKidControl    ControlMode = "SWITCHING_TO_KID_CONTROL"
	ModeRemoteControl            ControlMode = "REMOTE_CONTROL"
	ModeKidControl               ControlMode = "KID_CONTROL"
)

// Short returns the fixed-width label used on console status lines.
func (m ControlMode) Short() string {
	switch m {
	case ModeWaitTx:
		return "WAIT_TX"
	case ModeArmingRemoteControl:
		return "ARM_RC "
	case ModeArmingKidControl:
		return "ARM_KID"
	case ModeSwitchingToRemoteControl:
		return "SW_RC  "
	case ModeSwitchingToKidControl:
		return "SW_KID "
	case ModeRemoteControl:
		return "RC     "
	case ModeKidControl:
		return "KID    "
	default:
		return "UNKNOWN"
	}
}

type SteeringState string

const (
	SteerCenter    SteeringState = "CENTER"
	SteerRight     SteeringState = "RIGHT"
	SteerRightHold SteeringState = "RIGHT_HOLD"
	SteerLeft      SteeringState = "LEFT"
	SteerLeftHold  SteeringState = "LEFT_HOLD"
)

// Channel identifies one RC receiver line.
type Channel int

const (
	ChannelSteering Channel = iota
	ChannelThrottle
	ChannelReverse
	ChannelTakeover
	ChannelMaxThrottle

	NumChannels = 5
)

// AllChannels lists every channel in receiver order.
var AllChannels = [NumChannels]Channel{
	ChannelSteering,
	ChannelThrottle,
	ChannelReverse,
	ChannelTakeover,
	ChannelMaxThrottle,
}

func (c Channel) String() string {
	switch c {
	case ChannelSteering:
		return "steering"
	case ChannelThrottle:
		return "throttle"
	case ChannelReverse:
		return "reverse"
	case ChannelTakeover:
		return "takeover"
	case ChannelMaxThrottle:
		return "max_throttle"
	default:
		return "unknown"
	}
}

// Motor selects one of the two H-bridge drivers.
type Motor int

const (
	MotorDrive Motor = iota
	MotorSteering
)

func (m Motor) String() string {
	if m == MotorSteering {
		return "steering"
	}
	return "drive"
}

// Direction is the pattern on an H-bridge's two direction-select lines.
// Forward doubles as "right" on the steering motor and Reverse as "left".
type Direction int

const (
	DirBrake    Direction = iota // 0,0
	DirForward                   // 1,0
	DirReverse                   // 0,1
	DirDisabled                  // 1,1
)

// Lines returns the levels of the two direction-select lines.
func (d Direction) Lines() (bool, bool) {
	switch d {
	case DirForward:
		return true, false
	case DirReverse:
		return false, true
	case DirDisabled:
		return true, true
	default:
		return false, false
	}
}

func (d Direction) String() string {
	switch d {
	case DirForward:
		return "forward"
	case DirReverse:
		return "reverse"
	case DirDisabled:
		return "disabled"
	default:
		return "brake"
	}
}

const (
	// DutyDisable is the peripheral's maximum duty code, reserved for de-energizing a motor.
	DutyDisable uint8 = 255
	// DutyMax is the largest duty written in normal operation.
	DutyMax uint8 = 254
)

// MotorCommand is what a controller asks the motor driver to output.
type MotorCommand struct {
	Direction Direction
	Duty      uint8
}

var (
	CommandBrake   = MotorCommand{Direction: DirBrake, Duty: 0}
	CommandDisable = MotorCommand{Direction: DirDisabled, Duty: DutyDisable}
)
