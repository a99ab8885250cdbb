package core

import (
	"context"
	"fmt"

	"github.com/librescoot/librefsm"

	"rideon-controller/internal/fsm"
	"rideon-controller/internal/logger"
	"rideon-controller/internal/receiver"
	"rideon-controller/internal/steering"
	"rideon-controller/internal/types"
)

// Ensure Arbitrator implements fsm.Actions
var _ fsm.Actions = (*Arbitrator)(nil)

// Pedals is one sample of the pedal inputs.
type Pedals struct {
	Forward  bool
	Reverse  bool
	LowSpeed bool
}

// Decision is what the arbitrator hands to the actuators for one cycle.
type Decision struct {
	Mode          types.ControlMode
	DriveTarget   int
	SteeringInput uint8
}

// Arbitrator decides whether the RC operator or the kid controls the vehicle.
// It is only stepped from the control loop goroutine.
type Arbitrator struct {
	logger   *logger.Logger
	machine  *librefsm.Machine
	cancel   context.CancelFunc
	takeover bool
}

func NewArbitrator(l *logger.Logger) *Arbitrator {
	return &Arbitrator{
		logger: l,
	}
}

// stateIDToMode converts librefsm StateID to types.ControlMode
func stateIDToMode(id librefsm.StateID) types.ControlMode {
	switch id {
	case fsm.StateWaitTx:
		return types.ModeWaitTx
	case fsm.StateArmingRemoteControl:
		return types.ModeArmingRemoteControl
	case fsm.StateArmingKidControl:
		return types.ModeArmingKidControl
	case fsm.StateSwitchingToRemote:
		return types.ModeSwitchingToRemoteControl
	case fsm.StateSwitchingToKid:
		return types.ModeSwitchingToKidControl
	case fsm.StateRemoteControl:
		return types.ModeRemoteControl
	case fsm.StateKidControl:
		return types.ModeKidControl
	default:
		return types.ControlMode(string(id))
	}
}

// Start builds and starts the librefsm machine in WAIT_TX.
func (a *Arbitrator) Start(ctx context.Context) error {
	machine, err := fsm.NewDefinition(a).Build()
	if err != nil {
		return fmt.Errorf("failed to build control FSM: %w", err)
	}

	machine.OnStateChange(func(from, to librefsm.StateID) {
		// Runs on the FSM goroutine; must not call back into the machine.
		a.logger.Infof("Mode transition: %s -> %s", stateIDToMode(from), stateIDToMode(to))
	})

	ctx, cancel := context.WithCancel(ctx)
	if err := machine.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("failed to start control FSM: %w", err)
	}

	a.machine = machine
	a.cancel = cancel
	a.takeover = false
	a.logger.Debugf("Control FSM started in %s", a.Mode())
	return nil
}

// Stop halts the FSM goroutine. It must not run while a Step is in flight, since send
// would then wait on a machine that no longer processes events.
func (a *Arbitrator) Stop() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// Mode returns the current control mode.
func (a *Arbitrator) Mode() types.ControlMode {
	if a.machine == nil {
		return types.ModeWaitTx
	}
	return stateIDToMode(a.machine.CurrentState())
}

// Step evaluates one control cycle. rampedSpeed is the drive ramp output measured
// before this cycle's ramp update.
func (a *Arbitrator) Step(in receiver.Inputs, pedals Pedals, rampedSpeed int) Decision {
	mode := a.Mode()

	switch {
	case !in.TransmitterPowered:
		a.takeover = in.Takeover
		if mode != types.ModeWaitTx {
			a.send(fsm.EvTransmitterLost)
		}

	case mode == types.ModeWaitTx:
		// The takeover switch is only tracked here, a flip is not a handoff.
		a.takeover = in.Takeover
		if in.Takeover {
			a.send(fsm.EvTransmitterReady)
		}

	case in.Takeover != a.takeover:
		a.takeover = in.Takeover
		if in.Takeover {
			a.send(fsm.EvTakeoverEngaged)
		} else {
			a.send(fsm.EvTakeoverReleased)
		}

	default:
		if ev, ok := exitEvent(mode, in, pedals, rampedSpeed); ok {
			a.send(ev)
		}
	}

	mode = a.Mode()
	d := Decision{
		Mode:          mode,
		DriveTarget:   driveTarget(mode, in, pedals),
		SteeringInput: in.Steering,
	}
	if mode == types.ModeWaitTx {
		d.SteeringInput = steering.Center
	}
	return d
}

// exitEvent returns the event that ends the current mode, if its condition holds.
func exitEvent(mode types.ControlMode, in receiver.Inputs, pedals Pedals, rampedSpeed int) (librefsm.EventID, bool) {
	stopped := rampedSpeed == 0

	switch mode {
	case types.ModeSwitchingToRemoteControl, types.ModeSwitchingToKidControl:
		return fsm.EvStopped, stopped
	case types.ModeArmingRemoteControl:
		return fsm.EvRemoteNeutral, stopped && in.Throttle == 0 && !in.Reverse
	case types.ModeArmingKidControl:
		return fsm.EvPedalsNeutral, stopped && !pedals.Forward && !pedals.Reverse
	}
	return "", false
}

// driveTarget returns the signed drive speed the mode asks for.
func driveTarget(mode types.ControlMode, in receiver.Inputs, pedals Pedals) int {
	switch mode {
	case types.ModeRemoteControl:
		if in.Reverse {
			return -int(in.Throttle)
		}
		return int(in.Throttle)

	case types.ModeKidControl:
		limit := int(in.MaxThrottle)
		if pedals.LowSpeed {
			limit /= 2
		}
		switch {
		case !pedals.Forward && !pedals.Reverse:
			return 0
		case pedals.Reverse:
			// Both pedals pressed lands here as well.
			return -limit
		default:
			return limit
		}
	}
	return 0
}

// send blocks the calling cycle until the FSM goroutine has applied ev.
func (a *Arbitrator) send(ev librefsm.EventID) {
	if err := a.machine.SendSync(librefsm.Event{ID: ev}); err != nil {
		a.logger.Errorf("Failed to deliver %s in %s: %v", ev, a.Mode(), err)
	}
}

// === State Entry Actions ===

func (a *Arbitrator) EnterWaitTx(c *librefsm.Context) error {
	if c.FromState != "" {
		a.logger.Warnf("Transmitter signal lost in %s, holding vehicle", stateIDToMode(c.FromState))
	}
	return nil
}

func (a *Arbitrator) EnterArming(c *librefsm.Context) error {
	if c.FromState == fsm.StateWaitTx {
		a.logger.Infof("Transmitter signal acquired")
	}
	a.logger.Debugf("FSM: EnterArming from %s", stateIDToMode(c.FromState))
	return nil
}

func (a *Arbitrator) EnterSwitching(c *librefsm.Context) error {
	a.logger.Debugf("FSM: EnterSwitching from %s, braking to a stop", stateIDToMode(c.FromState))
	return nil
}

func (a *Arbitrator) EnterRemoteControl(c *librefsm.Context) error {
	a.logger.Debugf("FSM: EnterRemoteControl")
	return nil
}

func (a *Arbitrator) EnterKidControl(c *librefsm.Context) error {
	a.logger.Debugf("FSM: EnterKidControl")
	return nil
}
