package core

import (
	"context"
	"fmt"
	"sync"

	"rideon-controller/internal/drive"
	"rideon-controller/internal/logger"
	"rideon-controller/internal/steering"
	"rideon-controller/internal/types"
)

// Status is a snapshot of the last completed control cycle.
type Status struct {
	Cycles uint64

	RawUs              [types.NumChannels]uint16
	Active             [types.NumChannels]bool
	TransmitterPowered bool

	Steering    uint8
	Throttle    uint8
	MaxThrottle uint8
	Reverse     bool
	Takeover    bool
	Pedals      Pedals

	Mode          types.ControlMode
	DriveTarget   int
	RampedSpeed   int
	SteeringState types.SteeringState

	DriveCommand    types.MotorCommand
	SteeringCommand types.MotorCommand
	MotorErrors     uint64
}

// Controller runs the control cycle: sample inputs, arbitrate, ramp, steer, actuate.
type Controller struct {
	logger   *logger.Logger
	receiver ReceiverSource
	pedals   PedalInput
	motors   MotorDriver
	clock    Clock

	arbitrator *Arbitrator
	ramp       *drive.Ramp
	steering   *steering.Controller

	motorFailing [2]bool

	mu     sync.RWMutex
	status Status
}

func NewController(rx ReceiverSource, pedals PedalInput, motors MotorDriver, clock Clock, l *logger.Logger) *Controller {
	return &Controller{
		logger:     l,
		receiver:   rx,
		pedals:     pedals,
		motors:     motors,
		clock:      clock,
		arbitrator: NewArbitrator(l.WithTag("arbitrator")),
		status: Status{
			Mode:            types.ModeWaitTx,
			SteeringState:   types.SteerCenter,
			DriveCommand:    types.CommandBrake,
			SteeringCommand: types.CommandDisable,
		},
	}
}

// Start puts both motors in their safe state and starts the arbitrator.
func (c *Controller) Start(ctx context.Context) error {
	now := c.clock.Millis()
	c.ramp = drive.NewRamp(now)
	c.steering = steering.NewController(now)

	if err := c.setMotor(types.MotorDrive, types.CommandBrake); err != nil {
		return fmt.Errorf("failed to brake drive motor: %w", err)
	}
	if err := c.setMotor(types.MotorSteering, types.CommandDisable); err != nil {
		return fmt.Errorf("failed to disable steering motor: %w", err)
	}

	if err := c.arbitrator.Start(ctx); err != nil {
		return err
	}

	c.logger.Infof("Controller started in %s", c.arbitrator.Mode())
	return nil
}

// Cycle runs one control iteration. It never blocks on I/O beyond the motor writes.
func (c *Controller) Cycle() {
	now := c.clock.Millis()

	in := c.receiver.Read(now)
	p := Pedals{
		Forward:  c.pedals.ForwardPressed(),
		Reverse:  c.pedals.ReversePressed(),
		LowSpeed: c.pedals.LowSpeedSelected(),
	}

	d := c.arbitrator.Step(in, p, c.ramp.RampedSpeed())

	driveCmd := c.ramp.Update(d.DriveTarget, now)
	steerCmd := c.steering.Update(d.SteeringInput, now)

	var failures uint64
	if !c.actuate(types.MotorDrive, driveCmd) {
		failures++
	}
	if !c.actuate(types.MotorSteering, steerCmd) {
		failures++
	}

	c.logger.Debugf("mode=%s target=%d speed=%d steer=%s", d.Mode, d.DriveTarget, c.ramp.RampedSpeed(), c.steering.State())

	c.mu.Lock()
	c.status = Status{
		Cycles:             c.status.Cycles + 1,
		RawUs:              in.RawUs,
		Active:             in.Active,
		TransmitterPowered: in.TransmitterPowered,
		Steering:           in.Steering,
		Throttle:           in.Throttle,
		MaxThrottle:        in.MaxThrottle,
		Reverse:            in.Reverse,
		Takeover:           in.Takeover,
		Pedals:             p,
		Mode:               d.Mode,
		DriveTarget:        d.DriveTarget,
		RampedSpeed:        c.ramp.RampedSpeed(),
		SteeringState:      c.steering.State(),
		DriveCommand:       driveCmd,
		SteeringCommand:    steerCmd,
		MotorErrors:        c.status.MotorErrors + failures,
	}
	c.mu.Unlock()
}

// actuate writes one motor command. Failures are logged once per outage and never
// stop the loop.
func (c *Controller) actuate(motor types.Motor, cmd types.MotorCommand) bool {
	err := c.setMotor(motor, cmd)
	if err != nil {
		if !c.motorFailing[motor] {
			c.logger.Errorf("Failed to drive %s motor: %v", motor, err)
		}
		c.motorFailing[motor] = true
		return false
	}
	if c.motorFailing[motor] {
		c.logger.Infof("%s motor output recovered", motor)
		c.motorFailing[motor] = false
	}
	return true
}

func (c *Controller) setMotor(motor types.Motor, cmd types.MotorCommand) error {
	return c.motors.SetDirectionAndDuty(motor, cmd.Direction, cmd.Duty)
}

// Status returns a copy of the last cycle's snapshot. Safe to call from any goroutine.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Mode returns the arbitrator's current mode.
func (c *Controller) Mode() types.ControlMode {
	return c.arbitrator.Mode()
}

// Shutdown disables both motors and stops the arbitrator. Call it from the goroutine that
// runs Cycle, after the last cycle has returned.
func (c *Controller) Shutdown() {
	c.logger.Infof("Shutting down controller")

	if err := c.setMotor(types.MotorDrive, types.CommandDisable); err != nil {
		c.logger.Errorf("Failed to disable drive motor: %v", err)
	}
	if err := c.setMotor(types.MotorSteering, types.CommandDisable); err != nil {
		c.logger.Errorf("Failed to disable steering motor: %v", err)
	}

	c.arbitrator.Stop()
}
