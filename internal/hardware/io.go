package hardware

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"

	"rideon-controller/internal/config"
	"rideon-controller/internal/logger"
	"rideon-controller/internal/receiver"
	"rideon-controller/internal/types"
)

type inputLine interface {
	Value() (int, error)
}

type outputLine interface {
	SetValue(value int) error
}

type millisClock interface {
	Millis() uint32
}

// BoardIO owns every GPIO line and PWM pin of the controller board.
type BoardIO struct {
	logger *logger.Logger
	lines  []*gpiocdev.Line
	pwms   []gpio.PinIO

	Receiver *ReceiverInput
	Pedals   *PedalInput
	Motors   *MotorOutput
}

// OpenBoard requests all lines described by the board map. Motors come up with their
// direction lines in the disable pattern and the PWM output at the disable duty.
func OpenBoard(b config.Board, dec *receiver.Decoder, clock MonotonicClock, l *logger.Logger) (*BoardIO, error) {
	io := &BoardIO{logger: l}

	rx, err := io.openReceiver(b, dec, clock)
	if err != nil {
		io.Cleanup()
		return nil, err
	}
	io.Receiver = rx

	pedals, err := io.openPedals(b)
	if err != nil {
		io.Cleanup()
		return nil, err
	}
	io.Pedals = pedals

	motors, err := io.openMotors(b)
	if err != nil {
		io.Cleanup()
		return nil, err
	}
	io.Motors = motors

	l.Infof("Board %s configured: %d lines, %d pwm pins", b.Chip, len(io.lines), len(io.pwms))
	return io, nil
}

func (io *BoardIO) request(chip string, offset int, name string, opts ...gpiocdev.LineReqOption) (*gpiocdev.Line, error) {
	opts = append(opts, gpiocdev.WithConsumer(Consumer))
	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to request GPIO line %d (%s): %w", offset, name, err)
	}
	io.lines = append(io.lines, line)
	io.logger.Debugf("Configured %s: chip=%s, line=%d", name, chip, offset)
	return line, nil
}

// === Receiver ===

// ReceiverInput feeds receiver line edges into the decoder.
type ReceiverInput struct {
	*receiver.Decoder
	clock millisClock
}

func (io *BoardIO) openReceiver(b config.Board, dec *receiver.Decoder, clock MonotonicClock) (*ReceiverInput, error) {
	rx := &ReceiverInput{Decoder: dec, clock: clock}
	offsets := map[types.Channel]int{
		types.ChannelSteering:    b.Receiver.Steering,
		types.ChannelThrottle:    b.Receiver.Throttle,
		types.ChannelReverse:     b.Receiver.Reverse,
		types.ChannelTakeover:    b.Receiver.Takeover,
		types.ChannelMaxThrottle: b.Receiver.MaxThrottle,
	}
	for _, ch := range types.AllChannels {
		ch := ch
		_, err := io.request(b.Chip, offsets[ch], "receiver "+ch.String(),
			gpiocdev.AsInput,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
				rx.HandleEvent(ch, evt)
			}),
		)
		if err != nil {
			return nil, err
		}
	}
	return rx, nil
}

// HandleEvent delivers one line event. Edges of the polarity the channel is not armed
// for are dropped, as a single-edge capture unit would never see them. Capture channels
// use the kernel's event timestamp; the others read the reference counter on arrival.
func (rx *ReceiverInput) HandleEvent(ch types.Channel, evt gpiocdev.LineEvent) {
	edge := receiver.EdgeRising
	if evt.Type == gpiocdev.LineEventFallingEdge {
		edge = receiver.EdgeFalling
	}
	if edge != rx.Armed(ch) {
		return
	}

	now := rx.clock.Millis()
	if receiver.SourceOf(ch) == receiver.SourceCapture {
		rx.Capture(ch, TicksAt(evt.Timestamp), now)
	} else {
		rx.Trigger(ch, now)
	}
}

// === Pedals ===

// PedalInput reads the kid's pedals and speed switch. They are active-low switches to ground.
type PedalInput struct {
	logger   *logger.Logger
	forward  inputLine
	reverse  inputLine
	lowSpeed inputLine

	mu      sync.Mutex
	failing map[string]bool
}

func (io *BoardIO) openPedals(b config.Board) (*PedalInput, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow}

	fwd, err := io.request(b.Chip, b.Pedals.Forward, "pedal forward", opts...)
	if err != nil {
		return nil, err
	}
	rev, err := io.request(b.Chip, b.Pedals.Reverse, "pedal reverse", opts...)
	if err != nil {
		return nil, err
	}
	low, err := io.request(b.Chip, b.Pedals.LowSpeed, "speed switch", opts...)
	if err != nil {
		return nil, err
	}
	return newPedalInput(fwd, rev, low, io.logger), nil
}

func newPedalInput(fwd, rev, low inputLine, l *logger.Logger) *PedalInput {
	return &PedalInput{
		logger:   l,
		forward:  fwd,
		reverse:  rev,
		lowSpeed: low,
		failing:  make(map[string]bool),
	}
}

func (p *PedalInput) ForwardPressed() bool   { return p.read("forward", p.forward) }
func (p *PedalInput) ReversePressed() bool   { return p.read("reverse", p.reverse) }
func (p *PedalInput) LowSpeedSelected() bool { return p.read("low_speed", p.lowSpeed) }

// read treats an unreadable input as released.
func (p *PedalInput) read(name string, line inputLine) bool {
	v, err := line.Value()

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		if !p.failing[name] {
			p.logger.Errorf("Failed to read %s input: %v", name, err)
		}
		p.failing[name] = true
		return false
	}
	if p.failing[name] {
		p.logger.Infof("%s input readable again", name)
		p.failing[name] = false
	}
	return v == 1
}

// === Motors ===

type hBridge struct {
	dirA, dirB outputLine
	pwm        pwmOutput
}

// MotorOutput drives both H-bridges.
type MotorOutput struct {
	bridges   [2]hBridge
	frequency physic.Frequency
}

func (io *BoardIO) openMotors(b config.Board) (*MotorOutput, error) {
	var bridges [2]hBridge
	pins := map[types.Motor]config.MotorPins{
		types.MotorDrive:    b.DriveMotor,
		types.MotorSteering: b.SteeringMotor,
	}
	for _, motor := range []types.Motor{types.MotorDrive, types.MotorSteering} {
		p := pins[motor]
		a, err := io.request(b.Chip, p.DirA, motor.String()+" dir_a", gpiocdev.AsOutput(1))
		if err != nil {
			return nil, err
		}
		bl, err := io.request(b.Chip, p.DirB, motor.String()+" dir_b", gpiocdev.AsOutput(1))
		if err != nil {
			return nil, err
		}
		pwm, err := OpenPWM(p.PWM)
		if err != nil {
			return nil, err
		}
		io.pwms = append(io.pwms, pwm)
		bridges[motor] = hBridge{dirA: a, dirB: bl, pwm: pwm}
	}

	m := &MotorOutput{
		bridges:   bridges,
		frequency: physic.Frequency(b.PWMFrequencyHz) * physic.Hertz,
	}
	for _, motor := range []types.Motor{types.MotorDrive, types.MotorSteering} {
		if err := m.SetDirectionAndDuty(motor, types.DirDisabled, types.DutyDisable); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// SetDirectionAndDuty sets the direction-select lines first, then the duty.
func (m *MotorOutput) SetDirectionAndDuty(motor types.Motor, dir types.Direction, duty uint8) error {
	if motor < 0 || int(motor) >= len(m.bridges) {
		return fmt.Errorf("unknown motor %d", motor)
	}
	br := m.bridges[motor]

	a, b := dir.Lines()
	if err := br.dirA.SetValue(level(a)); err != nil {
		return fmt.Errorf("failed to set %s dir_a: %w", motor, err)
	}
	if err := br.dirB.SetValue(level(b)); err != nil {
		return fmt.Errorf("failed to set %s dir_b: %w", motor, err)
	}
	if err := br.pwm.PWM(DutyFromCode(duty), m.frequency); err != nil {
		return fmt.Errorf("failed to set %s duty %d: %w", motor, duty, err)
	}
	return nil
}

func level(v bool) int {
	if v {
		return 1
	}
	return 0
}

// Cleanup disables the motors if they were configured and releases every line.
func (io *BoardIO) Cleanup() {
	io.logger.Infof("Cleaning up hardware resources")

	if io.Motors != nil {
		for _, motor := range []types.Motor{types.MotorDrive, types.MotorSteering} {
			if err := io.Motors.SetDirectionAndDuty(motor, types.DirDisabled, types.DutyDisable); err != nil {
				io.logger.Errorf("Failed to disable %s motor: %v", motor, err)
			}
		}
	}
	for _, pwm := range io.pwms {
		if err := pwm.Halt(); err != nil {
			io.logger.Warnf("Failed to halt pwm %s: %v", pwm.Name(), err)
		}
	}
	for _, line := range io.lines {
		line.Close()
	}
	io.lines = nil
	io.pwms = nil

	io.logger.Infof("Hardware cleanup complete")
}
