package config

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	yaml "gopkg.in/yaml.v2"

	"rideon-controller/internal/rangeutil"
)

const DefaultPath = "/etc/rideon-controller/board.yaml"

// ReceiverLines are the GPIO line offsets the RC receiver outputs are wired to.
type ReceiverLines struct {
	Steering    int `yaml:"steering"`
	Throttle    int `yaml:"throttle"`
	Reverse     int `yaml:"reverse"`
	Takeover    int `yaml:"takeover"`
	MaxThrottle int `yaml:"max_throttle"`
}

// PedalLines are active-low switches to ground, read with the internal pull-ups.
type PedalLines struct {
	Forward  int `yaml:"forward"`
	Reverse  int `yaml:"reverse"`
	LowSpeed int `yaml:"low_speed"`
}

// MotorPins wire one H-bridge: two direction-select lines and a PWM-capable pin.
type MotorPins struct {
	DirA int    `yaml:"dir_a"`
	DirB int    `yaml:"dir_b"`
	PWM  string `yaml:"pwm"`
}

// WatchdogNone disables the hardware watchdog when given as the device.
const WatchdogNone = "none"

// Board is the pin map of the controller board. Only wiring lives here; control
// thresholds are constants in their packages.
type Board struct {
	Chip           string        `yaml:"chip"`
	Receiver       ReceiverLines `yaml:"receiver"`
	Pedals         PedalLines    `yaml:"pedals"`
	DriveMotor     MotorPins     `yaml:"drive_motor"`
	SteeringMotor  MotorPins     `yaml:"steering_motor"`
	PWMFrequencyHz int           `yaml:"pwm_frequency_hz"`
	Watchdog       string        `yaml:"watchdog"`
}

// Default returns the wiring of the reference board.
func Default() Board {
	return Board{
		Chip: "gpiochip0",
		Receiver: ReceiverLines{
			Steering:    5,
			Throttle:    6,
			Reverse:     13,
			Takeover:    19,
			MaxThrottle: 26,
		},
		Pedals: PedalLines{
			Forward:  16,
			Reverse:  20,
			LowSpeed: 21,
		},
		DriveMotor: MotorPins{
			DirA: 23,
			DirB: 24,
			PWM:  "GPIO12",
		},
		SteeringMotor: MotorPins{
			DirA: 27,
			DirB: 22,
			PWM:  "GPIO13",
		},
		PWMFrequencyHz: 20000,
		Watchdog:       "/dev/watchdog",
	}
}

// WatchdogDevice resolves the watchdog device. A non-empty override wins over the board
// file, "none" disables the watchdog, and so does an empty board entry.
func (b Board) WatchdogDevice(override string) string {
	dev := b.Watchdog
	if override != "" {
		dev = override
	}
	if dev == WatchdogNone {
		return ""
	}
	return dev
}

// Load reads a board file over the defaults. A missing file is not an error.
func Load(path string) (Board, error) {
	b := Default()
	if path == "" {
		return b, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return b, nil
	}
	if err != nil {
		return b, fmt.Errorf("failed to read board file %s: %w", path, err)
	}

	if err := Parse(data, &b); err != nil {
		return b, fmt.Errorf("invalid board file %s: %w", path, err)
	}
	return b, nil
}

// Parse decodes YAML into b, keeping any field the document leaves out, and validates the result.
func Parse(data []byte, b *Board) error {
	if err := yaml.UnmarshalStrict(data, b); err != nil {
		return err
	}
	return b.Validate()
}

// Lines returns every GPIO line offset the board claims, keyed by a readable name.
func (b Board) Lines() map[string]int {
	return map[string]int{
		"receiver.steering":     b.Receiver.Steering,
		"receiver.throttle":     b.Receiver.Throttle,
		"receiver.reverse":      b.Receiver.Reverse,
		"receiver.takeover":     b.Receiver.Takeover,
		"receiver.max_throttle": b.Receiver.MaxThrottle,
		"pedals.forward":        b.Pedals.Forward,
		"pedals.reverse":        b.Pedals.Reverse,
		"pedals.low_speed":      b.Pedals.LowSpeed,
		"drive_motor.dir_a":     b.DriveMotor.DirA,
		"drive_motor.dir_b":     b.DriveMotor.DirB,
		"steering_motor.dir_a":  b.SteeringMotor.DirA,
		"steering_motor.dir_b":  b.SteeringMotor.DirB,
	}
}

func (b Board) Validate() error {
	if b.Chip == "" {
		return errors.New("chip must be set")
	}

	lines := b.Lines()
	names := maps.Keys(lines)
	slices.Sort(names)

	seen := make(map[int]string)
	for _, name := range names {
		offset := lines[name]
		if offset < 0 {
			return fmt.Errorf("%s: negative line offset %d", name, offset)
		}
		if other, ok := seen[offset]; ok {
			return fmt.Errorf("%s: line %d already used by %s", name, offset, other)
		}
		seen[offset] = name
	}

	if b.DriveMotor.PWM == "" || b.SteeringMotor.PWM == "" {
		return errors.New("both motors need a pwm pin")
	}
	if b.DriveMotor.PWM == b.SteeringMotor.PWM {
		return fmt.Errorf("pwm pin %s used by both motors", b.DriveMotor.PWM)
	}
	if !rangeutil.InRange(b.PWMFrequencyHz, 1, 100000) {
		return fmt.Errorf("pwm_frequency_hz %d out of range", b.PWMFrequencyHz)
	}
	return nil
}
