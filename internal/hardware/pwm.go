package hardware

import (
	"fmt"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

// pwmOutput is the part of a periph pin the motor driver needs.
type pwmOutput interface {
	PWM(duty gpio.Duty, f physic.Frequency) error
}

// DutyFromCode scales an 8-bit duty code onto periph's duty range. 255 maps to DutyMax.
func DutyFromCode(code uint8) gpio.Duty {
	return gpio.Duty(uint64(code) * uint64(gpio.DutyMax) / 255)
}

// OpenPWM initializes the periph host drivers once and looks up a PWM-capable pin by name.
func OpenPWM(name string) (gpio.PinIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("no such pwm pin %s", name)
	}
	return pin, nil
}
