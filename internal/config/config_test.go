package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default board invalid: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	b, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b != Default() {
		t.Errorf("Expected defaults, got %+v", b)
	}
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	doc := `
chip: gpiochip4
receiver:
  steering: 40
  throttle: 41
  reverse: 42
  takeover: 43
  max_throttle: 44
drive_motor:
  pwm: PWM0
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("Failed to write board file: %v", err)
	}

	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b.Chip != "gpiochip4" {
		t.Errorf("Expected chip gpiochip4, got %s", b.Chip)
	}
	if b.Receiver.MaxThrottle != 44 {
		t.Errorf("Expected max_throttle line 44, got %d", b.Receiver.MaxThrottle)
	}
	if b.DriveMotor.PWM != "PWM0" {
		t.Errorf("Expected drive pwm PWM0, got %s", b.DriveMotor.PWM)
	}
	if b.DriveMotor.DirA != Default().DriveMotor.DirA {
		t.Errorf("Expected default drive dir_a to survive, got %d", b.DriveMotor.DirA)
	}
	if b.Pedals != Default().Pedals {
		t.Errorf("Expected default pedals, got %+v", b.Pedals)
	}
}

func TestParseRejectsDuplicateLines(t *testing.T) {
	b := Default()
	err := Parse([]byte("pedals:\n  forward: 5\n  reverse: 20\n  low_speed: 21\n"), &b)
	if err == nil {
		t.Fatal("Expected duplicate line offset to be rejected")
	}
	if !strings.Contains(err.Error(), "already used") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	b := Default()
	if err := Parse([]byte("deadzone: 20\n"), &b); err == nil {
		t.Error("Expected unknown key to be rejected")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(b *Board)
	}{
		{"empty chip", func(b *Board) { b.Chip = "" }},
		{"negative offset", func(b *Board) { b.Pedals.LowSpeed = -1 }},
		{"missing pwm", func(b *Board) { b.SteeringMotor.PWM = "" }},
		{"shared pwm", func(b *Board) { b.SteeringMotor.PWM = b.DriveMotor.PWM }},
		{"zero frequency", func(b *Board) { b.PWMFrequencyHz = 0 }},
		{"direction line reused", func(b *Board) { b.SteeringMotor.DirB = b.DriveMotor.DirA }},
	}
	for _, tc := range cases {
		b := Default()
		tc.mutate(&b)
		if err := b.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestWatchdogDevice(t *testing.T) {
	b := Default()

	cases := []struct {
		name     string
		board    string
		override string
		want     string
	}{
		{"board file", "/dev/watchdog1", "", "/dev/watchdog1"},
		{"flag overrides board", "/dev/watchdog1", "/dev/watchdog0", "/dev/watchdog0"},
		{"flag disables", "/dev/watchdog1", WatchdogNone, ""},
		{"board disables", WatchdogNone, "", ""},
		{"board empty", "", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b.Watchdog = tc.board
			if got := b.WatchdogDevice(tc.override); got != tc.want {
				t.Errorf("WatchdogDevice(%q) = %q, want %q", tc.override, got, tc.want)
			}
		})
	}
}

func TestLoadWatchdogFromBoardFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	if err := os.WriteFile(path, []byte("watchdog: /dev/watchdog1\n"), 0644); err != nil {
		t.Fatalf("Failed to write board file: %v", err)
	}
	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := b.WatchdogDevice(""); got != "/dev/watchdog1" {
		t.Errorf("Expected watchdog from board file, got %q", got)
	}
}
