package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"rideon-controller/internal/core"
	"rideon-controller/internal/logger"
	"rideon-controller/internal/types"
)

// PrintInterval is the period of status lines while any field is enabled.
const PrintInterval = 100 * time.Millisecond

// StatusSource is anything that can produce a control-cycle snapshot
type StatusSource interface {
	Status() core.Status
}

// Flags selects the fields of a status line.
type Flags struct {
	Mode     bool
	Throttle bool
	Steering bool
	Ch1      bool
	Ch3      bool
	Ch5      bool
	Ch6      bool
	Ch7      bool
}

func (f Flags) any() bool {
	return f.Mode || f.Throttle || f.Steering || f.Ch1 || f.Ch3 || f.Ch5 || f.Ch6 || f.Ch7
}

// Console is the single-key debug interface on a serial port or terminal.
type Console struct {
	logger  *logger.Logger
	out     io.Writer
	source  StatusSource
	version string

	mu     sync.Mutex
	flags  Flags
	paused bool
}

func New(out io.Writer, source StatusSource, version string, l *logger.Logger) *Console {
	return &Console{
		logger:  l,
		out:     out,
		source:  source,
		version: version,
	}
}

// Flags returns the enabled fields and the pause state.
func (c *Console) Flags() (Flags, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags, c.paused
}

// HandleKey applies one command key. Unknown keys are ignored.
func (c *Console) HandleKey(key byte) {
	c.mu.Lock()
	switch key {
	case 'c':
		c.flags.Mode = !c.flags.Mode
	case 't':
		c.flags.Throttle = !c.flags.Throttle
	case 's':
		c.flags.Steering = !c.flags.Steering
	case '1':
		c.flags.Ch1 = !c.flags.Ch1
	case '3':
		c.flags.Ch3 = !c.flags.Ch3
	case '5':
		c.flags.Ch5 = !c.flags.Ch5
	case '6':
		c.flags.Ch6 = !c.flags.Ch6
	case '7':
		c.flags.Ch7 = !c.flags.Ch7
	case ' ':
		c.paused = !c.paused
	case 'h', 'H', '?':
		c.mu.Unlock()
		c.PrintHelp()
		return
	default:
		c.mu.Unlock()
		return
	}
	c.logger.Debugf("Key %q: flags=%+v paused=%v", key, c.flags, c.paused)
	c.mu.Unlock()
}

func (c *Console) PrintHelp() {
	c.write(fmt.Sprintf("rideon-controller %s\n", c.version) + `
Debug help:

c - Toggle control mode display
t - Toggle throttle info (target, current, direction lines, duty)
s - Toggle steering info
1 - Toggle CH1 (steer) receiver info
3 - Toggle CH3 (throttle) receiver info
5 - Toggle CH5 (reverse) receiver info
6 - Toggle CH6 (max throttle) receiver info
7 - Toggle CH7 (takeover) receiver info
SPACE - Pause/resume debug output
h - Show this help
`)
}

// PrintStatus writes one status line if output is enabled and not paused.
func (c *Console) PrintStatus() {
	flags, paused := c.Flags()
	if paused || !flags.any() {
		return
	}
	c.write(Render(flags, c.source.Status()) + "\n")
}

// Render formats the enabled fields of a snapshot as one line.
func Render(f Flags, s core.Status) string {
	var fields []string

	if f.Mode {
		fields = append(fields, "C:"+s.Mode.Short())
	}
	if f.Throttle {
		a, b := s.DriveCommand.Direction.Lines()
		fields = append(fields, fmt.Sprintf("T:tgt=%4d cur=%4d A%d%d duty=%3d",
			s.DriveTarget, s.RampedSpeed, bit(a), bit(b), s.DriveCommand.Duty))
	}
	if f.Steering {
		a, b := s.SteeringCommand.Direction.Lines()
		fields = append(fields, fmt.Sprintf("S:in=%3d B%d%d duty=%3d %s",
			s.Steering, bit(a), bit(b), s.SteeringCommand.Duty, s.SteeringState))
	}

	tx := s.TransmitterPowered
	if f.Ch1 {
		fields = append(fields, channel("1:STEER", s.RawUs[types.ChannelSteering], tx, fmt.Sprintf("%3d", s.Steering)))
	}
	if f.Ch3 {
		fields = append(fields, channel("3:THROT", s.RawUs[types.ChannelThrottle], tx, fmt.Sprintf("%3d", s.Throttle)))
	}
	if f.Ch5 {
		fields = append(fields, channel("5:REV  ", s.RawUs[types.ChannelReverse], tx, onOff(s.Reverse, "ON ", "OFF")))
	}
	if f.Ch6 {
		fields = append(fields, channel("6:MAXTH", s.RawUs[types.ChannelMaxThrottle], tx, fmt.Sprintf("%3d", s.MaxThrottle)))
	}
	if f.Ch7 {
		fields = append(fields, channel("7:TAKEO", s.RawUs[types.ChannelTakeover], tx, onOff(s.Takeover, "RC ", "KID")))
	}

	return strings.Join(fields, " | ")
}

func channel(label string, rawUs uint16, tx bool, value string) string {
	if !tx {
		value = "N/A"
	}
	return fmt.Sprintf("%s %4dus (%s)", label, rawUs, value)
}

func onOff(v bool, on, off string) string {
	if v {
		return on
	}
	return off
}

func bit(v bool) int {
	if v {
		return 1
	}
	return 0
}

func (c *Console) write(s string) {
	if _, err := io.WriteString(c.out, s); err != nil {
		c.logger.Warnf("Failed to write to console: %v", err)
	}
}

// Run reads command keys from in and prints status lines until ctx is done or in is closed.
func (c *Console) Run(ctx context.Context, in io.Reader) {
	keys := make(chan byte, 16)
	go func() {
		defer close(keys)
		r := bufio.NewReader(in)
		for {
			b, err := r.ReadByte()
			if err != nil {
				if err != io.EOF {
					c.logger.Warnf("Console input closed: %v", err)
				}
				return
			}
			select {
			case keys <- b:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(PrintInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			c.HandleKey(key)
		case <-ticker.C:
			c.PrintStatus()
		}
	}
}
