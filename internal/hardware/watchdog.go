package hardware

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"rideon-controller/internal/logger"
)

// Watchdog keeps a hardware watchdog from resetting the board while the control loop runs.
type Watchdog struct {
	logger *logger.Logger
	fd     int
	path   string
}

func OpenWatchdog(path string, timeout time.Duration, l *logger.Logger) (*Watchdog, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open watchdog %s: %w", path, err)
	}

	secs := int(timeout / time.Second)
	if secs < 1 {
		secs = 1
	}
	if err := unix.IoctlSetPointerInt(fd, wdiocSetTimeout, secs); err != nil {
		// Keep going with the driver's default timeout.
		l.Warnf("Failed to set watchdog timeout to %ds: %v", secs, err)
	}

	l.Infof("Watchdog %s armed (%ds)", path, secs)
	return &Watchdog{logger: l, fd: fd, path: path}, nil
}

// Keepalive pets the watchdog. Called once per control cycle.
func (w *Watchdog) Keepalive() error {
	if err := unix.IoctlSetInt(w.fd, wdiocKeepalive, 0); err != nil {
		return fmt.Errorf("watchdog keepalive: %w", err)
	}
	return nil
}

// Close disarms the watchdog with the magic close character so a clean exit does not reset the board.
func (w *Watchdog) Close() error {
	if _, err := unix.Write(w.fd, []byte("V")); err != nil {
		w.logger.Warnf("Watchdog magic close failed, board will reset: %v", err)
	}
	if err := unix.Close(w.fd); err != nil {
		return fmt.Errorf("failed to close watchdog %s: %w", w.path, err)
	}
	w.logger.Infof("Watchdog %s disarmed", w.path)
	return nil
}
