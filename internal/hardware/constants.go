package hardware

import "time"

const (
	// Consumer is the label shown for our lines in gpioinfo.
	Consumer = "rideon-controller"

	// WatchdogTimeout is the hardware reset deadline. Linux watchdogs take whole seconds.
	WatchdogTimeout = 1 * time.Second
)

// Watchdog ioctls from linux/watchdog.h
const (
	wdiocKeepalive  = 0x80045705 // _IOR('W', 5, int)
	wdiocSetTimeout = 0xC0045706 // _IOWR('W', 6, int)
)
