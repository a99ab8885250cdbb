package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rideon-controller/internal/config"
	"rideon-controller/internal/console"
	"rideon-controller/internal/core"
	"rideon-controller/internal/hardware"
	"rideon-controller/internal/logger"
	"rideon-controller/internal/receiver"
)

// Set at link time with -ldflags "-X main.version=..."
var version = "unknown"

// cyclePeriod is the control loop rate.
const cyclePeriod = 10 * time.Millisecond

// options are the command-line settings of one run.
type options struct {
	boardFile   string
	consolePath string
	baud        int
	watchdog    string
}

func main() {
	var opts options
	logLevel := flag.String("log", "3", "Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")
	flag.StringVar(&opts.boardFile, "config", config.DefaultPath, "Board pin map (YAML); defaults are used if missing")
	flag.StringVar(&opts.consolePath, "console", "", "Debug console: serial device path, \"stdio\", or empty to disable")
	flag.IntVar(&opts.baud, "baud", 115200, "Debug console baud rate")
	flag.StringVar(&opts.watchdog, "watchdog", "", "Hardware watchdog device overriding the board file, \"none\" to disable")

	flag.Parse()

	// Create standard logger with appropriate format
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	level, err := logger.ParseLogLevel(*logLevel)
	if err != nil {
		stdLogger.Fatalf("Invalid -log: %v", err)
	}
	l := logger.NewLogger(stdLogger, level)

	l.Infof("Starting rideon-controller %s...", version)

	if err := run(l, opts); err != nil {
		l.Fatalf("%v", err)
	}
}

// run owns every hardware resource so its deferred cleanup runs on all return paths.
func run(l *logger.Logger, opts options) error {
	board, err := config.Load(opts.boardFile)
	if err != nil {
		return fmt.Errorf("failed to load board config: %w", err)
	}

	clock := hardware.MonotonicClock{}
	decoder := receiver.NewDecoder(clock, clock.Millis())

	hw, err := hardware.OpenBoard(board, decoder, clock, l.WithTag("hardware"))
	if err != nil {
		return fmt.Errorf("failed to initialize hardware: %w", err)
	}
	defer hw.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controller := core.NewController(hw.Receiver, hw.Pedals, hw.Motors, clock, l)
	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start controller: %w", err)
	}
	defer controller.Shutdown()

	if opts.consolePath != "" {
		in, out, closer, err := openConsole(opts.consolePath, opts.baud)
		if err != nil {
			return fmt.Errorf("failed to open console: %w", err)
		}
		if closer != nil {
			defer closer.Close()
		}
		dbg := console.New(out, controller, version, l.WithTag("console"))
		go dbg.Run(ctx, in)
		l.Infof("Debug console on %s", opts.consolePath)
	}

	var watchdog *hardware.Watchdog
	if dev := board.WatchdogDevice(opts.watchdog); dev != "" {
		watchdog, err = hardware.OpenWatchdog(dev, hardware.WatchdogTimeout, l.WithTag("hardware"))
		if err != nil {
			return fmt.Errorf("failed to open watchdog: %w", err)
		}
		defer watchdog.Close()
	} else {
		l.Warnf("Hardware watchdog disabled")
	}

	l.Infof("System started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(cyclePeriod)
	defer ticker.Stop()

	watchdogFailing := false
	for {
		select {
		case sig := <-sigChan:
			l.Infof("Received signal %v, shutting down...", sig)
			return nil
		case <-ticker.C:
			controller.Cycle()
			if watchdog == nil {
				continue
			}
			if err := watchdog.Keepalive(); err != nil {
				if !watchdogFailing {
					l.Errorf("%v", err)
				}
				watchdogFailing = true
			} else {
				watchdogFailing = false
			}
		}
	}
}

// openConsole returns the console streams. closer is nil for stdio.
func openConsole(path string, baud int) (io.Reader, io.Writer, io.Closer, error) {
	if path == "stdio" {
		return os.Stdin, os.Stdout, nil, nil
	}
	port, err := console.OpenSerial(path, baud)
	if err != nil {
		return nil, nil, nil, err
	}
	return port, port, port, nil
}
