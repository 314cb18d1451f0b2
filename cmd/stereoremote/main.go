package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("StereoRemote v%s\n", version)
	fmt.Println("Rotary encoder and button bridge for a car stereo wired remote input")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  stereoremote [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that turns encoder rotation and button presses into stereo")
	fmt.Println("  commands, queues them, and plays each one onto the stereo's resistor")
	fmt.Println("  ladder input through an analog multiplexer or a digital potentiometer.")
	fmt.Println("  Commands are paced so the receiver can settle, and the first in a")
	fmt.Println("  sequence waits for the stereo display to come up.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (defaults are used when omitted)")
	fmt.Println()
	fmt.Println("  -input string")
	fmt.Println("        Input source: evdev|gpio (default \"evdev\")")
	fmt.Println()
	fmt.Println("  -input-devices string")
	fmt.Println("        Comma separated evdev devices (default \"/dev/input/event0,/dev/input/event1\")")
	fmt.Println()
	fmt.Println("  -actuator string")
	fmt.Println("        Output actuator: mux|digipot|dryrun (default \"mux\")")
	fmt.Println()
	fmt.Println("  -encoder-threshold int")
	fmt.Printf("        Encoder steps that must be exceeded to emit a command (default %d)\n", defaultEncoderThreshold)
	fmt.Println()
	fmt.Println("  -settle-ms int")
	fmt.Printf("        Wait after each actuator change in ms (default %d)\n", defaultSettleMS)
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Unix domain socket path for IPC (default \"/tmp/stereoremote.sock\")")
	fmt.Println()
	fmt.Println("  -ipc")
	fmt.Println("        Enable the IPC socket (default true)")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with defaults (evdev input, multiplexer output)")
	fmt.Println("  stereoremote")
	fmt.Println()
	fmt.Println("  # Read the encoder straight from GPIO and drive a digital potentiometer")
	fmt.Println("  stereoremote -input gpio -actuator digipot")
	fmt.Println()
	fmt.Println("  # Try the timing without hardware attached")
	fmt.Println("  stereoremote -input-devices /dev/input/event3 -actuator dryrun -log-level debug")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - evdev input requires read access to the devices (root or the 'input' group)")
	fmt.Println("  - mux and gpio need /dev/gpiomem; digipot needs /dev/i2c-N")
	fmt.Println("  - timing is read once at startup; restart to apply changes")
	fmt.Println()
}

// inputSource is a running encoder and button source.
type inputSource interface {
	EncoderSource
	setSink(sink ButtonSink)
}

// daemonBackend answers IPC requests.
type daemonBackend struct {
	translator *EventTranslator
	dispatcher *Dispatcher
}

func (b daemonBackend) Inject(cmd LogicalCommand) error { return b.translator.Inject(cmd) }

func (b daemonBackend) Snapshot() DispatcherSnapshot { return b.dispatcher.Snapshot() }

func main() {
	// Check for version flag early
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath       = flag.String("config", "", "Path to YAML config file")
		inputKind        = flag.String("input", "evdev", "Input source: evdev|gpio")
		inputDevices     = flag.String("input-devices", "", "Comma separated evdev devices")
		actuatorKind     = flag.String("actuator", string(ActuatorMux), "Output actuator: mux|digipot|dryrun")
		encoderThreshold = flag.Int64("encoder-threshold", defaultEncoderThreshold, "Encoder steps that must be exceeded to emit a command")
		settleMS         = flag.Int("settle-ms", defaultSettleMS, "Wait after each actuator change in ms")
		ipcSocketPath    = flag.String("ipc-socket", "/tmp/stereoremote.sock", "Unix domain socket path for IPC")
		ipcEnabled       = flag.Bool("ipc", true, "Enable the IPC socket")
		logLevelStr      = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		showVersion      = flag.Bool("version", false, "Print version and exit")
		showHelp         = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(ExpandPath(*configPath))
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file
	var overrides FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			overrides.InputKind = inputKind
		case "input-devices":
			overrides.InputDevices = inputDevices
		case "actuator":
			overrides.ActuatorKind = actuatorKind
		case "encoder-threshold":
			overrides.EncoderThreshold = encoderThreshold
		case "settle-ms":
			overrides.SettleMS = settleMS
		case "ipc-socket":
			overrides.IPCSocketPath = ipcSocketPath
		case "ipc":
			overrides.IPCEnabled = ipcEnabled
		case "log-level":
			overrides.LogLevel = logLevelStr
		}
	})
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(os.Stdout, logLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("stereoremote stopped", "error", err)
		os.Exit(1)
	}
}

// run wires the pipeline and blocks until a shutdown signal or an input failure.
func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := NewCommandQueue(cfg.Queue.Capacity)

	// Output actuator first, so the receiver sees the rest level before any input
	act, err := openActuator(cfg.Actuator, logger)
	if err != nil {
		return fmt.Errorf("open actuator: %w", err)
	}
	defer func() {
		if err := act.RestoreRest(); err != nil {
			logger.Warn("failed to restore rest on shutdown", "error", err)
		}
		if err := act.Close(); err != nil {
			logger.Warn("failed to close actuator", "error", err)
		}
	}()

	// Input source
	var (
		src      inputSource
		runInput func(ctx context.Context) error
	)
	switch cfg.Input.Kind {
	case "gpio":
		gs, release, err := openGPIOSource(cfg.Input.GPIO, logger)
		if err != nil {
			return fmt.Errorf("open gpio input: %w", err)
		}
		defer func() { _ = release() }()
		src = gs
		runInput = gs.run

	default:
		files, err := openInputDevices(cfg.Input.Devices)
		if err != nil {
			logger.Error("failed to open input devices", "devices", cfg.Input.Devices, "error", err, "tip", "run as root or add user to 'input' group")
			return err
		}
		es := newEvdevSource(uint16(cfg.Input.ButtonCode), logger)
		src = es
		runInput = func(ctx context.Context) error {
			// Closing the files unblocks the readers on shutdown
			go func() {
				<-ctx.Done()
				closeInputDevices(files)
			}()
			return es.run(ctx, files)
		}
	}

	translator := NewEventTranslator(queue, src, cfg.ToTranslatorConfig(), logger, time.Now())
	src.setSink(translator)

	dispatcher := NewDispatcher(queue, act, cfg.ToDispatcherConfig(), logger)
	sched := newScheduler(cfg.Slice(), logger, translatorTask{translator}, dispatcherTask{dispatcher})

	logger.Debug("starting stereoremote", "version", version)
	logger.Debug("configuration",
		"input", cfg.Input.Kind,
		"devices", cfg.Input.Devices,
		"actuator", cfg.Actuator.Kind,
		"queue_capacity", cfg.Queue.Capacity,
		"slice_ms", cfg.Timing.SliceMS,
		"button_debounce_ms", cfg.Timing.ButtonDebounceMS,
		"inter_item_wait_ms", cfg.Timing.InterItemWaitMS,
		"settle_ms", cfg.Timing.SettleMS,
		"display_visible_ms", cfg.Timing.DisplayVisibleMS,
		"display_cooldown_ms", cfg.Timing.DisplayCooldownMS,
		"triple_click_window_ms", cfg.Timing.TripleClickWindowMS,
		"encoder_threshold", cfg.Timing.EncoderThreshold,
		"ipc_enabled", cfg.IPC.Enabled,
		"ipc_socket", cfg.IPC.SocketPath)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.run(ctx)
	}()

	if cfg.IPC.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runIPCServer(ctx, cfg.IPC.SocketPath, daemonBackend{translator, dispatcher}, logger); err != nil {
				logger.Error("IPC server error", "error", err)
			}
		}()
	}

	logger.Info("listening", "input", cfg.Input.Kind, "actuator", cfg.Actuator.Kind, "ipc", cfg.IPC.Enabled)

	inputErr := runInput(ctx)
	if inputErr != nil && !errors.Is(inputErr, context.Canceled) {
		logger.Error("input stopped", "error", inputErr)
	} else {
		inputErr = nil
		logger.Info("shutting down")
	}

	stop()
	wg.Wait()
	return inputErr
}
