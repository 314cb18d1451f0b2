package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the stereoremote daemon.
//
// The file describes one deployment: which input devices and actuator are
// wired, and the timing the receiver needs. It is read once at startup and
// never reloaded.
type Config struct {
	// Input source configuration
	Input InputConfig `yaml:"input"`

	// Output actuator configuration
	Actuator ActuatorConfig `yaml:"actuator"`

	// Timing budget (all values in milliseconds)
	Timing TimingConfig `yaml:"timing"`

	// Command queue configuration
	Queue QueueConfig `yaml:"queue"`

	// IPC configuration (stereoremote-ctl)
	IPC IPCConfig `yaml:"ipc"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type InputConfig struct {
	Kind       string          `yaml:"kind"`        // "evdev" or "gpio"
	Devices    []string        `yaml:"devices"`     // evdev: input devices to monitor
	ButtonCode int             `yaml:"button_code"` // evdev: EV_KEY code of the push button
	GPIO       GPIOInputConfig `yaml:"gpio"`
}

type GPIOInputConfig struct {
	EncoderPinA int `yaml:"encoder_pin_a"`
	EncoderPinB int `yaml:"encoder_pin_b"`
	ButtonPin   int `yaml:"button_pin"`
	PollUS      int `yaml:"poll_us"`
}

type ActuatorConfig struct {
	Kind    string        `yaml:"kind"` // "mux", "digipot" or "dryrun"
	Mux     MuxConfig     `yaml:"mux"`
	Digipot DigipotConfig `yaml:"digipot"`
}

type MuxConfig struct {
	SelectPins []int `yaml:"select_pins"` // S0, S1, S2 (BCM numbering)
}

type DigipotConfig struct {
	Bus     int   `yaml:"bus"`
	Address uint8 `yaml:"address"`
	Steps   int   `yaml:"steps"`
}

// TimingConfig is the user-facing timing configuration as represented in YAML.
// It maps 1:1 to TranslatorConfig and DispatcherConfig but uses milliseconds.
type TimingConfig struct {
	SliceMS             int   `yaml:"slice_ms"`
	ButtonDebounceMS    int   `yaml:"button_debounce_ms"`
	InterItemWaitMS     int   `yaml:"inter_item_wait_ms"`
	SettleMS            int   `yaml:"settle_ms"`
	DisplayVisibleMS    int   `yaml:"display_visible_ms"`
	DisplayCooldownMS   int   `yaml:"display_cooldown_ms"`
	TripleClickWindowMS int   `yaml:"triple_click_window_ms"`
	EncoderThreshold    int64 `yaml:"encoder_threshold"`
}

type QueueConfig struct {
	Capacity int `yaml:"capacity"`
}

type IPCConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SocketPath string `yaml:"socket_path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			Kind:       "evdev",
			Devices:    []string{"/dev/input/event0", "/dev/input/event1"},
			ButtonCode: BTN_0,
			GPIO: GPIOInputConfig{
				EncoderPinA: defaultGPIOEncoderPinA,
				EncoderPinB: defaultGPIOEncoderPinB,
				ButtonPin:   defaultGPIOButtonPin,
				PollUS:      defaultGPIOPollUS,
			},
		},
		Actuator: ActuatorConfig{
			Kind: string(ActuatorMux),
			Mux: MuxConfig{
				SelectPins: []int{defaultMuxPinS0, defaultMuxPinS1, defaultMuxPinS2},
			},
			Digipot: DigipotConfig{
				Bus:     defaultDigipotBus,
				Address: defaultDigipotAddr,
				Steps:   defaultDigipotSteps,
			},
		},
		Timing: TimingConfig{
			SliceMS:             defaultSliceMS,
			ButtonDebounceMS:    defaultButtonDebounceMS,
			InterItemWaitMS:     defaultInterItemWaitMS,
			SettleMS:            defaultSettleMS,
			DisplayVisibleMS:    defaultDisplayVisibleMS,
			DisplayCooldownMS:   defaultDisplayCooldownMS,
			TripleClickWindowMS: defaultTripleClickWindowMS,
			EncoderThreshold:    defaultEncoderThreshold,
		},
		Queue: QueueConfig{
			Capacity: defaultQueueCapacity,
		},
		IPC: IPCConfig{
			Enabled:    true,
			SocketPath: "/tmp/stereoremote.sock",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing document
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds values from command-line flags that were explicitly set.
// Each override is only applied if its pointer is non-nil.
type FlagOverrides struct {
	InputKind    *string
	InputDevices *string // comma separated

	ActuatorKind *string

	EncoderThreshold *int64
	SettleMS         *int

	IPCSocketPath *string
	IPCEnabled    *bool

	LogLevel *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.InputKind != nil {
		cfg.Input.Kind = *o.InputKind
	}
	if o.InputDevices != nil {
		cfg.Input.Devices = splitList(*o.InputDevices)
	}
	if o.ActuatorKind != nil {
		cfg.Actuator.Kind = *o.ActuatorKind
	}
	if o.EncoderThreshold != nil {
		cfg.Timing.EncoderThreshold = *o.EncoderThreshold
	}
	if o.SettleMS != nil {
		cfg.Timing.SettleMS = *o.SettleMS
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.IPCEnabled != nil {
		cfg.IPC.Enabled = *o.IPCEnabled
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Input
	switch c.Input.Kind {
	case "evdev":
		if len(c.Input.Devices) == 0 {
			return errors.New("input.devices must not be empty for evdev input")
		}
		for i, dev := range c.Input.Devices {
			if dev == "" {
				return fmt.Errorf("input.devices[%d] is empty", i)
			}
		}
		if c.Input.ButtonCode <= 0 || c.Input.ButtonCode > 0xffff {
			return errors.New("input.button_code must be between 1 and 65535")
		}
	case "gpio":
		g := c.Input.GPIO
		for name, pin := range map[string]int{"encoder_pin_a": g.EncoderPinA, "encoder_pin_b": g.EncoderPinB, "button_pin": g.ButtonPin} {
			if pin < 0 || pin > maxBCMPin {
				return fmt.Errorf("input.gpio.%s must be a BCM pin between 0 and %d", name, maxBCMPin)
			}
		}
		if g.EncoderPinA == g.EncoderPinB {
			return errors.New("input.gpio.encoder_pin_a and encoder_pin_b must differ")
		}
		if g.PollUS <= 0 {
			return errors.New("input.gpio.poll_us must be > 0")
		}
	default:
		return fmt.Errorf("input.kind must be %q or %q", "evdev", "gpio")
	}

	// Actuator
	kind, err := parseActuatorKind(c.Actuator.Kind)
	if err != nil {
		return fmt.Errorf("actuator.kind: %w", err)
	}
	switch kind {
	case ActuatorMux:
		if len(c.Actuator.Mux.SelectPins) != muxSelectLines {
			return fmt.Errorf("actuator.mux.select_pins must list exactly %d pins", muxSelectLines)
		}
		for i, pin := range c.Actuator.Mux.SelectPins {
			if pin < 0 || pin > maxBCMPin {
				return fmt.Errorf("actuator.mux.select_pins[%d] must be a BCM pin between 0 and %d", i, maxBCMPin)
			}
		}
	case ActuatorDigipot:
		if c.Actuator.Digipot.Steps <= 0 || c.Actuator.Digipot.Steps > 255 {
			return errors.New("actuator.digipot.steps must be between 1 and 255")
		}
		if c.Actuator.Digipot.Address == 0 || c.Actuator.Digipot.Address > 0x7f {
			return errors.New("actuator.digipot.address must be a 7-bit I2C address")
		}
	}

	// Timing: every duration is a positive number of milliseconds
	t := c.Timing
	for _, f := range []struct {
		name string
		v    int
	}{
		{"slice_ms", t.SliceMS},
		{"button_debounce_ms", t.ButtonDebounceMS},
		{"inter_item_wait_ms", t.InterItemWaitMS},
		{"settle_ms", t.SettleMS},
		{"display_visible_ms", t.DisplayVisibleMS},
		{"display_cooldown_ms", t.DisplayCooldownMS},
	} {
		if f.v <= 0 {
			return fmt.Errorf("timing.%s must be > 0", f.name)
		}
	}
	if t.InterItemWaitMS >= t.SettleMS {
		return errors.New("timing.inter_item_wait_ms must be < timing.settle_ms")
	}
	if t.SliceMS >= t.SettleMS {
		return errors.New("timing.slice_ms must be < timing.settle_ms")
	}
	if t.TripleClickWindowMS < 0 {
		return errors.New("timing.triple_click_window_ms must be >= 0")
	}
	if t.TripleClickWindowMS > 0 && t.TripleClickWindowMS <= 2*t.ButtonDebounceMS {
		return errors.New("timing.triple_click_window_ms must exceed two button debounce windows")
	}
	if t.EncoderThreshold < 0 {
		return errors.New("timing.encoder_threshold must be >= 0")
	}

	// Queue
	if c.Queue.Capacity <= 0 {
		return errors.New("queue.capacity must be > 0")
	}

	// IPC
	if c.IPC.Enabled && c.IPC.SocketPath == "" {
		return errors.New("ipc.enabled is true but ipc.socket_path is empty")
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// ToTranslatorConfig converts the timing section into the translator's config.
func (c *Config) ToTranslatorConfig() TranslatorConfig {
	return TranslatorConfig{
		EncoderThreshold:  c.Timing.EncoderThreshold,
		ButtonDebounce:    ms(c.Timing.ButtonDebounceMS),
		TripleClickWindow: ms(c.Timing.TripleClickWindowMS),
	}
}

// ToDispatcherConfig converts the timing section into the dispatcher's config.
func (c *Config) ToDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		InterItemWait:   ms(c.Timing.InterItemWaitMS),
		Settle:          ms(c.Timing.SettleMS),
		DisplayVisible:  ms(c.Timing.DisplayVisibleMS),
		DisplayCooldown: ms(c.Timing.DisplayCooldownMS),
	}
}

// Slice returns the scheduling slice.
func (c *Config) Slice() time.Duration {
	return ms(c.Timing.SliceMS)
}

// splitList splits a comma separated flag value, dropping empty elements.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
