package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_KEY = 0x01
	EV_REL = 0x02

	KEY_MUTE         = 113
	KEY_NEXTSONG     = 163
	KEY_PREVIOUSSONG = 165
	KEY_ENTER        = 28
	BTN_0            = 0x100

	// Rotary encoder relative axis codes (rotary-encoder driver uses REL_DIAL
	// or REL_WHEEL depending on the device tree)
	REL_DIAL  = 0x07
	REL_WHEEL = 0x08
	REL_MISC  = 0x09
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Timing defaults in milliseconds.
//
// The receiver offers no acknowledgment, so every wait below is open-loop.
// Keep settle values conservative relative to the real device's response time.
const (
	defaultSliceMS           = 1    // Minimum scheduling slice
	defaultButtonDebounceMS  = 100  // Presses closer than this to the last accepted press are discarded
	defaultInterItemWaitMS   = 20   // Wait after an unrecognized queue entry
	defaultSettleMS          = 40   // Time the receiver needs to register one emulated press
	defaultDisplayVisibleMS  = 850  // Time the receiver keeps its overlay on screen
	defaultDisplayCooldownMS = 4100 // Spacing between overlays before a new one is considered necessary

	// Encoder movement must exceed this many counts to produce a command.
	// 1 is the strict revision (delta > 1); 0 is the permissive one (delta > 0).
	defaultEncoderThreshold = 1

	// Triple click detection is off unless a window is configured.
	defaultTripleClickWindowMS = 0
)

// Queue defaults
const (
	defaultQueueCapacity = 200
)

// Resistor ladder
const (
	ladderTotalOhms = 100000.0 // Rest position, no button pressed
	muxSelectLines  = 3
	muxChannels     = 1 << muxSelectLines
)

// Highest BCM GPIO number on the BCM2835 family
const maxBCMPin = 53

// Actuator defaults
const (
	defaultMuxPinS0 = 27 // BCM numbering
	defaultMuxPinS1 = 22
	defaultMuxPinS2 = 23

	defaultDigipotAddr  = 0x2f // MCP4018-style single byte wiper register
	defaultDigipotBus   = 1
	defaultDigipotSteps = 127
)

// GPIO input defaults (BCM numbering)
const (
	defaultGPIOEncoderPinA = 5
	defaultGPIOEncoderPinB = 6
	defaultGPIOButtonPin   = 13
	defaultGPIOPollUS      = 250
)
