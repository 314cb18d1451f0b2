package main

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// GPIO memory is mapped once per process. The multiplexer actuator and the
// GPIO input source may both need it, so access is reference counted.
var gpioSession struct {
	mu    sync.Mutex
	users int
}

// acquireGPIO maps GPIO memory on first use.
func acquireGPIO() error {
	gpioSession.mu.Lock()
	defer gpioSession.mu.Unlock()

	if gpioSession.users == 0 {
		if err := rpio.Open(); err != nil {
			return fmt.Errorf("open gpio: %w", err)
		}
	}
	gpioSession.users++
	return nil
}

// releaseGPIO unmaps GPIO memory when the last user releases it.
func releaseGPIO() error {
	gpioSession.mu.Lock()
	defer gpioSession.mu.Unlock()

	if gpioSession.users == 0 {
		return nil
	}
	gpioSession.users--
	if gpioSession.users == 0 {
		return rpio.Close()
	}
	return nil
}
