//go:build !linux

package main

import "os"

// readInputDevices falls back to one blocking reader goroutine per device.
func readInputDevices(files []*os.File, events chan<- deviceEvent, readErr chan<- error, done <-chan struct{}) {
	for i, f := range files {
		go readInputEvents(f, i, events, readErr, done)
	}
}
