//go:build linux

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	// epollTimeoutMS bounds how long the reader takes to notice done.
	epollTimeoutMS = 100

	// Events read per device per wakeup.
	eventsPerRead = 16
)

// readInputDevices watches every device from one goroutine with epoll and
// sends events tagged with the index of the device they came from. It returns
// after the first device failure or once done is closed.
//
// The encoder and the button are usually separate devices (rotary-encoder
// and gpio-keys), so there are always at least two descriptors to watch.
func readInputDevices(files []*os.File, events chan<- deviceEvent, readErr chan<- error, done <-chan struct{}) {
	fail := func(err error) {
		select {
		case readErr <- err:
		case <-done:
		}
	}

	if len(files) == 0 {
		fail(errors.New("no input devices provided"))
		return
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		fail(fmt.Errorf("epoll_create1: %w", err))
		return
	}
	defer unix.Close(epfd)

	devices := make(map[int32]int, len(files))
	for i, f := range files {
		fd := int32(f.Fd())
		devices[fd] = i
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, int(fd), &unix.EpollEvent{Events: unix.EPOLLIN, Fd: fd}); err != nil {
			fail(fmt.Errorf("epoll_ctl_add %s: %w", f.Name(), err))
			return
		}
	}

	ready := make([]unix.EpollEvent, len(files))
	buf := make([]byte, inputEventSize*eventsPerRead)
	reader := bytes.NewReader(nil)

	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := unix.EpollWait(epfd, ready, epollTimeoutMS)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			fail(fmt.Errorf("epoll_wait: %w", err))
			return
		}

		for _, re := range ready[:n] {
			dev := devices[re.Fd]
			f := files[dev]

			if re.Events&unix.EPOLLIN == 0 {
				// Error or hangup with nothing left to read: the board has lost a control
				fail(fmt.Errorf("device error/hangup: %s (events=%#x)", f.Name(), re.Events))
				return
			}

			nr, err := f.Read(buf)
			if err != nil {
				fail(fmt.Errorf("read from %s: %w", f.Name(), err))
				return
			}

			// evdev only hands out whole events; a trailing fragment is dropped
			for off := 0; off+inputEventSize <= nr; off += inputEventSize {
				ev, err := decodeInputEvent(reader, buf[off:off+inputEventSize])
				if err != nil {
					continue
				}
				if !sendInputEvent(events, done, deviceEvent{device: dev, ev: ev}) {
					return
				}
			}
		}
	}
}
