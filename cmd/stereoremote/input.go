package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

// decodeInputEvent parses one raw event. buf must hold exactly inputEventSize bytes.
func decodeInputEvent(reader *bytes.Reader, buf []byte) (inputEvent, error) {
	reader.Reset(buf)
	var ev inputEvent
	if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
		return inputEvent{}, fmt.Errorf("decode input event: %w", err)
	}
	return ev, nil
}

// deviceEvent is an input event and the index of the device that produced it.
type deviceEvent struct {
	device int
	ev     inputEvent
}

// sendInputEvent delivers de unless done closes first.
func sendInputEvent(events chan<- deviceEvent, done <-chan struct{}, de deviceEvent) bool {
	select {
	case events <- de:
		return true
	case <-done:
		return false
	}
}

// readInputEvents reads input events from one device and sends them to a
// channel, tagged with device. It blocks on read, so closing f is what stops
// it during a read; done stops it while a send is pending.
func readInputEvents(f *os.File, device int, events chan<- deviceEvent, readErr chan<- error, done <-chan struct{}) {
	buf := make([]byte, inputEventSize)
	reader := bytes.NewReader(buf)

	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			select {
			case readErr <- fmt.Errorf("read from %s: %w", f.Name(), err):
			case <-done:
			}
			return
		}

		ev, err := decodeInputEvent(reader, buf)
		if err != nil {
			// Skip malformed events
			continue
		}

		if !sendInputEvent(events, done, deviceEvent{device: device, ev: ev}) {
			return
		}
	}
}

// ============================================================================
// evdev input source
// ============================================================================

// evdevSource turns Linux input events into encoder positions and button
// edges. The kernel rotary-encoder driver reports relative steps which are
// accumulated into an absolute position; gpio-keys reports the button.
//
// handle runs on the input goroutine, which is the edge context: it only
// updates the position counter or calls the sink.
type evdevSource struct {
	position   atomic.Int64
	buttonCode uint16
	sink       ButtonSink
	logger     *slog.Logger

	ignored atomic.Uint64
}

func newEvdevSource(buttonCode uint16, logger *slog.Logger) *evdevSource {
	return &evdevSource{
		buttonCode: buttonCode,
		logger:     logger.With("component", "input", "kind", "evdev"),
	}
}

// Position implements EncoderSource.
func (s *evdevSource) Position() int64 {
	return s.position.Load()
}

// setSink attaches the edge sink. Must be called before events are handled.
func (s *evdevSource) setSink(sink ButtonSink) {
	s.sink = sink
}

// handle applies one event. It reports false for a key press it has no use for.
func (s *evdevSource) handle(ev inputEvent, now time.Time) bool {
	switch ev.Type {
	case EV_REL:
		switch ev.Code {
		case REL_DIAL, REL_WHEEL, REL_MISC:
			s.position.Add(int64(ev.Value))
		}

	case EV_KEY:
		// Repeats and releases carry no new intent
		if ev.Value != evValuePress || s.sink == nil {
			return true
		}
		switch ev.Code {
		case s.buttonCode:
			s.sink.ButtonPressed(now)
		case KEY_NEXTSONG:
			_ = s.sink.Inject(CmdTrackForward)
		case KEY_PREVIOUSSONG:
			_ = s.sink.Inject(CmdTrackBack)
		default:
			s.ignored.Add(1)
			return false
		}
	}
	return true
}

// run reads all devices and handles their events until ctx is canceled or a
// device fails. Closing the files is the caller's job; it unblocks the readers.
func (s *evdevSource) run(ctx context.Context, files []*os.File) error {
	events := make(chan deviceEvent, 64)
	readErr := make(chan error, len(files))
	done := make(chan struct{})
	defer close(done)
	go readInputDevices(files, events, readErr, done)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name()
	}
	s.logger.Info("reading input devices", "devices", names, "button_code", s.buttonCode)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("input stopping (context canceled)", "ignored_keys", s.ignored.Load())
			return nil

		case err := <-readErr:
			return fmt.Errorf("input reader stopped: %w", err)

		case de := <-events:
			if !s.handle(de.ev, time.Now()) {
				s.logger.Debug("ignored key", "device", names[de.device], "code", de.ev.Code)
			}
		}
	}
}

// openInputDevices opens every configured device for reading.
func openInputDevices(paths []string) ([]*os.File, error) {
	files := make([]*os.File, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeInputDevices(files)
			return nil, fmt.Errorf("open input device %s: %w", p, err)
		}
		files = append(files, f)
	}
	return files, nil
}

func closeInputDevices(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
