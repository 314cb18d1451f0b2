package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a test double for ipcBackend
type fakeBackend struct {
	mu       sync.Mutex
	injected []LogicalCommand
	snap     DispatcherSnapshot
}

func (b *fakeBackend) Inject(cmd LogicalCommand) error {
	if !cmd.Valid() {
		return errInvalidCommand
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.injected = append(b.injected, cmd)
	return nil
}

func (b *fakeBackend) Snapshot() DispatcherSnapshot {
	return b.snap
}

// TestUnmarshalRequest tests decoding of the request envelopes
func TestUnmarshalRequest(t *testing.T) {
	req, err := UnmarshalRequest([]byte(`{"type":"command","data":{"command":"track_forward"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cr, ok := req.(CommandRequest)
	if !ok || cr.Command != "track_forward" {
		t.Errorf("expected CommandRequest{track_forward}, got %#v", req)
	}

	req, err = UnmarshalRequest([]byte(`{"type":"status"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := req.(StatusRequest); !ok {
		t.Errorf("expected StatusRequest, got %#v", req)
	}

	for _, bad := range []string{
		`{"type":"command"}`,
		`{"type":"volume_held","data":{"direction":1}}`,
		`not json`,
	} {
		if _, err := UnmarshalRequest([]byte(bad)); err == nil {
			t.Errorf("expected error for %s", bad)
		}
	}
}

// TestMarshalRequest tests the envelope type discriminator
func TestMarshalRequest(t *testing.T) {
	data, err := MarshalRequest(CommandRequest{Command: "mute"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"type":"command","data":{"command":"mute"}}` {
		t.Errorf("unexpected encoding: %s", data)
	}

	data, err = MarshalRequest(StatusRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"type":"status"}` {
		t.Errorf("unexpected encoding: %s", data)
	}
}

// TestHandleIPCRequest tests request dispatch without a socket
func TestHandleIPCRequest(t *testing.T) {
	b := &fakeBackend{snap: DispatcherSnapshot{State: "draining", Pending: 3}}

	resp := handleIPCRequest([]byte(`{"type":"command","data":{"command":"track-back"}}`), b)
	if resp.Status != "ok" {
		t.Fatalf("expected ok, got %+v", resp)
	}
	if len(b.injected) != 1 || b.injected[0] != CmdTrackBack {
		t.Errorf("expected track_back injected, got %v", b.injected)
	}

	resp = handleIPCRequest([]byte(`{"type":"command","data":{"command":"eject"}}`), b)
	if resp.Status != "error" || !strings.Contains(resp.Error, "eject") {
		t.Errorf("expected unknown command error, got %+v", resp)
	}

	resp = handleIPCRequest([]byte(`{"type":"status"}`), b)
	if resp.Status != "ok" || resp.Data == nil || resp.Data.State != "draining" || resp.Data.Pending != 3 {
		t.Errorf("unexpected status response: %+v", resp)
	}
}

// TestIPCServer_RoundTrip tests a client talking to a live server
func TestIPCServer_RoundTrip(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "ipc.sock")
	b := &fakeBackend{snap: DispatcherSnapshot{State: "idle", Capacity: 200}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runIPCServer(ctx, socketPath, b, testLogger()) }()

	waitForSocket(t, socketPath)

	if _, err := sendRequest(socketPath, CommandRequest{Command: "volume_up"}); err != nil {
		t.Fatalf("command request failed: %v", err)
	}

	resp, err := sendRequest(socketPath, StatusRequest{})
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	if resp.Data == nil || resp.Data.Capacity != 200 {
		t.Errorf("unexpected status data: %+v", resp.Data)
	}

	if _, err := sendRequest(socketPath, CommandRequest{Command: "nope"}); err == nil {
		t.Error("expected error for unknown command")
	}

	b.mu.Lock()
	injected := append([]LogicalCommand(nil), b.injected...)
	b.mu.Unlock()
	if len(injected) != 1 || injected[0] != CmdVolumeUp {
		t.Errorf("expected [volume_up] injected, got %v", injected)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after cancel")
	}

	if _, err := os.Stat(socketPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected socket removed on shutdown, stat err=%v", err)
	}
}

// TestIPCServer_ReplacesStaleSocket tests startup over a leftover socket file
func TestIPCServer_ReplacesStaleSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "ipc.sock")
	if err := os.WriteFile(socketPath, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = runIPCServer(ctx, socketPath, &fakeBackend{}, testLogger()) }()

	waitForSocket(t, socketPath)
	if _, err := sendRequest(socketPath, StatusRequest{}); err != nil {
		t.Fatalf("status request failed: %v", err)
	}
}

// sendRequest sends one request the way stereoremote-ctl does and returns the response.
func sendRequest(socketPath string, req Request) (IPCResponse, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := MarshalRequest(req)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("marshal request: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return IPCResponse{}, fmt.Errorf("send request: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return IPCResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return resp, fmt.Errorf("ipc error: %s", resp.Error)
	}
	return resp, nil
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if fi, err := os.Stat(path); err == nil && fi.Mode()&os.ModeSocket != 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("socket %s never appeared", path)
}
