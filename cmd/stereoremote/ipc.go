package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// Local clients (stereoremote-ctl, scripts) can inject commands that the
// encoder and button cannot produce, and read the dispatcher status.
//
// Protocol: Line-delimited JSON
//   - Client sends: {"type": "command", "data": {"command": "track_back"}}
//   - Server responds: {"status": "ok"} or {"status": "error", "error": "msg"}
//   - "status" requests get the snapshot in "data"
//
// The socket is local only; nothing listens on a network interface.
// ============================================================================

// IPCResponse represents the response sent back to IPC clients
type IPCResponse struct {
	Status string              `json:"status"`          // "ok" or "error"
	Error  string              `json:"error,omitempty"` // error message if status == "error"
	Data   *DispatcherSnapshot `json:"data,omitempty"`
}

// ipcBackend is what the IPC server needs from the daemon.
type ipcBackend interface {
	Inject(cmd LogicalCommand) error
	Snapshot() DispatcherSnapshot
}

// runIPCServer starts the Unix domain socket server.
// It runs until ctx is canceled, at which point it closes the listener and exits.
func runIPCServer(ctx context.Context, socketPath string, backend ipcBackend, logger *slog.Logger) error {
	logger = logger.With("component", "ipc")

	// Remove a stale socket left by a previous run
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0660); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				logger.Debug("IPC listener closed")
				return nil
			}

			logger.Error("IPC accept error", "error", err)
			continue
		}

		go handleIPCConnection(conn, backend, logger)
	}
}

// handleIPCConnection handles a single IPC connection
func handleIPCConnection(conn net.Conn, backend ipcBackend, logger *slog.Logger) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug("IPC received", "line", line)

		response := handleIPCRequest([]byte(line), backend)
		if response.Status != "ok" {
			logger.Warn("IPC request rejected", "error", response.Error)
		}
		if err := encoder.Encode(response); err != nil {
			logger.Error("IPC failed to send response", "error", err)
			return
		}
	}

	logger.Debug("IPC connection closed")
}

// handleIPCRequest decodes one request line and applies it to the backend.
func handleIPCRequest(line []byte, backend ipcBackend) IPCResponse {
	req, err := UnmarshalRequest(line)
	if err != nil {
		return IPCResponse{Status: "error", Error: fmt.Sprintf("parse request: %v", err)}
	}

	switch r := req.(type) {
	case CommandRequest:
		cmd, err := ParseCommand(r.Command)
		if err != nil {
			return IPCResponse{Status: "error", Error: err.Error()}
		}
		if err := backend.Inject(cmd); err != nil {
			return IPCResponse{Status: "error", Error: err.Error()}
		}
		return IPCResponse{Status: "ok"}

	case StatusRequest:
		snap := backend.Snapshot()
		return IPCResponse{Status: "ok", Data: &snap}

	default:
		return IPCResponse{Status: "error", Error: fmt.Sprintf("unsupported request: %T", req)}
	}
}
