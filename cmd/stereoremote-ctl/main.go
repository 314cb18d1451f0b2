package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
)

// ============================================================================
// stereoremote-ctl - Command-line IPC Client
// ============================================================================
// This tool sends commands to the stereoremote daemon via IPC.
//
// Usage:
//   stereoremote-ctl volume-up
//   stereoremote-ctl track-forward
//   stereoremote-ctl status
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/stereoremote.sock)
// ============================================================================

// Request types (duplicated from the daemon package for standalone binary)
type Request interface{}

type CommandRequest struct {
	Command string `json:"command"`
}

type StatusRequest struct{}

// RequestEnvelope wraps requests for JSON
type RequestEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// commandAliases maps accepted spellings to daemon command names.
var commandAliases = map[string]string{
	"volume-up":     "volume_up",
	"up":            "volume_up",
	"volume-down":   "volume_down",
	"down":          "volume_down",
	"mute":          "mute",
	"att":           "mute",
	"track-forward": "track_forward",
	"next":          "track_forward",
	"track-back":    "track_back",
	"prev":          "track_back",
	"triple-click":  "triple_click",
	"band":          "triple_click",
}

func main() {
	socketPath := "/tmp/stereoremote.sock"

	// Parse arguments
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Check for -socket flag
	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var req Request

	switch name := strings.ToLower(args[0]); name {
	case "status":
		req = StatusRequest{}

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		cmd, ok := commandAliases[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
			printUsage()
			os.Exit(1)
		}
		req = CommandRequest{Command: cmd}
	}

	resp, err := sendRequest(socketPath, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if len(resp.Data) > 0 {
		fmt.Println(string(resp.Data))
		return
	}
	fmt.Println("ok")
}

func sendRequest(socketPath string, req Request) (IPCResponse, error) {
	// Connect to socket
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := marshalRequest(req)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	// Send request (line-delimited JSON)
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return IPCResponse{}, fmt.Errorf("send request: %w", err)
	}

	// Read response
	var response IPCResponse
	decoder := json.NewDecoder(conn)
	if err := decoder.Decode(&response); err != nil {
		return IPCResponse{}, fmt.Errorf("decode response: %w", err)
	}

	if response.Status == "error" {
		return response, fmt.Errorf("daemon error: %s", response.Error)
	}

	return response, nil
}

func marshalRequest(req Request) ([]byte, error) {
	var env RequestEnvelope

	switch r := req.(type) {
	case CommandRequest:
		env.Type = "command"
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal CommandRequest: %w", err)
		}
		env.Data = data

	case StatusRequest:
		env.Type = "status"

	default:
		return nil, fmt.Errorf("unknown request type: %T", req)
	}

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `stereoremote-ctl - Control the stereoremote daemon via IPC

Usage:
  stereoremote-ctl [options] <command>

Options:
  -socket PATH    Unix domain socket path (default: /tmp/stereoremote.sock)

Commands:
  volume-up, up           Queue a volume up step
  volume-down, down       Queue a volume down step
  mute, att               Queue a mute (attenuate) press
  track-forward, next     Queue a next track press
  track-back, prev        Queue a previous track press
  triple-click, band      Queue a band press
  status                  Print the dispatcher status as JSON
  help, -h, --help        Show this help message

Examples:
  stereoremote-ctl next
  stereoremote-ctl status
  stereoremote-ctl -socket /run/stereoremote.sock volume-up
`)
}
