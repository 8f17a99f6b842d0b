package uci

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ProcessDialer starts one engine binary per Dial.
type ProcessDialer struct {
	BinaryPath string
	Args       []string
}

func (d ProcessDialer) Dial(ctx context.Context) (Transport, error) {
	return StartProcess(ctx, d.BinaryPath, d.Args...)
}

// StartProcess launches the engine and wires its stdio into a StreamTransport.
// The process lives until the transport is closed; ctx only bounds the start.
func StartProcess(ctx context.Context, binaryPath string, args ...string) (*StreamTransport, error) {
	if strings.TrimSpace(binaryPath) == "" {
		return nil, fmt.Errorf("engine binary path required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(binaryPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	t := NewStreamTransport(stdoutPipe, stdin)
	t.OnClose(func() error {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		// Wait reaps the child; the kill makes its exit status uninteresting.
		go func() { _ = cmd.Wait() }()
		return nil
	})
	return t, nil
}
