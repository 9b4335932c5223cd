package modem

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
)

// PTYTransport spawns a local lora_controller binary and talks to it over
// a pseudo-terminal, the convention used when the modem is attached
// directly to this host (e.g. over SPI) instead of reachable by network
// or serial device.
type PTYTransport struct {
	// BinaryPath is the lora_controller executable to spawn.
	BinaryPath string
	// ExtraArgs are appended after the "-c <ptyname>" flag this
	// transport always passes.
	ExtraArgs []string

	cmd *exec.Cmd
	pty *os.File
	r   *bufio.Reader
}

// NewPTYTransport returns a transport that will spawn binaryPath on
// Connect, passing it the allocated PTY's device path.
func NewPTYTransport(binaryPath string, extraArgs ...string) *PTYTransport {
	return &PTYTransport{BinaryPath: binaryPath, ExtraArgs: extraArgs}
}

// Connect implements Transport.
func (t *PTYTransport) Connect() error {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return fmt.Errorf("modem: pty: allocate pty: %w", err)
	}
	defer tty.Close()

	args := append([]string{"-c", tty.Name()}, t.ExtraArgs...)
	cmd := exec.Command(t.BinaryPath, args...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, os.Stderr
	if err := cmd.Start(); err != nil {
		_ = ptmx.Close()
		return fmt.Errorf("modem: pty: start %s: %w", t.BinaryPath, err)
	}

	t.cmd = cmd
	t.pty = ptmx
	t.r = newBufReader(ptmx)
	return nil
}

// Close implements Transport.
func (t *PTYTransport) Close() error {
	if t.cmd != nil && t.cmd.Process != nil {
		_ = t.cmd.Process.Signal(os.Interrupt)
		done := make(chan error, 1)
		go func() { done <- t.cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			_ = t.cmd.Process.Kill()
		}
	}
	t.cmd = nil
	if t.pty == nil {
		return nil
	}
	err := t.pty.Close()
	t.pty = nil
	return err
}

// Reader implements Transport.
func (t *PTYTransport) Reader() *bufio.Reader { return t.r }

// Write implements Transport.
func (t *PTYTransport) Write(data []byte) error {
	_, err := t.pty.Write(data)
	return err
}

// Alive implements Transport.
func (t *PTYTransport) Alive() bool {
	return t.cmd != nil && t.cmd.ProcessState == nil
}
