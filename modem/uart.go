package modem

import (
	"bufio"
	"fmt"
	"os/exec"
	"time"

	"go.bug.st/serial"
)

// uartBaudRate and uartReadTimeout match the companion's own UART
// transport convention.
const (
	uartBaudRate    = 115200
	uartReadTimeout = 100 * time.Millisecond
)

// UARTTransport talks to a lora_controller over a serial device, with an
// optional startup script run before the port is opened (e.g. to load a
// firmware image or reset the MCU via GPIO).
type UARTTransport struct {
	Device      string
	StartScript string

	port serial.Port
	r    *bufio.Reader
}

// NewUARTTransport returns a transport bound to the given device path.
func NewUARTTransport(device, startScript string) *UARTTransport {
	return &UARTTransport{Device: device, StartScript: startScript}
}

// Connect implements Transport.
func (t *UARTTransport) Connect() error {
	if t.StartScript != "" {
		cmd := exec.Command(t.StartScript)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("modem: uart: start script %s failed: %w", t.StartScript, err)
		}
	}

	mode := &serial.Mode{BaudRate: uartBaudRate}
	port, err := serial.Open(t.Device, mode)
	if err != nil {
		return fmt.Errorf("modem: uart: open %s: %w", t.Device, err)
	}
	if err := port.SetReadTimeout(uartReadTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("modem: uart: set read timeout: %w", err)
	}

	t.port = port
	t.r = newBufReader(port)
	return nil
}

// Close implements Transport.
func (t *UARTTransport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

// Reader implements Transport.
func (t *UARTTransport) Reader() *bufio.Reader { return t.r }

// Write implements Transport.
func (t *UARTTransport) Write(data []byte) error {
	_, err := t.port.Write(data)
	return err
}

// Alive implements Transport.
func (t *UARTTransport) Alive() bool { return t.port != nil }
