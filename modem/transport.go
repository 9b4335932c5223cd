package modem

import (
	"bufio"
	"io"
)

// Transport is a byte-oriented connection to a lora_controller companion
// process: TCP, UART or a spawned PTY child process. Connect/Close bracket
// the lifetime of a single underlying connection; the worker calls
// Connect once per reconnect attempt.
type Transport interface {
	// Connect establishes the underlying connection. Calling Connect
	// again after Close re-establishes it.
	Connect() error
	// Close tears the connection down. Safe to call on an already-closed
	// transport.
	Close() error
	// Reader returns a byte-wise reader over the connection, valid until
	// the next Close.
	Reader() *bufio.Reader
	// Write sends data on the connection.
	Write(data []byte) error
	// Alive reports whether the transport believes its connection is
	// still usable, for transports that can detect this cheaply (e.g.
	// a child process' exit code). Transports without such a signal
	// report whether a connection is currently open.
	Alive() bool
}

// newBufReader wraps an io.Reader for byte-wise framing reads.
func newBufReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, 256)
}
