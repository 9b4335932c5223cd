package lorawan

import "fmt"

// Kind identifies the class of error returned by the codec and the
// modem/wormhole layers built on top of it. Tests and callers match on
// Kind rather than on error string content.
type Kind int

// Supported error kinds.
const (
	// KindOutOfRange is returned when a numeric argument falls outside
	// its declared domain.
	KindOutOfRange Kind = iota
	// KindLengthMismatch is returned when a splice or setter receives
	// data of the wrong length.
	KindLengthMismatch
	// KindNotAByte is returned when a byte sequence argument contains an
	// element outside 0..255.
	KindNotAByte
	// KindInvalidEncoding is returned for malformed UBJSON or a framing
	// violation on the modem wire protocol.
	KindInvalidEncoding
	// KindMissingKey is returned when a session or root key slot that is
	// required for the requested operation is unset.
	KindMissingKey
	// KindTimeout is returned when an RPC exceeds its call timeout.
	KindTimeout
	// KindTransportFailed is returned when the underlying transport
	// (TCP/UART/PTY) has disconnected.
	KindTransportFailed
	// KindRemoteError is returned when the companion firmware answers
	// with a non-zero status code.
	KindRemoteError
	// KindInvalidMType is returned for an MType outside the known set.
	KindInvalidMType
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindOutOfRange:
		return "OutOfRange"
	case KindLengthMismatch:
		return "LengthMismatch"
	case KindNotAByte:
		return "NotAByte"
	case KindInvalidEncoding:
		return "InvalidEncoding"
	case KindMissingKey:
		return "MissingKey"
	case KindTimeout:
		return "Timeout"
	case KindTransportFailed:
		return "TransportFailed"
	case KindRemoteError:
		return "RemoteError"
	case KindInvalidMType:
		return "InvalidMType"
	default:
		return "Unknown"
	}
}

// Error is the single tagged error type surfaced by this module and its
// modem/wormhole subpackages (see spec §7).
type Error struct {
	Kind Kind
	// Name carries the key name for KindMissingKey, and is otherwise
	// empty.
	Name string
	// Code and Message carry the remote status for KindRemoteError.
	Code    int
	Message string
	// Cause, if set, is the underlying error for KindTransportFailed.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingKey:
		return fmt.Sprintf("lorawan: missing key: %s", e.Name)
	case KindRemoteError:
		return fmt.Sprintf("lorawan: remote error %d: %s", e.Code, e.Message)
	case KindTransportFailed:
		if e.Cause != nil {
			return fmt.Sprintf("lorawan: transport failed: %v", e.Cause)
		}
		return "lorawan: transport failed"
	default:
		if e.Message != "" {
			return fmt.Sprintf("lorawan: %s: %s", e.Kind, e.Message)
		}
		return fmt.Sprintf("lorawan: %s", e.Kind)
	}
}

// Unwrap allows errors.Is/As to reach the underlying transport cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrOutOfRange builds a KindOutOfRange error.
func ErrOutOfRange(msg string) error {
	return &Error{Kind: KindOutOfRange, Message: msg}
}

// ErrLengthMismatch builds a KindLengthMismatch error.
func ErrLengthMismatch(msg string) error {
	return &Error{Kind: KindLengthMismatch, Message: msg}
}

// ErrNotAByte builds a KindNotAByte error.
func ErrNotAByte(msg string) error {
	return &Error{Kind: KindNotAByte, Message: msg}
}

// ErrInvalidEncoding builds a KindInvalidEncoding error.
func ErrInvalidEncoding(msg string) error {
	return &Error{Kind: KindInvalidEncoding, Message: msg}
}

// ErrMissingKey builds a KindMissingKey error for the named key.
func ErrMissingKey(name string) error {
	return &Error{Kind: KindMissingKey, Name: name}
}

// ErrInvalidMType builds a KindInvalidMType error.
func ErrInvalidMType(msg string) error {
	return &Error{Kind: KindInvalidMType, Message: msg}
}

// ErrTimeout builds a KindTimeout error.
func ErrTimeout(msg string) error {
	return &Error{Kind: KindTimeout, Message: msg}
}

// ErrTransportFailed builds a KindTransportFailed error wrapping cause.
func ErrTransportFailed(cause error) error {
	return &Error{Kind: KindTransportFailed, Cause: cause}
}

// ErrRemoteError builds a KindRemoteError error from the companion's status.
func ErrRemoteError(code int, message string) error {
	return &Error{Kind: KindRemoteError, Code: code, Message: message}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
