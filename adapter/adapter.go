package adapter

import "fmt"

// Channel defines the interface for printer transport backends.
//
// The printer only emits a reply to a status command after the handle that
// wrote the command has been released, so every operation acquires the
// device, performs its transfer and releases the device again.
// Implementations must never hold the device open between calls.
type Channel interface {
	// Drain performs a best-effort non-blocking read of stale buffered
	// bytes and discards them
	Drain() error

	// SendCommand writes a raw command sequence and releases the device
	// so the reply becomes readable
	SendCommand(cmd []byte) error

	// ReadReply reads up to max bytes of whatever the device has made
	// available; zero bytes is not an error
	ReadReply(max int) ([]byte, error)

	// Print writes a job payload verbatim to the device
	Print(data []byte) error
}

// IOError reports that the device itself could not be reached, typically
// because the printer is unplugged. It is distinct from the device
// answering with an abnormal or absent status reply.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("device %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
