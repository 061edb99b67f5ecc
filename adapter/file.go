package adapter

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// drainSize is how many stale bytes a single drain attempts to clear.
const drainSize = 32

// FileChannel talks to the printer through its character device node
// (typically /dev/usb/lp0 with the usblp kernel driver bound).
type FileChannel struct {
	path string
}

// NewFileChannel creates a channel for the given device path. The path is
// not opened until the first operation, so a missing or unplugged printer
// is reported per operation rather than at construction.
func NewFileChannel(path string) *FileChannel {
	return &FileChannel{path: path}
}

// Path returns the device node path.
func (c *FileChannel) Path() string {
	return c.path
}

// open opens the device node with O_CREAT masked out unconditionally: the
// node belongs to the kernel driver and must never be created by us, even
// if a caller passes a creating flag. A failure here is always reported as
// the open failing, whatever operation needed the handle.
func (c *FileChannel) open(flags int) (*os.File, error) {
	fd, err := unix.Open(c.path, (flags&^unix.O_CREAT)|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, &IOError{Op: "open", Path: c.path, Err: err}
	}
	return os.NewFile(uintptr(fd), c.path), nil
}

// Drain reads and discards up to drainSize stale bytes. The device is
// stateful, so leftover bytes from an earlier exchange would otherwise be
// mistaken for the reply to the next command.
func (c *FileChannel) Drain() error {
	_, err := c.ReadReply(drainSize)
	return err
}

// SendCommand writes a raw command and closes the device immediately. The
// close is what makes the printer emit its reply; flushing alone does not.
func (c *FileChannel) SendCommand(cmd []byte) error {
	f, err := c.open(unix.O_RDWR | unix.O_APPEND)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(cmd); err != nil {
		return &IOError{Op: "write", Path: c.path, Err: err}
	}
	return nil
}

// ReadReply reads whatever the device has available, up to max bytes. The
// open is non-blocking: an empty device yields zero bytes, not an error.
func (c *FileChannel) ReadReply(max int) ([]byte, error) {
	f, err := c.open(unix.O_RDWR | unix.O_NONBLOCK)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, max)
	n, err := f.Read(buf)
	if err != nil {
		if isNoData(err) {
			return nil, nil
		}
		return nil, &IOError{Op: "read", Path: c.path, Err: err}
	}
	return buf[:n], nil
}

// Print appends the job payload to the device and closes it.
func (c *FileChannel) Print(data []byte) error {
	f, err := c.open(unix.O_WRONLY | unix.O_APPEND)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return &IOError{Op: "print", Path: c.path, Err: err}
	}
	return nil
}

// isNoData reports whether a read error just means "nothing buffered yet"
// on a non-blocking handle.
func isNoData(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, unix.EAGAIN)
}
