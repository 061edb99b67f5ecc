package adapter

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/gousb"
)

// Interface class codes
// Reference: http://www.usb.org/developers/defined_class
const (
	IfaceClassPrinter = 0x07
)

// defaultUSBReadTimeout bounds a reply read on the IN endpoint. The status
// protocol treats an absent reply as a status of its own, so a timed-out
// read is "no data", not a failure.
const defaultUSBReadTimeout = 200 * time.Millisecond

// USBChannel talks to the printer over raw USB bulk transfers, bypassing
// the usblp device node. It implements the same acquire/use/release
// discipline as FileChannel: the device is opened and the printer-class
// interface claimed for a single transfer, then released again, so the
// printer flushes its reply between operations.
type USBChannel struct {
	vid, pid    gousb.ID
	readTimeout time.Duration
	mu          sync.Mutex
}

// NewUSBChannel creates a channel for the printer with the given USB
// vendor and product IDs.
func NewUSBChannel(vid, pid uint16) *USBChannel {
	return &USBChannel{
		vid:         gousb.ID(vid),
		pid:         gousb.ID(pid),
		readTimeout: defaultUSBReadTimeout,
	}
}

// Path returns a descriptive identifier used in error reports.
func (c *USBChannel) Path() string {
	return fmt.Sprintf("usb:%s:%s", c.vid, c.pid)
}

// usbSession holds a claimed printer interface for one transfer.
type usbSession struct {
	ctx   *gousb.Context
	dev   *gousb.Device
	iface *gousb.Interface
	in    *gousb.InEndpoint
	out   *gousb.OutEndpoint
}

func (s *usbSession) release() {
	if s.iface != nil {
		s.iface.Close()
	}
	if s.dev != nil {
		s.dev.Close()
	}
	if s.ctx != nil {
		s.ctx.Close()
	}
}

// acquire opens the device and claims its printer-class interface. Every
// failure is an IOError: the device is unreachable, not misbehaving.
func (c *USBChannel) acquire() (*usbSession, error) {
	s := &usbSession{ctx: gousb.NewContext()}

	dev, err := s.ctx.OpenDeviceWithVIDPID(c.vid, c.pid)
	if err != nil || dev == nil {
		s.release()
		if err == nil {
			err = errors.New("device not found")
		}
		return nil, &IOError{Op: "open", Path: c.Path(), Err: err}
	}
	s.dev = dev

	if runtime.GOOS == "linux" {
		dev.SetAutoDetach(true)
	}

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		s.release()
		return nil, &IOError{Op: "open", Path: c.Path(), Err: err}
	}

	cfg, err := dev.Config(cfgNum)
	if err != nil {
		s.release()
		return nil, &IOError{Op: "open", Path: c.Path(), Err: err}
	}
	defer cfg.Close()

	ifaceNum := -1
	for _, iface := range cfg.Desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == IfaceClassPrinter {
				ifaceNum = iface.Number
				break
			}
		}
		if ifaceNum >= 0 {
			break
		}
	}
	if ifaceNum < 0 {
		s.release()
		return nil, &IOError{Op: "open", Path: c.Path(), Err: errors.New("no printer interface found")}
	}

	iface, err := cfg.Interface(ifaceNum, 0)
	if err != nil {
		s.release()
		return nil, &IOError{Op: "claim", Path: c.Path(), Err: err}
	}
	s.iface = iface

	for _, epDesc := range iface.Setting.Endpoints {
		if epDesc.Direction == gousb.EndpointDirectionOut && s.out == nil {
			if ep, err := iface.OutEndpoint(epDesc.Number); err == nil {
				s.out = ep
			}
		}
		if epDesc.Direction == gousb.EndpointDirectionIn && s.in == nil {
			if ep, err := iface.InEndpoint(epDesc.Number); err == nil {
				s.in = ep
			}
		}
	}
	if s.out == nil {
		s.release()
		return nil, &IOError{Op: "claim", Path: c.Path(), Err: errors.New("no output endpoint")}
	}

	return s, nil
}

// Drain reads and discards up to drainSize stale bytes.
func (c *USBChannel) Drain() error {
	_, err := c.ReadReply(drainSize)
	return err
}

// SendCommand writes a raw command and releases the interface so the
// printer emits its reply.
func (c *USBChannel) SendCommand(cmd []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.acquire()
	if err != nil {
		return err
	}
	defer s.release()

	if _, err := s.out.Write(cmd); err != nil {
		return &IOError{Op: "write", Path: c.Path(), Err: err}
	}
	return nil
}

// ReadReply reads up to max bytes from the IN endpoint. A printer without
// an IN endpoint or without buffered data yields zero bytes.
func (c *USBChannel) ReadReply(max int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer s.release()

	if s.in == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.readTimeout)
	defer cancel()

	buf := make([]byte, max)
	n, err := s.in.ReadContext(ctx, buf)
	if err != nil && n == 0 {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, gousb.TransferTimedOut) {
			return nil, nil
		}
		return nil, &IOError{Op: "read", Path: c.Path(), Err: err}
	}
	return buf[:n], nil
}

// Print writes the job payload to the OUT endpoint.
func (c *USBChannel) Print(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.acquire()
	if err != nil {
		return err
	}
	defer s.release()

	if _, err := s.out.Write(data); err != nil {
		return &IOError{Op: "print", Path: c.Path(), Err: err}
	}
	return nil
}
