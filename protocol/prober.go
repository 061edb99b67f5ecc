package protocol

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/nixxel-company-limited/escpos-mqtt-bridge/adapter"
)

// DLE EOT commands. Each requests one status byte.
var (
	// cmdPrinterStatus is DLE EOT 1, "transmit printer status".
	// Reply layout 0fw1od10: f = paper feed button pressed, w = waiting
	// for online recovery, o = offline, d = drawer connector pin 3.
	cmdPrinterStatus = []byte{0x10, 0x04, 0x01}

	// cmdOfflineCause is DLE EOT 2, "transmit offline cause status".
	// Reply layout 0ep1fc10: e = error occurred, p = paper out,
	// f = paper being fed by feed button, c = cover open.
	cmdOfflineCause = []byte{0x10, 0x04, 0x02}
)

// Reply bit masks.
const (
	// A genuine DLE EOT reply byte has its fixed marker bits set:
	// masking with 0x93 must leave exactly 0x12. Anything else on the
	// wire is noise and is skipped.
	markerMask  = 0x93
	markerValue = 0x12

	// DLE EOT 1: offline or waiting for online recovery.
	bitsNotReady = 0x28

	// DLE EOT 2 offline causes, checked in this priority order.
	bitCoverOpen     = 0x04
	bitPaperBeingFed = 0x08
	bitOutOfPaper    = 0x20
	bitError         = 0x40
)

// defaultSettleDelay is how long the printer needs between receiving a
// status command and its reply becoming readable.
const defaultSettleDelay = 100 * time.Millisecond

const replySize = 32

// Prober queries printer health over a transport channel.
//
// The exchange is very sensitive to timing: stale bytes must be drained
// before each command, the settle delay must elapse before the reply is
// read, and the device handle must be released after the write or the
// printer never answers. The channel owns the release quirk; the prober
// owns draining, delays and decoding.
type Prober struct {
	ch     adapter.Channel
	settle time.Duration
	log    zerolog.Logger
}

// NewProber creates a prober with the standard settle delay.
func NewProber(ch adapter.Channel, log zerolog.Logger) *Prober {
	return &Prober{ch: ch, settle: defaultSettleDelay, log: log}
}

// findReply scans a raw read for the first byte carrying the DLE EOT
// marker bits. ok is false when the read contained no genuine reply.
func findReply(raw []byte) (b byte, ok bool) {
	for _, c := range raw {
		if c&markerMask == markerValue {
			return c, true
		}
	}
	return 0, false
}

// query performs one command phase: drain, write, settle, read, scan.
func (p *Prober) query(cmd []byte) (b byte, ok bool, err error) {
	if err := p.ch.Drain(); err != nil {
		return 0, false, err
	}
	p.log.Debug().Hex("cmd", cmd).Msg("sending status command")
	if err := p.ch.SendCommand(cmd); err != nil {
		return 0, false, err
	}
	time.Sleep(p.settle)
	raw, err := p.ch.ReadReply(replySize)
	if err != nil {
		return 0, false, err
	}
	p.log.Debug().Hex("reply", raw).Msg("read status reply")
	b, ok = findReply(raw)
	return b, ok, nil
}

// Fetch performs the full two-phase status query and never returns an
// error: a device that cannot be reached is itself a status.
func (p *Prober) Fetch() Status {
	n1, ok, err := p.query(cmdPrinterStatus)
	if err != nil {
		p.log.Debug().Err(err).Msg("printer not connected")
		return NotConnected
	}
	if !ok {
		p.log.Debug().Msg("no valid reply to DLE EOT 1")
		return NoResponse
	}
	p.log.Debug().Uint8("n1", n1).Msg("decoded printer status byte")
	if n1&bitsNotReady == 0 {
		return Ready
	}

	n2, ok, err := p.query(cmdOfflineCause)
	if err != nil {
		p.log.Debug().Err(err).Msg("printer not connected")
		return NotConnected
	}
	if !ok {
		// A printer that answered DLE EOT 1 but not DLE EOT 2 is
		// misbehaving, not absent.
		p.log.Debug().Msg("no valid reply to DLE EOT 2")
		return Error
	}
	p.log.Debug().Uint8("n2", n2).Msg("decoded offline cause byte")

	switch {
	case n2&bitCoverOpen != 0:
		return CoverOpen
	case n2&bitPaperBeingFed != 0:
		return PaperBeingFed
	case n2&bitOutOfPaper != 0:
		return OutOfPaper
	case n2&bitError != 0:
		return Error
	}
	return Unrecognised(n1, n2)
}
