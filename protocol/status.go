// Package protocol implements the DLE EOT status protocol spoken by
// ESC/POS receipt printers: two vendor status-query commands whose
// single-byte bit-field replies map onto a small closed set of printer
// states.
package protocol

import "fmt"

// Status is one printer health state. Equality is structural, so two
// fetches that decode to the same state compare equal and a changed state
// is detected with a plain comparison.
type Status struct {
	Text string
	OK   bool
}

// The canonical states. OK is true only for Ready.
var (
	Offline       = Status{Text: "Offline"}
	CoverOpen     = Status{Text: "Cover is open"}
	PaperBeingFed = Status{Text: "Paper is being fed by the paper feed button"}
	OutOfPaper    = Status{Text: "Out of paper"}
	Error         = Status{Text: "Error light is on"}
	NoResponse    = Status{Text: "No response from printer"}
	NotConnected  = Status{Text: "Printer not connected"}
	Ready         = Status{Text: "Ready", OK: true}
)

// Unrecognised builds the fallback state for a reply whose offline-cause
// byte sets none of the documented bits. Both raw bytes are carried for
// diagnostics.
func Unrecognised(n1, n2 byte) Status {
	return Status{Text: fmt.Sprintf("Unrecognised printer status: n1=0x%02x n2=0x%02x", n1, n2)}
}

// Message is the wire form published on the status topic.
type Message struct {
	Status string `json:"status"`
	OK     bool   `json:"ok"`
}

// Message converts a Status to its wire form.
func (s Status) Message() Message {
	return Message{Status: s.Text, OK: s.OK}
}
