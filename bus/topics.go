// Package bus connects the bridge to the MQTT broker: it subscribes to the
// inbound print topic and publishes printer status and per-job results.
package bus

import "strings"

// Topics are the three bus topics, expanded from the configured prefix.
type Topics struct {
	// Status carries the retained printer status, one message per change.
	Status string
	// Print is the inbound job topic the bridge subscribes to.
	Print string
	// Printed carries one result message per terminal job outcome.
	Printed string
}

// NewTopics expands a prefix into the topic set. A non-empty prefix is
// normalized to end with a separator.
func NewTopics(prefix string) Topics {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return Topics{
		Status:  prefix + "status",
		Print:   prefix + "print",
		Printed: prefix + "printed",
	}
}

// Result is the wire form published on the printed topic for every
// terminal outcome of a job, successful or not.
type Result struct {
	JobID    string `json:"jobid"`
	Status   string `json:"status"`
	Finished bool   `json:"finished"`
	Success  bool   `json:"success"`
}
