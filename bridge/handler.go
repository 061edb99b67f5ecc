package bridge

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"github.com/nixxel-company-limited/escpos-mqtt-bridge/queue"
)

// printRequest is the inbound wire form. JobID stays raw because senders
// use both strings and bare numbers; Data is a pointer so a missing field
// is distinguishable from an empty one.
type printRequest struct {
	JobID json.RawMessage `json:"jobid"`
	Data  *string         `json:"data"`
}

// HandlePrintMessage decodes one inbound print message. It runs on the bus
// client's goroutine, so it only appends to the queue or publishes an
// immediate rejection; it never touches the printer. A message that cannot
// be attributed to a job (non-JSON, or no jobid) is dropped silently
// because there is nobody to answer.
func (b *Bridge) HandlePrintMessage(payload []byte) {
	var req printRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		b.log.Info().Err(err).Msg("ignoring non-JSON print request")
		return
	}

	if len(req.JobID) == 0 || string(req.JobID) == "null" {
		b.log.Info().Msg("ignoring print request missing jobid")
		return
	}
	jobID := jobIDString(req.JobID)

	if req.Data == nil {
		b.log.Info().Str("jobid", jobID).Msg("print request missing data")
		b.publishResult(jobID, "Aborted: missing data", false)
		return
	}

	data, err := base64.StdEncoding.DecodeString(*req.Data)
	if err != nil {
		b.log.Info().Str("jobid", jobID).Err(err).Msg("undecodable print data")
		b.publishResult(jobID, "Error decoding data: "+err.Error(), false)
		return
	}

	b.queue.Enqueue(queue.Job{ID: jobID, Payload: data})
}

// jobIDString renders a raw jobid, string or number, as a plain string.
func jobIDString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
