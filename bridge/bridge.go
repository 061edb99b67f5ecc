// Package bridge runs the loop at the heart of the service: one
// cooperative scheduler that keeps the supervisor's watchdog fed, drains
// the print queue, maintains the broker connection and polls printer
// status, in that order, every iteration.
package bridge

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/nixxel-company-limited/escpos-mqtt-bridge/adapter"
	"github.com/nixxel-company-limited/escpos-mqtt-bridge/bus"
	"github.com/nixxel-company-limited/escpos-mqtt-bridge/protocol"
	"github.com/nixxel-company-limited/escpos-mqtt-bridge/queue"
)

// Bus is the slice of the bus client the run loop needs.
type Bus interface {
	// Connect dials the broker; used for the initial connection and
	// every reconnect. bus.ErrNotAuthorized is fatal to the loop.
	Connect() error

	// PublishStatus publishes a retained status message.
	PublishStatus(s protocol.Status) error

	// PublishResult publishes one job result.
	PublishResult(r bus.Result) error

	// AwaitEvents sleeps up to timeout while inbound messages are
	// delivered, returning bus.ErrConnectionLost on a dropped
	// connection.
	AwaitEvents(timeout time.Duration) error
}

// StatusSource fetches current printer health.
type StatusSource interface {
	Fetch() protocol.Status
}

// Notifier feeds the external supervisor's liveness watchdog.
type Notifier interface {
	Watchdog()
}

// Config holds the run loop's timing knobs.
type Config struct {
	// PollInterval is the gap between printer status polls.
	PollInterval time.Duration
	// RetryDelay is the fixed pause between reconnect attempts.
	RetryDelay time.Duration
}

const (
	defaultPollInterval = 5 * time.Second
	defaultRetryDelay   = time.Second
)

// Bridge owns all mutable state of the service: the print queue, the
// connection flag, the last published status and the poll deadline. Only
// the run loop mutates them, except for the queue, which the inbound
// message handler appends to from the bus client's goroutine.
type Bridge struct {
	bus     Bus
	printer StatusSource
	dev     adapter.Channel
	notify  Notifier
	queue   *queue.Queue
	log     zerolog.Logger

	pollInterval time.Duration
	retryDelay   time.Duration

	connected    bool
	current      protocol.Status
	pollDeadline time.Time
}

// New assembles a bridge. The current status starts as Offline, matching
// the retained last-will payload, so the first real fetch always publishes.
func New(b Bus, printer StatusSource, dev adapter.Channel, n Notifier, cfg Config, log zerolog.Logger) *Bridge {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Bridge{
		bus:          b,
		printer:      printer,
		dev:          dev,
		notify:       n,
		queue:        queue.New(),
		log:          log,
		pollInterval: cfg.PollInterval,
		retryDelay:   cfg.RetryDelay,
		current:      protocol.Offline,
	}
}

// Run loops forever. It returns only when the broker rejects our
// credentials, which is the one unrecoverable condition.
func (b *Bridge) Run() error {
	b.log.Info().Msg("bridge running")
	for {
		if err := b.iterate(); err != nil {
			return err
		}
	}
}

// iterate performs one scheduler turn. Ordering is load-bearing: the queue
// is drained before the connectivity check so a job accepted just before a
// connection loss still prints, and connectivity is restored before
// polling so the status publish has somewhere to go.
func (b *Bridge) iterate() error {
	b.notify.Watchdog()

	b.printNext()

	for !b.connected {
		err := b.bus.Connect()
		if err == nil {
			b.log.Info().Msg("connected to broker")
			b.connected = true
			break
		}
		if errors.Is(err, bus.ErrNotAuthorized) {
			return err
		}
		b.log.Warn().Err(err).Msg("reconnect refused, retrying")
		time.Sleep(b.retryDelay)
		b.notify.Watchdog()
	}

	now := time.Now()
	if !now.Before(b.pollDeadline) {
		b.checkPrinterStatus()
		b.pollDeadline = now.Add(b.pollInterval)
	}

	wait := time.Until(b.pollDeadline)
	if wait < 0 {
		wait = 0
	}
	if err := b.bus.AwaitEvents(wait); errors.Is(err, bus.ErrConnectionLost) {
		b.connected = false
	}
	return nil
}

// printNext delivers at most one queued job to the printer. A job is
// consumed exactly once: whatever the outcome, it is never requeued.
func (b *Bridge) printNext() {
	job, ok := b.queue.DequeueOne()
	if !ok {
		return
	}

	status := b.printer.Fetch()
	if !status.OK {
		b.publishResult(job.ID, status.Text, false)
		return
	}

	if err := b.dev.Print(job.Payload); err != nil {
		b.publishResult(job.ID, "Print failed: "+err.Error(), false)
		return
	}
	b.log.Info().Str("jobid", job.ID).Int("bytes", len(job.Payload)).Msg("printed")
	b.publishResult(job.ID, "Printed", true)
}

// checkPrinterStatus fetches fresh status and republishes only on change;
// the broker retains the last message for late subscribers.
func (b *Bridge) checkPrinterStatus() {
	status := b.printer.Fetch()
	if status == b.current {
		return
	}
	b.current = status
	b.log.Info().Str("status", status.Text).Bool("ok", status.OK).Msg("printer status changed")
	if err := b.bus.PublishStatus(status); err != nil {
		b.log.Error().Err(err).Msg("status publish failed")
	}
}

func (b *Bridge) publishResult(jobID, message string, success bool) {
	r := bus.Result{JobID: jobID, Status: message, Finished: true, Success: success}
	if err := b.bus.PublishResult(r); err != nil {
		b.log.Error().Err(err).Str("jobid", jobID).Msg("result publish failed")
	}
}
