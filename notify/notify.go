// Package notify signals service readiness and liveness to systemd.
package notify

import (
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
)

// Systemd sends sd_notify messages. Outside a systemd unit (no
// NOTIFY_SOCKET) every call is a silent no-op, so the bridge runs
// unchanged from a shell.
type Systemd struct {
	log zerolog.Logger
}

// NewSystemd creates the notifier.
func NewSystemd(log zerolog.Logger) *Systemd {
	return &Systemd{log: log}
}

// Ready signals that initialization finished. Called once, after the bus
// client is set up.
func (s *Systemd) Ready() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		s.log.Warn().Err(err).Msg("sd_notify READY failed")
	}
}

// Watchdog feeds the supervisor's liveness watchdog. Called every run-loop
// iteration.
func (s *Systemd) Watchdog() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
		s.log.Warn().Err(err).Msg("sd_notify WATCHDOG failed")
	}
}
