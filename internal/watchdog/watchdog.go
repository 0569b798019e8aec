// Package watchdog integrates with the systemd service manager: readiness
// and stopping notifications plus periodic watchdog keepalives when the unit
// has WatchdogSec configured.
package watchdog

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends service state notifications to systemd
type Notifier struct {
	watchdogEnabled bool
	pingInterval    time.Duration
	logger          *slog.Logger
}

// NewNotifier creates a notifier, detecting whether the systemd watchdog is
// active for this unit. Pings go out at half the watchdog timeout.
func NewNotifier(logger *slog.Logger) *Notifier {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return &Notifier{logger: logger}
	}

	return &Notifier{
		watchdogEnabled: true,
		pingInterval:    interval / 2,
		logger:          logger,
	}
}

// WatchdogEnabled reports whether keepalive pings are required
func (n *Notifier) WatchdogEnabled() bool {
	return n.watchdogEnabled
}

// Run sends keepalive pings until the context is cancelled. No-op when the
// watchdog is not enabled.
func (n *Notifier) Run(ctx context.Context) {
	if !n.watchdogEnabled {
		return
	}

	ticker := time.NewTicker(n.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				n.logger.Error("failed to send watchdog ping", slog.Any("error", err))
			}
		}
	}
}

// NotifyReady tells systemd the service finished initializing
func (n *Notifier) NotifyReady() {
	if !UnderSystemd() {
		return
	}
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		n.logger.Error("failed to notify systemd ready", slog.Any("error", err))
	}
}

// NotifyStopping tells systemd the service is shutting down
func (n *Notifier) NotifyStopping() {
	if !UnderSystemd() {
		return
	}
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		n.logger.Error("failed to notify systemd stopping", slog.Any("error", err))
	}
}

// UnderSystemd checks if the process is running as a systemd service unit
func UnderSystemd() bool {
	return os.Getenv("NOTIFY_SOCKET") != "" || os.Getenv("INVOCATION_ID") != ""
}
