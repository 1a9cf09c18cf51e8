package driver

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zorenko/aircap/internal/core/ports"
)

// cmdTimeout bounds every interface-management command. These are local
// ioctl-style operations; anything longer means the system is wedged.
const cmdTimeout = 10 * time.Second

// Manager drives the host's wireless interfaces through the standard
// Linux tooling (iw, ip, systemctl).
type Manager struct {
	runner ports.ProcessRunner
	logger *slog.Logger
}

// NewManager creates an interface manager on top of the given runner.
func NewManager(runner ports.ProcessRunner, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{runner: runner, logger: logger}
}

// ListWirelessDevices enumerates wireless interface names from `iw dev`.
// A missing tool or a failed invocation yields an empty list, not an
// error: on such hosts there is simply nothing to audit.
func (m *Manager) ListWirelessDevices(ctx context.Context) []string {
	out, err := m.runner.RunToCompletion(ctx, cmdTimeout, "iw", "dev")
	if err != nil || out.ExitCode != 0 || out.TimedOut {
		m.logger.Warn("wireless device enumeration unavailable", "error", err, "exit_code", out.ExitCode)
		return nil
	}

	var devices []string
	scanner := bufio.NewScanner(strings.NewReader(out.Stdout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if name, ok := strings.CutPrefix(line, "Interface "); ok {
			devices = append(devices, strings.TrimSpace(name))
		}
	}
	return devices
}

// EnableMonitorMode switches the interface into monitor mode. The
// interface must be down while the type changes.
func (m *Manager) EnableMonitorMode(ctx context.Context, iface string) error {
	m.logger.Info("enabling monitor mode", "interface", iface)

	if err := m.run(ctx, "ip", "link", "set", iface, "down"); err != nil {
		return err
	}
	if err := m.run(ctx, "iw", iface, "set", "type", "monitor"); err != nil {
		m.logger.Warn("monitor mode rejected; a network manager may be holding the interface",
			"interface", iface, "error", err)
		return err
	}
	// Park on a known channel so the card is listening somewhere sane.
	// Not critical, the capture engine retunes anyway.
	_ = m.run(ctx, "iw", iface, "set", "channel", "6")

	return m.run(ctx, "ip", "link", "set", iface, "up")
}

// DisableMonitorMode returns the interface to managed mode. Best effort:
// restoration runs during teardown where a partial result beats none.
func (m *Manager) DisableMonitorMode(ctx context.Context, iface string) {
	m.logger.Info("restoring managed mode", "interface", iface)
	_ = m.run(ctx, "ip", "link", "set", iface, "down")
	_ = m.run(ctx, "iw", iface, "set", "type", "managed")
	_ = m.run(ctx, "ip", "link", "set", iface, "up")
}

// SetInterfaceChannel tunes the interface to a channel.
func (m *Manager) SetInterfaceChannel(ctx context.Context, iface string, channel int) error {
	if channel <= 0 {
		return fmt.Errorf("invalid channel: %d", channel)
	}
	return m.run(ctx, "iw", iface, "set", "channel", fmt.Sprintf("%d", channel))
}

// KillConflictingProcesses stops the services that fight over the radio.
// Without this, NetworkManager retunes the card mid-capture.
func (m *Manager) KillConflictingProcesses(ctx context.Context) error {
	for _, args := range [][]string{
		{"systemctl", "stop", "NetworkManager"},
		{"systemctl", "stop", "wpa_supplicant"},
	} {
		if err := m.run(ctx, args[0], args[1:]...); err != nil {
			return err
		}
	}
	return nil
}

// RestoreNetworkServices restarts the services stopped by
// KillConflictingProcesses. All restarts are attempted even when an
// earlier one fails; the last error is reported.
func (m *Manager) RestoreNetworkServices(ctx context.Context) error {
	var lastErr error
	for _, args := range [][]string{
		{"systemctl", "start", "wpa_supplicant"},
		{"systemctl", "start", "NetworkManager"},
	} {
		if err := m.run(ctx, args[0], args[1:]...); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// run executes one management command, folding a non-zero exit into the
// error with the command's diagnostic output attached.
func (m *Manager) run(ctx context.Context, name string, args ...string) error {
	out, err := m.runner.RunToCompletion(ctx, cmdTimeout, name, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	if out.TimedOut {
		return fmt.Errorf("%s %s: no completion within %s", name, strings.Join(args, " "), cmdTimeout)
	}
	if out.ExitCode != 0 {
		detail := strings.TrimSpace(out.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(out.Stdout)
		}
		return fmt.Errorf("%s %s: exit %d (%s)", name, strings.Join(args, " "), out.ExitCode, detail)
	}
	return nil
}
