package ports

import (
	"context"
	"os"
	"time"

	"github.com/zorenko/aircap/internal/core/domain"
)

// RunResult is the captured outcome of a run-to-completion invocation.
// A non-zero exit status is data, not an error: callers classify it.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// StreamHandle exposes a running external process whose diagnostic output
// is consumed line by line.
type StreamHandle interface {
	// NextLine returns the next available output line without blocking;
	// ok is false when no line is buffered yet.
	NextLine() (line string, ok bool)

	// Signal delivers a signal to the process (e.g. SIGINT for a graceful
	// collection stop).
	Signal(sig os.Signal) error

	// Terminate requests process termination. Idempotent: terminating an
	// already-exited process is a no-op.
	Terminate()

	// Wait blocks until the process exits or the timeout elapses, killing
	// the process group on expiry.
	Wait(timeout time.Duration) error

	// Exited reports whether the process has already terminated.
	Exited() bool
}

// ProcessRunner launches and monitors external tool invocations.
type ProcessRunner interface {
	// LookPath reports whether the executable is present, returning an
	// error wrapping execrunner.ErrToolNotFound when absent.
	LookPath(tool string) error

	// RunToCompletion runs the command with a bounded execution time and
	// captures its output.
	RunToCompletion(ctx context.Context, timeout time.Duration, name string, args ...string) (RunResult, error)

	// StartStreaming launches the command and exposes its combined output
	// as a line stream.
	StartStreaming(name string, args ...string) (StreamHandle, error)
}

// Scanner enumerates access points and connected clients.
type Scanner interface {
	// ScanAccessPoints collects the AP list over the given window.
	ScanAccessPoints(ctx context.Context, iface string, window time.Duration) ([]domain.AccessPoint, error)

	// ScanClients collects the connected-client list over the given window.
	ScanClients(ctx context.Context, iface string, window time.Duration) ([]domain.ConnectedClient, error)
}

// CaptureService runs a handshake capture task to a terminal state.
type CaptureService interface {
	Capture(ctx context.Context, config domain.CaptureConfig) domain.CaptureResult
}

// DeauthService runs a deauthentication batch to completion.
type DeauthService interface {
	Run(ctx context.Context, config domain.DeauthConfig) domain.DeauthResult
}

// CrackService attempts passphrase recovery against the newest capture.
type CrackService interface {
	Crack(ctx context.Context, config domain.CrackConfig) (domain.CrackResult, error)
}

// ScanStore holds the most recent scan snapshot.
type ScanStore interface {
	// RecordScan replaces the cached AP list atomically.
	RecordScan(aps []domain.AccessPoint)

	// LookupByBSSID finds an AP in the last scan; comparison is
	// case-insensitive on the MAC string.
	LookupByBSSID(bssid string) (domain.AccessPoint, error)

	// Snapshot returns a copy of the current scan state.
	Snapshot() domain.ScanSnapshot
}

// SessionRepository persists target-acquisition cycles.
type SessionRepository interface {
	SaveSession(ctx context.Context, s domain.Session) error
	ListSessions(ctx context.Context, limit int) ([]domain.Session, error)
}
