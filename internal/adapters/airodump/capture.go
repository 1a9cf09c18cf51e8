package airodump

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zorenko/aircap/internal/core/domain"
	"github.com/zorenko/aircap/internal/core/ports"
	"github.com/zorenko/aircap/internal/telemetry"
)

const (
	// handshakeMarker is the literal substring the tool prints on its
	// diagnostic stream once a WPA handshake has been observed.
	handshakeMarker = "WPA handshake"

	// captureSuffix is the tool's fixed output-filename convention: the
	// write prefix plus its first sequence number plus the capture
	// extension.
	captureSuffix = "-01.cap"

	// DefaultCaptureTimeout bounds a capture when the config does not.
	DefaultCaptureTimeout = 120 * time.Second

	// teardownGrace bounds how long task teardown may take.
	teardownGrace = 5 * time.Second
)

// idlePoll is the backoff between diagnostic reads when no new line is
// available. Keeps the loop responsive without busy-spinning. Variable so
// tests can shrink it.
var idlePoll = time.Second

// CaptureEngine runs handshake capture tasks: one capture process bound to
// a fixed channel/BSSID, watched until the handshake marker appears on its
// diagnostic stream or the deadline elapses.
type CaptureEngine struct {
	runner   ports.ProcessRunner
	capsDir  string
	toolPath string
}

var _ ports.CaptureService = (*CaptureEngine)(nil)

// NewCaptureEngine creates a capture engine writing into capsDir.
func NewCaptureEngine(runner ports.ProcessRunner, capsDir string) *CaptureEngine {
	return &CaptureEngine{runner: runner, capsDir: capsDir, toolPath: DefaultTool}
}

// SetToolPath overrides the capture tool executable path.
func (e *CaptureEngine) SetToolPath(path string) {
	if path != "" {
		e.toolPath = path
	}
}

// Capture runs one capture task to a terminal state. It never returns a
// running result, and every spawned process is terminated or joined before
// it returns.
func (e *CaptureEngine) Capture(ctx context.Context, cfg domain.CaptureConfig) domain.CaptureResult {
	res := domain.CaptureResult{
		ID:        uuid.New().String(),
		State:     domain.CaptureRunning,
		StartTime: time.Now(),
	}

	if err := cfg.Validate(); err != nil {
		res.Finish(domain.CaptureFailed, "", err.Error())
		return res
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultCaptureTimeout
	}

	if err := os.MkdirAll(e.capsDir, 0o755); err != nil {
		res.Finish(domain.CaptureFailed, "", fmt.Sprintf("create capture dir: %v", err))
		return res
	}

	// Prefix keyed by BSSID and start time so repeated runs never collide.
	prefix := filepath.Join(e.capsDir, fmt.Sprintf("handshake_%s_%d",
		strings.ReplaceAll(cfg.BSSID, ":", ""), time.Now().Unix()))

	handle, err := e.runner.StartStreaming(e.toolPath,
		"-c", cfg.Channel,
		"--bssid", cfg.BSSID,
		"-w", prefix,
		cfg.Interface,
	)
	if err != nil {
		telemetry.ToolFailuresTotal.WithLabelValues(e.toolPath).Inc()
		res.Finish(domain.CaptureFailed, "", err.Error())
		return res
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			e.teardown(handle)
			res.Finish(domain.CaptureCancelled, e.captureFile(prefix), "cancelled")
			return res

		case <-deadline.C:
			e.teardown(handle)
			file := e.captureFile(prefix)
			if file == "" && cfg.Strict {
				res.Finish(domain.CaptureFailed, "", "timed out without a capture file")
				return res
			}
			// A partial capture is still returned; whether it is useful
			// is the caller's policy.
			res.Finish(domain.CaptureTimedOut, file, "")
			return res

		default:
		}

		line, ok := handle.NextLine()
		if !ok {
			if handle.Exited() {
				telemetry.ToolFailuresTotal.WithLabelValues(e.toolPath).Inc()
				res.Finish(domain.CaptureFailed, e.captureFile(prefix),
					"capture tool exited before observing a handshake")
				return res
			}
			e.idle(ctx, deadline)
			continue
		}

		if strings.Contains(line, handshakeMarker) {
			e.teardown(handle)
			telemetry.HandshakesCaptured.Inc()
			res.Finish(domain.CaptureHandshakeFound, e.captureFile(prefix), "")
			return res
		}
	}
}

// idle sleeps one poll interval while staying responsive to cancellation
// and the deadline. The deadline timer is left for the main loop to fire.
func (e *CaptureEngine) idle(ctx context.Context, deadline *time.Timer) {
	idle := time.NewTimer(idlePoll)
	defer idle.Stop()
	select {
	case <-idle.C:
	case <-ctx.Done():
	case <-deadline.C:
		// Re-arm with zero so the main select sees the expiry.
		deadline.Reset(0)
	}
}

// teardown terminates the capture process and joins it within the grace
// period. Idempotent with respect to already-exited processes.
func (e *CaptureEngine) teardown(handle ports.StreamHandle) {
	handle.Terminate()
	_ = handle.Wait(teardownGrace)
}

// captureFile checks the filesystem for the expected capture file and
// returns its path, or empty when the tool produced nothing.
func (e *CaptureEngine) captureFile(prefix string) string {
	path := prefix + captureSuffix
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
