package airodump

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/zorenko/aircap/internal/core/domain"
	"github.com/zorenko/aircap/internal/core/ports"
	"github.com/zorenko/aircap/internal/telemetry"
)

// DefaultTool is the capture/scan executable of the aircrack-ng suite.
const DefaultTool = "airodump-ng"

// exitGrace bounds how long we wait for the tool to flush its CSV dump
// after the graceful interrupt.
const exitGrace = 3 * time.Second

// Scanner enumerates access points and connected clients by running the
// scan tool in CSV output mode for a fixed collection window.
type Scanner struct {
	runner   ports.ProcessRunner
	toolPath string
}

var _ ports.Scanner = (*Scanner)(nil)

// NewScanner creates a scanner on top of the given process runner.
func NewScanner(runner ports.ProcessRunner) *Scanner {
	return &Scanner{runner: runner, toolPath: DefaultTool}
}

// SetToolPath overrides the scan tool executable path.
func (s *Scanner) SetToolPath(path string) {
	if path != "" {
		s.toolPath = path
	}
}

// ScanAccessPoints collects the AP list over the given window.
func (s *Scanner) ScanAccessPoints(ctx context.Context, iface string, window time.Duration) ([]domain.AccessPoint, error) {
	telemetry.ScansTotal.WithLabelValues("networks").Inc()
	aps, _, err := s.scan(ctx, iface, window)
	return aps, err
}

// ScanClients collects the connected-client list over the given window.
// Client enumeration is always performed fresh; results are never cached.
func (s *Scanner) ScanClients(ctx context.Context, iface string, window time.Duration) ([]domain.ConnectedClient, error) {
	telemetry.ScansTotal.WithLabelValues("clients").Inc()
	_, clients, err := s.scan(ctx, iface, window)
	return clients, err
}

// scan runs one collection pass: start the tool writing CSV into a temp
// dir, let it collect for the window, interrupt it gracefully, and parse
// whatever it dumped.
func (s *Scanner) scan(ctx context.Context, iface string, window time.Duration) ([]domain.AccessPoint, []domain.ConnectedClient, error) {
	if !domain.IsValidInterface(iface) {
		return nil, nil, fmt.Errorf("invalid interface name: %s", iface)
	}

	tmpDir, err := os.MkdirTemp("", "aircap-scan-*")
	if err != nil {
		return nil, nil, err
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "dump")
	handle, err := s.runner.StartStreaming(s.toolPath,
		"--output-format", "csv",
		"-w", prefix,
		iface,
	)
	if err != nil {
		telemetry.ToolFailuresTotal.WithLabelValues(s.toolPath).Inc()
		return nil, nil, err
	}

	// Collect for the window, but stay responsive to cancellation.
	select {
	case <-time.After(window):
	case <-ctx.Done():
		handle.Terminate()
		_ = handle.Wait(exitGrace)
		return nil, nil, ctx.Err()
	}

	// Graceful interrupt makes the tool flush and close its dump files; a
	// hard kill can leave the CSV truncated mid-row.
	_ = handle.Signal(syscall.SIGINT)
	if err := handle.Wait(exitGrace); err != nil {
		handle.Terminate()
	}

	csvPath, err := findDump(prefix)
	if err != nil {
		telemetry.ToolFailuresTotal.WithLabelValues(s.toolPath).Inc()
		return nil, nil, err
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	return ParseScanCSV(f)
}

// findDump locates the CSV the tool produced for the given prefix. The
// tool appends its own sequence suffix (prefix-01.csv).
func findDump(prefix string) (string, error) {
	matches, err := filepath.Glob(prefix + "-*.csv")
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%s did not produce CSV output", DefaultTool)
	}
	return matches[0], nil
}
