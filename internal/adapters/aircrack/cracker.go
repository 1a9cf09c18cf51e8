package aircrack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/zorenko/aircap/internal/core/domain"
	"github.com/zorenko/aircap/internal/core/ports"
	"github.com/zorenko/aircap/internal/telemetry"
)

// DefaultTool is the passphrase recovery executable of the aircrack-ng suite.
const DefaultTool = "aircrack-ng"

const (
	// MinTimeout and MaxTimeout clamp the recovery run bound. Below the
	// floor the tool barely gets through its startup scan; above the
	// ceiling the operator should switch wordlists instead.
	MinTimeout = 5 * time.Minute
	MaxTimeout = time.Hour
)

// Tool output markers. The recovery tool communicates its verdict on
// stdout only; the exit code does not distinguish outcomes.
const (
	markerKeyFound    = "KEY FOUND!"
	markerNotInDict   = "Passphrase not in dictionary"
	markerNoNetworks  = "No networks found"
	markerNoHandshake = "ap_cur != NULL"
)

// keyPattern extracts the passphrase from the KEY FOUND! banner, which
// prints the key between square brackets.
var keyPattern = regexp.MustCompile(`KEY FOUND!\s*\[\s*(.+?)\s*\]`)

// Cracker runs dictionary recovery against the newest capture for a BSSID.
type Cracker struct {
	runner   ports.ProcessRunner
	capsDir  string
	toolPath string
}

var _ ports.CrackService = (*Cracker)(nil)

// NewCracker creates a cracker reading captures from capsDir.
func NewCracker(runner ports.ProcessRunner, capsDir string) *Cracker {
	return &Cracker{runner: runner, capsDir: capsDir, toolPath: DefaultTool}
}

// SetToolPath overrides the recovery tool executable path.
func (c *Cracker) SetToolPath(path string) {
	if path != "" {
		c.toolPath = path
	}
}

// Crack selects the newest capture for the configured BSSID and runs the
// dictionary attack against it. A dictionary miss and an exceeded bound
// both come back as CrackKeyNotFound; only operational faults (no capture
// on disk, unreadable wordlist, missing tool) are errors.
func (c *Cracker) Crack(ctx context.Context, cfg domain.CrackConfig) (domain.CrackResult, error) {
	if err := cfg.Validate(); err != nil {
		return domain.CrackResult{}, err
	}
	if _, err := os.Stat(cfg.Wordlist); err != nil {
		return domain.CrackResult{}, fmt.Errorf("wordlist not readable: %w", err)
	}

	capture, err := c.newestCapture(cfg.BSSID)
	if err != nil {
		return domain.CrackResult{}, err
	}

	timeout := clampTimeout(cfg.Timeout)
	start := time.Now()

	out, err := c.runner.RunToCompletion(ctx, timeout, c.toolPath,
		"-a2",
		"-b", cfg.BSSID,
		"-w", cfg.Wordlist,
		capture,
	)
	if err != nil {
		telemetry.ToolFailuresTotal.WithLabelValues(c.toolPath).Inc()
		return domain.CrackResult{}, err
	}

	res := domain.CrackResult{
		Outcome:     classify(out),
		CaptureFile: capture,
		Wordlist:    cfg.Wordlist,
		Duration:    time.Since(start),
	}
	if res.Outcome == domain.CrackKeyFound {
		res.Key = extractKey(out.Stdout)
	}
	telemetry.CrackAttemptsTotal.WithLabelValues(string(res.Outcome)).Inc()
	return res, nil
}

// newestCapture finds the most recently modified capture file written for
// the given BSSID.
func (c *Cracker) newestCapture(bssid string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(c.capsDir, "handshake_*.cap"))
	if err != nil {
		return "", err
	}
	want := strings.ReplaceAll(bssid, ":", "")

	newest := ""
	var newestMod time.Time
	for _, m := range matches {
		if !strings.EqualFold(captureBSSID(m), want) {
			continue
		}
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = m
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no capture file found for %s", bssid)
	}
	return newest, nil
}

// captureBSSID extracts the colon-stripped BSSID embedded in a capture
// file name.
func captureBSSID(path string) string {
	name := strings.TrimPrefix(filepath.Base(path), "handshake_")
	if i := strings.IndexByte(name, '_'); i >= 0 {
		return name[:i]
	}
	return ""
}

// classify maps the tool's output onto a recovery outcome.
func classify(out ports.RunResult) domain.CrackOutcome {
	combined := out.Stdout + "\n" + out.Stderr
	switch {
	case strings.Contains(combined, markerKeyFound):
		return domain.CrackKeyFound
	case strings.Contains(combined, markerNoNetworks),
		strings.Contains(combined, markerNoHandshake):
		return domain.CrackInvalidCapture
	case strings.Contains(combined, markerNotInDict):
		return domain.CrackKeyNotFound
	case out.TimedOut:
		return domain.CrackKeyNotFound
	default:
		// The tool exited without a verdict banner; treat it like an
		// exhausted dictionary.
		return domain.CrackKeyNotFound
	}
}

// extractKey pulls the passphrase out of the KEY FOUND! banner.
func extractKey(stdout string) string {
	m := keyPattern.FindStringSubmatch(stdout)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// clampTimeout bounds the recovery run to the supported window.
func clampTimeout(d time.Duration) time.Duration {
	if d < MinTimeout {
		return MinTimeout
	}
	if d > MaxTimeout {
		return MaxTimeout
	}
	return d
}
