package domain

import (
	"errors"
	"fmt"
	"time"
)

// CaptureState represents the lifecycle state of a handshake capture task.
type CaptureState string

const (
	CaptureRunning        CaptureState = "running"
	CaptureHandshakeFound CaptureState = "handshake_found"
	CaptureTimedOut       CaptureState = "timed_out"
	CaptureFailed         CaptureState = "failed"
	CaptureCancelled      CaptureState = "cancelled"
)

// IsTerminal reports whether the state is final. Terminal states are
// mutually exclusive and never transition further.
func (s CaptureState) IsTerminal() bool {
	return s == CaptureHandshakeFound || s == CaptureTimedOut ||
		s == CaptureFailed || s == CaptureCancelled
}

// CaptureConfig defines the parameters for a handshake capture task.
type CaptureConfig struct {
	// Interface is the monitor-mode interface to capture on.
	Interface string `json:"interface"`

	// Channel is the channel the target AP is on.
	Channel string `json:"channel"`

	// BSSID is the MAC address of the target AP.
	BSSID string `json:"bssid"`

	// Timeout bounds the capture; zero selects the 120s domain default.
	Timeout time.Duration `json:"timeout"`

	// Strict makes a timeout without a capture file an error instead of an
	// empty result.
	Strict bool `json:"strict"`
}

// Validate evaluates the configuration against domain rules.
func (c *CaptureConfig) Validate() error {
	if !IsValidMAC(c.BSSID) {
		return fmt.Errorf("invalid target BSSID: %s", c.BSSID)
	}
	if !IsValidInterface(c.Interface) {
		return fmt.Errorf("invalid interface name: %s", c.Interface)
	}
	if c.Channel == "" {
		return errors.New("channel is required")
	}
	if c.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}
	return nil
}

// CaptureResult encapsulates the terminal outcome of one capture task.
type CaptureResult struct {
	ID string `json:"id"`

	State CaptureState `json:"state"`

	// CaptureFile is the path to the produced capture file. It may be set
	// on timeout too: a partial capture is still returned and the caller's
	// policy decides whether it is useful.
	CaptureFile string `json:"capture_file,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`

	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// Finish transitions the result into a terminal state. Once terminal, the
// result never changes again.
func (r *CaptureResult) Finish(state CaptureState, file, errMsg string) {
	if r.State.IsTerminal() {
		return
	}
	now := time.Now()
	r.State = state
	r.CaptureFile = file
	r.ErrorMessage = errMsg
	r.EndTime = &now
}

// Duration calculates the wall-clock time the capture has been active.
func (r *CaptureResult) Duration() time.Duration {
	if r.StartTime.IsZero() {
		return 0
	}
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}
