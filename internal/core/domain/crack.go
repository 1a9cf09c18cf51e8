package domain

import (
	"fmt"
	"time"
)

// CrackOutcome classifies the terminal result of a passphrase recovery run.
type CrackOutcome string

const (
	// CrackKeyFound means the tool reported a key; Key holds it.
	CrackKeyFound CrackOutcome = "key_found"

	// CrackKeyNotFound means the dictionary was exhausted or the run timed
	// out. This is a normal outcome, not an error.
	CrackKeyNotFound CrackOutcome = "key_not_found"

	// CrackInvalidCapture means the capture file lacks a usable handshake.
	// Distinguished from not-found so the operator knows to recapture
	// rather than re-run recovery.
	CrackInvalidCapture CrackOutcome = "invalid_capture"
)

// CrackConfig defines the parameters for a passphrase recovery run.
type CrackConfig struct {
	// BSSID is the MAC address of the target AP.
	BSSID string `json:"bssid"`

	// Wordlist is the dictionary file path.
	Wordlist string `json:"wordlist"`

	// Timeout bounds the run; exceeding it is reported as not-found.
	Timeout time.Duration `json:"timeout"`
}

// Validate evaluates the configuration against domain rules.
func (c *CrackConfig) Validate() error {
	if !IsValidMAC(c.BSSID) {
		return fmt.Errorf("invalid target BSSID: %s", c.BSSID)
	}
	if c.Wordlist == "" {
		return fmt.Errorf("wordlist path is required")
	}
	return nil
}

// CrackResult encapsulates the outcome of one recovery run.
type CrackResult struct {
	Outcome CrackOutcome `json:"outcome"`

	// Key is the recovered passphrase when Outcome is CrackKeyFound.
	Key string `json:"key,omitempty"`

	// CaptureFile is the capture the tool was run against.
	CaptureFile string `json:"capture_file"`

	// Wordlist is the dictionary that was used.
	Wordlist string `json:"wordlist"`

	Duration time.Duration `json:"duration"`
}
