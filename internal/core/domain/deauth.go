package domain

import (
	"errors"
	"fmt"
	"time"
)

// ClientOutcome classifies one deauthentication attempt against one client.
type ClientOutcome string

const (
	ClientSucceeded   ClientOutcome = "succeeded"
	ClientFailed      ClientOutcome = "failed"
	ClientTimedOut    ClientOutcome = "timed_out"
	ClientToolMissing ClientOutcome = "tool_missing"
)

// DeauthConfig defines the parameters for a deauthentication batch. The
// batch walks the client list sequentially, pausing between attempts.
type DeauthConfig struct {
	// Interface is the monitor-mode interface to inject from.
	Interface string `json:"interface"`

	// APBSSID is the MAC address of the access point.
	APBSSID string `json:"ap_bssid"`

	// Clients is the ordered list of station MACs to deauthenticate.
	Clients []string `json:"clients"`

	// PacketCount is the number of deauth frames per client; zero selects
	// the domain default of 3.
	PacketCount int `json:"packet_count"`

	// Pause is the interval between client attempts and the per-attempt
	// execution bound; zero selects the 10s domain default.
	Pause time.Duration `json:"pause"`
}

// Validate evaluates the configuration against domain rules.
func (c *DeauthConfig) Validate() error {
	if !IsValidMAC(c.APBSSID) {
		return fmt.Errorf("invalid AP BSSID: %s", c.APBSSID)
	}
	if !IsValidInterface(c.Interface) {
		return fmt.Errorf("invalid interface name: %s", c.Interface)
	}
	if len(c.Clients) == 0 {
		return errors.New("at least one client is required")
	}
	for _, mac := range c.Clients {
		if !IsValidMAC(mac) {
			return fmt.Errorf("invalid client MAC: %s", mac)
		}
	}
	if c.PacketCount < 0 {
		return errors.New("packet count cannot be negative")
	}
	if c.Pause < 0 {
		return errors.New("pause cannot be negative")
	}
	return nil
}

// ClientResult records the outcome of a single client attempt.
type ClientResult struct {
	Station string        `json:"station"`
	Outcome ClientOutcome `json:"outcome"`

	// Detail carries captured diagnostic text on failure.
	Detail string `json:"detail,omitempty"`
}

// DeauthResult aggregates the per-client outcomes of one batch.
type DeauthResult struct {
	ID        string         `json:"id"`
	Clients   []ClientResult `json:"clients"`
	Cancelled bool           `json:"cancelled"`
	StartTime time.Time      `json:"start_time"`
	EndTime   *time.Time     `json:"end_time,omitempty"`
}

// AllSucceeded is true only if every client attempt succeeded. A missing
// injector tool or a cancelled batch can never be a success.
func (r *DeauthResult) AllSucceeded() bool {
	if r.Cancelled || len(r.Clients) == 0 {
		return false
	}
	for _, c := range r.Clients {
		if c.Outcome != ClientSucceeded {
			return false
		}
	}
	return true
}

// Aborted reports whether the batch stopped before exhausting the client
// list because the injector executable was absent.
func (r *DeauthResult) Aborted() bool {
	for _, c := range r.Clients {
		if c.Outcome == ClientToolMissing {
			return true
		}
	}
	return false
}
