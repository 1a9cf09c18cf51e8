package domain

import "time"

// Session is the persistent record of one target-acquisition cycle: the
// capture/deauthentication run against a single AP plus the recovery result.
type Session struct {
	ID           string       `json:"id"`
	BSSID        string       `json:"bssid"`
	SSID         string       `json:"ssid"`
	Channel      string       `json:"channel"`
	CaptureState CaptureState `json:"capture_state"`
	CaptureFile  string       `json:"capture_file,omitempty"`
	DeauthOK     bool         `json:"deauth_ok"`
	CrackOutcome CrackOutcome `json:"crack_outcome,omitempty"`
	RecoveredKey string       `json:"recovered_key,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}
