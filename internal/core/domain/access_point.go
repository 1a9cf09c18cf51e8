package domain

import (
	"strings"
	"time"
)

// AccessPoint represents a wireless network observed during a scan.
// Identity is the BSSID (case-insensitive); entries are immutable once stored.
type AccessPoint struct {
	// BSSID is the MAC address of the access point.
	BSSID string `json:"bssid"`

	// FirstSeen is the timestamp string reported by the scan tool.
	FirstSeen string `json:"first_seen"`

	// Channel is the frequency channel as reported (kept as string, the
	// capture tool consumes it verbatim).
	Channel string `json:"channel"`

	// Power is the signal strength in dBm.
	Power int `json:"power"`

	// Encryption is the privacy column of the scan output (e.g. "WPA2 CCMP PSK").
	Encryption string `json:"encryption"`

	// SSID is the network name; empty for hidden networks.
	SSID string `json:"ssid"`
}

// DisplayName returns the SSID, or a placeholder for hidden networks.
func (ap AccessPoint) DisplayName() string {
	if ap.SSID == "" {
		return "<hidden>"
	}
	return ap.SSID
}

// MatchesBSSID compares the AP identity case-insensitively.
func (ap AccessPoint) MatchesBSSID(bssid string) bool {
	return strings.EqualFold(ap.BSSID, bssid)
}

// ConnectedClient represents a station associated to an access point.
// Clients are ephemeral: they are enumerated fresh per connect attempt and
// consumed immediately by the deauthentication task.
type ConnectedClient struct {
	// Station is the MAC address of the client device.
	Station string `json:"station"`

	// BSSID is the MAC address of the AP the client is associated with.
	BSSID string `json:"bssid"`

	// Power is the signal strength in dBm.
	Power int `json:"power"`

	// Packets is the number of data frames seen from this station.
	Packets uint64 `json:"packets"`
}

// ScanSnapshot is the result of one scan pass: the full AP list plus the
// moment it was taken. Each scan replaces the previous snapshot wholesale.
type ScanSnapshot struct {
	AccessPoints []AccessPoint `json:"access_points"`
	TakenAt      time.Time     `json:"taken_at"`
}
