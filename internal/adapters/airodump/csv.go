package airodump

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/zorenko/aircap/internal/core/domain"
)

// Fixed column layout of the scan tool's CSV dump. The file has two
// sections: AP rows first, then client rows introduced by a "Station MAC"
// header. This layout is the wire protocol with the external tool; any
// format drift is fixed here and nowhere else.
const (
	apColBSSID      = 0
	apColFirstSeen  = 1
	apColChannel    = 3
	apColEncryption = 5
	apColPower      = 8
	apColSSID       = 13
	apMinColumns    = 14

	clientColStation = 0
	clientColPower   = 3
	clientColPackets = 4
	clientColBSSID   = 5
	clientMinColumns = 6
)

// ParseScanCSV reads one airodump CSV dump and returns both sections.
func ParseScanCSV(r io.Reader) ([]domain.AccessPoint, []domain.ConnectedClient, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var aps []domain.AccessPoint
	var clients []domain.ConnectedClient
	inStations := false

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// The tool truncates rows on interrupt; skip the mangled line.
			continue
		}
		if len(row) == 0 {
			continue
		}

		first := strings.TrimSpace(row[0])
		if first == "" {
			continue
		}

		if strings.EqualFold(first, "station mac") {
			inStations = true
			continue
		}

		if inStations {
			if len(row) < clientMinColumns {
				continue
			}
			clients = append(clients, domain.ConnectedClient{
				Station: strings.TrimSpace(row[clientColStation]),
				Power:   parseInt(row[clientColPower]),
				Packets: parseUint(row[clientColPackets]),
				BSSID:   strings.TrimSpace(row[clientColBSSID]),
			})
			continue
		}

		if first == "BSSID" { // AP section header
			continue
		}
		if len(row) < apMinColumns {
			continue
		}
		aps = append(aps, domain.AccessPoint{
			BSSID:      strings.TrimSpace(row[apColBSSID]),
			FirstSeen:  strings.TrimSpace(row[apColFirstSeen]),
			Channel:    strings.TrimSpace(row[apColChannel]),
			Encryption: strings.TrimSpace(row[apColEncryption]),
			Power:      parseInt(row[apColPower]),
			SSID:       strings.TrimSpace(row[apColSSID]),
		})
	}

	return aps, clients, nil
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func parseUint(s string) uint64 {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
