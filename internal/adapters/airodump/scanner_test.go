package airodump

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zorenko/aircap/internal/core/ports"
)

// dumpingRunner plants a CSV dump at the write prefix when the scan tool
// is launched, standing in for the tool's own file output.
type dumpingRunner struct {
	fakeRunner
	dump string
}

func (d *dumpingRunner) StartStreaming(name string, args ...string) (ports.StreamHandle, error) {
	handle, err := d.fakeRunner.StartStreaming(name, args...)
	if err != nil {
		return nil, err
	}
	for i, arg := range args {
		if arg == "-w" && i+1 < len(args) {
			if werr := os.WriteFile(args[i+1]+"-01.csv", []byte(d.dump), 0o644); werr != nil {
				return nil, werr
			}
		}
	}
	return handle, nil
}

func TestScanAccessPoints(t *testing.T) {
	stream := &fakeStream{}
	runner := &dumpingRunner{fakeRunner: fakeRunner{stream: stream}, dump: sampleDump}
	scanner := NewScanner(runner)

	aps, err := scanner.ScanAccessPoints(context.Background(), "wlan0mon", 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, aps, 2)
	assert.Equal(t, "AA:11:22:33:44:55", aps[0].BSSID)

	// Graceful interrupt first, so the tool flushes its dump.
	assert.Contains(t, stream.signals, syscall.SIGINT)
	assert.Equal(t, DefaultTool, runner.name)
	assert.Equal(t, []string{"--output-format", "csv"}, runner.args[:2])
	assert.Equal(t, "wlan0mon", runner.args[len(runner.args)-1])
}

func TestScanClients(t *testing.T) {
	stream := &fakeStream{}
	runner := &dumpingRunner{fakeRunner: fakeRunner{stream: stream}, dump: sampleDump}
	scanner := NewScanner(runner)

	clients, err := scanner.ScanClients(context.Background(), "wlan0mon", 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "BB:66:77:88:99:00", clients[0].Station)
}

func TestScan_InvalidInterface(t *testing.T) {
	scanner := NewScanner(&fakeRunner{stream: &fakeStream{}})

	_, err := scanner.ScanAccessPoints(context.Background(), "bad iface name", time.Millisecond)
	assert.Error(t, err)
}

func TestScan_Cancellation(t *testing.T) {
	stream := &fakeStream{}
	runner := &dumpingRunner{fakeRunner: fakeRunner{stream: stream}, dump: sampleDump}
	scanner := NewScanner(runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scanner.ScanAccessPoints(ctx, "wlan0mon", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, stream.terminated, "cancellation must stop the scan process")
}

func TestScan_NoDumpProduced(t *testing.T) {
	scanner := NewScanner(&fakeRunner{stream: &fakeStream{}})

	_, err := scanner.ScanAccessPoints(context.Background(), "wlan0mon", 10*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CSV")
}
