package airodump

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zorenko/aircap/internal/core/domain"
	"github.com/zorenko/aircap/internal/core/ports"
)

// fakeStream is a scripted StreamHandle: it replays queued lines and
// records lifecycle calls.
type fakeStream struct {
	mu         sync.Mutex
	lines      []string
	exited     bool
	terminated bool
	waited     bool
	signals    []os.Signal

	// onTerminate lets a test hook process shutdown, e.g. to create the
	// capture file at teardown time.
	onTerminate func()
}

func (f *fakeStream) push(lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, lines...)
}

func (f *fakeStream) NextLine() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.lines) == 0 {
		return "", false
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	return line, true
}

func (f *fakeStream) Signal(sig os.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, sig)
	return nil
}

func (f *fakeStream) Terminate() {
	f.mu.Lock()
	hook := f.onTerminate
	f.terminated = true
	f.exited = true
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (f *fakeStream) Wait(timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waited = true
	f.exited = true
	return nil
}

func (f *fakeStream) Exited() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exited
}

// fakeRunner hands out a scripted stream and records the command line.
type fakeRunner struct {
	stream   *fakeStream
	startErr error

	name string
	args []string
}

func (f *fakeRunner) LookPath(tool string) error { return nil }

func (f *fakeRunner) RunToCompletion(ctx context.Context, timeout time.Duration, name string, args ...string) (ports.RunResult, error) {
	return ports.RunResult{}, nil
}

func (f *fakeRunner) StartStreaming(name string, args ...string) (ports.StreamHandle, error) {
	f.name = name
	f.args = args
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.stream, nil
}

func validConfig() domain.CaptureConfig {
	return domain.CaptureConfig{
		Interface: "wlan0mon",
		Channel:   "6",
		BSSID:     "AA:11:22:33:44:55",
		Timeout:   5 * time.Second,
	}
}

func shortIdle(t *testing.T) {
	t.Helper()
	old := idlePoll
	idlePoll = 5 * time.Millisecond
	t.Cleanup(func() { idlePoll = old })
}

func TestCapture_HandshakeFound(t *testing.T) {
	shortIdle(t)
	dir := t.TempDir()

	stream := &fakeStream{}
	stream.push(
		"CH  6 ][ Elapsed: 12 s",
		"CH  6 ][ Elapsed: 14 s ][ WPA handshake: AA:11:22:33:44:55",
	)
	engine := NewCaptureEngine(&fakeRunner{stream: stream}, dir)

	// The tool writes the capture file while running.
	stream.onTerminate = func() {
		writeCaptureFile(t, dir, "AA:11:22:33:44:55")
	}
	writeCaptureFile(t, dir, "AA:11:22:33:44:55")

	res := engine.Capture(context.Background(), validConfig())

	assert.Equal(t, domain.CaptureHandshakeFound, res.State)
	assert.NotEmpty(t, res.CaptureFile)
	assert.True(t, stream.terminated, "capture process must be torn down")
	assert.True(t, stream.waited, "teardown must join the process")
	assert.NotNil(t, res.EndTime)
}

func TestCapture_CommandLine(t *testing.T) {
	shortIdle(t)
	stream := &fakeStream{}
	stream.push("WPA handshake: AA:11:22:33:44:55")
	runner := &fakeRunner{stream: stream}
	engine := NewCaptureEngine(runner, t.TempDir())

	engine.Capture(context.Background(), validConfig())

	assert.Equal(t, DefaultTool, runner.name)
	require.Len(t, runner.args, 7)
	assert.Equal(t, []string{"-c", "6", "--bssid", "AA:11:22:33:44:55"}, runner.args[:4])
	assert.Equal(t, "-w", runner.args[4])
	assert.Contains(t, filepath.Base(runner.args[5]), "handshake_AA1122334455_")
	assert.Equal(t, "wlan0mon", runner.args[6])
}

func TestCapture_Timeout(t *testing.T) {
	shortIdle(t)
	stream := &fakeStream{}
	engine := NewCaptureEngine(&fakeRunner{stream: stream}, t.TempDir())

	cfg := validConfig()
	cfg.Timeout = 50 * time.Millisecond

	start := time.Now()
	res := engine.Capture(context.Background(), cfg)

	assert.Equal(t, domain.CaptureTimedOut, res.State)
	assert.Empty(t, res.CaptureFile)
	assert.Empty(t, res.ErrorMessage)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, stream.terminated)
}

func TestCapture_TimeoutStrictWithoutFile(t *testing.T) {
	shortIdle(t)
	stream := &fakeStream{}
	engine := NewCaptureEngine(&fakeRunner{stream: stream}, t.TempDir())

	cfg := validConfig()
	cfg.Timeout = 50 * time.Millisecond
	cfg.Strict = true

	res := engine.Capture(context.Background(), cfg)

	assert.Equal(t, domain.CaptureFailed, res.State)
	assert.Contains(t, res.ErrorMessage, "timed out")
}

func TestCapture_TimeoutKeepsPartialFile(t *testing.T) {
	shortIdle(t)
	dir := t.TempDir()
	stream := &fakeStream{}
	stream.onTerminate = func() {
		writeCaptureFile(t, dir, "AA:11:22:33:44:55")
	}
	engine := NewCaptureEngine(&fakeRunner{stream: stream}, dir)

	cfg := validConfig()
	cfg.Timeout = 50 * time.Millisecond
	cfg.Strict = true

	res := engine.Capture(context.Background(), cfg)

	// Strict only fails when the tool produced nothing at all.
	assert.Equal(t, domain.CaptureTimedOut, res.State)
	assert.NotEmpty(t, res.CaptureFile)
}

func TestCapture_Cancellation(t *testing.T) {
	shortIdle(t)
	stream := &fakeStream{}
	engine := NewCaptureEngine(&fakeRunner{stream: stream}, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res := engine.Capture(ctx, validConfig())

	assert.Equal(t, domain.CaptureCancelled, res.State)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, stream.terminated, "cancellation must tear the process down")
}

func TestCapture_ToolDiesEarly(t *testing.T) {
	shortIdle(t)
	stream := &fakeStream{exited: true}
	engine := NewCaptureEngine(&fakeRunner{stream: stream}, t.TempDir())

	res := engine.Capture(context.Background(), validConfig())

	assert.Equal(t, domain.CaptureFailed, res.State)
	assert.Contains(t, res.ErrorMessage, "exited")
}

func TestCapture_StartFailure(t *testing.T) {
	engine := NewCaptureEngine(&fakeRunner{startErr: errors.New("exec: not found")}, t.TempDir())

	res := engine.Capture(context.Background(), validConfig())

	assert.Equal(t, domain.CaptureFailed, res.State)
	assert.Contains(t, res.ErrorMessage, "not found")
}

func TestCapture_InvalidConfig(t *testing.T) {
	engine := NewCaptureEngine(&fakeRunner{stream: &fakeStream{}}, t.TempDir())

	cfg := validConfig()
	cfg.BSSID = "not-a-mac"

	res := engine.Capture(context.Background(), cfg)

	assert.Equal(t, domain.CaptureFailed, res.State)
	assert.Contains(t, res.ErrorMessage, "BSSID")
}

// writeCaptureFile creates a file matching the tool's naming convention for
// the given BSSID so captureFile discovery can find it.
func writeCaptureFile(t *testing.T, dir, bssid string) {
	t.Helper()
	prefix := "handshake_" + strings.ReplaceAll(bssid, ":", "") + "_"
	// The engine embeds the start unix timestamp; cover the plausible range.
	now := time.Now().Unix()
	for _, ts := range []int64{now - 1, now, now + 1} {
		name := filepath.Join(dir, prefix+strconv.FormatInt(ts, 10)+"-01.cap")
		require.NoError(t, os.WriteFile(name, []byte{0xd4, 0xc3, 0xb2, 0xa1}, 0o644))
	}
}
