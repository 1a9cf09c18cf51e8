package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zorenko/aircap/internal/core/domain"
)

type fakeScanner struct {
	clients []domain.ConnectedClient
	err     error
}

func (f *fakeScanner) ScanAccessPoints(ctx context.Context, iface string, window time.Duration) ([]domain.AccessPoint, error) {
	return nil, nil
}

func (f *fakeScanner) ScanClients(ctx context.Context, iface string, window time.Duration) ([]domain.ConnectedClient, error) {
	return f.clients, f.err
}

type fakeCapture struct {
	mu       sync.Mutex
	result   domain.CaptureResult
	delay    time.Duration
	started  time.Time
	panicked bool
}

func (f *fakeCapture) Capture(ctx context.Context, cfg domain.CaptureConfig) domain.CaptureResult {
	f.mu.Lock()
	f.started = time.Now()
	f.mu.Unlock()
	if f.panicked {
		panic("capture blew up")
	}
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		res := domain.CaptureResult{ID: f.result.ID, State: domain.CaptureRunning, StartTime: time.Now()}
		res.Finish(domain.CaptureCancelled, "", "cancelled")
		return res
	}
	return f.result
}

func (f *fakeCapture) startedAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

type fakeDeauth struct {
	mu      sync.Mutex
	result  domain.DeauthResult
	started time.Time
	config  domain.DeauthConfig
}

func (f *fakeDeauth) Run(ctx context.Context, cfg domain.DeauthConfig) domain.DeauthResult {
	f.mu.Lock()
	f.started = time.Now()
	f.config = cfg
	f.mu.Unlock()
	if ctx.Err() != nil {
		return domain.DeauthResult{Cancelled: true}
	}
	return f.result
}

func (f *fakeDeauth) startedAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

type fakeCrack struct {
	result domain.CrackResult
	err    error
	calls  int
}

func (f *fakeCrack) Crack(ctx context.Context, cfg domain.CrackConfig) (domain.CrackResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeSessions struct {
	mu    sync.Mutex
	saved []domain.Session
}

func (f *fakeSessions) SaveSession(ctx context.Context, s domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakeSessions) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved, nil
}

func targetAP() domain.AccessPoint {
	return domain.AccessPoint{
		BSSID:   "AA:11:22:33:44:55",
		SSID:    "TestNet",
		Channel: "6",
	}
}

func twoClients() []domain.ConnectedClient {
	return []domain.ConnectedClient{
		{Station: "BB:66:77:88:99:00", BSSID: "AA:11:22:33:44:55"},
		{Station: "DE:AD:BE:EF:00:01", BSSID: "aa:11:22:33:44:55"},
		{Station: "CA:FE:00:00:00:01", BSSID: "CC:DD:EE:FF:00:11"},
	}
}

func successfulCapture() domain.CaptureResult {
	res := domain.CaptureResult{ID: "cap-1", State: domain.CaptureRunning, StartTime: time.Now()}
	res.Finish(domain.CaptureHandshakeFound, "/tmp/handshake_AA1122334455_1-01.cap", "")
	return res
}

func successfulDeauth() domain.DeauthResult {
	now := time.Now()
	return domain.DeauthResult{
		ID: "deauth-1",
		Clients: []domain.ClientResult{
			{Station: "BB:66:77:88:99:00", Outcome: domain.ClientSucceeded},
			{Station: "DE:AD:BE:EF:00:01", Outcome: domain.ClientSucceeded},
		},
		StartTime: now,
		EndTime:   &now,
	}
}

func baseConfig() CycleConfig {
	return CycleConfig{
		Interface:    "wlan0mon",
		Target:       targetAP(),
		ClientWindow: time.Millisecond,
		Grace:        20 * time.Millisecond,
		Wordlist:     "/tmp/words.txt",
	}
}

func TestRun_FullCycleWithRecovery(t *testing.T) {
	scanner := &fakeScanner{clients: twoClients()}
	capture := &fakeCapture{result: successfulCapture()}
	deauth := &fakeDeauth{result: successfulDeauth()}
	crack := &fakeCrack{result: domain.CrackResult{Outcome: domain.CrackKeyFound, Key: "hunter2"}}
	sessions := &fakeSessions{}

	o := New(scanner, capture, deauth, crack, sessions, nil, nil)
	res, err := o.Run(context.Background(), baseConfig())
	require.NoError(t, err)

	assert.Equal(t, domain.CaptureHandshakeFound, res.Capture.State)
	assert.True(t, res.Deauth.AllSucceeded())
	require.NotNil(t, res.Crack)
	assert.Equal(t, "hunter2", res.Crack.Key)
	assert.False(t, res.Cancelled)

	// Only the target's clients are handed to the injector.
	require.Len(t, deauth.config.Clients, 2)
	assert.NotContains(t, deauth.config.Clients, "CA:FE:00:00:00:01")

	// Cycle is persisted.
	require.Len(t, sessions.saved, 1)
	assert.Equal(t, "hunter2", sessions.saved[0].RecoveredKey)
	assert.Equal(t, domain.CaptureHandshakeFound, sessions.saved[0].CaptureState)
	assert.True(t, sessions.saved[0].DeauthOK)
}

func TestRun_GraceOffsetOrdersTasks(t *testing.T) {
	scanner := &fakeScanner{clients: twoClients()}
	capture := &fakeCapture{result: successfulCapture(), delay: 200 * time.Millisecond}
	deauth := &fakeDeauth{result: successfulDeauth()}

	cfg := baseConfig()
	cfg.Grace = 80 * time.Millisecond
	cfg.Wordlist = ""

	o := New(scanner, capture, deauth, &fakeCrack{}, nil, nil, nil)
	_, err := o.Run(context.Background(), cfg)
	require.NoError(t, err)

	require.False(t, capture.startedAt().IsZero())
	require.False(t, deauth.startedAt().IsZero())
	assert.GreaterOrEqual(t, deauth.startedAt().Sub(capture.startedAt()), 80*time.Millisecond,
		"first injection must not precede the grace offset")
}

func TestRun_NoClients(t *testing.T) {
	scanner := &fakeScanner{clients: []domain.ConnectedClient{
		{Station: "BB:66:77:88:99:00", BSSID: "AA:11:22:33:44:55"},
	}}

	o := New(scanner, &fakeCapture{}, &fakeDeauth{}, &fakeCrack{}, nil, nil, nil)
	_, err := o.Run(context.Background(), baseConfig())
	assert.ErrorIs(t, err, ErrNoClients)
}

func TestRun_ClientEnumerationFailure(t *testing.T) {
	scanner := &fakeScanner{err: fmt.Errorf("scan tool missing")}

	o := New(scanner, &fakeCapture{}, &fakeDeauth{}, &fakeCrack{}, nil, nil, nil)
	_, err := o.Run(context.Background(), baseConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client enumeration")
}

func TestRun_CancellationJoinsBothTasks(t *testing.T) {
	scanner := &fakeScanner{clients: twoClients()}
	capture := &fakeCapture{result: successfulCapture(), delay: 5 * time.Second}
	deauth := &fakeDeauth{result: successfulDeauth()}
	crack := &fakeCrack{}

	cfg := baseConfig()
	cfg.Grace = 10 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	o := New(scanner, capture, deauth, crack, nil, nil, nil)
	start := time.Now()
	res, err := o.Run(ctx, cfg)
	require.NoError(t, err)

	assert.True(t, res.Cancelled)
	assert.Equal(t, domain.CaptureCancelled, res.Capture.State)
	assert.True(t, res.Deauth.Cancelled)
	assert.Less(t, time.Since(start), 2*time.Second, "cancelled cycle must join promptly")
	assert.Equal(t, 0, crack.calls, "recovery must not run after cancellation")
}

func TestRun_NoRecoveryWithoutHandshake(t *testing.T) {
	timedOut := domain.CaptureResult{State: domain.CaptureRunning, StartTime: time.Now()}
	timedOut.Finish(domain.CaptureTimedOut, "", "")

	scanner := &fakeScanner{clients: twoClients()}
	crack := &fakeCrack{}

	o := New(scanner, &fakeCapture{result: timedOut}, &fakeDeauth{result: successfulDeauth()}, crack, nil, nil, nil)
	res, err := o.Run(context.Background(), baseConfig())
	require.NoError(t, err)

	assert.Equal(t, domain.CaptureTimedOut, res.Capture.State)
	assert.Nil(t, res.Crack)
	assert.Equal(t, 0, crack.calls)
}

func TestRun_DeauthFailureDoesNotBlockRecovery(t *testing.T) {
	now := time.Now()
	failedDeauth := domain.DeauthResult{
		Clients: []domain.ClientResult{
			{Station: "BB:66:77:88:99:00", Outcome: domain.ClientFailed, Detail: "exit 1"},
		},
		StartTime: now,
		EndTime:   &now,
	}

	scanner := &fakeScanner{clients: twoClients()}
	crack := &fakeCrack{result: domain.CrackResult{Outcome: domain.CrackKeyNotFound}}

	o := New(scanner, &fakeCapture{result: successfulCapture()}, &fakeDeauth{result: failedDeauth}, crack, nil, nil, nil)
	res, err := o.Run(context.Background(), baseConfig())
	require.NoError(t, err)

	assert.False(t, res.Deauth.AllSucceeded())
	require.NotNil(t, res.Crack, "handshake on disk still warrants a recovery attempt")
	assert.Equal(t, domain.CrackKeyNotFound, res.Crack.Outcome)
}

func TestRun_RecoveryFaultIsAbsorbed(t *testing.T) {
	scanner := &fakeScanner{clients: twoClients()}
	crack := &fakeCrack{err: fmt.Errorf("no capture file found")}

	o := New(scanner, &fakeCapture{result: successfulCapture()}, &fakeDeauth{result: successfulDeauth()}, crack, nil, nil, nil)
	res, err := o.Run(context.Background(), baseConfig())
	require.NoError(t, err)
	assert.Nil(t, res.Crack)
}

func TestRun_CapturePanicDoesNotHangJoin(t *testing.T) {
	scanner := &fakeScanner{clients: twoClients()}
	capture := &fakeCapture{panicked: true}

	cfg := baseConfig()
	cfg.Wordlist = ""

	o := New(scanner, capture, &fakeDeauth{result: successfulDeauth()}, &fakeCrack{}, nil, nil, nil)

	done := make(chan CycleResult, 1)
	go func() {
		res, _ := o.Run(context.Background(), cfg)
		done <- res
	}()

	select {
	case res := <-done:
		assert.Equal(t, domain.CaptureFailed, res.Capture.State)
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator hung after task panic")
	}
}
