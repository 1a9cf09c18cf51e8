package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zorenko/aircap/internal/core/domain"
	"github.com/zorenko/aircap/internal/core/ports"
)

// ErrNoClients signals that the target AP has too few associated stations
// for a deauthentication-stimulated capture to be worth running.
var ErrNoClients = errors.New("not enough connected clients on target")

const (
	// DefaultGrace is the offset between capture start and the first
	// injection. The capture tool needs time to attach to the channel or
	// it misses the earliest reassociation frames.
	DefaultGrace = 5 * time.Second

	// DefaultClientWindow is the collection window for fresh client
	// enumeration before a cycle.
	DefaultClientWindow = 15 * time.Second

	// DefaultMinClients is the domain heuristic: a usable attack needs at
	// least one client besides the AP itself.
	DefaultMinClients = 2
)

// CycleConfig parameterizes one target-acquisition cycle.
type CycleConfig struct {
	Interface string
	Target    domain.AccessPoint

	// ClientWindow is the client-enumeration collection window; zero
	// selects the default.
	ClientWindow time.Duration

	// MinClients overrides the minimum-client heuristic; zero selects the
	// default.
	MinClients int

	// Grace is the capture-to-injection start offset; zero selects the
	// default.
	Grace time.Duration

	CaptureTimeout time.Duration
	Strict         bool

	DeauthPacketCount int
	DeauthPause       time.Duration

	// Wordlist enables passphrase recovery after a successful capture;
	// empty skips recovery.
	Wordlist     string
	CrackTimeout time.Duration
}

// CycleResult is the composite outcome of one cycle. Individual task
// failures are aggregated here, never raised.
type CycleResult struct {
	ID        string
	Capture   domain.CaptureResult
	Deauth    domain.DeauthResult
	Crack     *domain.CrackResult
	Cancelled bool
}

// Orchestrator coordinates the concurrent capture and deauthentication
// tasks of a target-acquisition cycle. It owns both task handles; the
// tasks share no mutable state and meet only in the joined result. At
// most one cycle runs at a time by design.
type Orchestrator struct {
	scanner  ports.Scanner
	capture  ports.CaptureService
	deauth   ports.DeauthService
	crack    ports.CrackService
	sessions ports.SessionRepository
	audit    ports.AuditService
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New wires an orchestrator. The session repository and audit service may
// be nil, in which case persistence is skipped.
func New(
	scanner ports.Scanner,
	capture ports.CaptureService,
	deauth ports.DeauthService,
	crack ports.CrackService,
	sessions ports.SessionRepository,
	audit ports.AuditService,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		scanner:  scanner,
		capture:  capture,
		deauth:   deauth,
		crack:    crack,
		sessions: sessions,
		audit:    audit,
		logger:   logger,
		tracer:   otel.Tracer("aircap/orchestrator"),
	}
}

// Run executes one full cycle: enumerate clients, run capture and
// deauthentication concurrently with the grace offset, join both, then
// attempt recovery when a handshake was captured. Individual task
// failures are folded into the result; only resource-level faults (no
// clients, enumeration failure) return an error. Every spawned process is
// joined or terminated before Run returns.
func (o *Orchestrator) Run(ctx context.Context, cfg CycleConfig) (CycleResult, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.cycle",
		trace.WithAttributes(
			attribute.String("target.bssid", cfg.Target.BSSID),
			attribute.String("target.channel", cfg.Target.Channel),
		))
	defer span.End()

	res := CycleResult{ID: uuid.New().String()}
	started := time.Now()

	clients, err := o.fetchClients(ctx, cfg)
	if err != nil {
		return res, err
	}

	o.auditLog(ctx, domain.ActionCaptureStart, cfg.Target.BSSID,
		fmt.Sprintf("channel %s, %d clients", cfg.Target.Channel, len(clients)))

	captureCh := o.startCapture(ctx, cfg)
	deauthCh := o.startDeauthAfterGrace(ctx, cfg, clients)

	// Join both tasks unconditionally. Each watches ctx itself, so on
	// cancellation both come back with terminal states within their own
	// bounded teardown.
	res.Capture = <-captureCh
	res.Deauth = <-deauthCh
	res.Cancelled = ctx.Err() != nil ||
		res.Capture.State == domain.CaptureCancelled || res.Deauth.Cancelled

	o.auditLog(ctx, domain.ActionCaptureFinish, cfg.Target.BSSID, string(res.Capture.State))
	o.auditLog(ctx, domain.ActionDeauthFinish, cfg.Target.BSSID,
		fmt.Sprintf("all_succeeded=%t", res.Deauth.AllSucceeded()))

	if res.Cancelled {
		o.auditLog(ctx, domain.ActionCycleCancelled, cfg.Target.BSSID, "")
		o.persist(cfg, res, started)
		return res, nil
	}

	if res.Capture.State == domain.CaptureHandshakeFound && res.Capture.CaptureFile != "" && cfg.Wordlist != "" {
		res.Crack = o.runRecovery(ctx, cfg)
	}

	o.persist(cfg, res, started)
	return res, nil
}

// fetchClients enumerates stations fresh and filters them down to the
// target AP, enforcing the minimum-client heuristic.
func (o *Orchestrator) fetchClients(ctx context.Context, cfg CycleConfig) ([]string, error) {
	window := cfg.ClientWindow
	if window <= 0 {
		window = DefaultClientWindow
	}
	minClients := cfg.MinClients
	if minClients <= 0 {
		minClients = DefaultMinClients
	}

	all, err := o.scanner.ScanClients(ctx, cfg.Interface, window)
	if err != nil {
		return nil, fmt.Errorf("client enumeration: %w", err)
	}

	var stations []string
	for _, c := range all {
		if strings.EqualFold(c.BSSID, cfg.Target.BSSID) {
			stations = append(stations, c.Station)
		}
	}
	if len(stations) < minClients {
		return nil, fmt.Errorf("%w: found %d, need %d", ErrNoClients, len(stations), minClients)
	}
	return stations, nil
}

// startCapture launches the capture task. The returned channel delivers
// exactly one terminal result; a panic inside the task is converted into
// a failed result so the join never hangs.
func (o *Orchestrator) startCapture(ctx context.Context, cfg CycleConfig) <-chan domain.CaptureResult {
	ch := make(chan domain.CaptureResult, 1)
	go func() {
		ctx, span := o.tracer.Start(ctx, "orchestrator.capture")
		defer span.End()
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("capture task panicked", "panic", r)
				failed := domain.CaptureResult{StartTime: time.Now()}
				failed.Finish(domain.CaptureFailed, "", fmt.Sprintf("internal fault: %v", r))
				ch <- failed
			}
		}()
		ch <- o.capture.Capture(ctx, domain.CaptureConfig{
			Interface: cfg.Interface,
			Channel:   cfg.Target.Channel,
			BSSID:     cfg.Target.BSSID,
			Timeout:   cfg.CaptureTimeout,
			Strict:    cfg.Strict,
		})
	}()
	return ch
}

// startDeauthAfterGrace launches the deauthentication task once the grace
// offset has elapsed. Cancellation during the grace wait skips injection
// entirely and reports a cancelled batch.
func (o *Orchestrator) startDeauthAfterGrace(ctx context.Context, cfg CycleConfig, clients []string) <-chan domain.DeauthResult {
	grace := cfg.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}

	ch := make(chan domain.DeauthResult, 1)
	go func() {
		ctx, span := o.tracer.Start(ctx, "orchestrator.deauth",
			trace.WithAttributes(attribute.Int("clients", len(clients))))
		defer span.End()
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("deauth task panicked", "panic", r)
				now := time.Now()
				ch <- domain.DeauthResult{Cancelled: true, StartTime: now, EndTime: &now}
			}
		}()

		select {
		case <-time.After(grace):
		case <-ctx.Done():
			now := time.Now()
			ch <- domain.DeauthResult{Cancelled: true, StartTime: now, EndTime: &now}
			return
		}

		o.auditLog(ctx, domain.ActionDeauthStart, cfg.Target.BSSID,
			fmt.Sprintf("%d clients", len(clients)))
		ch <- o.deauth.Run(ctx, domain.DeauthConfig{
			Interface:   cfg.Interface,
			APBSSID:     cfg.Target.BSSID,
			Clients:     clients,
			PacketCount: cfg.DeauthPacketCount,
			Pause:       cfg.DeauthPause,
		})
	}()
	return ch
}

// runRecovery invokes passphrase recovery against the newest capture.
// Recovery faults are logged, not raised: the handshake is already on
// disk and the operator can re-run recovery by hand.
func (o *Orchestrator) runRecovery(ctx context.Context, cfg CycleConfig) *domain.CrackResult {
	ctx, span := o.tracer.Start(ctx, "orchestrator.recovery")
	defer span.End()

	o.auditLog(ctx, domain.ActionCrackStart, cfg.Target.BSSID, cfg.Wordlist)

	crack, err := o.crack.Crack(ctx, domain.CrackConfig{
		BSSID:    cfg.Target.BSSID,
		Wordlist: cfg.Wordlist,
		Timeout:  cfg.CrackTimeout,
	})
	if err != nil {
		o.logger.Error("passphrase recovery failed", "bssid", cfg.Target.BSSID, "error", err)
		o.auditLog(ctx, domain.ActionCrackFinish, cfg.Target.BSSID, err.Error())
		return nil
	}

	o.auditLog(ctx, domain.ActionCrackFinish, cfg.Target.BSSID, string(crack.Outcome))
	return &crack
}

// persist saves the cycle as a session record. Best effort.
func (o *Orchestrator) persist(cfg CycleConfig, res CycleResult, started time.Time) {
	if o.sessions == nil {
		return
	}
	now := time.Now()
	s := domain.Session{
		ID:           res.ID,
		BSSID:        cfg.Target.BSSID,
		SSID:         cfg.Target.SSID,
		Channel:      cfg.Target.Channel,
		CaptureState: res.Capture.State,
		CaptureFile:  res.Capture.CaptureFile,
		DeauthOK:     res.Deauth.AllSucceeded(),
		StartedAt:    started,
		FinishedAt:   &now,
	}
	if res.Crack != nil {
		s.CrackOutcome = res.Crack.Outcome
		s.RecoveredKey = res.Crack.Key
	}
	// Persistence must not observe the cycle's cancellation.
	if err := o.sessions.SaveSession(context.Background(), s); err != nil {
		o.logger.Error("session persistence failed", "session_id", s.ID, "error", err)
	}
}

// auditLog writes an audit entry, tolerating a nil audit service.
func (o *Orchestrator) auditLog(ctx context.Context, action domain.AuditAction, target, details string) {
	if o.audit == nil {
		return
	}
	// Audit failures never abort the cycle; the service logs them.
	_ = o.audit.Log(context.WithoutCancel(ctx), action, target, details)
}
