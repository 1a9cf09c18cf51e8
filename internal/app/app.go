package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zorenko/aircap/internal/adapters/aircrack"
	"github.com/zorenko/aircap/internal/adapters/aireplay"
	"github.com/zorenko/aircap/internal/adapters/airodump"
	"github.com/zorenko/aircap/internal/adapters/driver"
	"github.com/zorenko/aircap/internal/adapters/execrunner"
	"github.com/zorenko/aircap/internal/adapters/reporting"
	"github.com/zorenko/aircap/internal/adapters/storage"
	"github.com/zorenko/aircap/internal/adapters/web"
	"github.com/zorenko/aircap/internal/cli"
	"github.com/zorenko/aircap/internal/config"
	"github.com/zorenko/aircap/internal/core/domain"
	auditsvc "github.com/zorenko/aircap/internal/core/services/audit"
	"github.com/zorenko/aircap/internal/core/services/orchestrator"
	"github.com/zorenko/aircap/internal/core/services/store"
	"github.com/zorenko/aircap/internal/telemetry"
)

// Application wires the adapters and services into the interactive
// auditing workflow.
type Application struct {
	cfg    *config.Config
	logger *slog.Logger
	menu   *cli.Menu

	devices   *driver.Manager
	scanner   *airodump.Scanner
	scans     *store.ScanStore
	wordlists *aircrack.WordlistCache
	cracker   *aircrack.Cracker
	orch      *orchestrator.Orchestrator
	db        *storage.SQLiteAdapter
	audit     *auditsvc.Service
	exporter  *reporting.PDFExporter

	iface           string
	target          *domain.AccessPoint
	monitorIface    string
	restoreServices bool
}

// New builds the application from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("prepare directories: %w", err)
	}

	telemetry.InitMetrics()

	db, err := storage.NewSQLiteAdapter(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	runner := execrunner.New()
	audit := auditsvc.NewService(db, logger)

	scanner := airodump.NewScanner(runner)
	scanner.SetToolPath(cfg.AirodumpPath)

	capture := airodump.NewCaptureEngine(runner, cfg.CapsDir)
	capture.SetToolPath(cfg.AirodumpPath)

	injector := aireplay.NewInjector(runner)
	injector.SetToolPath(cfg.AireplayPath)

	cracker := aircrack.NewCracker(runner, cfg.CapsDir)
	cracker.SetToolPath(cfg.AircrackPath)

	return &Application{
		cfg:       cfg,
		logger:    logger,
		menu:      cli.NewMenu(os.Stdin, os.Stdout),
		devices:   driver.NewManager(runner, logger),
		scanner:   scanner,
		scans:     store.NewScanStore(),
		wordlists: aircrack.NewWordlistCache(cfg.WordsDir),
		cracker:   cracker,
		orch:      orchestrator.New(scanner, capture, injector, cracker, db, audit, logger),
		db:        db,
		audit:     audit,
		exporter:  reporting.NewPDFExporter(),
	}, nil
}

// Run drives the sequential menu workflow until the user quits or the
// context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer a.db.Close()

	if a.cfg.WebAddr != "" {
		statusSrv := web.NewServer(a.cfg.WebAddr, a.scans, a.db, a.audit, a.logger)
		go func() {
			if err := statusSrv.Run(ctx); err != nil {
				a.logger.Error("status server failed", "error", err)
			}
		}()
	}

	a.iface = a.cfg.Interface

	actions := []string{
		"Pick device",
		"Enable monitor mode",
		"Scan networks",
		"Pick network",
		"Show network info",
		"Capture handshake",
		"Recover passphrase",
		"Export report",
		"Quit",
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		choice, err := a.menu.Select(fmt.Sprintf("aircap [%s]", a.iface), actions)
		if err != nil {
			// EOF on stdin ends the session like a quit.
			return nil
		}

		switch choice {
		case 0:
			a.pickDevice(ctx)
		case 1:
			a.enableMonitorMode(ctx)
		case 2:
			a.scanNetworks(ctx)
		case 3:
			a.pickNetwork()
		case 4:
			a.showInfo()
		case 5:
			a.captureHandshake(ctx)
		case 6:
			a.recoverPassphrase(ctx)
		case 7:
			a.exportReport(ctx)
		case 8:
			return nil
		}
	}
}

func (a *Application) pickDevice(ctx context.Context) {
	devices := a.devices.ListWirelessDevices(ctx)
	if len(devices) == 0 {
		a.menu.Error("no wireless devices found; keeping " + a.iface)
		return
	}
	idx, err := a.menu.Select("Wireless devices", devices)
	if err != nil {
		return
	}
	a.iface = devices[idx]
	a.menu.Success("selected " + a.iface)
}

func (a *Application) enableMonitorMode(ctx context.Context) {
	if err := a.devices.KillConflictingProcesses(ctx); err != nil {
		a.menu.Println("could not stop network services: " + err.Error())
	} else {
		a.restoreServices = true
	}
	if err := a.devices.EnableMonitorMode(ctx, a.iface); err != nil {
		a.menu.Error("monitor mode failed on " + a.iface + ": " + err.Error())
		return
	}
	a.monitorIface = a.iface
	a.menu.Success(a.iface + " is in monitor mode")
}

// RestoreNetwork undoes monitor mode and restarts the stopped network
// services. Called on shutdown.
func (a *Application) RestoreNetwork() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.monitorIface != "" {
		a.devices.DisableMonitorMode(ctx, a.monitorIface)
	}
	if a.restoreServices {
		if err := a.devices.RestoreNetworkServices(ctx); err != nil {
			a.logger.Warn("network service restoration incomplete", "error", err)
		}
	}
}

func (a *Application) scanNetworks(ctx context.Context) {
	a.menu.Println(fmt.Sprintf("scanning on %s for %s...", a.iface, a.cfg.ScanWindow))

	aps, err := a.scanner.ScanAccessPoints(ctx, a.iface, a.cfg.ScanWindow)
	if err != nil {
		a.menu.Error("scan failed: " + err.Error())
		return
	}
	a.scans.RecordScan(aps)
	_ = a.audit.Log(ctx, domain.ActionScan, a.iface, fmt.Sprintf("%d networks", len(aps)))

	if len(aps) == 0 {
		a.menu.Error("no networks found")
		return
	}
	for _, ap := range aps {
		a.menu.Println("  " + cli.APLabel(ap))
	}
}

func (a *Application) pickNetwork() {
	snap := a.scans.Snapshot()
	if len(snap.AccessPoints) == 0 {
		a.menu.Error("no scan results; run a scan first")
		return
	}

	labels := make([]string, len(snap.AccessPoints))
	for i, ap := range snap.AccessPoints {
		labels[i] = cli.APLabel(ap)
	}
	idx, err := a.menu.Select("Networks", labels)
	if err != nil {
		return
	}
	ap := snap.AccessPoints[idx]
	a.target = &ap
	a.menu.Success("target: " + ap.DisplayName() + " (" + ap.BSSID + ")")
}

func (a *Application) showInfo() {
	if a.target == nil {
		a.menu.Error("no target selected")
		return
	}
	a.menu.Println(cli.APDetails(*a.target))
}

func (a *Application) captureHandshake(ctx context.Context) {
	if a.target == nil {
		a.menu.Error("no target selected")
		return
	}

	wordlist := ""
	if a.cfg.Wordlist != "" {
		resolved, err := a.wordlists.Resolve(a.cfg.Wordlist)
		if err != nil {
			a.menu.Error("wordlist unavailable, skipping recovery: " + err.Error())
		} else {
			wordlist = resolved
		}
	}

	a.menu.Println("starting capture cycle against " + a.target.BSSID)
	res, err := a.orch.Run(ctx, orchestrator.CycleConfig{
		Interface:         a.iface,
		Target:            *a.target,
		ClientWindow:      a.cfg.ClientWindow,
		Grace:             a.cfg.Grace,
		CaptureTimeout:    a.cfg.CaptureTimeout,
		Strict:            a.cfg.StrictCapture,
		DeauthPacketCount: a.cfg.DeauthPacketCount,
		DeauthPause:       a.cfg.DeauthPause,
		Wordlist:          wordlist,
		CrackTimeout:      a.cfg.CrackTimeout,
	})
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoClients) {
			a.menu.Error("too few clients on target; wait for stations to associate")
			return
		}
		a.menu.Error("cycle failed: " + err.Error())
		return
	}

	a.reportCycle(res)
}

func (a *Application) reportCycle(res orchestrator.CycleResult) {
	switch res.Capture.State {
	case domain.CaptureHandshakeFound:
		a.menu.Success("handshake captured: " + res.Capture.CaptureFile)
	case domain.CaptureTimedOut:
		if res.Capture.CaptureFile != "" {
			a.menu.Println("capture timed out; partial file kept: " + res.Capture.CaptureFile)
		} else {
			a.menu.Println("capture timed out without a handshake")
		}
	case domain.CaptureCancelled:
		a.menu.Println("capture cancelled")
	default:
		a.menu.Error("capture failed: " + res.Capture.ErrorMessage)
	}

	if !res.Deauth.AllSucceeded() && !res.Cancelled {
		a.menu.Println("some deauthentication attempts failed")
	}

	if res.Crack != nil {
		switch res.Crack.Outcome {
		case domain.CrackKeyFound:
			a.menu.Success("passphrase: " + res.Crack.Key)
		case domain.CrackInvalidCapture:
			a.menu.Error("capture lacks a usable handshake; recapture and retry")
		default:
			a.menu.Println("passphrase not in wordlist")
		}
	}
}

func (a *Application) recoverPassphrase(ctx context.Context) {
	if a.target == nil {
		a.menu.Error("no target selected")
		return
	}

	source := a.cfg.Wordlist
	if source == "" {
		source = aircrack.DefaultWordlist
	}
	wordlist, err := a.wordlists.Resolve(source)
	if err != nil {
		a.menu.Error("wordlist unavailable: " + err.Error())
		return
	}

	a.menu.Println("running recovery against newest capture for " + a.target.BSSID)
	res, err := a.cracker.Crack(ctx, domain.CrackConfig{
		BSSID:    a.target.BSSID,
		Wordlist: wordlist,
		Timeout:  time.Hour,
	})
	if err != nil {
		a.menu.Error("recovery failed: " + err.Error())
		return
	}

	switch res.Outcome {
	case domain.CrackKeyFound:
		a.menu.Success("passphrase: " + res.Key)
	case domain.CrackInvalidCapture:
		a.menu.Error("capture lacks a usable handshake; recapture and retry")
	default:
		a.menu.Println("passphrase not in wordlist")
	}
}

func (a *Application) exportReport(ctx context.Context) {
	sessions, err := a.db.ListSessions(ctx, 100)
	if err != nil {
		a.menu.Error("could not load sessions: " + err.Error())
		return
	}
	data, err := a.exporter.ExportSessions(sessions)
	if err != nil {
		a.menu.Error("report generation failed: " + err.Error())
		return
	}

	path := filepath.Join(a.cfg.CapsDir, fmt.Sprintf("report_%d.pdf", time.Now().Unix()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		a.menu.Error("could not write report: " + err.Error())
		return
	}
	a.menu.Success("report written to " + path)
}
