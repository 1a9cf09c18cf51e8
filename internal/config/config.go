package config

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Interface string
	DBPath    string
	CapsDir   string
	WordsDir  string

	// Tool paths, overridable for non-standard installs.
	AirodumpPath string
	AireplayPath string
	AircrackPath string

	// Timing knobs.
	ScanWindow     time.Duration
	ClientWindow   time.Duration
	CaptureTimeout time.Duration
	Grace          time.Duration
	DeauthPause    time.Duration
	CrackTimeout   time.Duration

	DeauthPacketCount int
	Wordlist          string

	// StrictCapture makes a capture timeout without a file an error
	// instead of an empty result.
	StrictCapture bool

	// Web status server; disabled unless an address is set.
	WebAddr string

	Debug bool
}

// Load parses command line flags and environment variables.
// Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	baseDir := getEnv("AIRCAP_HOME", defaultBaseDir())

	cfg.Interface = getEnv("AIRCAP_INTERFACE", "wlan0")
	cfg.DBPath = getEnv("AIRCAP_DB", filepath.Join(baseDir, "aircap.db"))
	cfg.CapsDir = getEnv("AIRCAP_CAPS", filepath.Join(baseDir, "caps"))
	cfg.WordsDir = getEnv("AIRCAP_WORDLISTS", filepath.Join(baseDir, "wordlists"))
	cfg.Wordlist = getEnv("AIRCAP_WORDLIST", "")
	cfg.WebAddr = getEnv("AIRCAP_WEB_ADDR", "")
	cfg.StrictCapture = getEnvBool("AIRCAP_STRICT_CAPTURE", false)

	cfg.ScanWindow = getEnvDuration("AIRCAP_SCAN_WINDOW", 6*time.Second)
	cfg.ClientWindow = getEnvDuration("AIRCAP_CLIENT_WINDOW", 15*time.Second)
	cfg.CaptureTimeout = getEnvDuration("AIRCAP_CAPTURE_TIMEOUT", 120*time.Second)
	cfg.Grace = getEnvDuration("AIRCAP_GRACE", 5*time.Second)
	cfg.DeauthPause = getEnvDuration("AIRCAP_DEAUTH_PAUSE", 10*time.Second)
	cfg.CrackTimeout = getEnvDuration("AIRCAP_CRACK_TIMEOUT", 5*time.Minute)

	flag.StringVar(&cfg.Interface, "i", cfg.Interface, "Wireless interface to audit")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database")
	flag.StringVar(&cfg.CapsDir, "caps", cfg.CapsDir, "Directory for capture files")
	flag.StringVar(&cfg.WordsDir, "wordlists", cfg.WordsDir, "Directory for wordlists and decompressed caches")
	flag.StringVar(&cfg.Wordlist, "wordlist", cfg.Wordlist, "Wordlist for passphrase recovery (empty to skip)")
	flag.StringVar(&cfg.WebAddr, "web", cfg.WebAddr, "Status server address (empty to disable)")
	flag.BoolVar(&cfg.StrictCapture, "strict-capture", cfg.StrictCapture, "Treat a capture timeout without a file as an error")
	flag.DurationVar(&cfg.ScanWindow, "scan-window", cfg.ScanWindow, "AP scan collection window")
	flag.DurationVar(&cfg.ClientWindow, "client-window", cfg.ClientWindow, "Client enumeration collection window")
	flag.DurationVar(&cfg.CaptureTimeout, "capture-timeout", cfg.CaptureTimeout, "Handshake capture deadline")
	flag.DurationVar(&cfg.Grace, "grace", cfg.Grace, "Offset between capture start and first injection")
	flag.DurationVar(&cfg.DeauthPause, "deauth-pause", cfg.DeauthPause, "Pause between per-client deauth attempts")
	flag.DurationVar(&cfg.CrackTimeout, "crack-timeout", cfg.CrackTimeout, "Passphrase recovery deadline")
	flag.IntVar(&cfg.DeauthPacketCount, "deauth-count", 3, "Deauth frames per client")
	flag.StringVar(&cfg.AirodumpPath, "airodump-path", "airodump-ng", "Path to airodump-ng binary")
	flag.StringVar(&cfg.AireplayPath, "aireplay-path", "aireplay-ng", "Path to aireplay-ng binary")
	flag.StringVar(&cfg.AircrackPath, "aircrack-path", "aircrack-ng", "Path to aircrack-ng binary")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")

	flag.Parse()

	return cfg
}

// EnsureDirs creates the process-managed directories on first use.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{filepath.Dir(c.DBPath), c.CapsDir, c.WordsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// defaultBaseDir returns ~/.aircap, falling back to the working directory
// when the home directory cannot be resolved.
func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("could not resolve home directory, using working directory", "error", err)
		return ".aircap"
	}
	return filepath.Join(home, ".aircap")
}
