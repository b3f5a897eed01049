// Package config resolves runtime defaults from an optional .env file and the
// environment. Command line flags override everything loaded here.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"netsweep/internal/utils"
)

// Config holds the tunables of a scan run.
type Config struct {
	ProbeTimeout     time.Duration
	BannerTimeout    time.Duration
	LivenessTimeout  time.Duration
	HostWorkers      int
	DiscoveryWorkers int
	DBPath           string
	LogLevel         string
	NoColor          bool
}

// Default mirrors the scanner's built-in values.
func Default() Config {
	return Config{
		ProbeTimeout:     time.Second,
		BannerTimeout:    2 * time.Second,
		LivenessTimeout:  500 * time.Millisecond,
		HostWorkers:      50,
		DiscoveryWorkers: 100,
		LogLevel:         "info",
	}
}

// Load reads files (".env" when none given) into the environment without
// overriding variables already set, then builds a Config. Missing files are
// not an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Default(), err
		}
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from NETSWEEP_* variables. Malformed values keep
// the default and are logged.
func FromEnv() Config {
	logger := utils.NewLogger("config")
	cfg := Default()

	cfg.ProbeTimeout = durationEnv(logger, "NETSWEEP_PROBE_TIMEOUT", cfg.ProbeTimeout)
	cfg.BannerTimeout = durationEnv(logger, "NETSWEEP_BANNER_TIMEOUT", cfg.BannerTimeout)
	cfg.LivenessTimeout = durationEnv(logger, "NETSWEEP_LIVENESS_TIMEOUT", cfg.LivenessTimeout)
	cfg.HostWorkers = intEnv(logger, "NETSWEEP_HOST_WORKERS", cfg.HostWorkers)
	cfg.DiscoveryWorkers = intEnv(logger, "NETSWEEP_DISCOVERY_WORKERS", cfg.DiscoveryWorkers)
	cfg.DBPath = getenv("NETSWEEP_DB", cfg.DBPath)
	cfg.LogLevel = getenv("NETSWEEP_LOG_LEVEL", cfg.LogLevel)
	if os.Getenv("DEBUG") == "true" {
		cfg.LogLevel = "debug"
	}
	// https://no-color.org: any non-empty value disables styling.
	cfg.NoColor = os.Getenv("NO_COLOR") != ""

	return cfg
}

func getenv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func durationEnv(logger *utils.Logger, key string, fallback time.Duration) time.Duration {
	raw := getenv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		logger.Warn("ignoring %s=%q: expected a positive duration like 750ms", key, raw)
		return fallback
	}
	return d
}

func intEnv(logger *utils.Logger, key string, fallback int) int {
	raw := getenv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		logger.Warn("ignoring %s=%q: expected a positive integer", key, raw)
		return fallback
	}
	return n
}
