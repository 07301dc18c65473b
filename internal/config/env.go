// Package config provides centralized configuration management.
// All client settings come from the environment; nothing else reads os.Getenv.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Env holds all medscribe environment variables.
type Env struct {
	// APIURL is the transcription backend base URL (MEDSCRIBE_API_URL)
	APIURL string

	// ConfigDir is where credentials live (MEDSCRIBE_CONFIG_DIR)
	ConfigDir string

	// Timeout is the per-request timeout (MEDSCRIBE_TIMEOUT_SECS)
	Timeout time.Duration

	// LogEvents enables structured event logging to stderr (MEDSCRIBE_LOG)
	LogEvents bool

	// NoColor disables colored output (NO_COLOR)
	NoColor bool
}

var (
	env     *Env
	envOnce sync.Once
)

// Load returns the singleton environment configuration.
// Thread-safe, loads once on first call.
func Load() *Env {
	envOnce.Do(func() {
		env = &Env{
			APIURL:    getEnvDefault("MEDSCRIBE_API_URL", "http://localhost:8000"),
			ConfigDir: configDir(),
			Timeout:   timeoutFromEnv(),
			LogEvents: os.Getenv("MEDSCRIBE_LOG") == "1",
			NoColor:   os.Getenv("NO_COLOR") != "",
		}
	})
	return env
}

// Reset resets the cached environment (for testing).
func Reset() {
	envOnce = sync.Once{}
	env = nil
}

// CredentialsPath returns the path of the persisted session file.
func (e *Env) CredentialsPath() string {
	return filepath.Join(e.ConfigDir, "credentials.json")
}

func configDir() string {
	if dir := os.Getenv("MEDSCRIBE_CONFIG_DIR"); dir != "" {
		return dir
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "medscribe")
}

func timeoutFromEnv() time.Duration {
	// 30s matches the backend's worst-case transcription latency
	if v := os.Getenv("MEDSCRIBE_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 30 * time.Second
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
