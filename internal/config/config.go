package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/subcue/internal/callback"
	"github.com/llehouerou/subcue/internal/overlay"
)

const appName = "subcue"

// Defaults applied by the getters.
const (
	DefaultListen       = "127.0.0.1:7373"
	DefaultMasterVolume = 0.7
	DefaultTickMillis   = 250
	DefaultFadeMillis   = 300
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Callback CallbackConfig `koanf:"callback"`
	Playback PlaybackConfig `koanf:"playback"`
	Overlay  OverlayConfig  `koanf:"overlay"`
	Log      LogConfig      `koanf:"log"`

	// Layout installed at startup, before any initialize message.
	Layout overlay.Layout `koanf:"layout"`
}

// ServerConfig holds the inbound HTTP endpoint settings.
type ServerConfig struct {
	Listen string `koanf:"listen"` // host:port (default: 127.0.0.1:7373)
}

// CallbackConfig holds outbound callback settings.
type CallbackConfig struct {
	Resource       string `koanf:"resource"`        // host resource name, base becomes https://<resource>
	BaseURL        string `koanf:"base_url"`        // overrides resource when set
	TimeoutSeconds int    `koanf:"timeout_seconds"` // per request (default: 5)
	Disabled       bool   `koanf:"disabled"`
}

// PlaybackConfig holds audio settings.
type PlaybackConfig struct {
	MasterVolume *float64 `koanf:"master_volume"` // 0.0-1.0 (default: 0.7)
	TickMillis   int      `koanf:"tick_ms"`       // cue polling interval (default: 250)
}

// OverlayConfig holds display settings.
type OverlayConfig struct {
	FadeMillis int `koanf:"fade_ms"` // fade-out length (default: 300)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // console or json
	Mirror *bool  `koanf:"mirror"` // mirror log lines to the debugLog callback (default: true)
}

// Load reads the default config files, then extra, in increasing priority.
// Default files are optional; extra files must exist.
func Load(extra ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	for _, path := range extra {
		path = expandPath(path)
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Callback.BaseURL = strings.TrimSuffix(cfg.Callback.BaseURL, "/")
	return cfg, nil
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/subcue/config.toml
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		// 2. ./subcue.toml (pwd, highest priority)
		appName + ".toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// LockPath returns the single-instance lock file location.
func LockPath() (string, error) {
	return xdg.RuntimeFile(filepath.Join(appName, appName+".lock"))
}

// LogFilePath returns where logs go while the terminal overlay owns the
// screen.
func LogFilePath() (string, error) {
	return xdg.StateFile(filepath.Join(appName, appName+".log"))
}

// ListenAddr returns the inbound HTTP address.
func (c *Config) ListenAddr() string {
	if c.Server.Listen == "" {
		return DefaultListen
	}
	return c.Server.Listen
}

// CallbackURL returns the callback base URL, or "" when callbacks are off.
func (c *Config) CallbackURL() string {
	switch {
	case c.Callback.Disabled:
		return ""
	case c.Callback.BaseURL != "":
		return c.Callback.BaseURL
	case c.Callback.Resource != "":
		return callback.BaseURL(c.Callback.Resource)
	default:
		return ""
	}
}

// CallbackTimeout returns the per-request callback timeout.
func (c *Config) CallbackTimeout() time.Duration {
	if c.Callback.TimeoutSeconds <= 0 {
		return callback.DefaultTimeout
	}
	return time.Duration(c.Callback.TimeoutSeconds) * time.Second
}

// MasterVolume returns the startup master volume, clamped to [0,1].
func (c *Config) MasterVolume() float64 {
	if c.Playback.MasterVolume == nil {
		return DefaultMasterVolume
	}
	return max(0, min(1, *c.Playback.MasterVolume))
}

// TickInterval returns how often sessions are polled for due cues.
func (c *Config) TickInterval() time.Duration {
	ms := c.Playback.TickMillis
	if ms <= 0 {
		ms = DefaultTickMillis
	}
	return time.Duration(ms) * time.Millisecond
}

// FadeDuration returns the overlay fade-out length.
func (c *Config) FadeDuration() time.Duration {
	ms := c.Overlay.FadeMillis
	if ms <= 0 {
		ms = DefaultFadeMillis
	}
	return time.Duration(ms) * time.Millisecond
}

// MirrorLogs reports whether log lines are sent to the debugLog callback.
func (c *Config) MirrorLogs() bool {
	return c.Log.Mirror == nil || *c.Log.Mirror
}

// StartupLayout returns the configured layout, or nil when none is set.
func (c *Config) StartupLayout() *overlay.Layout {
	if c.Layout.IsZero() {
		return nil
	}
	l := c.Layout
	return &l
}
