package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir  string `toml:"log_dir"`
	JobsDir string `toml:"jobs_dir"`
	DataDir string `toml:"data_dir"`
}

// Engraver contains configuration for the external marking application and
// its UDP control protocol.
type Engraver struct {
	Executable           string `toml:"executable"`
	CommandHost          string `toml:"command_host"`
	CommandPort          int    `toml:"command_port"`
	ReplyPort            int    `toml:"reply_port"`
	CommandTimeoutMillis int    `toml:"command_timeout_ms"`
	HandshakeIntervalMS  int    `toml:"handshake_interval_ms"`
	HandshakeTimeoutSec  int    `toml:"handshake_timeout_sec"`
	ConfirmPollMillis    int    `toml:"confirm_poll_ms"`
	SettleMillis         int    `toml:"settle_ms"`
	StartSettleMillis    int    `toml:"start_settle_ms"`
}

// Trigger contains configuration for the serial trigger board.
type Trigger struct {
	Device            string `toml:"device"`
	Baud              int    `toml:"baud"`
	ReadTimeoutMillis int    `toml:"read_timeout_ms"`
	OpenSettleMillis  int    `toml:"open_settle_ms"`
	OpenRetrySeconds  int    `toml:"open_retry_sec"`
}

// Artifacts contains configuration for generated SVG job layers.
type Artifacts struct {
	PrimaryCanvasMM   float64 `toml:"primary_canvas_mm"`
	SecondaryCanvasMM float64 `toml:"secondary_canvas_mm"`
	Line3SpacingMM    float64 `toml:"line3_spacing_mm"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for burnloop.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Engraver      Engraver      `toml:"engraver"`
	Trigger       Trigger       `toml:"trigger"`
	Artifacts     Artifacts     `toml:"artifacts"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/burnloop/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("burnloop.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.JobsDir, c.Paths.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CommandAddr returns the host:port the engraver listens on for requests.
func (c *Config) CommandAddr() string {
	return fmt.Sprintf("%s:%d", c.Engraver.CommandHost, c.Engraver.CommandPort)
}

// ReplyAddr returns the local host:port replies are received on.
func (c *Config) ReplyAddr() string {
	return fmt.Sprintf("%s:%d", c.Engraver.CommandHost, c.Engraver.ReplyPort)
}

// CommandTimeout returns the per-request reply timeout.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Engraver.CommandTimeoutMillis) * time.Millisecond
}

// HandshakeInterval returns the delay between handshake ping attempts.
func (c *Config) HandshakeInterval() time.Duration {
	return time.Duration(c.Engraver.HandshakeIntervalMS) * time.Millisecond
}

// HandshakeTimeout returns the overall handshake deadline.
func (c *Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.Engraver.HandshakeTimeoutSec) * time.Second
}

// ConfirmPoll returns the delay between load-confirmation status polls.
func (c *Config) ConfirmPoll() time.Duration {
	return time.Duration(c.Engraver.ConfirmPollMillis) * time.Millisecond
}

// Settle returns the pause applied after a confirmed load.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.Engraver.SettleMillis) * time.Millisecond
}

// StartSettle returns the pause applied after a START command.
func (c *Config) StartSettle() time.Duration {
	return time.Duration(c.Engraver.StartSettleMillis) * time.Millisecond
}

// TriggerReadTimeout returns the serial read poll granularity.
func (c *Config) TriggerReadTimeout() time.Duration {
	return time.Duration(c.Trigger.ReadTimeoutMillis) * time.Millisecond
}

// TriggerOpenSettle returns the pause after opening the serial port, giving
// the board time to finish its reset.
func (c *Config) TriggerOpenSettle() time.Duration {
	return time.Duration(c.Trigger.OpenSettleMillis) * time.Millisecond
}

// TriggerOpenRetry returns the interval between serial reopen attempts while
// a session runs in degraded mode.
func (c *Config) TriggerOpenRetry() time.Duration {
	return time.Duration(c.Trigger.OpenRetrySeconds) * time.Second
}

// HistoryDBPath returns the session history database location.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// PresetsPath returns the preset store location.
func (c *Config) PresetsPath() string {
	return filepath.Join(c.Paths.DataDir, "presets.json")
}

// StencilsPath returns the stencil store location.
func (c *Config) StencilsPath() string {
	return filepath.Join(c.Paths.DataDir, "stencils.json")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
