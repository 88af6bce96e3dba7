package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngraver(); err != nil {
		return err
	}
	if err := c.validateTrigger(); err != nil {
		return err
	}
	if err := c.validateArtifacts(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngraver() error {
	if c.Engraver.Executable == "" {
		return errors.New("engraver.executable must be set")
	}
	if err := ensurePort("engraver.command_port", c.Engraver.CommandPort); err != nil {
		return err
	}
	if err := ensurePort("engraver.reply_port", c.Engraver.ReplyPort); err != nil {
		return err
	}
	if c.Engraver.CommandPort == c.Engraver.ReplyPort {
		return errors.New("engraver.command_port and engraver.reply_port must differ")
	}
	if err := ensurePositiveMap(map[string]int{
		"engraver.command_timeout_ms":   c.Engraver.CommandTimeoutMillis,
		"engraver.handshake_interval_ms": c.Engraver.HandshakeIntervalMS,
		"engraver.handshake_timeout_sec": c.Engraver.HandshakeTimeoutSec,
		"engraver.confirm_poll_ms":       c.Engraver.ConfirmPollMillis,
	}); err != nil {
		return err
	}
	if c.Engraver.SettleMillis < 0 || c.Engraver.StartSettleMillis < 0 {
		return errors.New("engraver settle intervals must not be negative")
	}
	return nil
}

func (c *Config) validateTrigger() error {
	return ensurePositiveMap(map[string]int{
		"trigger.baud":            c.Trigger.Baud,
		"trigger.read_timeout_ms": c.Trigger.ReadTimeoutMillis,
		"trigger.open_retry_sec":  c.Trigger.OpenRetrySeconds,
	})
}

func (c *Config) validateArtifacts() error {
	if c.Artifacts.PrimaryCanvasMM <= 0 || c.Artifacts.SecondaryCanvasMM <= 0 {
		return errors.New("artifact canvas sizes must be positive")
	}
	if c.Artifacts.Line3SpacingMM < 0 {
		return errors.New("artifacts.line3_spacing_mm must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func ensurePort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s must be a valid port, got %d", name, port)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
