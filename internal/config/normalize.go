package config

import "strings"

// normalize expands path fields and fills zero values with defaults so a
// partially-specified config file behaves predictably.
func (c *Config) normalize() error {
	defaults := Default()

	for _, field := range []*string{&c.Paths.LogDir, &c.Paths.JobsDir, &c.Paths.DataDir} {
		expanded, err := expandPath(strings.TrimSpace(*field))
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Engraver.Executable = strings.TrimSpace(c.Engraver.Executable)
	if c.Engraver.Executable == "" {
		c.Engraver.Executable = defaults.Engraver.Executable
	}
	c.Engraver.CommandHost = strings.TrimSpace(c.Engraver.CommandHost)
	if c.Engraver.CommandHost == "" {
		c.Engraver.CommandHost = defaults.Engraver.CommandHost
	}
	if c.Engraver.CommandPort == 0 {
		c.Engraver.CommandPort = defaults.Engraver.CommandPort
	}
	if c.Engraver.ReplyPort == 0 {
		c.Engraver.ReplyPort = defaults.Engraver.ReplyPort
	}
	if c.Engraver.CommandTimeoutMillis == 0 {
		c.Engraver.CommandTimeoutMillis = defaults.Engraver.CommandTimeoutMillis
	}
	if c.Engraver.HandshakeIntervalMS == 0 {
		c.Engraver.HandshakeIntervalMS = defaults.Engraver.HandshakeIntervalMS
	}
	if c.Engraver.HandshakeTimeoutSec == 0 {
		c.Engraver.HandshakeTimeoutSec = defaults.Engraver.HandshakeTimeoutSec
	}
	if c.Engraver.ConfirmPollMillis == 0 {
		c.Engraver.ConfirmPollMillis = defaults.Engraver.ConfirmPollMillis
	}
	if c.Engraver.SettleMillis == 0 {
		c.Engraver.SettleMillis = defaults.Engraver.SettleMillis
	}
	if c.Engraver.StartSettleMillis == 0 {
		c.Engraver.StartSettleMillis = defaults.Engraver.StartSettleMillis
	}

	c.Trigger.Device = strings.TrimSpace(c.Trigger.Device)
	if c.Trigger.Baud == 0 {
		c.Trigger.Baud = defaults.Trigger.Baud
	}
	if c.Trigger.ReadTimeoutMillis == 0 {
		c.Trigger.ReadTimeoutMillis = defaults.Trigger.ReadTimeoutMillis
	}
	if c.Trigger.OpenSettleMillis == 0 {
		c.Trigger.OpenSettleMillis = defaults.Trigger.OpenSettleMillis
	}
	if c.Trigger.OpenRetrySeconds == 0 {
		c.Trigger.OpenRetrySeconds = defaults.Trigger.OpenRetrySeconds
	}

	if c.Artifacts.PrimaryCanvasMM == 0 {
		c.Artifacts.PrimaryCanvasMM = defaults.Artifacts.PrimaryCanvasMM
	}
	if c.Artifacts.SecondaryCanvasMM == 0 {
		c.Artifacts.SecondaryCanvasMM = defaults.Artifacts.SecondaryCanvasMM
	}
	if c.Artifacts.Line3SpacingMM == 0 {
		c.Artifacts.Line3SpacingMM = defaults.Artifacts.Line3SpacingMM
	}

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaults.Notifications.RequestTimeout
	}

	c.Logging.Format = strings.TrimSpace(c.Logging.Format)
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	c.Logging.Level = strings.TrimSpace(c.Logging.Level)
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.RetentionDays == 0 {
		c.Logging.RetentionDays = defaults.Logging.RetentionDays
	}

	return nil
}
