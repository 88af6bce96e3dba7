// Package logging provides the slog-based logging stack shared by the
// burnloop daemon and CLI: a console handler for interactive output, a JSON
// handler for log files, attribute helpers, and log file retention.
package logging
