// Package daemon coordinates sessions, stores, and notifications behind
// the IPC surface, and enforces single-instance execution with a file
// lock. At most one session runs at a time; starting a second one while
// the first is live is an error rather than an implicit restart.
package daemon
