// Package preflight provides readiness checks for the hardware and
// filesystem paths burnloop depends on.
//
// The daemon runs RunAll at startup to log a readiness snapshot, and the
// CLI status command uses the individual check functions to display host
// health. Checks gated by config toggles are skipped when disabled.
package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"burnloop/internal/config"
	"burnloop/internal/trigger"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Jobs directory", cfg.Paths.JobsDir),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if cfg.Engraver.Executable != "" {
		results = append(results, CheckExecutable("Engraver application", cfg.Engraver.Executable))
	}
	if cfg.Trigger.Device != "" {
		results = append(results, CheckSerialDevice("Trigger device", cfg.Trigger.Device))
	}

	return results
}

// CheckDirectoryAccess verifies a directory exists with read/write access.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckExecutable verifies the engraver binary can be resolved.
func CheckExecutable(name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "not configured"}
	}

	if strings.ContainsRune(command, os.PathSeparator) {
		info, err := os.Stat(command)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", command, err)}
		}
		if info.IsDir() || info.Mode()&0o111 == 0 {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not executable)", command)}
		}
		return Result{Name: name, Passed: true, Detail: command}
	}

	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not found in PATH)", command)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckSerialDevice verifies the trigger device node exists and is
// accessible. A missing device is reported as failed but the daemon still
// starts sessions in degraded mode.
func CheckSerialDevice(name, device string) Result {
	device = strings.TrimSpace(device)
	if device == "" {
		return Result{Name: name, Detail: "not configured"}
	}

	info, err := os.Stat(device)
	if err != nil {
		if os.IsNotExist(err) {
			detail := fmt.Sprintf("%s (not present)", device)
			if ports, listErr := trigger.ListPorts(); listErr == nil && len(ports) > 0 {
				detail = fmt.Sprintf("%s (not present; available: %s)", device, strings.Join(ports, ", "))
			}
			return Result{Name: name, Detail: detail}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", device, err)}
	}
	if info.Mode()&os.ModeCharDevice == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a character device)", device)}
	}
	if err := unix.Access(device, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", device, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", device)}
}
