package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"burnloop/internal/config"
	"burnloop/internal/daemon"
	"burnloop/internal/history"
	"burnloop/internal/ipc"
	"burnloop/internal/logging"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.JobsDir = filepath.Join(base, "jobs")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Engraver.Executable = ""
	cfgVal.Trigger.Device = ""
	cfgVal.Notifications.NtfyTopic = ""
	cfg := &cfgVal
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}

	logger := logging.NewNop()
	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, cancel, logger)
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		baseDir:    base,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nlog_dir = %q\njobs_dir = %q\ndata_dir = %q\n\n[engraver]\nexecutable = %q\n\n[trigger]\ndevice = %q\n",
		cfg.Paths.LogDir,
		cfg.Paths.JobsDir,
		cfg.Paths.DataDir,
		cfg.Engraver.Executable,
		cfg.Trigger.Device,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestCLIPresetAndStencilCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"preset", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("preset list: %v", err)
	}
	if !strings.Contains(out, "Preset 1") || !strings.Contains(out, "Preset 3") {
		t.Fatalf("preset list missing defaults: %q", out)
	}

	out, _, err = runCLI(t, []string{"preset", "set", "Wide", "--x", "40", "--y", "60", "--font", "8", "--color", "brass"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("preset set: %v", err)
	}
	if !strings.Contains(out, "saved") {
		t.Fatalf("unexpected preset set output: %q", out)
	}

	out, _, err = runCLI(t, []string{"stencil", "set", "Bracket", "Wide"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stencil set: %v", err)
	}

	out, _, err = runCLI(t, []string{"stencil", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stencil list: %v", err)
	}
	if !strings.Contains(out, "Bracket") || !strings.Contains(out, "Wide") {
		t.Fatalf("stencil list missing mapping: %q", out)
	}

	if _, _, err = runCLI(t, []string{"stencil", "set", "Broken", "No Such Preset"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected stencil set with unknown preset to fail")
	}

	if _, _, err = runCLI(t, []string{"preset", "remove", "Wide"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("preset remove: %v", err)
	}
}

func TestCLISessionCommandsWithoutSession(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"session", "status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("session status: %v", err)
	}
	if !strings.Contains(out, "No active session") {
		t.Fatalf("unexpected session status output: %q", out)
	}

	out, _, err = runCLI(t, []string{"session", "stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("session stop: %v", err)
	}
	if !strings.Contains(out, "no active session") {
		t.Fatalf("unexpected session stop output: %q", out)
	}

	if _, _, err = runCLI(t, []string{"next"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected next without session to fail")
	}

	if _, _, err = runCLI(t, []string{"session", "start", "--copies", "1"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected session start without lines to fail")
	}
}

func TestCLIHistoryAndLogs(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No sessions recorded") {
		t.Fatalf("unexpected history output: %q", out)
	}

	logPath := env.daemon.LogPath()
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
	out, _, err = runCLI(t, []string{"logs", "--lines", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs --lines: %v", err)
	}
	if !strings.Contains(out, "second") || !strings.Contains(out, "third") || strings.Contains(out, "first") {
		t.Fatalf("unexpected logs output: %q", out)
	}
}

func TestCLITestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if !strings.Contains(out, "no ntfy topic configured") {
		t.Fatalf("unexpected test-notify output: %q", out)
	}
}

func TestCLIConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config at %s: %v", target, err)
	}
	if !strings.Contains(stdout.String(), target) {
		t.Fatalf("unexpected output: %q", stdout.String())
	}
}
