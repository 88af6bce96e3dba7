package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"burnloop/internal/ipc"
	"burnloop/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, session, and host status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			var status *ipc.StatusResponse
			if client, err := ctx.dialClient(); err == nil {
				resp, statusErr := client.Status()
				client.Close()
				if statusErr == nil {
					status = resp
				}
			}

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if status == nil || !status.Running {
				fmt.Fprintln(stdout, renderStatusLine("Burnloop", statusWarn, "Not running (run `burnloop daemon start`)", colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Burnloop", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
				fmt.Fprintln(stdout, renderStatusLine("History DB", statusInfo, status.HistoryDBPath, colorize))
				device := strings.TrimSpace(status.TriggerDevice)
				if device == "" {
					fmt.Fprintln(stdout, renderStatusLine("Trigger device", statusWarn, "Not configured (sessions run degraded)", colorize))
				} else {
					fmt.Fprintln(stdout, renderStatusLine("Trigger device", statusInfo, device, colorize))
				}
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Session", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if status == nil || status.Session == nil {
				fmt.Fprintln(stdout, renderStatusLine("Session", statusInfo, "No active session", colorize))
			} else {
				printSessionLines(stdout, *status.Session, colorize)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Host Checks", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusError
				if result.Passed {
					kind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
				fmt.Fprintln(stdout, renderStatusLine("Notifications", statusOK, "Configured", colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Notifications", statusWarn, "Not configured", colorize))
			}
			return nil
		},
	}
}

func printSessionLines(stdout io.Writer, sess ipc.SessionStatus, colorize bool) {
	stateKind := statusOK
	if sess.State != "running" {
		stateKind = statusInfo
	}
	fmt.Fprintln(stdout, renderStatusLine("ID", statusInfo, sess.ID, colorize))
	fmt.Fprintln(stdout, renderStatusLine("State", stateKind, sess.State, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Layer", statusInfo, fmt.Sprintf("%d of %d", sess.Index+1, sess.Total), colorize))
	fmt.Fprintln(stdout, renderStatusLine("Advances", statusInfo, fmt.Sprintf("%d", sess.Advances), colorize))
	if sess.Degraded {
		fmt.Fprintln(stdout, renderStatusLine("Trigger", statusWarn, "Degraded (manual advance only)", colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Trigger", statusOK, sess.Device, colorize))
	}
	fmt.Fprintln(stdout, renderStatusLine("Artifacts", statusInfo, strings.Join(sess.Artifacts, ", "), colorize))
}
