package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"burnloop/internal/ipc"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Control engraving sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var (
		lines   []string
		presets []string
		color2  string
		stencil string
		copies  int
	)
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Render artifacts, launch the engraver, and begin cycling",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.SessionStartRequest{Copies: copies}
			for i := 0; i < len(req.Lines) && i < len(lines); i++ {
				req.Lines[i].Text = lines[i]
			}
			for i := 0; i < len(req.Lines) && i < len(presets); i++ {
				req.Lines[i].Preset = presets[i]
			}
			if strings.TrimSpace(color2) != "" {
				req.Lines[1].Color = color2
			}

			if strings.TrimSpace(req.Lines[0].Text) == "" &&
				strings.TrimSpace(req.Lines[1].Text) == "" &&
				strings.TrimSpace(req.Lines[2].Text) == "" {
				return errors.New("at least one --line is required")
			}

			return ctx.withClient(func(client *ipc.Client) error {
				// A stencil names a stored preset for the first line; an
				// explicit --preset wins.
				if strings.TrimSpace(stencil) != "" && strings.TrimSpace(req.Lines[0].Preset) == "" {
					resolved, err := resolveStencilPreset(client, stencil)
					if err != nil {
						return err
					}
					req.Lines[0].Preset = resolved
				}
				resp, err := client.SessionStart(req)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Session %s started\n", resp.Session.ID)
				fmt.Fprintf(stdout, "Artifacts: %s\n", strings.Join(resp.Session.Artifacts, ", "))
				if resp.Session.Degraded {
					fmt.Fprintln(stdout, "Trigger unavailable; use `burnloop next` to advance layers")
				}
				return nil
			})
		},
	}
	startCmd.Flags().StringArrayVarP(&lines, "line", "l", nil, "Text line (repeat up to three times)")
	startCmd.Flags().StringArrayVarP(&presets, "preset", "p", nil, "Preset per line (repeat; defaults to Preset 1/2/3)")
	startCmd.Flags().StringVar(&color2, "color2", "", "Layer color override for the second line")
	startCmd.Flags().StringVar(&stencil, "stencil", "", "Stencil whose preset applies to the first line")
	startCmd.Flags().IntVar(&copies, "copies", 1, "Copies per artifact (1, 2, or 4)")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the active session and terminate the engraver",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionStop()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Session == nil {
					fmt.Fprintln(stdout, "No active session")
					return nil
				}
				printSessionLines(stdout, *resp.Session, shouldColorize(stdout))
				return nil
			})
		},
	}

	sessionCmd.AddCommand(startCmd, stopCmd, statusCmd)
	return sessionCmd
}

func resolveStencilPreset(client *ipc.Client, stencil string) (string, error) {
	resp, err := client.StencilList()
	if err != nil {
		return "", err
	}
	for _, s := range resp.Stencils {
		if strings.EqualFold(s.Name, strings.TrimSpace(stencil)) {
			return s.Preset, nil
		}
	}
	return "", fmt.Errorf("unknown stencil %q", stencil)
}

func newNextCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Advance the active session to the next layer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.NextLayer()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Layer %d of %d loaded\n",
					resp.Session.Index+1, resp.Session.Total)
				return nil
			})
		},
	}
}

func newRebootTriggerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reboot-trigger",
		Short: "Reset the trigger device firmware",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.TriggerReboot(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Reboot command sent")
				return nil
			})
		},
	}
}
