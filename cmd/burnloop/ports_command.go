package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"burnloop/internal/ipc"
	"burnloop/internal/trigger"
)

func newPortsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial trigger devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			// Ask the daemon when it is up; fall back to a local scan.
			var ports []string
			err := ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Ports()
				if err != nil {
					return err
				}
				ports = resp.Ports
				return nil
			})
			if err != nil {
				local, localErr := trigger.ListPorts()
				if localErr != nil {
					return localErr
				}
				ports = local
			}

			if len(ports) == 0 {
				fmt.Fprintln(stdout, "No serial ports detected")
				return nil
			}
			for _, port := range ports {
				fmt.Fprintln(stdout, port)
			}
			return nil
		},
	}
}
