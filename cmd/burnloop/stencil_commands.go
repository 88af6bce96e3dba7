package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"burnloop/internal/ipc"
)

func newStencilCommand(ctx *commandContext) *cobra.Command {
	stencilCmd := &cobra.Command{
		Use:   "stencil",
		Short: "Manage stencil-to-preset mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stencils",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StencilList()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(resp.Stencils))
				for _, s := range resp.Stencils {
					rows = append(rows, []string{s.Name, s.Preset})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Stencil", "Preset"},
					rows,
					[]columnAlignment{alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <name> <preset>",
		Short: "Map a stencil to an existing preset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.StencilSet(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stencil %q mapped to %q\n", args[0], args[1])
				return nil
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a stencil mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.StencilRemove(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stencil %q removed\n", args[0])
				return nil
			})
		},
	}

	stencilCmd.AddCommand(listCmd, setCmd, removeCmd)
	return stencilCmd
}
