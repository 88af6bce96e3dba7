package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"burnloop/internal/ipc"
)

func newPresetCommand(ctx *commandContext) *cobra.Command {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage layout presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PresetList()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(resp.Presets))
				for _, p := range resp.Presets {
					rows = append(rows, []string{
						p.Name,
						formatFloat(p.X),
						formatFloat(p.Y),
						formatFloat(p.Font),
						formatFloat(p.Offset),
						p.Color,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Name", "X", "Y", "Font", "Offset", "Color"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	var (
		x      float64
		y      float64
		font   float64
		offset float64
		color  string
	)
	setCmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Create or update a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				_, err := client.PresetSet(ipc.Preset{
					Name:   args[0],
					X:      x,
					Y:      y,
					Font:   font,
					Offset: offset,
					Color:  color,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Preset %q saved\n", args[0])
				return nil
			})
		},
	}
	setCmd.Flags().Float64Var(&x, "x", 50, "Anchor X in millimeters")
	setCmd.Flags().Float64Var(&y, "y", 50, "Anchor Y in millimeters")
	setCmd.Flags().Float64Var(&font, "font", 5, "Font size in millimeters")
	setCmd.Flags().Float64Var(&offset, "offset", 26, "Copy grid offset in millimeters")
	setCmd.Flags().StringVar(&color, "color", "", "Layer color (silver, brass, plastic, stainless)")

	removeCmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.PresetRemove(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Preset %q removed\n", args[0])
				return nil
			})
		},
	}

	presetCmd.AddCommand(listCmd, setCmd, removeCmd)
	return presetCmd
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
