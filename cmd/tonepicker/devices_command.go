package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/777genius/tonepicker/internal/audio"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List audio output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := audio.ListDevices()
			if err != nil {
				return err
			}
			return printDevices(cmd, devices, ctx.config.Audio.Device, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func printDevices(cmd *cobra.Command, devices []audio.Device, configured string, asJSON bool) error {
	if asJSON {
		if devices == nil {
			devices = []audio.Device{}
		}
		return writeJSON(cmd, devices)
	}

	out := cmd.OutOrStdout()
	if len(devices) == 0 {
		fmt.Fprintln(out, "No playback devices found.")
		return nil
	}

	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		var marks string
		if d.IsDefault {
			marks = "default"
		}
		if configured != "" && d.Name == configured {
			if marks != "" {
				marks += ", "
			}
			marks += "configured"
		}
		rows = append(rows, []string{d.Name, marks})
	}

	if stdoutIsTTY(cmd) {
		fmt.Fprintln(out, renderTable([]string{"Device", ""}, rows, nil))
		return nil
	}
	fmt.Fprint(out, renderTSV(rows))
	return nil
}
