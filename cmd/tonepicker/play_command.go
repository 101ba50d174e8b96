package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/777genius/tonepicker/internal/audio"
	"github.com/777genius/tonepicker/internal/tones"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var types []string
	var volume float64
	var device string

	cmd := &cobra.Command{
		Use:   "play <name|id>",
		Short: "Play one tone to completion",
		Example: `  tonepicker play Glass
  tonepicker play "tone://default/ringtone" --volume 0.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			if !cmd.Flags().Changed("volume") {
				volume = cfg.Audio.Volume
			}
			if volume < 0.0 || volume > 1.0 {
				return fmt.Errorf("volume must be between 0.0 and 1.0 (got %.2f)", volume)
			}
			if !cmd.Flags().Changed("device") {
				device = cfg.Audio.Device
			}

			if len(types) == 0 {
				types = []string{"ringtone", "alarm", "notification"}
			}
			cats, err := ctx.parseCategories(types)
			if err != nil {
				return err
			}

			target := args[0]
			_, isMedia := tones.ID(target).MediaRow()
			src, err := ctx.source(hasMusic(cats) || isMedia)
			if err != nil {
				return err
			}

			name, path, err := findTone(cmd, src, cats, target)
			if err != nil {
				return err
			}

			player, err := audio.NewPlayer(device, volume)
			if err != nil {
				return fmt.Errorf("error creating audio player: %w", err)
			}
			defer player.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Playing: %s (volume: %d%%)\n", name, int(volume*100))
			if err := player.Play(path); err != nil {
				return fmt.Errorf("error playing tone: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Playback completed")
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "Categories searched by name (default: ringtone, alarm, notification)")
	cmd.Flags().Float64Var(&volume, "volume", 1.0, "Volume level for playback (0.0 to 1.0)")
	cmd.Flags().StringVar(&device, "device", "", "Output device name")
	return cmd
}

// findTone resolves target, an identifier or a tone name, to a display name and a file path.
func findTone(cmd *cobra.Command, src *tones.Source, cats []tones.Category, target string) (string, string, error) {
	if strings.Contains(target, "://") {
		id := tones.ID(target)
		path, err := src.Resolve(id)
		if err != nil {
			return "", "", err
		}
		name, ok := src.Title(cmd.Context(), id)
		if !ok {
			name = target
		}
		return name, path, nil
	}

	var all []tones.Entry
	for _, cat := range cats {
		all = append(all, src.Enumerate(cmd.Context(), cat)...)
	}

	e, found := tones.FindByName(target, all)
	if !found {
		var b strings.Builder
		fmt.Fprintf(&b, "tone %q not found", target)
		if len(all) > 0 {
			b.WriteString("\n\nAvailable tones:")
			for _, e := range all {
				b.WriteString("\n  " + e.Name)
			}
		}
		return "", "", fmt.Errorf("%s", b.String())
	}

	path, err := src.Resolve(e.ID)
	if err != nil {
		return "", "", err
	}
	return e.Name, path, nil
}
