package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var dirs []string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Refresh the music index used by the music category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			if len(dirs) == 0 {
				dirs = cfg.Music.Dirs
			}
			if len(dirs) == 0 {
				return errors.New("no music directories configured (set music.dirs or pass --dir)")
			}

			store, err := ctx.musicStore()
			if err != nil {
				return err
			}

			stats, err := store.Scan(cmd.Context(), dirs, cfg.Music.Workers)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			total, music, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added %s, updated %s, removed %s, unchanged %s\n",
				humanize.Comma(int64(stats.Added)),
				humanize.Comma(int64(stats.Updated)),
				humanize.Comma(int64(stats.Removed)),
				humanize.Comma(int64(stats.Unchanged)))
			fmt.Fprintf(out, "Index holds %s files (%s music)\n",
				humanize.Comma(int64(total)), humanize.Comma(int64(music)))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&dirs, "dir", nil, "Music directory to scan (repeatable, default: music.dirs)")
	return cmd
}
