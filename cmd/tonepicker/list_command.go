package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/777genius/tonepicker/internal/tones"
)

type toneListing struct {
	Category string   `json:"category"`
	Name     string   `json:"name"`
	ID       tones.ID `json:"id"`
	Path     string   `json:"path,omitempty"`
	Size     int64    `json:"size"`
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var types []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available tones",
		Example: `  tonepicker list
  tonepicker list --type alarm --type notification
  tonepicker list --type music --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := ctx.parseCategories(types)
			if err != nil {
				return err
			}
			src, err := ctx.source(hasMusic(cats))
			if err != nil {
				return err
			}
			if err := src.CheckCategories(cats); err != nil {
				return err
			}

			listings := collectListings(cmd, src, cats)
			return printListings(cmd, listings, asJSON)
		},
	}

	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "Tone category: ringtone, alarm, notification, music (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func collectListings(cmd *cobra.Command, src *tones.Source, cats []tones.Category) []toneListing {
	listings := []toneListing{}
	for _, cat := range cats {
		for _, e := range src.Enumerate(cmd.Context(), cat) {
			l := toneListing{Category: cat.String(), Name: e.Name, ID: e.ID}
			if path, err := src.Resolve(e.ID); err == nil {
				l.Path = path
				if info, err := os.Stat(path); err == nil {
					l.Size = info.Size()
				}
			}
			listings = append(listings, l)
		}
	}
	return listings
}

func printListings(cmd *cobra.Command, listings []toneListing, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, listings)
	}

	out := cmd.OutOrStdout()
	if len(listings) == 0 {
		fmt.Fprintln(out, "No tones found.")
		return nil
	}

	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, []string{l.Category, l.Name, humanize.Bytes(uint64(l.Size)), string(l.ID)})
	}

	if stdoutIsTTY(cmd) {
		fmt.Fprintln(out, renderTable(
			[]string{"Category", "Name", "Size", "ID"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
		))
		return nil
	}
	fmt.Fprint(out, renderTSV(rows))
	return nil
}
