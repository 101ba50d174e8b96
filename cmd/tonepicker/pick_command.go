package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gen2brain/beeep"
	"github.com/spf13/cobra"

	"github.com/777genius/tonepicker/internal/audio"
	"github.com/777genius/tonepicker/internal/logging"
	"github.com/777genius/tonepicker/internal/picker"
	"github.com/777genius/tonepicker/internal/preview"
	"github.com/777genius/tonepicker/internal/tones"
	"github.com/777genius/tonepicker/internal/ui"
)

type pickOptions struct {
	types       []string
	showDefault bool
	showSilent  bool
	preview     bool
	current     string
	title       string
	positive    string
	negative    string
	json        bool
	notify      bool
}

func newPickCommand(ctx *commandContext) *cobra.Command {
	var opts pickOptions

	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Choose a tone interactively",
		Long: `Show a single-choice list of tones. Highlighted tones are previewed.

On confirmation the chosen tone is printed as "name<TAB>id" and the exit
code is 0. Cancelling exits with code 1 and prints nothing.`,
		Example: `  tonepicker pick --type ringtone --default --silent
  tonepicker pick --type alarm --current file:///usr/share/sounds/alarm.oga
  tonepicker pick --type music --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPick(cmd, ctx, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.types, "type", "t", nil, "Tone category to list: ringtone, alarm, notification, music (repeatable)")
	flags.BoolVar(&opts.showDefault, "default", false, "Add a \"Default\" entry for the system default ringtone")
	flags.BoolVar(&opts.showSilent, "silent", false, "Add a \"Silent\" entry")
	flags.BoolVar(&opts.preview, "preview", true, "Play tones when they are selected")
	flags.StringVar(&opts.current, "current", "", "Identifier of the tone to pre-select")
	flags.StringVar(&opts.title, "title", "", "Picker title")
	flags.StringVar(&opts.positive, "ok", "", "Label of the confirm action")
	flags.StringVar(&opts.negative, "cancel", "", "Label of the cancel action")
	flags.BoolVar(&opts.json, "json", false, "Print the chosen tone as JSON")
	flags.BoolVar(&opts.notify, "notify", false, "Show a desktop notification with the chosen tone")

	return cmd
}

func runPick(cmd *cobra.Command, ctx *commandContext, opts pickOptions) error {
	cfg := ctx.config
	flags := cmd.Flags()

	req, err := buildPickRequest(ctx, opts, flags.Changed)
	if err != nil {
		return err
	}

	src, err := ctx.source(hasMusic(req.Categories))
	if err != nil {
		return err
	}

	var result *picker.Result
	req.Listener = func(name string, id tones.ID) {
		result = &picker.Result{Name: name, ID: id}
	}

	deps := picker.Deps{Source: src}
	var engine *audio.Player
	if req.PreviewOnSelect {
		engine, err = audio.NewPlayer(cfg.Audio.Device, cfg.Audio.Volume)
		if err != nil {
			logging.Warn("Preview disabled: %v", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: preview disabled: %v\n", err)
		} else {
			deps.Engine = engine
		}
	}

	session, err := picker.NewSession(req, deps)
	if err != nil {
		if engine != nil {
			_ = engine.Close()
		}
		return err
	}
	defer session.Close()

	if !isInteractive(os.Stdin) {
		return errors.New("pick needs an interactive terminal")
	}

	if err := session.Start(cmd.Context()); err != nil {
		return err
	}
	logging.Info("Picker session %s (%s) started", session.Name(), session.ID())

	model, err := ui.Run(cmd.Context(), session, req, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if model.Outcome() != ui.Confirmed || result == nil {
		return errCancelled
	}

	if opts.notify {
		notifyChoice(*result)
	}
	return printPickResult(cmd, *result, opts.json)
}

// buildPickRequest merges flags over the configured picker defaults.
func buildPickRequest(ctx *commandContext, opts pickOptions, changed func(string) bool) (picker.Request, error) {
	cfg := ctx.config

	cats, err := ctx.parseCategories(opts.types)
	if err != nil {
		return picker.Request{}, &picker.ConfigError{Field: "categories", Err: err}
	}

	req := picker.Request{
		Categories:      cats,
		Current:         tones.ID(opts.current),
		PreviewOnSelect: cfg.ShouldPreviewOnSelect(),
		ShowDefault:     cfg.Picker.ShowDefault,
		ShowSilent:      cfg.Picker.ShowSilent,
		Title:           cfg.Picker.Title,
		PositiveText:    cfg.Picker.PositiveText,
		NegativeText:    cfg.Picker.NegativeText,
		DefaultLabel:    cfg.Picker.DefaultLabel,
		SilentLabel:     cfg.Picker.SilentLabel,
	}

	if changed("preview") {
		req.PreviewOnSelect = opts.preview
	}
	if changed("default") {
		req.ShowDefault = opts.showDefault
	}
	if changed("silent") {
		req.ShowSilent = opts.showSilent
	}
	if changed("title") {
		req.Title = opts.title
	}
	if changed("ok") {
		req.PositiveText = opts.positive
	}
	if changed("cancel") {
		req.NegativeText = opts.negative
	}
	return req, nil
}

func printPickResult(cmd *cobra.Command, res picker.Result, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, res)
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", res.Name, res.ID)
	return err
}

func notifyChoice(res picker.Result) {
	beeep.AppName = "tonepicker"
	msg := res.Name
	if res.ID.IsNone() {
		msg = res.Name + " (no sound)"
	}
	if err := beeep.Notify("Tone selected", msg, ""); err != nil {
		logging.Warn("Desktop notification failed: %v", err)
	}
}

var _ preview.Engine = (*audio.Player)(nil)
