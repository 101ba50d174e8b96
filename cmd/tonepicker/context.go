package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/777genius/tonepicker/internal/config"
	"github.com/777genius/tonepicker/internal/logging"
	"github.com/777genius/tonepicker/internal/medialib"
	"github.com/777genius/tonepicker/internal/tones"
)

// errCancelled ends a pick that produced no selection; main exits 1 without a message.
var errCancelled = errors.New("cancelled")

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	store *medialib.Store
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var (
			cfg *config.Config
			err error
		)
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			cfg, err = config.Load(path)
		} else {
			cfg, err = config.LoadDefault()
		}
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = fmt.Errorf("invalid configuration: %w", err)
			return
		}
		c.config = cfg
		c.initLogging(cfg)
	})
	return c.config, c.configErr
}

func (c *commandContext) initLogging(cfg *config.Config) {
	debug := cfg.Logging.Debug || os.Getenv("TONEPICKER_DEBUG") != ""
	if c.verboseFlag != nil && *c.verboseFlag {
		logging.SetOutput(os.Stderr, true)
		return
	}
	if err := logging.InitLogger(cfg.Logging.Path, debug); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}

// registry builds the filesystem tone registry described by the config.
func (c *commandContext) registry() (*tones.FSRegistry, error) {
	cfg := c.config
	extra := make(map[tones.Category][]string, len(cfg.Sources.Extra))
	for name, dirs := range cfg.Sources.Extra {
		cat, err := tones.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		extra[cat] = append(extra[cat], dirs...)
	}

	return tones.NewFSRegistry(tones.FSOptions{
		UserDir:         cfg.Sources.UserDir,
		Extra:           extra,
		IncludeSystem:   cfg.ShouldIncludeSystem(),
		MaxSystemDepth:  cfg.Sources.MaxSystemDepth,
		DefaultRingtone: cfg.Sources.DefaultRingtone,
	}), nil
}

// musicStore opens the music index once per command.
func (c *commandContext) musicStore() (*medialib.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	store, err := medialib.Open(c.config.Music.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open music index: %w", err)
	}
	c.store = store
	return store, nil
}

// source builds a tone source. The music index is only opened when withMusic is set.
func (c *commandContext) source(withMusic bool) (*tones.Source, error) {
	reg, err := c.registry()
	if err != nil {
		return nil, err
	}
	if !withMusic {
		return tones.NewSource(reg, nil, nil), nil
	}

	store, err := c.musicStore()
	if err != nil {
		return nil, err
	}
	return tones.NewSource(reg, store, medialib.Access(c.config.Music.Dirs)), nil
}

func (c *commandContext) close() {
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			logging.Warn("Closing music index: %v", err)
		}
		c.store = nil
	}
	_ = logging.Close()
}

// parseCategories maps category names to categories, falling back to the configured types.
func (c *commandContext) parseCategories(names []string) ([]tones.Category, error) {
	if len(names) == 0 {
		names = c.config.Picker.Types
	}
	cats := make([]tones.Category, 0, len(names))
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			cat, err := tones.ParseCategory(part)
			if err != nil {
				return nil, err
			}
			cats = append(cats, cat)
		}
	}
	return cats, nil
}

func hasMusic(cats []tones.Category) bool {
	for _, c := range cats {
		if c == tones.Music {
			return true
		}
	}
	return false
}
