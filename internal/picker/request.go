package picker

import (
	"errors"
	"fmt"

	"github.com/777genius/tonepicker/internal/tones"
)

// ErrConfig is wrapped by every ConfigError.
var ErrConfig = errors.New("invalid picker configuration")

// ConfigError reports a request that can never produce a working session.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("picker config: %s: %v", e.Field, e.Err)
}

// Unwrap exposes both ErrConfig and the underlying cause.
func (e *ConfigError) Unwrap() []error {
	return []error{ErrConfig, e.Err}
}

// Listener receives the confirmed tone. A nil id is the silent entry.
type Listener func(name string, id tones.ID)

// Request describes one picker session. It is copied when the session is created.
type Request struct {
	Categories []tones.Category
	// Current is pre-selected when its title can be found.
	Current tones.ID

	PreviewOnSelect bool
	ShowDefault     bool
	ShowSilent      bool

	Title        string
	PositiveText string
	NegativeText string

	// DefaultLabel and SilentLabel name the synthetic entries; "Default" and "Silent" when empty.
	DefaultLabel string
	SilentLabel  string

	Listener Listener
}

// Result is a confirmed selection.
type Result struct {
	Name string   `json:"name"`
	ID   tones.ID `json:"id"`
}

func (r Request) clone() Request {
	r.Categories = append([]tones.Category(nil), r.Categories...)
	return r
}

// validate checks everything that can be known before loading starts.
func (r Request) validate(src Source) error {
	if len(r.Categories) == 0 {
		return &ConfigError{Field: "categories", Err: errors.New("at least one category is required")}
	}
	for _, c := range r.Categories {
		if !c.Enumerable() {
			return &ConfigError{Field: "categories", Err: fmt.Errorf("%s cannot be listed", c)}
		}
	}
	if r.Title == "" {
		return &ConfigError{Field: "title", Err: errors.New("dialog title is not provided")}
	}
	if r.PositiveText == "" {
		return &ConfigError{Field: "positive text", Err: errors.New("positive button text is not provided")}
	}
	if r.NegativeText == "" {
		return &ConfigError{Field: "negative text", Err: errors.New("negative button text is not provided")}
	}
	if r.Listener == nil {
		return &ConfigError{Field: "listener", Err: errors.New("listener is not provided")}
	}
	if src == nil {
		return &ConfigError{Field: "source", Err: errors.New("tone source is not provided")}
	}
	if err := src.CheckCategories(r.Categories); err != nil {
		return &ConfigError{Field: "categories", Err: err}
	}
	return nil
}
