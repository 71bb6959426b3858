package model

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a configuration value outside its allowed range.
type ValidationError struct {
	Section string // Top-level section holding the field
	Field   string // Dotted path inside the section
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s.%s: %s", e.Section, e.Field, e.Reason)
}

// Is reports ErrValidation so callers can use errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validate checks the documented constraints and returns the first violation.
func (c Config) Validate() error {
	if err := c.Window.Validate(); err != nil {
		return err
	}
	if err := c.Network.Validate(); err != nil {
		return err
	}
	return c.Channels.DisplayRange.Validate()
}

func (w WindowConfig) Validate() error {
	if w.Width <= 0 {
		return &ValidationError{Section: SectionWindow, Field: "width", Reason: "must be positive"}
	}
	if w.Height <= 0 {
		return &ValidationError{Section: SectionWindow, Field: "height", Reason: "must be positive"}
	}
	return nil
}

func (n NetworkConfig) Validate() error {
	if n.DefaultPort < 0 || n.DefaultPort > 65535 {
		return &ValidationError{Section: SectionNetwork, Field: "default_port", Reason: "must be between 0 and 65535"}
	}
	if n.DefaultUniverse < 0 || n.DefaultUniverse > MaxUniverse {
		return &ValidationError{Section: SectionNetwork, Field: "default_universe", Reason: fmt.Sprintf("must be between 0 and %d", MaxUniverse)}
	}
	return nil
}

// Validate enforces 1 <= start <= end <= 512.
func (r ChannelRange) Validate() error {
	if r.Start < 1 || r.Start > MaxChannels {
		return &ValidationError{Section: SectionChannels, Field: "display_range.start", Reason: fmt.Sprintf("must be between 1 and %d", MaxChannels)}
	}
	if r.End < 1 || r.End > MaxChannels {
		return &ValidationError{Section: SectionChannels, Field: "display_range.end", Reason: fmt.Sprintf("must be between 1 and %d", MaxChannels)}
	}
	if r.Start > r.End {
		return &ValidationError{Section: SectionChannels, Field: "display_range", Reason: "start must not exceed end"}
	}
	return nil
}
