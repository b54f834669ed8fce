package config

import "fmt"

// Validate checks every field this package owns directly (the top-level
// runtime knobs) plus delegates to Triage.Validate, the only sub-config
// Validate method; the other sub-configs are not checked. Mirrors
// the teacher's fail-fast, wrapped-error validation order.
func (c *Config) Validate() error {
	if !c.LogLevel.IsValid() {
		return NewValidationError("config", "logLevel", ErrInvalidValue)
	}
	if c.MaxParallel <= 0 {
		return NewValidationError("config", "maxParallel", ErrInvalidValue)
	}
	if c.Timeout <= 0 {
		return NewValidationError("config", "timeout", ErrInvalidValue)
	}

	if err := c.Triage.Validate(); err != nil {
		return fmt.Errorf("triage config: %w", err)
	}
	return nil
}
