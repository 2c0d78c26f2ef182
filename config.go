package idle

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	// DefaultTimeoutMinutes is the idle span after which the session expires
	DefaultTimeoutMinutes = 15
	// DefaultWarningMinutes is the grace window before forced logout
	DefaultWarningMinutes = 2
	// DefaultTickInterval drives the warning countdown
	DefaultTickInterval = time.Second
	// DefaultDebounceWindow coalesces bursts of interaction signals
	DefaultDebounceWindow = 500 * time.Millisecond
)

// Config holds idle timeout options. It is immutable per session episode;
// replace the coordinator to change it.
type Config struct {
	TimeoutMinutes int  `json:"timeout_minutes"`
	WarningMinutes int  `json:"warning_minutes"`
	Enabled        bool `json:"enabled"`
}

// WithDefaults fills zero durations with the package defaults.
func (c Config) WithDefaults() Config {
	if c.TimeoutMinutes == 0 {
		c.TimeoutMinutes = DefaultTimeoutMinutes
	}
	if c.WarningMinutes == 0 {
		c.WarningMinutes = DefaultWarningMinutes
	}
	return c
}

// Validate will run validation rules
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.TimeoutMinutes, validation.Required, validation.Min(1)),
		validation.Field(&c.WarningMinutes,
			validation.Required,
			validation.Min(1),
			validation.By(validateLessThan(c.TimeoutMinutes)),
		),
	)
	if err != nil {
		return ErrInvalidConfig.WithMetadata(map[string]any{
			"timeout_minutes": c.TimeoutMinutes,
			"warning_minutes": c.WarningMinutes,
			"validation":      err.Error(),
		})
	}
	return nil
}

// Timeout is the configured idle span as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// Warning is the configured grace window as a duration.
func (c Config) Warning() time.Duration {
	return time.Duration(c.WarningMinutes) * time.Minute
}

func validateLessThan(limit int) validation.RuleFunc {
	return func(value any) error {
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf("expected int, got %T", value)
		}
		if v >= limit {
			return fmt.Errorf("must be less than %d", limit)
		}
		return nil
	}
}
