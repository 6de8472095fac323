package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors

	errs = appendDurationError(errs, "WEBHOOK_TIMEOUT", cfg.WebhookTimeoutStr)
	errs = appendDurationError(errs, "WEBHOOK_BASE_DELAY", cfg.WebhookBaseDelayStr)
	errs = appendDurationError(errs, "WEBHOOK_MAX_DELAY", cfg.WebhookMaxDelayStr)
	errs = appendDurationError(errs, "HTTP_SHUTDOWN_TIMEOUT", cfg.HTTPShutdownTimeoutStr)
	errs = appendDurationError(errs, "DISPATCHER_DRAIN_TIMEOUT", cfg.DispatcherDrainTimeoutStr)
	errs = appendDurationError(errs, "CIRCUIT_BREAKER_COOLDOWN", cfg.CircuitBreakerCooldownStr)
	errs = appendDurationError(errs, "ANALYTICS_RETENTION", cfg.AnalyticsRetentionStr)

	if cfg.WebhookMaxDelay > 0 && cfg.WebhookBaseDelay > cfg.WebhookMaxDelay {
		errs = append(errs, ValidationError{
			Field:   "WEBHOOK_BASE_DELAY",
			Message: "must not exceed WEBHOOK_MAX_DELAY",
		})
	}

	// HEALTHCHECK_SCHEDULE must be a valid cron expression when set
	if cfg.HealthcheckSchedule != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(cfg.HealthcheckSchedule); err != nil {
			errs = append(errs, ValidationError{
				Field:   "HEALTHCHECK_SCHEDULE",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func appendDurationError(errs ValidationErrors, field, value string) ValidationErrors {
	if value == "" {
		return errs
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid duration: %v", err),
		})
	}
	if d <= 0 {
		return append(errs, ValidationError{
			Field:   field,
			Message: "must be positive",
		})
	}
	return errs
}
