package config

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Config holds all configuration for the notification engine.
// Values are loaded from environment variables; see printUsage() for the full list.
type Config struct {
	HTTPAddr  string `json:"http_addr"`
	RedisAddr string `json:"redis_addr,omitempty"`

	WebhookTimeout    time.Duration `json:"-"`
	WebhookTimeoutStr string        `json:"webhook_timeout"`

	WebhookMaxRetries int `json:"webhook_max_retries"`

	WebhookBaseDelay    time.Duration `json:"-"`
	WebhookBaseDelayStr string        `json:"webhook_base_delay"`
	WebhookMaxDelay     time.Duration `json:"-"`
	WebhookMaxDelayStr  string        `json:"webhook_max_delay"`

	HTTPShutdownTimeout       time.Duration `json:"-"`
	HTTPShutdownTimeoutStr    string        `json:"http_shutdown_timeout"`
	DispatcherDrainTimeout    time.Duration `json:"-"`
	DispatcherDrainTimeoutStr string        `json:"dispatcher_drain_timeout"`

	MetricsEnabled bool   `json:"metrics_enabled"`
	MetricsPath    string `json:"metrics_path"`

	// HealthcheckSchedule is a cron expression; empty disables the monitor.
	HealthcheckSchedule string `json:"healthcheck_schedule,omitempty"`

	EventBusBufferSize int `json:"eventbus_buffer_size"`

	// RateLimitRPS: 0 disables per-destination rate limiting.
	RateLimitRPS   float64 `json:"rate_limit_rps"`
	RateLimitBurst int     `json:"rate_limit_burst"`

	// CircuitBreakerThreshold: 0 disables the circuit breaker.
	CircuitBreakerThreshold   int           `json:"circuit_breaker_threshold"`
	CircuitBreakerCooldown    time.Duration `json:"-"`
	CircuitBreakerCooldownStr string        `json:"circuit_breaker_cooldown"`

	AnalyticsRetention    time.Duration `json:"-"`
	AnalyticsRetentionStr string        `json:"analytics_retention"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	cfg := Config{
		HTTPAddr:                  os.Getenv("HTTP_ADDR"),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		WebhookTimeoutStr:         os.Getenv("WEBHOOK_TIMEOUT"),
		WebhookBaseDelayStr:       os.Getenv("WEBHOOK_BASE_DELAY"),
		WebhookMaxDelayStr:        os.Getenv("WEBHOOK_MAX_DELAY"),
		HTTPShutdownTimeoutStr:    os.Getenv("HTTP_SHUTDOWN_TIMEOUT"),
		DispatcherDrainTimeoutStr: os.Getenv("DISPATCHER_DRAIN_TIMEOUT"),
		MetricsEnabled:            os.Getenv("METRICS_ENABLED") == "true",
		MetricsPath:               os.Getenv("METRICS_PATH"),
		HealthcheckSchedule:       os.Getenv("HEALTHCHECK_SCHEDULE"),
		CircuitBreakerCooldownStr: os.Getenv("CIRCUIT_BREAKER_COOLDOWN"),
		AnalyticsRetentionStr:     os.Getenv("ANALYTICS_RETENTION"),
	}

	cfg.WebhookMaxRetries = 5
	if retriesStr := os.Getenv("WEBHOOK_MAX_RETRIES"); retriesStr != "" {
		if n, err := parseInt(retriesStr); err == nil {
			cfg.WebhookMaxRetries = n
		} else {
			log.Printf("config: invalid WEBHOOK_MAX_RETRIES %q (must be a non-negative integer), using default 5", retriesStr)
		}
	}

	if bufStr := os.Getenv("EVENTBUS_BUFFER_SIZE"); bufStr != "" {
		if n, err := parseInt(bufStr); err == nil && n > 0 {
			cfg.EventBusBufferSize = n
		} else {
			log.Printf("config: invalid EVENTBUS_BUFFER_SIZE %q (must be a positive integer), using default 100", bufStr)
		}
	}
	if cfg.EventBusBufferSize == 0 {
		cfg.EventBusBufferSize = 100
	}

	if rpsStr := os.Getenv("RATE_LIMIT_RPS"); rpsStr != "" {
		if n, err := parseInt(rpsStr); err == nil {
			cfg.RateLimitRPS = float64(n)
		} else {
			log.Printf("config: invalid RATE_LIMIT_RPS %q, using default 0 (disabled)", rpsStr)
		}
	}

	if burstStr := os.Getenv("RATE_LIMIT_BURST"); burstStr != "" {
		if n, err := parseInt(burstStr); err == nil && n > 0 {
			cfg.RateLimitBurst = n
		} else {
			log.Printf("config: invalid RATE_LIMIT_BURST %q (must be a positive integer), using default 1", burstStr)
		}
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 1
	}

	cfg.CircuitBreakerThreshold = 5
	if cbThreshStr := os.Getenv("CIRCUIT_BREAKER_THRESHOLD"); cbThreshStr != "" {
		if n, err := parseInt(cbThreshStr); err == nil {
			cfg.CircuitBreakerThreshold = n
		} else {
			log.Printf("config: invalid CIRCUIT_BREAKER_THRESHOLD %q, using default 5", cbThreshStr)
		}
	}

	// Support Railway's PORT variable as fallback for HTTP_ADDR.
	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8080"
		}
	}
	if cfg.WebhookTimeoutStr == "" {
		cfg.WebhookTimeoutStr = "10s"
	}
	if cfg.WebhookBaseDelayStr == "" {
		cfg.WebhookBaseDelayStr = "1s"
	}
	if cfg.WebhookMaxDelayStr == "" {
		cfg.WebhookMaxDelayStr = "60s"
	}
	if cfg.HTTPShutdownTimeoutStr == "" {
		cfg.HTTPShutdownTimeoutStr = "10s"
	}
	if cfg.DispatcherDrainTimeoutStr == "" {
		cfg.DispatcherDrainTimeoutStr = "30s"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.CircuitBreakerCooldownStr == "" {
		cfg.CircuitBreakerCooldownStr = "2m"
	}
	if cfg.AnalyticsRetentionStr == "" {
		cfg.AnalyticsRetentionStr = "168h"
	}

	// Parse durations; validation is handled separately by Validate().
	if d, err := time.ParseDuration(cfg.WebhookTimeoutStr); err == nil {
		cfg.WebhookTimeout = d
	}
	if d, err := time.ParseDuration(cfg.WebhookBaseDelayStr); err == nil {
		cfg.WebhookBaseDelay = d
	}
	if d, err := time.ParseDuration(cfg.WebhookMaxDelayStr); err == nil {
		cfg.WebhookMaxDelay = d
	}
	if d, err := time.ParseDuration(cfg.HTTPShutdownTimeoutStr); err == nil {
		cfg.HTTPShutdownTimeout = d
	}
	if d, err := time.ParseDuration(cfg.DispatcherDrainTimeoutStr); err == nil {
		cfg.DispatcherDrainTimeout = d
	}
	if d, err := time.ParseDuration(cfg.CircuitBreakerCooldownStr); err == nil {
		cfg.CircuitBreakerCooldown = d
	}
	if d, err := time.ParseDuration(cfg.AnalyticsRetentionStr); err == nil {
		cfg.AnalyticsRetention = d
	}

	return cfg
}

// parseInt parses a string as an integer.
func parseInt(s string) (int, error) {
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, os.ErrInvalid
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := struct {
		HTTPAddr                string  `json:"http_addr"`
		RedisAddr               string  `json:"redis_addr,omitempty"`
		WebhookTimeout          string  `json:"webhook_timeout"`
		WebhookMaxRetries       int     `json:"webhook_max_retries"`
		WebhookBaseDelay        string  `json:"webhook_base_delay"`
		WebhookMaxDelay         string  `json:"webhook_max_delay"`
		HTTPShutdownTimeout     string  `json:"http_shutdown_timeout"`
		DispatcherDrainTimeout  string  `json:"dispatcher_drain_timeout"`
		MetricsEnabled          bool    `json:"metrics_enabled"`
		MetricsPath             string  `json:"metrics_path"`
		HealthcheckSchedule     string  `json:"healthcheck_schedule,omitempty"`
		EventBusBufferSize      int     `json:"eventbus_buffer_size"`
		RateLimitRPS            float64 `json:"rate_limit_rps"`
		RateLimitBurst          int     `json:"rate_limit_burst"`
		CircuitBreakerThreshold int     `json:"circuit_breaker_threshold"`
		CircuitBreakerCooldown  string  `json:"circuit_breaker_cooldown"`
		AnalyticsRetention      string  `json:"analytics_retention"`
	}{
		HTTPAddr:                c.HTTPAddr,
		RedisAddr:               maskSecret(c.RedisAddr),
		WebhookTimeout:          c.WebhookTimeoutStr,
		WebhookMaxRetries:       c.WebhookMaxRetries,
		WebhookBaseDelay:        c.WebhookBaseDelayStr,
		WebhookMaxDelay:         c.WebhookMaxDelayStr,
		HTTPShutdownTimeout:     c.HTTPShutdownTimeoutStr,
		DispatcherDrainTimeout:  c.DispatcherDrainTimeoutStr,
		MetricsEnabled:          c.MetricsEnabled,
		MetricsPath:             c.MetricsPath,
		HealthcheckSchedule:     c.HealthcheckSchedule,
		EventBusBufferSize:      c.EventBusBufferSize,
		RateLimitRPS:            c.RateLimitRPS,
		RateLimitBurst:          c.RateLimitBurst,
		CircuitBreakerThreshold: c.CircuitBreakerThreshold,
		CircuitBreakerCooldown:  c.CircuitBreakerCooldownStr,
		AnalyticsRetention:      c.AnalyticsRetentionStr,
	}
	return json.MarshalIndent(masked, "", "  ")
}

// maskSecret masks a credentialed address, preserving only the URI scheme if present.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	for _, scheme := range []string{"redis://", "rediss://"} {
		if len(s) >= len(scheme) && s[:len(scheme)] == scheme {
			return scheme + "***"
		}
	}
	return s
}
