package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// FieldError represents a validation error for a specific configuration
// field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g.,
	// "router.auto_map").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface and provides access to
// all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any rules fail. All validation errors are collected and returned
// together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateRouter(&cfg.Router, cfg.Models)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateModels(cfg.Models, cfg.Providers)...)
	errs = append(errs, validateOAuth(&cfg.OAuth)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.Host == "" {
		errs = append(errs, FieldError{
			Field:   "server.host",
			Message: "host is required",
		})
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, FieldError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must not be negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must not be negative",
		})
	}

	return errs
}

// validateRouter validates the routing rules. Regexes must compile and rule
// targets must have a model mapping.
func validateRouter(cfg *RouterConfig, models map[string][]Candidate) []FieldError {
	var errs []FieldError

	if cfg.Default == "" {
		errs = append(errs, FieldError{
			Field:   "router.default",
			Message: "default model is required",
		})
	}

	if cfg.AutoMap != "" {
		if _, err := regexp.Compile(cfg.AutoMap); err != nil {
			errs = append(errs, FieldError{
				Field:   "router.auto_map",
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}
	if cfg.Background.Regex != "" {
		if _, err := regexp.Compile(cfg.Background.Regex); err != nil {
			errs = append(errs, FieldError{
				Field:   "router.background.regex",
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
		if cfg.Background.Model == "" {
			errs = append(errs, FieldError{
				Field:   "router.background.model",
				Message: "background rule needs a target model",
			})
		}
	}

	targets := map[string]string{
		"router.default":          cfg.Default,
		"router.websearch":        cfg.WebSearch,
		"router.think":            cfg.Think,
		"router.background.model": cfg.Background.Model,
	}
	fields := make([]string, 0, len(targets))
	for field := range targets {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		model := targets[field]
		if model == "" {
			continue
		}
		if _, ok := models[model]; !ok {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("model %q has no mapping in the models section", model),
			})
		}
	}

	return errs
}

// validateProviders validates the provider definitions.
func validateProviders(providers map[string]Provider) []FieldError {
	var errs []FieldError

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		provider := providers[name]
		field := fmt.Sprintf("providers.%s", name)

		switch provider.Auth {
		case "", "api_key", "oauth":
		default:
			errs = append(errs, FieldError{
				Field:   field + ".auth",
				Message: fmt.Sprintf("auth must be api_key or oauth, got %q", provider.Auth),
			})
		}

		switch provider.Kind {
		case "", "anthropic", "openai":
		default:
			errs = append(errs, FieldError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("kind must be anthropic or openai, got %q", provider.Kind),
			})
		}

		if provider.Type == "" && provider.Kind == "" {
			errs = append(errs, FieldError{
				Field:   field + ".type",
				Message: "provider needs a type or an explicit kind",
			})
		}

		if provider.Timeout < 0 {
			errs = append(errs, FieldError{
				Field:   field + ".timeout",
				Message: "timeout must not be negative",
			})
		}
	}

	return errs
}

// validateModels validates the model mappings against the provider set.
func validateModels(models map[string][]Candidate, providers map[string]Provider) []FieldError {
	var errs []FieldError

	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		candidates := models[name]
		field := fmt.Sprintf("models.%s", name)

		if len(candidates) == 0 {
			errs = append(errs, FieldError{
				Field:   field,
				Message: "model mapping needs at least one candidate",
			})
			continue
		}

		for i, candidate := range candidates {
			cf := fmt.Sprintf("%s[%d]", field, i)

			if candidate.Provider == "" {
				errs = append(errs, FieldError{
					Field:   cf + ".provider",
					Message: "candidate needs a provider",
				})
			} else if _, ok := providers[candidate.Provider]; !ok {
				errs = append(errs, FieldError{
					Field:   cf + ".provider",
					Message: fmt.Sprintf("unknown provider %q", candidate.Provider),
				})
			}

			if candidate.Model == "" {
				errs = append(errs, FieldError{
					Field:   cf + ".model",
					Message: "candidate needs an upstream model name",
				})
			}
			if candidate.Priority < 0 {
				errs = append(errs, FieldError{
					Field:   cf + ".priority",
					Message: "priority must not be negative",
				})
			}
		}
	}

	return errs
}

// validateOAuth validates the OAuth settings.
func validateOAuth(cfg *OAuthConfig) []FieldError {
	var errs []FieldError

	if cfg.RefreshBuffer < 0 {
		errs = append(errs, FieldError{
			Field:   "oauth.refresh_buffer",
			Message: "refresh buffer must not be negative",
		})
	}

	return errs
}

// validateTelemetry validates the telemetry settings.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("level must be debug, info, warn or error, got %q", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "", "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("format must be json or text, got %q", cfg.Logging.Format),
		})
	}

	switch cfg.Trace.Backend {
	case "", "memory", "sqlite":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.trace.backend",
			Message: fmt.Sprintf("backend must be memory or sqlite, got %q", cfg.Trace.Backend),
		})
	}

	return errs
}
