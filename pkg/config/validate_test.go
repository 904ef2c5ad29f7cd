package config

import (
	"errors"
	"strings"
	"testing"
)

// validConfig returns a minimal configuration that passes validation.
func validConfig() *Config {
	cfg := &Config{
		Router: RouterConfig{Default: "claude-sonnet-4-5"},
		Providers: map[string]Provider{
			"anthropic": {Type: "anthropic", APIKey: "sk-test"},
		},
		Models: map[string][]Candidate{
			"claude-sonnet-4-5": {{Provider: "anthropic", Model: "claude-sonnet-4-5"}},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidateAccepts(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			"port out of range",
			func(c *Config) { c.Server.Port = 70000 },
			"server.port",
		},
		{
			"missing default model",
			func(c *Config) { c.Router.Default = "" },
			"router.default",
		},
		{
			"default without mapping",
			func(c *Config) { c.Router.Default = "nope" },
			"router.default",
		},
		{
			"bad auto_map regex",
			func(c *Config) { c.Router.AutoMap = "([" },
			"router.auto_map",
		},
		{
			"bad background regex",
			func(c *Config) { c.Router.Background = BackgroundRule{Regex: "([", Model: "claude-sonnet-4-5"} },
			"router.background.regex",
		},
		{
			"background without model",
			func(c *Config) { c.Router.Background = BackgroundRule{Regex: "haiku"} },
			"router.background.model",
		},
		{
			"websearch without mapping",
			func(c *Config) { c.Router.WebSearch = "nope" },
			"router.websearch",
		},
		{
			"bad provider auth",
			func(c *Config) {
				p := c.Providers["anthropic"]
				p.Auth = "basic"
				c.Providers["anthropic"] = p
			},
			"providers.anthropic.auth",
		},
		{
			"bad provider kind",
			func(c *Config) {
				p := c.Providers["anthropic"]
				p.Kind = "grpc"
				c.Providers["anthropic"] = p
			},
			"providers.anthropic.kind",
		},
		{
			"provider without type or kind",
			func(c *Config) { c.Providers["mystery"] = Provider{APIKey: "sk"} },
			"providers.mystery.type",
		},
		{
			"empty mapping",
			func(c *Config) { c.Models["empty"] = nil },
			"models.empty",
		},
		{
			"candidate with unknown provider",
			func(c *Config) {
				c.Models["claude-sonnet-4-5"] = []Candidate{{Provider: "ghost", Model: "m"}}
			},
			"models.claude-sonnet-4-5[0].provider",
		},
		{
			"candidate without model",
			func(c *Config) {
				c.Models["claude-sonnet-4-5"] = []Candidate{{Provider: "anthropic"}}
			},
			"models.claude-sonnet-4-5[0].model",
		},
		{
			"negative priority",
			func(c *Config) {
				c.Models["claude-sonnet-4-5"] = []Candidate{{Provider: "anthropic", Model: "m", Priority: -1}}
			},
			"models.claude-sonnet-4-5[0].priority",
		},
		{
			"bad logging level",
			func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			"telemetry.logging.level",
		},
		{
			"bad trace backend",
			func(c *Config) { c.Telemetry.Trace.Backend = "postgres" },
			"telemetry.trace.backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}

			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.field, verr.Errors)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	one := ValidationError{Errors: []FieldError{{Field: "server.port", Message: "bad"}}}
	if !strings.Contains(one.Error(), "server.port: bad") {
		t.Errorf("single error message = %q", one.Error())
	}

	two := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "x"},
		{Field: "b", Message: "y"},
	}}
	if !strings.Contains(two.Error(), "2 errors") {
		t.Errorf("multi error message = %q", two.Error())
	}
}
