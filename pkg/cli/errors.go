package cli

import "fmt"

// ConfigError reports a problem with the gateway configuration. Field
// is optional; commands that fail loading the whole file leave it
// empty.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Message)
}

// CommandError wraps a failure from a ccm subcommand.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("ccm %s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewCommandError creates a CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}
