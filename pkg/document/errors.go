package document

import "fmt"

// FormatError reports a violation of the prompt file grammar: a missing
// config/conversation separator, or section markers that do not line up with
// their content.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "prompt format: " + e.Reason
}

// ConfigError reports a configuration value that cannot be parsed according
// to its declared type.
type ConfigError struct {
	Key   string
	Value string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: invalid value %q for %s", e.Value, e.Key)
}

// InvariantError reports a document that is structurally valid but not in a
// state generation can proceed from. It marks a genuine input mistake and is
// never auto-corrected.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return "prompt document: " + e.Reason
}
