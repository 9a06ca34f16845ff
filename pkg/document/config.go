package document

import (
	"strconv"
	"strings"
	"time"
)

// Backend names recognized by the engine factory.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// Config holds the per-document options parsed from the block above the
// `---` separator. Unknown keys land in Extra and are passed through to the
// backend unchanged.
type Config struct {
	ServerURL   string
	Model       string
	Backend     string
	MaxTokens   *int // nil means unlimited
	Temperature float64
	TopP        float64
	Timeout     time.Duration
	Extra       map[string]string
}

// DefaultConfig returns the default-value table that parsed overrides are
// merged on top of.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:   "http://localhost:11434",
		Model:       "llama3.1:8b",
		Backend:     BackendOllama,
		Temperature: 0.7,
		TopP:        0.9,
		Timeout:     180 * time.Second,
		Extra:       map[string]string{},
	}
}

// parseConfig reads `key: value` lines into a Config. Blank lines and
// comment-only lines are ignored, as are lines without a colon; an inline
// '#' starts a comment that is stripped from the value.
func parseConfig(text string) (*Config, error) {
	cfg := DefaultConfig()

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || !strings.Contains(line, ":") {
			continue
		}

		key, value, _ := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if comment := strings.Index(value, "#"); comment >= 0 {
			value = strings.TrimSpace(value[:comment])
		}

		if err := cfg.set(key, value); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) set(key, value string) error {
	switch key {
	case "server_url":
		c.ServerURL = value
	case "model", "model_name":
		c.Model = value
	case "backend":
		c.Backend = strings.ToLower(value)
	case "max_tokens":
		n, err := parseOptionalInt(value)
		if err != nil {
			return &ConfigError{Key: key, Value: value}
		}
		c.MaxTokens = n
	case "timeout":
		n, err := parseOptionalInt(value)
		if err != nil {
			return &ConfigError{Key: key, Value: value}
		}
		if n == nil {
			c.Timeout = 0
		} else {
			c.Timeout = time.Duration(*n) * time.Second
		}
	case "temperature", "top_p":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return &ConfigError{Key: key, Value: value}
		}
		if key == "temperature" {
			c.Temperature = f
		} else {
			c.TopP = f
		}
	default:
		c.Extra[key] = value
	}
	return nil
}

// parseOptionalInt parses an integer option where the literal "none" means
// unset.
func parseOptionalInt(value string) (*int, error) {
	if strings.EqualFold(value, "none") {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
