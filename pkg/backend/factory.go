package backend

import (
	"github.com/promptwatch/promptwatch/pkg/document"
)

// New builds the engine named by the document's backend option. The ollama
// engine speaks the native ollama API; the openai engine speaks the
// OpenAI-compatible chat API served by llama-cpp and similar local servers.
func New(cfg *document.Config, opts ...Option) (Generator, error) {
	switch cfg.Backend {
	case "", document.BackendOllama:
		return NewOllama(cfg, opts...)
	case document.BackendOpenAI:
		return NewOpenAI(cfg, opts...)
	default:
		return nil, &document.ConfigError{Key: "backend", Value: cfg.Backend}
	}
}
