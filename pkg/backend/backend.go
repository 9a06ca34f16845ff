package backend

import (
	"context"
	"net/http"

	"github.com/promptwatch/promptwatch/pkg/conversation"
	"github.com/promptwatch/promptwatch/pkg/document"
)

// Generator is the single capability a backend has to provide: turn an
// ordered message list into a completed response. Engines capture their
// connection and sampling settings at construction; callers depend only on
// this interface.
type Generator interface {
	Generate(ctx context.Context, messages []conversation.Message) (*Result, error)
}

// ModelValidator is implemented by engines that can check the configured
// model against what the server actually serves before generating.
type ModelValidator interface {
	// ValidateModel confirms the configured model is available, falling back
	// to the first served model when it is not. It returns the model that
	// will be used.
	ValidateModel(ctx context.Context) (string, error)
}

// Result is a completed generation: the final text plus any end-of-stream
// token counters the backend reported.
type Result struct {
	Text  string
	Usage *document.TokenUsage
}

// GenerationError wraps any backend failure: unreachable server, non-2xx
// response, malformed payload.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "generation: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Option adjusts engine construction.
type Option func(*options)

type options struct {
	onDelta    func(string)
	httpClient *http.Client
}

// WithDeltaHandler streams incremental response text to fn as it arrives.
// The final Result still carries the full concatenation.
func WithDeltaHandler(fn func(string)) Option {
	return func(o *options) {
		o.onDelta = fn
	}
}

// WithHTTPClient overrides the HTTP client used to reach the backend.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
