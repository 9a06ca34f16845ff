package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/jmorganca/ollama/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/promptwatch/promptwatch/pkg/conversation"
	"github.com/promptwatch/promptwatch/pkg/document"
)

// OllamaEngine generates responses through ollama's native chat API. The
// server streams response chunks; the engine accumulates them and reads the
// token counters off the final chunk.
type OllamaEngine struct {
	client  *api.Client
	cfg     *document.Config
	onDelta func(string)
}

var _ Generator = (*OllamaEngine)(nil)
var _ ModelValidator = (*OllamaEngine)(nil)

func NewOllama(cfg *document.Config, opts ...Option) (*OllamaEngine, error) {
	o := applyOptions(opts)

	base, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse server url %q", cfg.ServerURL)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &OllamaEngine{
		client:  api.NewClient(base, httpClient),
		cfg:     cfg,
		onDelta: o.onDelta,
	}, nil
}

func (e *OllamaEngine) Generate(ctx context.Context, messages []conversation.Message) (*Result, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	ollamaMessages := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		ollamaMessages = append(ollamaMessages, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	options := map[string]interface{}{
		"temperature": e.cfg.Temperature,
		"top_p":       e.cfg.TopP,
	}
	if e.cfg.MaxTokens != nil {
		// ollama calls the generation cap num_predict
		options["num_predict"] = *e.cfg.MaxTokens
	}
	for key, value := range e.cfg.Extra {
		options[key] = value
	}

	stream := true
	req := &api.ChatRequest{
		Model:    e.cfg.Model,
		Messages: ollamaMessages,
		Stream:   &stream,
		Options:  options,
	}

	var text strings.Builder
	var usage *document.TokenUsage

	err := e.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			text.WriteString(resp.Message.Content)
			if e.onDelta != nil {
				e.onDelta(resp.Message.Content)
			}
		}
		if resp.Done {
			usage = &document.TokenUsage{
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
				TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			}
		}
		return nil
	})
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	return &Result{Text: strings.TrimSpace(text.String()), Usage: usage}, nil
}

// ValidateModel lists the server's models and falls back to the first
// available one when the configured model is not served.
func (e *OllamaEngine) ValidateModel(ctx context.Context) (string, error) {
	resp, err := e.client.List(ctx)
	if err != nil {
		return "", &GenerationError{Err: errors.Wrap(err, "list models")}
	}

	names := make([]string, 0, len(resp.Models))
	for _, model := range resp.Models {
		if model.Name == e.cfg.Model {
			return e.cfg.Model, nil
		}
		names = append(names, model.Name)
	}

	if len(names) == 0 {
		return "", &GenerationError{Err: errors.New("no models available on server")}
	}

	log.Warn().
		Str("model", e.cfg.Model).
		Strs("available", names).
		Msgf("model not found on server, using %s", names[0])
	e.cfg.Model = names[0]
	return names[0], nil
}
