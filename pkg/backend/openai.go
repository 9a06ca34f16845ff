package backend

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/promptwatch/promptwatch/pkg/conversation"
	"github.com/promptwatch/promptwatch/pkg/document"
)

// OpenAIEngine generates responses through an OpenAI-compatible chat API,
// as served by llama-cpp-python and similar local servers. The API key is a
// placeholder since local servers do not check it.
type OpenAIEngine struct {
	client  *go_openai.Client
	cfg     *document.Config
	onDelta func(string)
}

var _ Generator = (*OpenAIEngine)(nil)
var _ ModelValidator = (*OpenAIEngine)(nil)

func NewOpenAI(cfg *document.Config, opts ...Option) (*OpenAIEngine, error) {
	o := applyOptions(opts)

	clientConfig := go_openai.DefaultConfig("sk-not-needed")
	clientConfig.BaseURL = cfg.ServerURL
	if o.httpClient != nil {
		clientConfig.HTTPClient = o.httpClient
	}

	return &OpenAIEngine{
		client:  go_openai.NewClientWithConfig(clientConfig),
		cfg:     cfg,
		onDelta: o.onDelta,
	}, nil
}

func (e *OpenAIEngine) Generate(ctx context.Context, messages []conversation.Message) (*Result, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	req := go_openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		Temperature: float32(e.cfg.Temperature),
		TopP:        float32(e.cfg.TopP),
	}
	if e.cfg.MaxTokens != nil {
		req.MaxTokens = *e.cfg.MaxTokens
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, go_openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	if e.onDelta != nil {
		return e.generateStream(ctx, req)
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &GenerationError{Err: errors.New("response contained no choices")}
	}

	return &Result{
		Text: strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage: &document.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// generateStream accumulates streamed deltas. The streaming chat API does
// not report token usage, so the result carries none.
func (e *OpenAIEngine) generateStream(ctx context.Context, req go_openai.ChatCompletionRequest) (*Result, error) {
	req.Stream = true

	stream, err := e.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	defer stream.Close()

	var text strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &GenerationError{Err: err}
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta.Content
		if delta != "" {
			text.WriteString(delta)
			e.onDelta(delta)
		}
	}

	return &Result{Text: strings.TrimSpace(text.String())}, nil
}

// ValidateModel lists the server's models and falls back to the first
// available one when the configured model is not served.
func (e *OpenAIEngine) ValidateModel(ctx context.Context) (string, error) {
	models, err := e.client.ListModels(ctx)
	if err != nil {
		return "", &GenerationError{Err: errors.Wrap(err, "list models")}
	}

	ids := make([]string, 0, len(models.Models))
	for _, model := range models.Models {
		if model.ID == e.cfg.Model {
			return e.cfg.Model, nil
		}
		ids = append(ids, model.ID)
	}

	if len(ids) == 0 {
		return "", &GenerationError{Err: errors.New("no models available on server")}
	}

	log.Warn().
		Str("model", e.cfg.Model).
		Strs("available", ids).
		Msgf("model not found on server, using %s", ids[0])
	e.cfg.Model = ids[0]
	return ids[0], nil
}
