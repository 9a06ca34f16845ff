package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptwatch/promptwatch/pkg/conversation"
)

const sampleDocument = `server_url: http://localhost:11434  # local ollama
model_name: llama3.1:8b
max_tokens: 256
temperature: 0.7
timeout: 120

---
---HUMAN---
What is the capital of France?

---AI---
# Generated: 2025-01-01 12:00:00 (2.3s)
Paris.

---HUMAN---
And of Spain?
`

func TestParseSampleDocument(t *testing.T) {
	doc, err := Parse(sampleDocument)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", doc.Config.ServerURL)
	assert.Equal(t, "llama3.1:8b", doc.Config.Model)
	require.NotNil(t, doc.Config.MaxTokens)
	assert.Equal(t, 256, *doc.Config.MaxTokens)
	assert.Equal(t, 0.7, doc.Config.Temperature)
	assert.Equal(t, 120*time.Second, doc.Config.Timeout)

	require.Len(t, doc.Turns, 3)
	assert.Equal(t, conversation.KindHuman, doc.Turns[0].Kind)
	assert.Equal(t, "What is the capital of France?", doc.Turns[0].Content)
	assert.Equal(t, conversation.KindAI, doc.Turns[1].Kind)
	assert.Contains(t, doc.Turns[1].Content, "Paris.")
	assert.Equal(t, conversation.KindHuman, doc.Turns[2].Kind)

	require.NoError(t, doc.Validate())
}

func TestParseMissingSeparator(t *testing.T) {
	_, err := Parse("model: foo\nHUMAN text without any separator")

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "separator")
}

func TestParseMismatchedMarkersAndContent(t *testing.T) {
	raw := `---
---HUMAN---
hello

---AI---
---HUMAN---
next
`
	_, err := Parse(raw)

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "mismatched section headers and content", formatErr.Reason)
}

func TestParseMatchedMarkersNeverFormatError(t *testing.T) {
	docs := []string{
		"---\n---HUMAN---\nhi\n",
		"---\n---HUMAN---\nhi\n---AI---\nhello\n",
		"---\n---HUMAN---\nhi\n---AI---\nhello\n---HUMAN---\nmore\n",
		"model: x\n---\n---AI---\nonly an assistant turn\n",
	}

	for _, raw := range docs {
		_, err := Parse(raw)
		assert.NoError(t, err, "document: %q", raw)
	}
}

func TestParseDiscardsTextBeforeFirstMarker(t *testing.T) {
	raw := `---
stray preamble that belongs to no turn
---HUMAN---
hello
`
	doc, err := Parse(raw)
	require.NoError(t, err)

	require.Len(t, doc.Turns, 1)
	assert.Equal(t, "hello", doc.Turns[0].Content)
}

func TestParseConfigDefaults(t *testing.T) {
	doc, err := Parse("---\n---HUMAN---\nhi\n")
	require.NoError(t, err)

	cfg := doc.Config
	assert.Equal(t, "http://localhost:11434", cfg.ServerURL)
	assert.Equal(t, "llama3.1:8b", cfg.Model)
	assert.Equal(t, BackendOllama, cfg.Backend)
	assert.Nil(t, cfg.MaxTokens)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, 0.9, cfg.TopP)
	assert.Equal(t, 180*time.Second, cfg.Timeout)
}

func TestParseConfigNoneMeansUnlimited(t *testing.T) {
	doc, err := Parse("max_tokens: none\ntimeout: none\n---\n---HUMAN---\nhi\n")
	require.NoError(t, err)

	assert.Nil(t, doc.Config.MaxTokens)
	assert.Equal(t, time.Duration(0), doc.Config.Timeout)
}

func TestParseConfigBadNumericValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		key  string
	}{
		{"max_tokens", "max_tokens: lots\n---\n---HUMAN---\nhi\n", "max_tokens"},
		{"temperature", "temperature: warm\n---\n---HUMAN---\nhi\n", "temperature"},
		{"top_p", "top_p: high\n---\n---HUMAN---\nhi\n", "top_p"},
		{"timeout", "timeout: soon\n---\n---HUMAN---\nhi\n", "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)

			var configErr *ConfigError
			require.ErrorAs(t, err, &configErr)
			assert.Equal(t, tt.key, configErr.Key)
		})
	}
}

func TestParseConfigUnknownKeysRetained(t *testing.T) {
	doc, err := Parse("num_ctx: 4096\nseed: 42 # reproducible\n---\n---HUMAN---\nhi\n")
	require.NoError(t, err)

	assert.Equal(t, "4096", doc.Config.Extra["num_ctx"])
	assert.Equal(t, "42", doc.Config.Extra["seed"])
}

func TestParseConfigIgnoresCommentsAndBlankLines(t *testing.T) {
	raw := `# a full-line comment

model_name: mistral
no colon here either
---
---HUMAN---
hi
`
	doc, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "mistral", doc.Config.Model)
	assert.Empty(t, doc.Config.Extra)
}

func TestValidateTailTurn(t *testing.T) {
	doc, err := Parse("---\n---HUMAN---\nhi\n---AI---\nhello\n")
	require.NoError(t, err)

	var invariantErr *InvariantError
	require.ErrorAs(t, doc.Validate(), &invariantErr)
	assert.Contains(t, invariantErr.Reason, "human")
}

func TestValidateEmptyConversation(t *testing.T) {
	doc, err := Parse("model: x\n---\nno markers at all\n")
	require.NoError(t, err)

	var invariantErr *InvariantError
	require.ErrorAs(t, doc.Validate(), &invariantErr)
}
