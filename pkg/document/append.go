package document

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/promptwatch/promptwatch/pkg/conversation"
)

// TokenUsage carries the token counters reported by a backend at the end of
// a generation, as embedded in the stats line of an appended response.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// FormatResponseBlock renders a completed generation in the document
// grammar: a blank separator, the ---AI--- marker, one metadata comment
// line, the cleaned response text, and a trailing ---HUMAN--- marker priming
// the file for the next human turn. The generated text is stripped of any
// metadata lines a backend may have echoed back.
func FormatResponseBlock(text string, elapsed time.Duration, usage *TokenUsage) string {
	var b strings.Builder

	b.WriteString("\n\n---AI---\n")
	fmt.Fprintf(&b, "%s %s (%.1fs", conversation.GeneratedPrefix,
		time.Now().Format("2006-01-02 15:04:05"), elapsed.Seconds())
	if usage != nil {
		fmt.Fprintf(&b, ", %d prompt + %d completion = %d tokens",
			usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
	}
	b.WriteString(")\n")
	b.WriteString(conversation.StripGeneratedLines(text))
	b.WriteString("\n\n---HUMAN---\n")

	return b.String()
}

// AppendResponse writes a response block to the end of the prompt file. It
// never rewrites or reparses existing content; exclusive access for the
// duration of the write is assumed.
func AppendResponse(path, text string, elapsed time.Duration, usage *TokenUsage) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open prompt file for append")
	}

	_, err = f.WriteString(FormatResponseBlock(text, elapsed, usage))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return errors.Wrap(err, "append response")
}
