package conversation

import "strings"

// Kind identifies who authored a turn in a prompt document.
type Kind string

const (
	KindHuman Kind = "human"
	KindAI    Kind = "ai"
)

// Turn is one contribution within a prompt document, in document order.
type Turn struct {
	Kind    Kind
	Content string
}

// GeneratedPrefix starts the metadata comment line written above every
// appended response. Lines carrying this prefix are never part of the
// assistant's actual content.
const GeneratedPrefix = "# Generated:"

// StripGeneratedLines removes generation-metadata comment lines from s and
// trims surrounding whitespace. It is applied to AI turn content when
// building messages, and defensively to backend output before it is written
// back to a file.
func StripGeneratedLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), GeneratedPrefix) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
