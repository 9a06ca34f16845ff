package document

import (
	"regexp"
	"strings"

	"github.com/promptwatch/promptwatch/pkg/conversation"
)

// Document is the in-memory form of one prompt file: the configuration block
// plus the ordered conversation turns.
type Document struct {
	Config *Config
	Turns  []conversation.Turn
}

var sectionMarker = regexp.MustCompile(`---(HUMAN|AI)---`)

// Parse splits raw file text into a configuration block and conversation
// turns. The first occurrence of `---` is the boundary between the two; its
// absence is a FormatError.
func Parse(raw string) (*Document, error) {
	sep := strings.Index(raw, "---")
	if sep < 0 {
		return nil, &FormatError{Reason: "missing '---' separator between config and conversation"}
	}

	cfg, err := parseConfig(raw[:sep])
	if err != nil {
		return nil, err
	}

	turns, err := parseTurns(raw[sep+len("---"):])
	if err != nil {
		return nil, err
	}

	return &Document{Config: cfg, Turns: turns}, nil
}

// parseTurns tokenizes the conversation block on ---HUMAN--- / ---AI---
// markers. Text before the first marker is discarded. Each marker is paired
// with the text run that follows it; a marker whose trimmed content is empty
// means the section headers no longer line up with their content.
func parseTurns(text string) ([]conversation.Turn, error) {
	markers := sectionMarker.FindAllStringSubmatchIndex(text, -1)
	if len(markers) == 0 {
		return nil, nil
	}

	turns := make([]conversation.Turn, 0, len(markers))
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		content := strings.TrimSpace(text[m[1]:end])
		if content == "" {
			return nil, &FormatError{Reason: "mismatched section headers and content"}
		}

		kind := conversation.KindHuman
		if text[m[2]:m[3]] == "AI" {
			kind = conversation.KindAI
		}
		turns = append(turns, conversation.Turn{Kind: kind, Content: content})
	}

	return turns, nil
}

// Validate checks the generation trigger condition: the conversation must
// contain at least one turn and end on a human turn. Any other tail state is
// an input mistake, not something to auto-correct.
func (d *Document) Validate() error {
	if len(d.Turns) == 0 {
		return &InvariantError{Reason: "no conversation sections found"}
	}
	if d.Turns[len(d.Turns)-1].Kind != conversation.KindHuman {
		return &InvariantError{Reason: "last section must be a human prompt"}
	}
	return nil
}

// Messages returns the provider-facing projection of the document's turns.
func (d *Document) Messages() []conversation.Message {
	return conversation.ToMessages(d.Turns)
}
