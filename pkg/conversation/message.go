package conversation

// Role is the provider-facing role of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is the provider-agnostic projection of a turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToMessages projects turns onto chat messages, in order. Human turns pass
// through unmodified, including any '#' characters; AI turns are cleaned of
// generation-metadata lines first, and an AI turn whose cleaned content is
// empty contributes no message.
func ToMessages(turns []Turn) []Message {
	messages := make([]Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Kind {
		case KindHuman:
			messages = append(messages, Message{
				Role:    RoleUser,
				Content: turn.Content,
			})
		case KindAI:
			content := StripGeneratedLines(turn.Content)
			if content == "" {
				continue
			}
			messages = append(messages, Message{
				Role:    RoleAssistant,
				Content: content,
			})
		}
	}
	return messages
}
