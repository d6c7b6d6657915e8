package types

import (
	"strings"

	"github.com/google/uuid"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// WelcomeMessageID is the id of the assistant greeting every log starts with.
const WelcomeMessageID = "welcome"

// WelcomeText is the assistant greeting shown before the first utterance.
const WelcomeText = `Hi! 👋 I'm your food tracking assistant. Tell me what you've eaten today - just say something like "I had oatmeal with berries for breakfast" or "Just finished lunch - had a chicken salad". Tap the mic to start speaking!`

// Message is a single entry in the conversation. Messages are values and
// are never modified after creation.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a message with a fresh opaque id.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
	}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return NewMessage(RoleUser, strings.TrimSpace(content))
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// MessageLog is the append-only, ordered conversation transcript.
//
// A MessageLog is not safe for concurrent use; it belongs to exactly one
// event loop.
type MessageLog struct {
	messages []Message
}

// NewMessageLog creates a log seeded with the welcome message.
func NewMessageLog() *MessageLog {
	return &MessageLog{
		messages: []Message{{
			ID:      WelcomeMessageID,
			Role:    RoleAssistant,
			Content: WelcomeText,
		}},
	}
}

// Append adds msg at the end of the log.
func (l *MessageLog) Append(msg Message) {
	l.messages = append(l.messages, msg)
}

// Len returns the number of messages.
func (l *MessageLog) Len() int {
	return len(l.messages)
}

// Messages returns a copy of the log in display order.
func (l *MessageLog) Messages() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}
