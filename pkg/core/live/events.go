package live

import (
	"github.com/vango-go/foodtrack/pkg/core/types"
)

// Event is the interface for all orchestrator events.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// StateChangedEvent is emitted when the voice state changes.
type StateChangedEvent struct {
	From types.VoiceState `json:"from"`
	To   types.VoiceState `json:"to"`
}

func (e *StateChangedEvent) EventType() string { return "state.changed" }

// MessageAppendedEvent is emitted for every Message Log append.
type MessageAppendedEvent struct {
	Message types.Message `json:"message"`
}

func (e *MessageAppendedEvent) EventType() string { return "message.appended" }

// SpeakingChangedEvent is emitted when either speaking source starts or
// stops.
type SpeakingChangedEvent struct {
	Speaking bool `json:"speaking"`
}

func (e *SpeakingChangedEvent) EventType() string { return "speaking.changed" }

// NoticeEvent mirrors every user notification.
type NoticeEvent struct {
	Level NoticeLevel `json:"level"`
	Text  string      `json:"text"`
}

func (e *NoticeEvent) EventType() string { return "notice" }

// DraftEvent carries a recognized transcript held back for the user to edit.
type DraftEvent struct {
	Text string `json:"text"`
}

func (e *DraftEvent) EventType() string { return "draft" }
