package live

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vango-go/foodtrack/pkg/core/classify"
	"github.com/vango-go/foodtrack/pkg/core/voice/stt"
)

const (
	defaultConnectTimeout = 20 * time.Second
	defaultSendTimeout    = 30 * time.Second
	eventBufferSize       = 256
	commandBufferSize     = 64
)

// SessionBroker issues signed remote-session URLs for a user. The SDK's
// VoiceService satisfies it.
type SessionBroker interface {
	SignedURL(ctx context.Context, userID string) (string, error)
}

// Responder turns an utterance into an assistant reply, submitting a food
// log when the utterance names a meal. *classify.Responder satisfies it.
type Responder interface {
	Respond(ctx context.Context, userID, text string) classify.Outcome
}

// Speaker plays assistant replies on the local path. *voice.PlaybackManager
// satisfies it.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop()
	IsSpeaking() bool
}

// Config wires an Orchestrator to its collaborators. Broker, Dialer and
// Responder are required; the rest may be nil.
type Config struct {
	// UserID keys the signed-url request and is passed to the agent as the
	// user_id dynamic variable.
	UserID string

	Broker     SessionBroker
	Dialer     RemoteDialer
	Recognizer stt.Recognizer
	Responder  Responder
	Speaker    Speaker
	Notifier   Notifier

	// DraftOnly keeps a recognized transcript as a draft instead of sending
	// it straight away.
	DraftOnly bool

	// ConnectTimeout bounds signed-url fetch plus connect. Default 20s.
	ConnectTimeout time.Duration
	// SendTimeout bounds one typed-text round trip. Default 30s.
	SendTimeout time.Duration

	Logger zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = defaultSendTimeout
	}
	if c.Notifier == nil {
		c.Notifier = NopNotifier{}
	}
	return c
}
