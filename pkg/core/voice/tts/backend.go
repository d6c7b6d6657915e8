package tts

import (
	"context"
	"errors"
)

// SpeechSource is the backend endpoint that renders text as mp3. The SDK's
// VoiceService satisfies it.
type SpeechSource interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// BackendProvider synthesizes through the foodtrack backend, which holds the
// ElevenLabs credentials.
type BackendProvider struct {
	source SpeechSource
}

// NewBackend wraps source.
func NewBackend(source SpeechSource) *BackendProvider {
	return &BackendProvider{source: source}
}

func (b *BackendProvider) Name() string {
	return "backend"
}

// Synthesize ignores opts; voice selection belongs to the backend.
func (b *BackendProvider) Synthesize(ctx context.Context, text string, _ SynthesizeOptions) (*Synthesis, error) {
	if b == nil || b.source == nil {
		return nil, errors.New("backend speech source is not configured")
	}
	audio, err := b.source.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	return &Synthesis{Audio: audio, Format: "mp3"}, nil
}
