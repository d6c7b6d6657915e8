// Package tts provides text-to-speech functionality.
package tts

import (
	"context"
	"strings"
)

// Provider is the interface for text-to-speech services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to an encoded audio payload.
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error)
}

// SynthesizeOptions configures synthesis.
type SynthesizeOptions struct {
	Voice  string // Voice identifier (ElevenLabs voice ID)
	Format string // Output format: "mp3" or "pcm_16000" / "pcm_24000"
}

// Synthesis is the result of synthesis.
type Synthesis struct {
	Audio  []byte // Audio data
	Format string // Audio format
}

// Ext returns a file extension suitable for the payload.
func (s *Synthesis) Ext() string {
	if s == nil {
		return ""
	}
	if strings.HasPrefix(s.Format, "pcm") {
		return ".pcm"
	}
	return "." + getFormat(s.Format)
}

func getFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	switch {
	case format == "":
		return "mp3"
	case strings.HasPrefix(format, "mp3"):
		return "mp3"
	default:
		return format
	}
}
