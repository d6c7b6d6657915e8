// Package stt provides on-device speech-to-text for the local fallback path.
package stt

import (
	"context"
	"errors"
)

// ErrNoSpeech is reported when a recognition pass produced no transcript.
var ErrNoSpeech = errors.New("no speech detected")

// Result is the single outcome of a recognition pass: either a final
// transcript or an error.
type Result struct {
	Transcript string
	Err        error
}

// Recognizer performs one-shot recognition.
type Recognizer interface {
	// Available reports whether the host can recognize speech at all. It
	// returns a core unsupported_error when it cannot.
	Available() error

	// Recognize runs exactly one pass and calls onResult exactly once, on
	// the calling goroutine, before returning. It never retries.
	Recognize(ctx context.Context, onResult func(Result))
}
