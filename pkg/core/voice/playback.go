// Package voice holds the spoken-reply side of the local fallback path: the
// PlaybackManager turns assistant text into one audible clip at a time.
package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/vango-go/foodtrack/pkg/core"
	"github.com/vango-go/foodtrack/pkg/core/audio"
	"github.com/vango-go/foodtrack/pkg/core/voice/tts"
)

// ClipSink plays a clip to completion and releases it. audio.ClipPlayer is
// the production sink.
type ClipSink interface {
	Play(ctx context.Context, clip *audio.Clip) error
}

// PlaybackOption configures a PlaybackManager.
type PlaybackOption func(*PlaybackManager)

// WithSynthesizeOptions sets the voice and format passed to the provider.
func WithSynthesizeOptions(opts tts.SynthesizeOptions) PlaybackOption {
	return func(m *PlaybackManager) { m.opts = opts }
}

// WithSpeakingObserver registers fn to be told about speaking changes. fn
// must not block.
func WithSpeakingObserver(fn func(speaking bool)) PlaybackOption {
	return func(m *PlaybackManager) { m.observer = fn }
}

// WithPlaybackLogger sets the logger.
func WithPlaybackLogger(l zerolog.Logger) PlaybackOption {
	return func(m *PlaybackManager) { m.logger = l }
}

// PlaybackManager speaks one utterance at a time. A new Speak supersedes the
// active one; nothing is queued.
type PlaybackManager struct {
	provider tts.Provider
	sink     ClipSink
	opts     tts.SynthesizeOptions
	observer func(bool)
	logger   zerolog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc

	speaking atomic.Bool
	wg       sync.WaitGroup
}

// NewPlaybackManager returns a manager that synthesizes with provider and
// plays through sink.
func NewPlaybackManager(provider tts.Provider, sink ClipSink, opts ...PlaybackOption) *PlaybackManager {
	m := &PlaybackManager{
		provider: provider,
		sink:     sink,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsSpeaking reports whether a clip is playing.
func (m *PlaybackManager) IsSpeaking() bool {
	return m != nil && m.speaking.Load()
}

// Speak synthesizes text and starts playing it. It returns once playback has
// started (or was superseded); completion is reported through IsSpeaking and
// the speaking observer. Fetch failures return a synthesis_error and leave
// IsSpeaking false.
func (m *PlaybackManager) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if m.provider == nil || m.sink == nil {
		return core.NewSynthesisError("playback is not configured", nil)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	gen := m.supersede(cancel)

	fetchCtx, cancelFetch := context.WithCancel(ctx)
	stopFetch := context.AfterFunc(runCtx, cancelFetch)
	syn, err := m.provider.Synthesize(fetchCtx, text, m.opts)
	stopFetch()
	cancelFetch()

	if !m.current(gen) {
		cancel()
		return nil
	}
	if err != nil {
		m.finish(gen)
		return core.NewSynthesisError("synthesize reply", err)
	}

	clip, err := audio.NewClip(syn.Audio, syn.Ext())
	if err != nil {
		m.finish(gen)
		return core.NewSynthesisError("buffer reply audio", err)
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		cancel()
		_ = clip.Release()
		return nil
	}
	m.speaking.Store(true)
	m.mu.Unlock()
	m.notify(true)
	m.logger.Debug().Uint64("generation", gen).Str("provider", m.provider.Name()).Msg("playback started")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		err := m.sink.Play(runCtx, clip)
		if err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn().Err(err).Uint64("generation", gen).Msg("playback failed")
		}
		m.finish(gen)
	}()
	return nil
}

// Stop cancels the active playback, if any.
func (m *PlaybackManager) Stop() {
	m.mu.Lock()
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	was := m.speaking.Swap(false)
	m.mu.Unlock()
	if was {
		m.notify(false)
	}
}

// Wait blocks until every started playback goroutine has exited.
func (m *PlaybackManager) Wait() {
	m.wg.Wait()
}

func (m *PlaybackManager) supersede(cancel context.CancelFunc) uint64 {
	m.mu.Lock()
	m.gen++
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel
	gen := m.gen
	was := m.speaking.Swap(false)
	m.mu.Unlock()
	if was {
		m.notify(false)
	}
	return gen
}

func (m *PlaybackManager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}

// finish clears state for gen unless a newer Speak or Stop already did.
func (m *PlaybackManager) finish(gen uint64) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	was := m.speaking.Swap(false)
	m.mu.Unlock()
	if was {
		m.notify(false)
		m.logger.Debug().Uint64("generation", gen).Msg("playback finished")
	}
}

func (m *PlaybackManager) notify(speaking bool) {
	if m.observer != nil {
		m.observer(speaking)
	}
}
