package voice

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-go/foodtrack/pkg/core"
	"github.com/vango-go/foodtrack/pkg/core/audio"
	"github.com/vango-go/foodtrack/pkg/core/voice/tts"
)

type fakeProvider struct {
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Synthesize(ctx context.Context, text string, _ tts.SynthesizeOptions) (*tts.Synthesis, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return &tts.Synthesis{Audio: []byte(text), Format: "mp3"}, nil
}

// blockingSink plays until its context is cancelled or finish is closed.
type blockingSink struct {
	mu      sync.Mutex
	active  int
	maxSeen int
	paths   []string
	finish  chan struct{}
}

func newBlockingSink() *blockingSink {
	return &blockingSink{finish: make(chan struct{})}
}

func (s *blockingSink) Play(ctx context.Context, clip *audio.Clip) error {
	defer clip.Release()
	s.mu.Lock()
	s.active++
	if s.active > s.maxSeen {
		s.maxSeen = s.active
	}
	s.paths = append(s.paths, clip.Path())
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.finish:
		return nil
	}
}

func (s *blockingSink) stats() (active, maxSeen int, paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.maxSeen, append([]string(nil), s.paths...)
}

func TestPlaybackManager_SpeakThenComplete(t *testing.T) {
	sink := newBlockingSink()
	var changes []bool
	var changesMu sync.Mutex
	m := NewPlaybackManager(&fakeProvider{}, sink, WithSpeakingObserver(func(v bool) {
		changesMu.Lock()
		changes = append(changes, v)
		changesMu.Unlock()
	}))

	require.NoError(t, m.Speak(context.Background(), "Got it!"))
	assert.True(t, m.IsSpeaking())

	close(sink.finish)
	m.Wait()
	assert.False(t, m.IsSpeaking())

	_, _, paths := sink.stats()
	require.Len(t, paths, 1)
	assert.NoFileExists(t, paths[0])

	changesMu.Lock()
	assert.Equal(t, []bool{true, false}, changes)
	changesMu.Unlock()
}

func TestPlaybackManager_NewSpeakSupersedes(t *testing.T) {
	sink := newBlockingSink()
	m := NewPlaybackManager(&fakeProvider{}, sink)

	require.NoError(t, m.Speak(context.Background(), "first"))
	require.NoError(t, m.Speak(context.Background(), "second"))
	require.NoError(t, m.Speak(context.Background(), "third"))

	require.Eventually(t, func() bool {
		active, _, paths := sink.stats()
		return active == 1 && len(paths) == 3
	}, time.Second, 5*time.Millisecond)
	assert.True(t, m.IsSpeaking())

	m.Stop()
	m.Wait()
	assert.False(t, m.IsSpeaking())
	active, _, paths := sink.stats()
	assert.Zero(t, active)
	for _, p := range paths {
		assert.NoFileExists(t, p)
	}
}

func TestPlaybackManager_AtMostOneAudibleStream(t *testing.T) {
	sink := newBlockingSink()
	m := NewPlaybackManager(&fakeProvider{}, sink)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Speak(context.Background(), "reply")
		}()
	}
	wg.Wait()
	require.Eventually(t, func() bool {
		active, _, _ := sink.stats()
		return active <= 1
	}, time.Second, 5*time.Millisecond)

	m.Stop()
	m.Wait()
	active, _, _ := sink.stats()
	assert.Zero(t, active)
}

func TestPlaybackManager_SupersededFetchDoesNotPlay(t *testing.T) {
	sink := newBlockingSink()
	provider := &fakeProvider{delay: 200 * time.Millisecond}
	m := NewPlaybackManager(provider, sink)

	done := make(chan error, 1)
	go func() { done <- m.Speak(context.Background(), "slow") }()
	require.Eventually(t, func() bool { return provider.calls.Load() == 1 }, time.Second, time.Millisecond)

	m.Stop()
	require.NoError(t, <-done)
	assert.False(t, m.IsSpeaking())
	_, _, paths := sink.stats()
	assert.Empty(t, paths)
}

func TestPlaybackManager_FetchFailure(t *testing.T) {
	sink := newBlockingSink()
	m := NewPlaybackManager(&fakeProvider{err: errors.New("503")}, sink)

	err := m.Speak(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, core.IsType(err, core.ErrSynthesis))
	assert.False(t, m.IsSpeaking())
	_, _, paths := sink.stats()
	assert.Empty(t, paths)
}

func TestPlaybackManager_EmptyTextAndUnconfigured(t *testing.T) {
	m := NewPlaybackManager(&fakeProvider{}, newBlockingSink())
	assert.NoError(t, m.Speak(context.Background(), "   "))
	assert.False(t, m.IsSpeaking())

	err := NewPlaybackManager(nil, nil).Speak(context.Background(), "hi")
	assert.True(t, core.IsType(err, core.ErrSynthesis))
}

func TestPlaybackManager_CallerContextDoesNotEndPlayback(t *testing.T) {
	sink := newBlockingSink()
	m := NewPlaybackManager(&fakeProvider{}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Speak(ctx, "hello"))
	cancel()

	time.Sleep(20 * time.Millisecond)
	assert.True(t, m.IsSpeaking())
	m.Stop()
	m.Wait()
}
