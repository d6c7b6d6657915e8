package live

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/vango-go/foodtrack/pkg/core"
	"github.com/vango-go/foodtrack/pkg/core/classify"
	"github.com/vango-go/foodtrack/pkg/core/types"
	"github.com/vango-go/foodtrack/pkg/core/voice/stt"
)

// Snapshot is an immutable view of the orchestrator. Messages is shared
// between snapshots and must not be modified.
type Snapshot struct {
	State         types.VoiceState
	Status        types.SessionStatus
	Messages      []types.Message
	AgentSpeaking bool
	IsSpeaking    bool
	IsVoiceActive bool
	StatusText    string
	Sending       bool
	Recognizing   bool
	Draft         string
	Generation    uint64
}

// Orchestrator is the voice conversation state machine.
type Orchestrator struct {
	cfg    Config
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	cmds   chan func()
	poke   chan struct{}
	events chan Event
	done   chan struct{}

	closeOnce sync.Once
	snapshot  atomic.Pointer[Snapshot]

	// Loop-owned.
	state         types.VoiceState
	status        types.SessionStatus
	log           *types.MessageLog
	logDirty      bool
	gen           uint64
	transport     speechTransport
	agentSpeaking bool
	sending       bool
	recognizing   bool
	draft         string
	closed        bool
	lastSpeaking  bool
}

// New creates an orchestrator and starts its loop. Call Close to release it.
func New(cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "orchestrator").Logger(),
		ctx:    ctx,
		cancel: cancel,
		cmds:   make(chan func(), commandBufferSize),
		poke:   make(chan struct{}, 1),
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
		state:  types.VoiceIdle,
		status: types.SessionDisconnected,
		log:    types.NewMessageLog(),
	}
	o.logDirty = true
	o.publish()
	go o.run()
	return o
}

func (o *Orchestrator) run() {
	defer close(o.done)
	defer close(o.events)
	for {
		select {
		case fn := <-o.cmds:
			fn()
		case <-o.poke:
		case <-o.ctx.Done():
			return
		}
		o.publish()
	}
}

// post queues fn on the loop without waiting for it. It drops fn once the
// loop has exited.
func (o *Orchestrator) post(fn func()) {
	select {
	case o.cmds <- fn:
	case <-o.done:
	}
}

// do runs fn on the loop and waits until its effects are published. It
// reports false when the loop exited first. do must not be called from the
// loop.
func (o *Orchestrator) do(fn func()) bool {
	ran := make(chan struct{})
	step := func() {
		fn()
		o.publish()
		close(ran)
	}
	select {
	case o.cmds <- step:
	case <-o.done:
		return false
	}
	select {
	case <-ran:
		return true
	case <-o.done:
		return false
	}
}

// Start begins a voice conversation. It is a no-op while a remote session is
// connecting or connected and while a local recognition pass is running.
func (o *Orchestrator) Start() {
	o.do(o.start)
}

// Stop ends any voice activity and forces idle. Late results from the
// stopped attempt are discarded.
func (o *Orchestrator) Stop() {
	o.do(o.stop)
}

// ToggleVoice stops a connected session and starts one otherwise.
func (o *Orchestrator) ToggleVoice() {
	o.do(func() {
		if o.status == types.SessionConnected {
			o.stop()
			return
		}
		o.start()
	})
}

// Send submits typed text. It reports false when text is blank, a send is
// already in progress, or the orchestrator is closed.
func (o *Orchestrator) Send(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	var accepted bool
	o.do(func() { accepted = o.send(text) })
	return accepted
}

// PlaybackChanged tells the orchestrator that local playback started or
// stopped. It never blocks and is meant for voice.WithSpeakingObserver.
func (o *Orchestrator) PlaybackChanged(bool) {
	select {
	case o.poke <- struct{}{}:
	default:
	}
}

// Snapshot returns the latest published view.
func (o *Orchestrator) Snapshot() Snapshot {
	return *o.snapshot.Load()
}

// State returns the visible voice state.
func (o *Orchestrator) State() types.VoiceState { return o.Snapshot().State }

// Messages returns the Message Log in display order.
func (o *Orchestrator) Messages() []types.Message {
	msgs := o.Snapshot().Messages
	out := make([]types.Message, len(msgs))
	copy(out, msgs)
	return out
}

// IsSpeaking reports whether the remote agent or local playback is speaking.
func (o *Orchestrator) IsSpeaking() bool {
	if o.Snapshot().AgentSpeaking {
		return true
	}
	return o.cfg.Speaker != nil && o.cfg.Speaker.IsSpeaking()
}

// IsVoiceActive reports whether a remote session is connected or a local
// recognition pass is running.
func (o *Orchestrator) IsVoiceActive() bool { return o.Snapshot().IsVoiceActive }

// StatusText returns the label for the current state.
func (o *Orchestrator) StatusText() string { return o.Snapshot().StatusText }

// Events returns the event stream. It is closed by Close. Events are dropped
// when the reader falls behind.
func (o *Orchestrator) Events() <-chan Event { return o.events }

// Close stops voice activity and playback and ends the loop.
func (o *Orchestrator) Close() error {
	o.closeOnce.Do(func() {
		o.do(func() {
			o.stop()
			o.closed = true
		})
		if o.cfg.Speaker != nil {
			o.cfg.Speaker.Stop()
		}
		o.cancel()
		<-o.done
	})
	return nil
}

func (o *Orchestrator) start() {
	if o.closed || o.status != types.SessionDisconnected || o.recognizing {
		o.logger.Debug().
			Str("status", o.status.String()).
			Bool("recognizing", o.recognizing).
			Msg("start ignored")
		return
	}
	o.gen++
	o.endTransport()
	if o.cfg.Speaker != nil {
		o.cfg.Speaker.Stop()
	}
	o.status = types.SessionConnecting
	o.setState(types.VoiceThinking)
	o.logger.Info().Uint64("generation", o.gen).Str("user_id", o.cfg.UserID).Msg("voice session starting")

	t := &remoteTransport{o: o}
	o.transport = t
	t.begin(o.gen)
}

func (o *Orchestrator) stop() {
	o.gen++
	o.endTransport()
	o.recognizing = false
	o.agentSpeaking = false
	o.status = types.SessionDisconnected
	o.setState(types.VoiceIdle)
	o.logger.Debug().Uint64("generation", o.gen).Msg("voice stopped")
}

func (o *Orchestrator) endTransport() {
	if o.transport != nil {
		o.transport.end()
		o.transport = nil
	}
}

func (o *Orchestrator) onConnectResult(gen uint64, session RemoteSession, err error) {
	if gen != o.gen {
		if session != nil {
			_ = session.EndSession()
		}
		o.logger.Debug().Uint64("generation", gen).Msg("stale connect result dropped")
		return
	}
	rt, _ := o.transport.(*remoteTransport)
	if err != nil {
		o.logger.Warn().Err(err).Uint64("generation", gen).Msg("voice session failed, using local recognition")
		o.endTransport()
		o.status = types.SessionDisconnected
		o.setState(types.VoiceIdle)
		o.startFallback()
		return
	}
	if rt != nil {
		rt.session = session
	}
	o.connected()
}

func (o *Orchestrator) connected() {
	o.status = types.SessionConnected
	if o.state == types.VoiceThinking {
		o.setState(types.VoiceListening)
	}
}

func (o *Orchestrator) remoteHandler(gen uint64) RemoteHandler {
	return RemoteHandler{
		OnConnect: func() {
			o.post(func() {
				if gen == o.gen {
					o.connected()
				}
			})
		},
		OnMessage: func(text string) {
			o.post(func() {
				text := strings.TrimSpace(text)
				if gen != o.gen || text == "" {
					return
				}
				o.appendMessage(types.AssistantMessage(text))
			})
		},
		OnModeChange: func(speaking bool) {
			o.post(func() {
				if gen != o.gen {
					return
				}
				o.agentSpeaking = speaking
				if o.status != types.SessionConnected {
					return
				}
				if speaking {
					o.setState(types.VoiceSpeaking)
				} else {
					o.setState(types.VoiceListening)
				}
			})
		},
		OnDisconnect: func() {
			o.post(func() { o.remoteEnded(gen, nil) })
		},
		OnError: func(err error) {
			o.post(func() { o.remoteEnded(gen, err) })
		},
	}
}

// remoteEnded handles the session closing on its own. An end before the
// session connected counts as a failed connect.
func (o *Orchestrator) remoteEnded(gen uint64, err error) {
	if gen != o.gen {
		return
	}
	wasConnecting := o.status == types.SessionConnecting
	o.gen++
	o.endTransport()
	o.agentSpeaking = false
	o.status = types.SessionDisconnected
	o.setState(types.VoiceIdle)

	if wasConnecting {
		o.logger.Warn().Err(err).Msg("voice session closed while connecting, using local recognition")
		o.startFallback()
		return
	}
	if err != nil {
		o.logger.Warn().Err(err).Msg("voice session error")
		o.notify(NoticeError, NoticeConnectionError)
		return
	}
	o.logger.Info().Msg("voice session disconnected")
}

func (o *Orchestrator) startFallback() {
	rec := o.cfg.Recognizer
	var err error
	if rec == nil {
		err = core.NewUnsupportedError("no local recognizer configured")
	} else {
		err = rec.Available()
	}
	if err != nil {
		o.logger.Warn().Err(err).Msg("local recognition unavailable")
		o.notify(NoticeError, NoticeUnsupported)
		return
	}

	o.recognizing = true
	t := &localTransport{o: o}
	o.transport = t
	o.notify(NoticeInfo, NoticeListening)
	t.begin(o.gen)
}

func (o *Orchestrator) onRecognition(gen uint64, res stt.Result) {
	if gen != o.gen || !o.recognizing {
		return
	}
	o.recognizing = false
	o.endTransport()

	if res.Err != nil {
		switch {
		case errors.Is(res.Err, context.Canceled):
		case core.IsType(res.Err, core.ErrUnsupported):
			o.notify(NoticeError, NoticeUnsupported)
		default:
			o.logger.Info().Err(res.Err).Msg("recognition failed")
			o.notify(NoticeError, NoticeNotUnderstood)
		}
		return
	}
	text := strings.TrimSpace(res.Transcript)
	if text == "" {
		o.notify(NoticeError, NoticeNotUnderstood)
		return
	}
	if o.cfg.DraftOnly {
		o.draft = text
		o.emit(&DraftEvent{Text: text})
		o.notify(NoticeSuccess, NoticeHeardDraft)
		return
	}
	o.notify(NoticeSuccess, NoticeHeard)
	o.send(text)
}

func (o *Orchestrator) send(text string) bool {
	if o.closed || o.sending {
		return false
	}
	o.sending = true
	o.draft = ""
	o.appendMessage(types.UserMessage(text))

	responder := o.cfg.Responder
	userID := o.cfg.UserID
	ctx, cancel := context.WithTimeout(o.ctx, o.cfg.SendTimeout)
	go func() {
		defer cancel()
		var out classify.Outcome
		if responder == nil {
			out.Err = core.NewInvalidRequestError("no responder configured")
		} else {
			out = responder.Respond(ctx, userID, text)
		}
		o.post(func() { o.onReply(out) })
	}()
	return true
}

func (o *Orchestrator) onReply(out classify.Outcome) {
	o.sending = false
	reply := strings.TrimSpace(out.Reply)
	if reply == "" {
		o.logger.Warn().Err(out.Err).Msg("no reply")
		o.notify(NoticeError, NoticeSendFailed)
		return
	}
	o.appendMessage(types.AssistantMessage(reply))
	// The mic is live while connected or recognizing.
	if o.status != types.SessionDisconnected || o.recognizing {
		return
	}
	o.speak(reply)
}

func (o *Orchestrator) speak(text string) {
	speaker := o.cfg.Speaker
	if speaker == nil || o.closed {
		return
	}
	ctx := o.ctx
	go func() {
		if err := speaker.Speak(ctx, text); err != nil {
			o.logger.Debug().Err(err).Msg("reply not spoken")
		}
		o.PlaybackChanged(speaker.IsSpeaking())
	}()
}

func (o *Orchestrator) appendMessage(msg types.Message) {
	o.log.Append(msg)
	o.logDirty = true
	o.emit(&MessageAppendedEvent{Message: msg})
}

func (o *Orchestrator) setState(to types.VoiceState) {
	from := o.state
	if from == to {
		return
	}
	o.state = to
	o.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("state changed")
	o.emit(&StateChangedEvent{From: from, To: to})
}

func (o *Orchestrator) notify(level NoticeLevel, text string) {
	o.cfg.Notifier.Notify(level, text)
	o.emit(&NoticeEvent{Level: level, Text: text})
}

func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	default:
		o.logger.Warn().Str("event", ev.EventType()).Msg("event dropped")
	}
}

// publish stores a fresh snapshot. It runs on the loop after every step.
func (o *Orchestrator) publish() {
	prev := o.snapshot.Load()
	msgs := []types.Message(nil)
	if prev != nil {
		msgs = prev.Messages
	}
	if o.logDirty || prev == nil {
		msgs = o.log.Messages()
		o.logDirty = false
	}

	speaking := o.agentSpeaking || (o.cfg.Speaker != nil && o.cfg.Speaker.IsSpeaking())
	statusText := o.state.StatusText()
	if o.recognizing {
		statusText = types.VoiceListening.StatusText()
	}
	o.snapshot.Store(&Snapshot{
		State:         o.state,
		Status:        o.status,
		Messages:      msgs,
		AgentSpeaking: o.agentSpeaking,
		IsSpeaking:    speaking,
		IsVoiceActive: o.status == types.SessionConnected || o.recognizing,
		StatusText:    statusText,
		Sending:       o.sending,
		Recognizing:   o.recognizing,
		Draft:         o.draft,
		Generation:    o.gen,
	})
	if speaking != o.lastSpeaking {
		o.lastSpeaking = speaking
		o.emit(&SpeakingChangedEvent{Speaking: speaking})
	}
}
