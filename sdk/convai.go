package foodtrack

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/vango-go/foodtrack/pkg/core"
	"github.com/vango-go/foodtrack/pkg/core/types"
)

const (
	defaultConvAIConnectTimeout = 15 * time.Second
	convAIEventBuffer           = 256
	// 100ms of 16 kHz mono s16le.
	userAudioChunkBytes = 3200
)

// ConvAIService opens real-time sessions with the remote conversational
// voice agent. Sessions are authorized by a signed URL obtained from
// VoiceService.SignedURL.
type ConvAIService struct {
	client *Client
}

// ConvAIConnectRequest configures a remote agent session.
type ConvAIConnectRequest struct {
	SignedURL string
	// DynamicVariables are passed to the agent as session context
	// (for example user_id).
	DynamicVariables map[string]string

	// AudioInput, when set, is read as raw PCM (s16le mono at the agent's
	// input rate) and streamed to the agent.
	AudioInput io.Reader
	// AudioOutput, when set, receives decoded agent audio.
	AudioOutput io.Writer
}

// ConvAIMetadata is the handshake acknowledgement sent by the agent.
type ConvAIMetadata struct {
	ConversationID    string `json:"conversation_id"`
	AgentOutputFormat string `json:"agent_output_audio_format"`
	UserInputFormat   string `json:"user_input_audio_format"`
}

// ConvAIHandler receives session events. Callbacks run on a single
// per-session goroutine in delivery order. After OnDisconnect or OnError no
// further callbacks fire for that session.
type ConvAIHandler struct {
	OnConnect    func(ConvAIMetadata)
	OnMessage    func(text string)
	OnModeChange func(speaking bool)
	OnDisconnect func()
	OnError      func(err error)
}

// ConvAISession is one live agent session.
type ConvAISession struct {
	conn     *websocket.Conn
	handler  ConvAIHandler
	metadata ConvAIMetadata
	output   io.Writer

	events   chan convaiEvent
	readDone chan struct{}
	done     chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	status   atomic.Int32
	speaking atomic.Bool

	errMu sync.Mutex
	err   error

	logger zerolog.Logger
}

type convaiEventKind int

const (
	convaiConnected convaiEventKind = iota
	convaiMessage
	convaiAudio
	convaiInterruption
	convaiTerminal
)

type convaiEvent struct {
	kind     convaiEventKind
	text     string
	duration time.Duration
	err      error
}

// wire frames

type convaiInitiation struct {
	Type             string            `json:"type"`
	DynamicVariables map[string]string `json:"dynamic_variables,omitempty"`
}

type convaiUserAudio struct {
	UserAudioChunk string `json:"user_audio_chunk"`
}

type convaiPong struct {
	Type    string `json:"type"`
	EventID int64  `json:"event_id"`
}

type convaiFrame struct {
	Type string `json:"type"`

	Metadata *ConvAIMetadata `json:"conversation_initiation_metadata_event,omitempty"`

	AgentResponse *struct {
		AgentResponse string `json:"agent_response"`
	} `json:"agent_response_event,omitempty"`

	UserTranscript *struct {
		UserTranscript string `json:"user_transcript"`
	} `json:"user_transcription_event,omitempty"`

	Audio *struct {
		AudioBase64 string `json:"audio_base_64"`
		EventID     int64  `json:"event_id"`
	} `json:"audio_event,omitempty"`

	Ping *struct {
		EventID int64 `json:"event_id"`
		PingMS  int64 `json:"ping_ms"`
	} `json:"ping_event,omitempty"`
}

// Connect dials the signed URL, sends the initiation data and waits for the
// agent's metadata. Every failure is returned as a connection_error; the
// transport cause stays reachable through errors.As.
func (s *ConvAIService) Connect(ctx context.Context, req ConvAIConnectRequest, handler ConvAIHandler) (*ConvAISession, error) {
	if s == nil || s.client == nil {
		return nil, core.NewInvalidRequestError("convai service is not initialized")
	}
	wsURL := strings.TrimSpace(req.SignedURL)
	if wsURL == "" {
		return nil, core.NewConnectionError("signed url is empty", nil)
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, defaultConvAIConnectTimeout)
		defer cancel()
	}

	conn, resp, err := s.client.dialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		cause := &TransportError{Op: http.MethodGet, URL: wsURL, Err: err}
		if resp != nil {
			cause.Err = fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, core.NewConnectionError("voice session unreachable", cause)
	}

	metadata, err := convaiHandshake(dialCtx, conn, req.DynamicVariables)
	if err != nil {
		_ = conn.Close()
		return nil, core.NewConnectionError("voice session rejected", err)
	}

	session := &ConvAISession{
		conn:     conn,
		handler:  handler,
		metadata: metadata,
		output:   req.AudioOutput,
		events:   make(chan convaiEvent, convAIEventBuffer),
		readDone: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   s.client.logger.With().Str("conversation_id", metadata.ConversationID).Logger(),
	}
	session.status.Store(int32(types.SessionConnected))
	session.events <- convaiEvent{kind: convaiConnected}

	go session.readLoop()
	go session.dispatchLoop()
	if req.AudioInput != nil {
		go session.pumpAudio(req.AudioInput)
	}
	session.logger.Info().Str("output_format", metadata.AgentOutputFormat).Msg("voice session connected")
	return session, nil
}

func convaiHandshake(ctx context.Context, conn *websocket.Conn, vars map[string]string) (ConvAIMetadata, error) {
	hello := convaiInitiation{Type: "conversation_initiation_client_data", DynamicVariables: vars}
	if err := conn.WriteJSON(hello); err != nil {
		return ConvAIMetadata{}, fmt.Errorf("send initiation data: %w", err)
	}

	deadline := time.Now().Add(defaultConvAIConnectTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			return ConvAIMetadata{}, fmt.Errorf("read initiation metadata: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var frame convaiFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			return ConvAIMetadata{}, fmt.Errorf("decode initiation metadata: %w", err)
		}
		switch frame.Type {
		case "conversation_initiation_metadata":
			if frame.Metadata == nil {
				return ConvAIMetadata{}, nil
			}
			return *frame.Metadata, nil
		case "ping":
			if frame.Ping != nil {
				if err := conn.WriteJSON(convaiPong{Type: "pong", EventID: frame.Ping.EventID}); err != nil {
					return ConvAIMetadata{}, fmt.Errorf("send pong: %w", err)
				}
			}
		default:
			return ConvAIMetadata{}, fmt.Errorf("unexpected first frame type %q", frame.Type)
		}
	}
}

// Metadata returns the handshake metadata.
func (s *ConvAISession) Metadata() ConvAIMetadata {
	if s == nil {
		return ConvAIMetadata{}
	}
	return s.metadata
}

// Status reports the session's connection status.
func (s *ConvAISession) Status() types.SessionStatus {
	if s == nil {
		return types.SessionDisconnected
	}
	return types.SessionStatus(s.status.Load())
}

// IsAgentSpeaking reports whether agent audio is currently playing out.
func (s *ConvAISession) IsAgentSpeaking() bool {
	return s != nil && s.speaking.Load()
}

// SendUserAudio streams one chunk of user PCM to the agent.
func (s *ConvAISession) SendUserAudio(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	return s.sendJSON(convaiUserAudio{UserAudioChunk: base64.StdEncoding.EncodeToString(pcm)})
}

func (s *ConvAISession) sendJSON(v any) error {
	if s == nil {
		return fmt.Errorf("session must not be nil")
	}
	if s.closed.Load() {
		return fmt.Errorf("voice session is closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// EndSession closes the session. It is safe to call on a nil or already
// closed session. OnDisconnect is delivered once the read side stops.
func (s *ConvAISession) EndSession() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	return nil
}

// Done is closed after the terminal callback has been delivered.
func (s *ConvAISession) Done() <-chan struct{} {
	if s == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Err returns the terminal session error (if any). It blocks until the
// session ends.
func (s *ConvAISession) Err() error {
	if s == nil {
		return nil
	}
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *ConvAISession) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *ConvAISession) readLoop() {
	defer close(s.readDone)
	defer close(s.events)

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.events <- convaiEvent{kind: convaiTerminal}
				return
			}
			s.events <- convaiEvent{kind: convaiTerminal, err: core.NewConnectionError("voice session lost", err)}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var frame convaiFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.Debug().Err(err).Msg("skipping undecodable voice frame")
			continue
		}
		s.handleFrame(frame)
	}
}

func (s *ConvAISession) handleFrame(frame convaiFrame) {
	switch frame.Type {
	case "agent_response":
		if frame.AgentResponse == nil {
			return
		}
		if text := strings.TrimSpace(frame.AgentResponse.AgentResponse); text != "" {
			s.events <- convaiEvent{kind: convaiMessage, text: text}
		}
	case "audio":
		if frame.Audio == nil {
			return
		}
		pcm, err := base64.StdEncoding.DecodeString(frame.Audio.AudioBase64)
		if err != nil || len(pcm) == 0 {
			return
		}
		if s.output != nil {
			if _, err := s.output.Write(pcm); err != nil {
				s.logger.Debug().Err(err).Msg("agent audio write failed")
			}
		}
		s.events <- convaiEvent{kind: convaiAudio, duration: pcmDuration(s.metadata.AgentOutputFormat, len(pcm))}
	case "interruption":
		s.flushOutput()
		s.events <- convaiEvent{kind: convaiInterruption}
	case "ping":
		if frame.Ping == nil {
			return
		}
		if err := s.sendJSON(convaiPong{Type: "pong", EventID: frame.Ping.EventID}); err != nil {
			s.logger.Debug().Err(err).Msg("pong failed")
		}
	case "user_transcript":
		if frame.UserTranscript != nil {
			s.logger.Debug().Str("transcript", frame.UserTranscript.UserTranscript).Msg("user transcript")
		}
	default:
		// Unknown frame types are ignored.
	}
}

// flushOutput drops agent audio already queued in the output sink when the
// sink supports it.
func (s *ConvAISession) flushOutput() {
	r, ok := s.output.(interface{ Reset() error })
	if !ok {
		return
	}
	if err := r.Reset(); err != nil {
		s.logger.Debug().Err(err).Msg("agent audio reset failed")
	}
}

// dispatchLoop serializes handler callbacks and owns the agent-speaking
// timer so mode changes never race with messages.
func (s *ConvAISession) dispatchLoop() {
	defer close(s.done)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	var speakingUntil time.Time

	setSpeaking := func(v bool) {
		if s.speaking.Swap(v) != v && s.handler.OnModeChange != nil {
			s.handler.OnModeChange(v)
		}
	}

	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				return
			}
			switch ev.kind {
			case convaiConnected:
				if s.handler.OnConnect != nil {
					s.handler.OnConnect(s.metadata)
				}
			case convaiMessage:
				if s.handler.OnMessage != nil {
					s.handler.OnMessage(ev.text)
				}
			case convaiAudio:
				now := time.Now()
				if speakingUntil.Before(now) {
					speakingUntil = now
				}
				speakingUntil = speakingUntil.Add(ev.duration)
				timer.Stop()
				timer.Reset(speakingUntil.Sub(now))
				setSpeaking(true)
			case convaiInterruption:
				timer.Stop()
				speakingUntil = time.Time{}
				setSpeaking(false)
			case convaiTerminal:
				timer.Stop()
				setSpeaking(false)
				s.status.Store(int32(types.SessionDisconnected))
				s.closed.Store(true)
				_ = s.conn.Close()
				if ev.err != nil {
					s.setErr(ev.err)
					s.logger.Warn().Err(ev.err).Msg("voice session error")
					if s.handler.OnError != nil {
						s.handler.OnError(ev.err)
					}
				} else {
					s.logger.Info().Msg("voice session disconnected")
					if s.handler.OnDisconnect != nil {
						s.handler.OnDisconnect()
					}
				}
				// Drain anything left so the reader can exit; nothing is
				// delivered after the terminal callback.
				for range s.events {
				}
				return
			}
		case <-timer.C:
			speakingUntil = time.Time{}
			setSpeaking(false)
		}
	}
}

func (s *ConvAISession) pumpAudio(r io.Reader) {
	buf := make([]byte, userAudioChunkBytes)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if sendErr := s.SendUserAudio(buf[:n]); sendErr != nil {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.closed.Load() {
				s.logger.Debug().Err(err).Msg("mic input ended")
			}
			return
		}
	}
}

// pcmDuration converts a PCM byte count in an ElevenLabs output format
// ("pcm_16000", "pcm_24000", ...) to play time. Unknown formats assume
// 16 kHz s16le mono.
func pcmDuration(format string, n int) time.Duration {
	rate := int64(16000)
	if rest, ok := strings.CutPrefix(strings.TrimSpace(format), "pcm_"); ok {
		if parsed, err := strconv.ParseInt(rest, 10, 64); err == nil && parsed > 0 {
			rate = parsed
		}
	}
	samples := int64(n) / 2
	return time.Duration(samples * int64(time.Second) / rate)
}
