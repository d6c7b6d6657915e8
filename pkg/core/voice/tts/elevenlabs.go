package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	elevenLabsDefaultWSBase = "wss://api.elevenlabs.io/v1/text-to-speech/{voice_id}/stream-input"
	elevenLabsDefaultFormat = "mp3_44100_128"
	elevenLabsWriteTimeout  = 5 * time.Second
)

// ElevenLabsProvider synthesizes directly against the ElevenLabs stream-input
// websocket. It is used when the client holds its own API key.
type ElevenLabsProvider struct {
	apiKey    string
	voiceID   string
	wsBaseURL string
	dialer    *websocket.Dialer
}

// NewElevenLabs returns a provider for apiKey speaking with voiceID unless a
// call overrides the voice.
func NewElevenLabs(apiKey, voiceID string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey:    strings.TrimSpace(apiKey),
		voiceID:   strings.TrimSpace(voiceID),
		wsBaseURL: elevenLabsDefaultWSBase,
		dialer:    websocket.DefaultDialer,
	}
}

// WithWSBaseURL overrides the websocket endpoint template.
func (e *ElevenLabsProvider) WithWSBaseURL(base string) *ElevenLabsProvider {
	if e == nil {
		return e
	}
	base = strings.TrimSpace(base)
	if base != "" {
		e.wsBaseURL = base
	}
	return e
}

func (e *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

// Synthesize sends text as one flushed generation and collects audio chunks
// until the server marks the stream final.
func (e *ElevenLabsProvider) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	if e == nil || e.apiKey == "" {
		return nil, errors.New("elevenlabs api key is required")
	}
	voiceID := strings.TrimSpace(opts.Voice)
	if voiceID == "" {
		voiceID = e.voiceID
	}
	if voiceID == "" {
		return nil, errors.New("voice id is required")
	}
	format := strings.TrimSpace(opts.Format)
	if format == "" || format == "mp3" {
		format = elevenLabsDefaultFormat
	}
	wsURL, err := buildElevenLabsWSURL(e.wsBaseURL, voiceID, format)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("xi-api-key", e.apiKey)
	conn, _, err := e.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial elevenlabs: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	text = strings.TrimSpace(text)
	frames := []map[string]any{
		{"text": " "},
		{"text": text + " ", "flush": true},
		{"text": ""},
	}
	for _, frame := range frames {
		_ = conn.SetWriteDeadline(time.Now().Add(elevenLabsWriteTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			return nil, fmt.Errorf("send elevenlabs text: %w", err)
		}
	}

	var out []byte
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && len(out) > 0 {
				break
			}
			return nil, fmt.Errorf("read elevenlabs audio: %w", err)
		}
		var msg map[string]json.RawMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if apiErr := decodeStringRaw(msg["error"]); apiErr != "" {
			return nil, fmt.Errorf("elevenlabs: %s", apiErr)
		}
		if audioB64 := decodeStringRaw(msg["audio"]); audioB64 != "" {
			if audio, err := base64.StdEncoding.DecodeString(audioB64); err == nil {
				out = append(out, audio...)
			}
		}
		if decodeBoolRaw(msg["isFinal"]) || decodeBoolRaw(msg["is_final"]) {
			break
		}
	}
	if len(out) == 0 {
		return nil, errors.New("elevenlabs returned no audio")
	}
	return &Synthesis{Audio: out, Format: format}, nil
}

func buildElevenLabsWSURL(base, voiceID, format string) (string, error) {
	if strings.TrimSpace(base) == "" {
		base = elevenLabsDefaultWSBase
	}
	base = strings.ReplaceAll(base, "{voice_id}", url.PathEscape(voiceID))
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid elevenlabs ws url: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "wss"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/v1/text-to-speech/" + url.PathEscape(voiceID) + "/stream-input"
	}
	q := u.Query()
	if q.Get("model_id") == "" {
		q.Set("model_id", "eleven_flash_v2_5")
	}
	if q.Get("output_format") == "" {
		q.Set("output_format", format)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func decodeStringRaw(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func decodeBoolRaw(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var out bool
	if err := json.Unmarshal(raw, &out); err != nil {
		return false
	}
	return out
}
