package foodtrack

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vango-go/foodtrack/pkg/core"
)

// maxSpeechBytes bounds a synthesized clip read into memory.
const maxSpeechBytes = 16 << 20

// VoiceService wraps the backend's ElevenLabs endpoints.
type VoiceService struct {
	client *Client
}

type signedURLRequest struct {
	UserID string `json:"userId"`
}

type signedURLResponse struct {
	SignedURL string `json:"signedUrl"`
}

// SignedURL fetches a short-lived voice session URL for userID.
func (s *VoiceService) SignedURL(ctx context.Context, userID string) (string, error) {
	var out signedURLResponse
	if err := s.client.doJSON(ctx, http.MethodPost, "/api/elevenlabs/signed-url", signedURLRequest{UserID: userID}, &out); err != nil {
		return "", err
	}
	signed := strings.TrimSpace(out.SignedURL)
	if signed == "" {
		return "", core.NewAPIError("signed-url response carried no signedUrl")
	}
	return signed, nil
}

type ttsRequest struct {
	Text string `json:"text"`
}

// Synthesize asks the backend to render text as speech and returns the
// encoded audio payload (mp3 as served by the backend).
func (s *VoiceService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.NewInvalidRequestError("text is required")
	}
	req, err := s.client.newRequest(ctx, http.MethodPost, "/api/elevenlabs/tts", ttsRequest{Text: text})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "audio/mpeg")
	resp, err := s.client.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSpeechBytes+1))
	if err != nil {
		return nil, &TransportError{Op: http.MethodPost, URL: req.URL.String(), Err: err}
	}
	if len(data) > maxSpeechBytes {
		return nil, core.NewAPIError(fmt.Sprintf("synthesized audio exceeds %d bytes", maxSpeechBytes))
	}
	if len(data) == 0 {
		return nil, core.NewAPIError("synthesized audio is empty")
	}
	return data, nil
}
