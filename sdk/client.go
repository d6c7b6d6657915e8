// Package foodtrack is the Go client for the foodtrack backend and the
// remote conversational voice agent it brokers.
//
// The backend owns persistence and credentials; this package only speaks its
// REST API and opens the real-time voice session with a signed URL it hands
// out.
package foodtrack

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "http://localhost:4000"

// Client is the main entry point for the SDK.
type Client struct {
	Auth     *AuthService
	Voice    *VoiceService
	FoodLogs *FoodLogsService
	ConvAI   *ConvAIService

	baseURL    string
	token      string
	httpClient *http.Client
	dialer     *websocket.Dialer
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewClient creates a client for the backend at WithBaseURL (default
// http://localhost:4000).
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: newDefaultHTTPClient(),
		dialer:     websocket.DefaultDialer,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseURL = strings.TrimRight(strings.TrimSpace(c.baseURL), "/")

	c.Auth = &AuthService{client: c}
	c.Voice = &VoiceService{client: c}
	c.FoodLogs = &FoodLogsService{client: c}
	c.ConvAI = &ConvAIService{client: c}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken replaces the bearer token sent with backend calls.
func (c *Client) SetToken(token string) {
	c.token = strings.TrimSpace(token)
}
