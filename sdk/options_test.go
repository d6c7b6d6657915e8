package foodtrack

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient()
	if client.httpClient == nil {
		t.Fatal("expected default http client")
	}
	if client.dialer == nil {
		t.Fatal("expected default websocket dialer")
	}
	if client.limiter != nil {
		t.Error("rate limiting should be off by default")
	}
	if client.Auth == nil || client.Voice == nil || client.FoodLogs == nil || client.ConvAI == nil {
		t.Fatal("services must be initialized")
	}
}

func TestWithHTTPClient(t *testing.T) {
	custom := &http.Client{Timeout: 3 * time.Second}
	client := NewClient(WithHTTPClient(custom))
	if client.httpClient != custom {
		t.Error("custom http client not applied")
	}
	if NewClient(WithHTTPClient(nil)).httpClient == nil {
		t.Error("nil http client must keep the default")
	}
}

func TestWithTimeout(t *testing.T) {
	client := NewClient(WithTimeout(7 * time.Second))
	if client.httpClient.Timeout != 7*time.Second {
		t.Errorf("timeout = %v, want 7s", client.httpClient.Timeout)
	}
}

func TestWithDialer(t *testing.T) {
	d := &websocket.Dialer{HandshakeTimeout: time.Second}
	if NewClient(WithDialer(d)).dialer != d {
		t.Error("custom dialer not applied")
	}
}

func TestWithRateLimit(t *testing.T) {
	client := NewClient(WithRateLimit(5, 0))
	if client.limiter == nil {
		t.Fatal("expected limiter")
	}
	if client.limiter.Burst() != 1 {
		t.Errorf("burst = %d, want 1", client.limiter.Burst())
	}
	if NewClient(WithRateLimit(5, 2), WithRateLimit(0, 0)).limiter != nil {
		t.Error("zero rate must disable the limiter")
	}
}

func TestWithTokenAndLogger(t *testing.T) {
	client := NewClient(WithToken("tok"), WithLogger(zerolog.Nop()))
	if client.token != "tok" {
		t.Errorf("token = %q", client.token)
	}
	client.SetToken("other")
	if client.token != "other" {
		t.Errorf("token after SetToken = %q", client.token)
	}
}
