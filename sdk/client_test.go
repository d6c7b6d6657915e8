package foodtrack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-go/foodtrack/pkg/core"
	"github.com/vango-go/foodtrack/pkg/core/types"
)

func newBackendTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(WithBaseURL(server.URL+"/"), WithTimeout(5*time.Second))
}

func TestNewClient_TrimsBaseURL(t *testing.T) {
	t.Parallel()

	c := NewClient(WithBaseURL(" https://api.example.com/ "))
	assert.Equal(t, "https://api.example.com", c.BaseURL())
	assert.Equal(t, defaultBaseURL, NewClient().BaseURL())
}

func TestAuthLogin_SetsTokenForLaterCalls(t *testing.T) {
	t.Parallel()

	var sawAuth string
	c := newBackendTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.Header.Get(ngrokSkipHeader))
		switch r.URL.Path {
		case "/api/auth/login":
			var body loginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ada@example.com", body.Email)
			assert.Equal(t, "pw", body.Password)
			_, _ = io.WriteString(w, `{"token":"tok_1","user":{"id":"u_1","email":"ada@example.com","name":"Ada"}}`)
		case "/api/elevenlabs/signed-url":
			sawAuth = r.Header.Get("Authorization")
			_, _ = io.WriteString(w, `{"signedUrl":"wss://agent.example/convai?token=x"}`)
		default:
			http.NotFound(w, r)
		}
	})

	creds, err := c.Auth.Login(context.Background(), " ada@example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok_1", creds.Token)
	assert.Equal(t, "Ada", creds.User.DisplayName())

	signed, err := c.Voice.SignedURL(context.Background(), "u_1")
	require.NoError(t, err)
	assert.Equal(t, "wss://agent.example/convai?token=x", signed)
	assert.Equal(t, "Bearer tok_1", sawAuth)
}

func TestAuthLogin_ErrorBody(t *testing.T) {
	t.Parallel()

	c := newBackendTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"Invalid credentials"}`)
	})

	_, err := c.Auth.Login(context.Background(), "ada@example.com", "bad")
	require.Error(t, err)
	var apiErr *core.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, core.ErrAuthentication, apiErr.Type)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestAuthLogin_RequiresFields(t *testing.T) {
	t.Parallel()

	_, err := NewClient().Auth.Login(context.Background(), "", "pw")
	assert.True(t, core.IsType(err, core.ErrInvalidRequest))
}

func TestVoiceSignedURL_NonOKIsAPIError(t *testing.T) {
	t.Parallel()

	c := newBackendTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "agent not configured")
	})

	_, err := c.Voice.SignedURL(context.Background(), "u_1")
	require.Error(t, err)
	assert.True(t, core.IsType(err, core.ErrAPI))
	assert.Contains(t, err.Error(), "agent not configured")
}

func TestVoiceSignedURL_TransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := NewClient(WithBaseURL(url))
	_, err := c.Voice.SignedURL(context.Background(), "u_1")
	require.Error(t, err)
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.MethodPost, transportErr.Op)
}

func TestVoiceSynthesize_ReturnsPayload(t *testing.T) {
	t.Parallel()

	c := newBackendTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/elevenlabs/tts", r.URL.Path)
		var body ttsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body.Text)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte{0xff, 0xfb, 0x90, 0x00})
	})

	data, err := c.Voice.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfb, 0x90, 0x00}, data)

	_, err = c.Voice.Synthesize(context.Background(), "  ")
	assert.True(t, core.IsType(err, core.ErrInvalidRequest))
}

func TestVoiceSynthesize_EmptyPayload(t *testing.T) {
	t.Parallel()

	c := newBackendTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	_, err := c.Voice.Synthesize(context.Background(), "hello")
	assert.True(t, core.IsType(err, core.ErrAPI))
}

func TestFoodLogsSubmit_WireShape(t *testing.T) {
	t.Parallel()

	var got map[string]any
	c := newBackendTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/food-logs", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	err := c.FoodLogs.Submit(context.Background(), types.FoodLogEntry{
		UserID:    "u_1",
		MealType:  types.MealLunch,
		FoodItems: []string{"soup for lunch"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"userId":    "u_1",
		"mealType":  "lunch",
		"foodItems": []any{"soup for lunch"},
		"notes":     nil,
	}, got)
}

func TestFoodLogsSubmit_Validation(t *testing.T) {
	t.Parallel()

	c := NewClient()
	err := c.FoodLogs.Submit(context.Background(), types.FoodLogEntry{MealType: types.MealLunch})
	assert.True(t, core.IsType(err, core.ErrInvalidRequest))
	err = c.FoodLogs.Submit(context.Background(), types.FoodLogEntry{UserID: "u_1", MealType: "brunch"})
	assert.True(t, core.IsType(err, core.ErrInvalidRequest))
}

func TestFoodLogsList_DecodesFoodItems(t *testing.T) {
	t.Parallel()

	c := newBackendTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "u 1", r.URL.Query().Get("userId"))
		_, _ = io.WriteString(w, `[
			{"id":"1","userId":"u 1","mealType":"breakfast","foodItems":"[\"oatmeal\"]","notes":null,
			 "loggedAt":"2026-10-18T08:00:00Z","createdAt":"2026-10-18T08:00:01Z"},
			{"id":"2","userId":"u 1","mealType":"snack","foodItems":"almonds","notes":"late",
			 "loggedAt":"2026-10-18T15:00:00Z","createdAt":"2026-10-18T15:00:01Z"}
		]`)
	})

	logs, err := c.FoodLogs.List(context.Background(), "u 1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, types.FoodItems{"oatmeal"}, logs[0].FoodItems)
	assert.Equal(t, types.FoodItems{"almonds"}, logs[1].FoodItems)
	require.NotNil(t, logs[1].Notes)
	assert.Equal(t, "late", *logs[1].Notes)
	assert.Equal(t, 8, logs[0].LoggedAt.Hour())
}

func TestWithRateLimit_CancelledContext(t *testing.T) {
	t.Parallel()

	calls := 0
	c := newBackendTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = io.WriteString(w, `{"signedUrl":"wss://x"}`)
	})
	WithRateLimit(0.001, 1)(c)

	_, err := c.Voice.SignedURL(context.Background(), "u_1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Voice.SignedURL(ctx, "u_1")
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, 1, calls)
}

func TestTransportError_RedactsSignedQuery(t *testing.T) {
	t.Parallel()

	err := &TransportError{Op: "GET", URL: "wss://user:pw@agent.example/v1/convai?token=secret", Err: errors.New("boom")}
	assert.NotContains(t, err.Error(), "secret")
	assert.NotContains(t, err.Error(), "pw@")
	assert.Contains(t, err.Error(), "agent.example")
	assert.Equal(t, "", (*TransportError)(nil).Error())
}
