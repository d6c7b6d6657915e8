package foodtrack

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/vango-go/foodtrack/pkg/core"
)

// Error is the SDK-level alias of the shared typed error.
type Error = core.Error

// TransportError represents HTTP or websocket transport-level failures (DNS,
// timeouts, connection reset, TLS handshake, etc.) while talking to the
// backend or the voice agent.
//
// Use errors.As(err, &TransportError{}) to distinguish transport failures
// from API errors (*core.Error).
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Op != "" && e.URL != "":
		return fmt.Sprintf("transport error during %s %s: %v", e.Op, redactURL(e.URL), e.Err)
	case e.Op != "":
		return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("transport error: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// redactURL drops user info and the query string. Signed voice URLs carry
// their credential in the query.
func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil {
		return raw
	}
	parsed.User = nil
	if parsed.RawQuery != "" {
		parsed.RawQuery = "redacted"
	}
	return parsed.String()
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decodeErrorResponse(resp *http.Response) *core.Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(raw))

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case strings.TrimSpace(body.Error) != "":
			msg = strings.TrimSpace(body.Error)
		case strings.TrimSpace(body.Message) != "":
			msg = strings.TrimSpace(body.Message)
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	errType := core.ErrAPI
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		errType = core.ErrAuthentication
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		errType = core.ErrInvalidRequest
	}
	return &core.Error{
		Type:       errType,
		Message:    msg,
		StatusCode: resp.StatusCode,
	}
}
