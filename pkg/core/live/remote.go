package live

import (
	"context"
	"io"

	foodtrack "github.com/vango-go/foodtrack/sdk"
)

// ConvAIDialer dials the remote agent through the SDK's ConvAIService.
type ConvAIDialer struct {
	service *foodtrack.ConvAIService
	input   func() (io.ReadCloser, error)
	output  func() (io.WriteCloser, error)
}

// ConvAIDialerOption configures a ConvAIDialer.
type ConvAIDialerOption func(*ConvAIDialer)

// WithAudioInput opens a fresh mic stream for every session.
func WithAudioInput(open func() (io.ReadCloser, error)) ConvAIDialerOption {
	return func(d *ConvAIDialer) { d.input = open }
}

// WithAudioOutput opens a fresh speaker sink for every session.
func WithAudioOutput(open func() (io.WriteCloser, error)) ConvAIDialerOption {
	return func(d *ConvAIDialer) { d.output = open }
}

// NewConvAIDialer wraps service.
func NewConvAIDialer(service *foodtrack.ConvAIService, opts ...ConvAIDialerOption) *ConvAIDialer {
	d := &ConvAIDialer{service: service}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dial connects with user_id as the session's dynamic variable. Audio devices
// are opened per session and closed when the session ends.
func (d *ConvAIDialer) Dial(ctx context.Context, signedURL, userID string, h RemoteHandler) (RemoteSession, error) {
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	req := foodtrack.ConvAIConnectRequest{
		SignedURL:        signedURL,
		DynamicVariables: map[string]string{"user_id": userID},
	}
	if d.input != nil {
		in, err := d.input()
		if err != nil {
			return nil, err
		}
		closers = append(closers, in)
		req.AudioInput = in
	}
	if d.output != nil {
		out, err := d.output()
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, out)
		req.AudioOutput = out
	}

	session, err := d.service.Connect(ctx, req, foodtrack.ConvAIHandler{
		OnConnect:    func(foodtrack.ConvAIMetadata) { call(h.OnConnect) },
		OnMessage:    h.OnMessage,
		OnModeChange: h.OnModeChange,
		OnDisconnect: func() { closeAll(); call(h.OnDisconnect) },
		OnError: func(err error) {
			closeAll()
			if h.OnError != nil {
				h.OnError(err)
			}
		},
	})
	if err != nil {
		closeAll()
		return nil, err
	}
	return session, nil
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
