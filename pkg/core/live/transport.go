package live

import (
	"context"

	"github.com/vango-go/foodtrack/pkg/core"
	"github.com/vango-go/foodtrack/pkg/core/voice/stt"
)

// RemoteSession is an open remote agent session.
type RemoteSession interface {
	// EndSession closes the session; safe to call more than once.
	EndSession() error
}

// RemoteHandler receives remote session events. The dialer must deliver
// them on one goroutine and stop after OnDisconnect or OnError.
type RemoteHandler struct {
	OnConnect    func()
	OnMessage    func(text string)
	OnModeChange func(speaking bool)
	OnDisconnect func()
	OnError      func(err error)
}

// RemoteDialer opens remote agent sessions.
type RemoteDialer interface {
	Dial(ctx context.Context, signedURL, userID string, h RemoteHandler) (RemoteSession, error)
}

// speechTransport is one way of hearing the user. Exactly one is active at a
// time; the remote variant is tried first and the local one is the fallback.
type speechTransport interface {
	kind() string
	// begin starts the transport's async work for generation gen. It runs
	// on the loop.
	begin(gen uint64)
	// end tears the transport down. It runs on the loop and is idempotent.
	end()
}

// remoteTransport fetches a signed URL and dials the agent.
type remoteTransport struct {
	o       *Orchestrator
	cancel  context.CancelFunc
	session RemoteSession
}

func (t *remoteTransport) kind() string { return "remote" }

func (t *remoteTransport) begin(gen uint64) {
	o := t.o
	ctx, cancel := context.WithTimeout(o.ctx, o.cfg.ConnectTimeout)
	t.cancel = cancel
	handler := o.remoteHandler(gen)
	userID := o.cfg.UserID

	broker, dialer := o.cfg.Broker, o.cfg.Dialer

	go func() {
		var session RemoteSession
		if broker == nil || dialer == nil {
			o.post(func() {
				o.onConnectResult(gen, nil, core.NewConnectionError("voice agent not configured", nil))
			})
			return
		}
		signedURL, err := broker.SignedURL(ctx, userID)
		if err == nil {
			session, err = dialer.Dial(ctx, signedURL, userID, handler)
		}
		o.post(func() { o.onConnectResult(gen, session, err) })
	}()
}

func (t *remoteTransport) end() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.session != nil {
		_ = t.session.EndSession()
		t.session = nil
	}
}

// localTransport runs a single on-device recognition pass.
type localTransport struct {
	o      *Orchestrator
	cancel context.CancelFunc
}

func (t *localTransport) kind() string { return "local" }

func (t *localTransport) begin(gen uint64) {
	o := t.o
	ctx, cancel := context.WithCancel(o.ctx)
	t.cancel = cancel
	recognizer := o.cfg.Recognizer

	go recognizer.Recognize(ctx, func(res stt.Result) {
		o.post(func() { o.onRecognition(gen, res) })
	})
}

func (t *localTransport) end() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}
