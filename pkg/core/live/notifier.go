package live

// NoticeLevel grades a user notification.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// User-facing notification texts.
const (
	NoticeConnectionError = "Voice connection error"
	NoticeUnsupported     = "Speech recognition not supported on this host"
	NoticeListening       = "Listening... Speak now!"
	NoticeHeard           = "Got it!"
	NoticeHeardDraft      = "Got it! Press send or edit your message."
	NoticeNotUnderstood   = "Could not understand. Please try again."
	NoticeSendFailed      = "Failed to process your message"
)

// Notifier shows short user notifications (toasts). Implementations must not
// block; they are called from the orchestrator loop.
type Notifier interface {
	Notify(level NoticeLevel, text string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level NoticeLevel, text string)

func (f NotifierFunc) Notify(level NoticeLevel, text string) { f(level, text) }

// NopNotifier drops notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(NoticeLevel, string) {}
