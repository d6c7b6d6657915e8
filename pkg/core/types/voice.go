package types

// VoiceState is the visible state of the voice conversation.
type VoiceState int

const (
	// VoiceIdle means no voice activity; the mic is available.
	VoiceIdle VoiceState = iota
	// VoiceListening means a remote session is open and waiting for the user.
	VoiceListening
	// VoiceThinking means a session attempt is in flight.
	VoiceThinking
	// VoiceSpeaking means the remote agent is talking.
	VoiceSpeaking
)

// String returns the state name.
func (s VoiceState) String() string {
	switch s {
	case VoiceIdle:
		return "idle"
	case VoiceListening:
		return "listening"
	case VoiceThinking:
		return "thinking"
	case VoiceSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// StatusText is the short label shown under the waveform.
func (s VoiceState) StatusText() string {
	switch s {
	case VoiceListening:
		return "🎙️ Listening..."
	case VoiceSpeaking:
		return "🗣️ Speaking..."
	case VoiceThinking:
		return "⏳ Connecting..."
	default:
		return "Tap to start speaking"
	}
}

// SessionStatus is the connection status of a remote voice session.
type SessionStatus int

const (
	SessionDisconnected SessionStatus = iota
	SessionConnecting
	SessionConnected
)

// String returns the status name.
func (s SessionStatus) String() string {
	switch s {
	case SessionDisconnected:
		return "disconnected"
	case SessionConnecting:
		return "connecting"
	case SessionConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Audio format constants
const (
	AudioFormatPCM16k = "pcm_16000"
	AudioFormatPCM24k = "pcm_24000"
	AudioFormatMP3    = "mp3"
)
