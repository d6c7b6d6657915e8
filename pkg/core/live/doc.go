// Package live implements the voice conversation orchestrator for foodtrack.
//
// The Orchestrator owns the visible VoiceState and the Message Log and
// mediates between two mutually exclusive speech transports:
//
//   - remote: a real-time session with the conversational voice agent
//   - local: a one-shot on-device recognition pass, with replies spoken
//     through the PlaybackManager
//
// The remote transport is always tried first; the local one is selected only
// when the remote attempt fails.
//
// # Concurrency
//
// All state lives on a single event-loop goroutine. Blocking work (signed URL
// fetch, session connect, recognition, synthesis, food-log submission) runs
// in its own goroutine and posts its result back to the loop. Each voice
// attempt carries a generation number; Stop and Start bump it, and any result
// or adapter callback tagged with an older generation is dropped without
// touching state or the log. Readers get an immutable Snapshot published
// atomically after every loop step.
//
// # State Machine
//
//	idle ──Start──▶ thinking ──connected──▶ listening ◀──agent quiet── speaking
//	  ▲                │                        │  ──agent speaking──▶   │
//	  │                └──connect failed──▶ idle + local fallback        │
//	  └──────────── Stop / disconnect / error ◀──────────────────────────┘
//
// # Usage
//
//	o := live.New(live.Config{
//	    UserID:     user.ID,
//	    Broker:     client.Voice,
//	    Dialer:     live.NewConvAIDialer(client.ConvAI),
//	    Recognizer: stt.NewLocal(stt.LocalConfig{}),
//	    Responder:  classify.NewResponder(client.FoodLogs, logger),
//	    Speaker:    voice.NewPlaybackManager(tts.NewBackend(client.Voice), audio.NewClipPlayer("")),
//	})
//	defer o.Close()
//
//	o.ToggleVoice()
//	for ev := range o.Events() {
//	    render(o.Snapshot())
//	}
package live
