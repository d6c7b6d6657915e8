package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/vango-go/foodtrack/internal/config"
	"github.com/vango-go/foodtrack/pkg/core/audio"
	"github.com/vango-go/foodtrack/pkg/core/classify"
	"github.com/vango-go/foodtrack/pkg/core/live"
	"github.com/vango-go/foodtrack/pkg/core/types"
	"github.com/vango-go/foodtrack/pkg/core/voice"
	"github.com/vango-go/foodtrack/pkg/core/voice/stt"
	"github.com/vango-go/foodtrack/pkg/core/voice/tts"
	foodtrack "github.com/vango-go/foodtrack/sdk"
)

const chatHelp = "Type what you ate, /voice to talk, /stop to end voice, /quit to leave."

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:   "chat",
		Usage:  "Talk to the food tracking assistant",
		Action: runChat,
	}
}

func runChat(c *cli.Context) error {
	e := envFrom(c)
	creds, err := e.session()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := e.client(creds)
	o, speaker := newOrchestrator(ctx, e, client, creds.User)
	defer speaker.Wait()
	defer o.Close()

	fmt.Fprintf(e.out, "Hi %s! %s\n", creds.User.DisplayName(), chatHelp)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		render(e.out, o)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := e.in.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			o.Close()
			wg.Wait()
			return nil
		case line, ok := <-lines:
			if !ok || !handleLine(e.out, o, line) {
				o.Close()
				wg.Wait()
				return nil
			}
		}
	}
}

// handleLine applies one input line and reports whether the chat continues.
func handleLine(out io.Writer, o *live.Orchestrator, line string) bool {
	switch cmd := strings.TrimSpace(line); cmd {
	case "/quit", "/exit":
		return false
	case "/voice":
		o.ToggleVoice()
	case "/stop":
		o.Stop()
	case "/help":
		fmt.Fprintln(out, chatHelp)
	case "":
		if draft := o.Snapshot().Draft; draft != "" {
			o.Send(draft)
		}
	default:
		if !o.Send(cmd) {
			fmt.Fprintln(out, "(still working on your last message)")
		}
	}
	return true
}

// render prints events until the orchestrator closes.
func render(out io.Writer, o *live.Orchestrator) {
	for ev := range o.Events() {
		switch ev := ev.(type) {
		case *live.MessageAppendedEvent:
			fmt.Fprintf(out, "%s> %s\n", ev.Message.Role, ev.Message.Content)
		case *live.StateChangedEvent:
			fmt.Fprintf(out, "[%s]\n", ev.To.StatusText())
		case *live.DraftEvent:
			fmt.Fprintf(out, "draft> %s  (enter to send, or type a correction)\n", ev.Text)
		}
	}
}

func newOrchestrator(ctx context.Context, e *env, client *foodtrack.Client, user types.User) (*live.Orchestrator, *voice.PlaybackManager) {
	cfg := e.cfg

	var dialOpts []live.ConvAIDialerOption
	if cfg.Voice.MicInput {
		dialOpts = append(dialOpts, live.WithAudioInput(func() (io.ReadCloser, error) {
			mic, err := audio.NewMicCapture(ctx, cfg.Voice.MicDevice)
			if err != nil {
				return nil, err
			}
			return mic, nil
		}))
	}
	if cfg.Voice.SpeakerOutput {
		dialOpts = append(dialOpts, live.WithAudioOutput(func() (io.WriteCloser, error) {
			player, err := audio.NewPCMPlayer(cfg.Playback.PlayerCommand, audio.MicSampleRateHz)
			if err != nil {
				return nil, err
			}
			return player, nil
		}))
	}

	// The speaker is built before the orchestrator it reports to.
	var current atomic.Pointer[live.Orchestrator]
	speaker := voice.NewPlaybackManager(
		ttsProvider(cfg, client),
		audio.NewClipPlayer(cfg.Playback.PlayerCommand),
		voice.WithPlaybackLogger(e.logger),
		voice.WithSpeakingObserver(func(speaking bool) {
			if o := current.Load(); o != nil {
				o.PlaybackChanged(speaking)
			}
		}),
	)

	o := live.New(live.Config{
		UserID: user.ID,
		Broker: client.Voice,
		Dialer: live.NewConvAIDialer(client.ConvAI, dialOpts...),
		Recognizer: stt.NewLocal(stt.LocalConfig{
			Command:     cfg.Fallback.RecognizerCommand,
			Model:       cfg.Fallback.Model,
			Language:    cfg.Fallback.Language,
			MaxDuration: cfg.Fallback.MaxDuration,
			Device:      cfg.Voice.MicDevice,
			Logger:      e.logger,
		}),
		Responder: classify.NewResponder(client.FoodLogs, e.logger),
		Speaker:   speaker,
		Notifier: live.NotifierFunc(func(level live.NoticeLevel, text string) {
			fmt.Fprintf(e.out, "(%s) %s\n", level, text)
		}),
		DraftOnly: !cfg.Fallback.AutoSubmit,
		Logger:    e.logger,
	})
	current.Store(o)
	return o, speaker
}

func ttsProvider(cfg *config.Config, client *foodtrack.Client) tts.Provider {
	if cfg.Voice.TTSProvider == config.TTSElevenLabs {
		return tts.NewElevenLabs(cfg.Voice.ElevenLabsAPIKey, cfg.Voice.ElevenLabsVoiceID)
	}
	return tts.NewBackend(client.Voice)
}
