package stt

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vango-go/foodtrack/pkg/core"
	"github.com/vango-go/foodtrack/pkg/core/audio"
)

const (
	// DefaultCommand is the whisper.cpp CLI looked up on PATH.
	DefaultCommand = "whisper-cli"
	// DefaultLanguage is the recognition language when none is configured.
	DefaultLanguage = "en-US"
	// DefaultMaxDuration caps one recording pass.
	DefaultMaxDuration = 7 * time.Second
)

// LocalConfig configures a LocalRecognizer.
type LocalConfig struct {
	Command     string        // recognizer binary (whisper.cpp CLI)
	Model       string        // model file passed with -m
	Language    string        // BCP 47 tag; only the primary subtag is sent
	MaxDuration time.Duration // length of the recorded clip
	Device      string        // capture device override
	Logger      zerolog.Logger
}

// LocalRecognizer records a bounded clip with ffmpeg and transcribes it once
// with a whisper.cpp style CLI.
type LocalRecognizer struct {
	cfg LocalConfig

	lookPath   func(string) (string, error)
	record     func(ctx context.Context, outPath string) error
	transcribe func(ctx context.Context, wavPath string) (string, error)
}

// NewLocal returns a recognizer with defaults filled in.
func NewLocal(cfg LocalConfig) *LocalRecognizer {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = DefaultCommand
	}
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	r := &LocalRecognizer{cfg: cfg, lookPath: exec.LookPath}
	r.record = func(ctx context.Context, outPath string) error {
		return audio.RecordWAV(ctx, r.cfg.Device, r.cfg.MaxDuration, outPath)
	}
	r.transcribe = r.runCommand
	return r
}

// Available checks for the capture tool and the recognizer binary.
func (r *LocalRecognizer) Available() error {
	if _, err := audio.MicInputArgs(runtime.GOOS, r.cfg.Device); err != nil {
		return core.NewUnsupportedError(err.Error())
	}
	for _, bin := range []string{"ffmpeg", r.cfg.Command} {
		if _, err := r.lookPath(bin); err != nil {
			return core.NewUnsupportedError(fmt.Sprintf("speech recognition needs %s in PATH", bin))
		}
	}
	return nil
}

// Recognize records one clip and transcribes it. onResult fires once.
func (r *LocalRecognizer) Recognize(ctx context.Context, onResult func(Result)) {
	if onResult == nil {
		onResult = func(Result) {}
	}
	if err := r.Available(); err != nil {
		onResult(Result{Err: err})
		return
	}
	transcript, err := r.pass(ctx)
	if err != nil {
		r.cfg.Logger.Debug().Err(err).Msg("local recognition failed")
		onResult(Result{Err: err})
		return
	}
	r.cfg.Logger.Debug().Int("chars", len(transcript)).Msg("local recognition complete")
	onResult(Result{Transcript: transcript})
}

func (r *LocalRecognizer) pass(ctx context.Context) (string, error) {
	dir, err := os.MkdirTemp("", "foodtrack-stt-*")
	if err != nil {
		return "", fmt.Errorf("create recording dir: %w", err)
	}
	defer os.RemoveAll(dir)

	wavPath := filepath.Join(dir, "utterance.wav")
	if err := r.record(ctx, wavPath); err != nil {
		return "", fmt.Errorf("record utterance: %w", err)
	}
	text, err := r.transcribe(ctx, wavPath)
	if err != nil {
		return "", fmt.Errorf("transcribe utterance: %w", err)
	}
	text = cleanTranscript(text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// Args builds the recognizer command line for wavPath.
func (r *LocalRecognizer) Args(wavPath string) []string {
	args := []string{"-nt", "-np", "-l", primaryLanguage(r.cfg.Language)}
	if model := strings.TrimSpace(r.cfg.Model); model != "" {
		args = append(args, "-m", model)
	}
	return append(args, "-f", wavPath)
}

func (r *LocalRecognizer) runCommand(ctx context.Context, wavPath string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.cfg.Command, r.Args(wavPath)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", err
		}
		return "", fmt.Errorf("%w: %s", err, msg)
	}
	return stdout.String(), nil
}

// cleanTranscript joins output lines and drops whisper's non-speech markers
// such as [BLANK_AUDIO] or (silence).
func cleanTranscript(raw string) string {
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isNonSpeechMarker(line) {
			continue
		}
		parts = append(parts, line)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func isNonSpeechMarker(s string) bool {
	return (strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")) ||
		(strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"))
}

func primaryLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	if tag == "" {
		return "en"
	}
	return strings.ToLower(tag)
}
