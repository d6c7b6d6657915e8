package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	// MicSampleRateHz is the capture rate expected by both the agent and the
	// local recognizer.
	MicSampleRateHz = 16000
	captureCommand  = "ffmpeg"
)

// MicInputArgs returns the ffmpeg input flags for the default capture device
// on goos. device overrides the platform default ("default" on pulse,
// ":0" on avfoundation).
func MicInputArgs(goos, device string) ([]string, error) {
	device = strings.TrimSpace(device)
	switch goos {
	case "darwin":
		if device == "" {
			device = ":0"
		}
		return []string{"-f", "avfoundation", "-i", device}, nil
	case "linux":
		if device == "" {
			device = "default"
		}
		return []string{"-f", "pulse", "-i", device}, nil
	default:
		return nil, fmt.Errorf("mic capture is not implemented for %s; supported platforms: darwin, linux", goos)
	}
}

// CaptureAvailable reports whether ffmpeg mic capture can work on this host.
func CaptureAvailable() error {
	if _, err := MicInputArgs(runtime.GOOS, ""); err != nil {
		return err
	}
	if _, err := exec.LookPath(captureCommand); err != nil {
		return errors.New("ffmpeg is required for mic capture (install ffmpeg and ensure it is in PATH)")
	}
	return nil
}

// MicCapture streams s16le mono PCM at MicSampleRateHz from the default
// input device.
type MicCapture struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

// NewMicCapture starts ffmpeg. The process stops when ctx is done or Close is
// called.
func NewMicCapture(ctx context.Context, device string) (*MicCapture, error) {
	if err := CaptureAvailable(); err != nil {
		return nil, err
	}
	input, err := MicInputArgs(runtime.GOOS, device)
	if err != nil {
		return nil, err
	}
	args := append([]string{"-hide_banner", "-loglevel", "error"}, input...)
	args = append(args, "-ac", "1", "-ar", strconv.Itoa(MicSampleRateHz), "-f", "s16le", "-")

	cmd := exec.CommandContext(ctx, captureCommand, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg mic capture: %w", err)
	}
	return &MicCapture{cmd: cmd, stdout: stdout}, nil
}

func (m *MicCapture) Read(p []byte) (int, error) {
	if m == nil || m.stdout == nil {
		return 0, io.EOF
	}
	return m.stdout.Read(p)
}

func (m *MicCapture) Close() error {
	if m == nil {
		return nil
	}
	if m.cmd != nil && m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
		_ = m.cmd.Wait()
	}
	return nil
}

// RecordArgs builds the ffmpeg argument list for a bounded WAV recording.
func RecordArgs(input []string, d time.Duration, outPath string) []string {
	args := append([]string{"-hide_banner", "-loglevel", "error", "-y"}, input...)
	return append(args,
		"-t", strconv.FormatFloat(d.Seconds(), 'f', 2, 64),
		"-ac", "1",
		"-ar", strconv.Itoa(MicSampleRateHz),
		"-c:a", "pcm_s16le",
		outPath,
	)
}

// RecordWAV captures d of audio from device into a 16 kHz mono WAV file at
// outPath.
func RecordWAV(ctx context.Context, device string, d time.Duration, outPath string) error {
	if d <= 0 {
		return errors.New("record duration must be positive")
	}
	input, err := MicInputArgs(runtime.GOOS, device)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, captureCommand, RecordArgs(input, d, outPath)...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg record: %w", err)
	}
	return nil
}
