package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestNewClip_WritesAndReleases(t *testing.T) {
	t.Parallel()

	clip, err := NewClip([]byte("ID3payload"), "mp3")
	require.NoError(t, err)
	assert.FileExists(t, clip.Path())
	assert.Equal(t, ".mp3", clip.Path()[len(clip.Path())-4:])

	data, err := os.ReadFile(clip.Path())
	require.NoError(t, err)
	assert.Equal(t, "ID3payload", string(data))

	require.NoError(t, clip.Release())
	assert.NoFileExists(t, clip.Path())
	require.NoError(t, clip.Release())

	var nilClip *Clip
	assert.NoError(t, nilClip.Release())
}

func TestNewClip_RejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := NewClip(nil, ".mp3")
	assert.Error(t, err)
}

func TestClipPlayer_ReleasesAfterPlayback(t *testing.T) {
	t.Parallel()
	requireShell(t)

	clip, err := NewClip([]byte("audio"), ".mp3")
	require.NoError(t, err)

	var sawFile bool
	player := &ClipPlayer{
		Command: "sh",
		Args: func(path string) []string {
			_, statErr := os.Stat(path)
			sawFile = statErr == nil
			return []string{"-c", `test -f "$0"`, path}
		},
	}
	require.NoError(t, player.Play(context.Background(), clip))
	assert.True(t, sawFile)
	assert.NoFileExists(t, clip.Path())
}

func TestClipPlayer_CancelKillsAndReleases(t *testing.T) {
	t.Parallel()
	requireShell(t)

	clip, err := NewClip([]byte("audio"), ".mp3")
	require.NoError(t, err)

	player := &ClipPlayer{
		Command: "sh",
		Args:    func(string) []string { return []string{"-c", "sleep 10"} },
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- player.Play(ctx, clip) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled), "err = %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("Play did not return after cancel")
	}
	assert.NoFileExists(t, clip.Path())
}

func TestClipPlayer_CommandFailure(t *testing.T) {
	t.Parallel()
	requireShell(t)

	clip, err := NewClip([]byte("audio"), "")
	require.NoError(t, err)
	player := &ClipPlayer{Command: "sh", Args: func(string) []string { return []string{"-c", "exit 3"} }}
	err = player.Play(context.Background(), clip)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run sh")
	assert.NoFileExists(t, clip.Path())
}

func TestClipPlayer_DefaultArgs(t *testing.T) {
	t.Parallel()

	p := NewClipPlayer("")
	assert.Equal(t, DefaultPlayerCommand, p.command())
	assert.Equal(t, []string{"-nodisp", "-autoexit", "-loglevel", "error", "/tmp/x.mp3"}, p.args("/tmp/x.mp3"))

	missing := NewClipPlayer("definitely-not-a-player-binary")
	assert.Error(t, missing.Available())
}

func TestMicInputArgs(t *testing.T) {
	t.Parallel()

	args, err := MicInputArgs("linux", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"-f", "pulse", "-i", "default"}, args)

	args, err = MicInputArgs("darwin", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"-f", "avfoundation", "-i", ":0"}, args)

	args, err = MicInputArgs("linux", "alsa_input.usb")
	require.NoError(t, err)
	assert.Equal(t, "alsa_input.usb", args[3])

	_, err = MicInputArgs("windows", "")
	assert.Error(t, err)
}

func TestRecordArgs(t *testing.T) {
	t.Parallel()

	args := RecordArgs([]string{"-f", "pulse", "-i", "default"}, 7*time.Second, "/tmp/out.wav")
	assert.Equal(t, []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "pulse", "-i", "default",
		"-t", "7.00",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"/tmp/out.wav",
	}, args)
}

func TestRecordWAV_RejectsNonPositiveDuration(t *testing.T) {
	t.Parallel()

	assert.Error(t, RecordWAV(context.Background(), "", 0, "/tmp/never.wav"))
}

func TestMicCapture_NilSafe(t *testing.T) {
	t.Parallel()

	var m *MicCapture
	n, err := m.Read(make([]byte, 4))
	assert.Zero(t, n)
	assert.Error(t, err)
	assert.NoError(t, m.Close())
}
