package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

const (
	// DefaultPlayerCommand plays a file and exits when it ends.
	DefaultPlayerCommand = "ffplay"
	clipFilePattern      = "foodtrack-clip-*"
)

// Clip is a synthesized payload bound to a temporary file. The file exists
// from NewClip until Release; Release is idempotent.
type Clip struct {
	path string
	once sync.Once
	err  error
}

// NewClip writes data to a temporary file. ext (for example ".mp3") helps the
// player probe the container.
func NewClip(data []byte, ext string) (*Clip, error) {
	if len(data) == 0 {
		return nil, errors.New("audio clip is empty")
	}
	pattern := clipFilePattern
	if ext = strings.TrimSpace(ext); ext != "" {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		pattern += ext
	}
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("create clip file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("write clip file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("close clip file: %w", err)
	}
	return &Clip{path: f.Name()}, nil
}

// Path returns the backing file path.
func (c *Clip) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Release removes the backing file.
func (c *Clip) Release() error {
	if c == nil {
		return nil
	}
	c.once.Do(func() {
		if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.err = err
		}
	})
	return c.err
}

// ClipPlayer plays clips through an external command, one process per clip.
type ClipPlayer struct {
	// Command defaults to DefaultPlayerCommand.
	Command string
	// Args builds the argument list for a clip path. Defaults to ffplay
	// flags that play without a window and exit at end of stream.
	Args func(path string) []string
}

// NewClipPlayer returns a player for command (ffplay when empty).
func NewClipPlayer(command string) *ClipPlayer {
	return &ClipPlayer{Command: strings.TrimSpace(command)}
}

func (p *ClipPlayer) command() string {
	if p == nil || strings.TrimSpace(p.Command) == "" {
		return DefaultPlayerCommand
	}
	return p.Command
}

func (p *ClipPlayer) args(path string) []string {
	if p != nil && p.Args != nil {
		return p.Args(path)
	}
	return []string{"-nodisp", "-autoexit", "-loglevel", "error", path}
}

// Available reports whether the player command can be found.
func (p *ClipPlayer) Available() error {
	if _, err := exec.LookPath(p.command()); err != nil {
		return fmt.Errorf("%s is required for playback (install ffmpeg/ffplay and ensure it is in PATH): %w", p.command(), err)
	}
	return nil
}

// Play runs the player on clip and blocks until it exits or ctx is done.
// The clip is released before Play returns in every case.
func (p *ClipPlayer) Play(ctx context.Context, clip *Clip) error {
	if clip == nil {
		return errors.New("clip must not be nil")
	}
	defer clip.Release()

	cmd := exec.CommandContext(ctx, p.command(), p.args(clip.Path())...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("run %s: %w", p.command(), err)
	}
	return nil
}
