package audio

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// PCMPlayer streams raw s16le mono PCM to ffplay's stdin. It is the sink for
// agent audio during a remote voice session.
type PCMPlayer struct {
	mu         sync.Mutex
	command    string
	sampleRate int
	cmd        *exec.Cmd
	stdin      io.WriteCloser
}

// NewPCMPlayer starts a player for sampleRate Hz audio.
func NewPCMPlayer(command string, sampleRate int) (*PCMPlayer, error) {
	if command == "" {
		command = DefaultPlayerCommand
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if _, err := exec.LookPath(command); err != nil {
		return nil, fmt.Errorf("%s is required for voice playback (install ffmpeg/ffplay and ensure it is in PATH)", command)
	}
	p := &PCMPlayer{command: command, sampleRate: sampleRate}
	if err := p.startLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PCMPlayer) startLocked() error {
	p.cmd = exec.Command(p.command,
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(p.sampleRate),
		"-ac", "1",
		"-i", "pipe:0",
	)
	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open %s stdin: %w", p.command, err)
	}
	p.cmd.Stdout = io.Discard
	p.cmd.Stderr = io.Discard
	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.command, err)
	}
	p.stdin = stdin
	return nil
}

// Write implements io.Writer.
func (p *PCMPlayer) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stdin == nil {
		return 0, errors.New("player is closed")
	}
	return p.stdin.Write(data)
}

// Reset drops buffered audio by restarting the player process.
func (p *PCMPlayer) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killLocked()
	return p.startLocked()
}

// Close stops the player.
func (p *PCMPlayer) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killLocked()
	return nil
}

func (p *PCMPlayer) killLocked() {
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
		_ = p.cmd.Wait()
	}
	p.stdin = nil
}
