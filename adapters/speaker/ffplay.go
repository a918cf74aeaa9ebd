package speaker

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// FFplay plays raw 16-bit little-endian PCM by piping it into an ffplay
// process. Reset kills the process and lets the next Write respawn it, which
// is the only reliable way to cut audio ffplay has already buffered.
type FFplay struct {
	sampleRate int
	logger     *zap.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	closed bool
}

// NewFFplay creates a speaker for mono PCM at sampleRate using the ffplay
// binary on PATH
func NewFFplay(sampleRate int, logger *zap.Logger) *FFplay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFplay{sampleRate: sampleRate, logger: logger}
}

// Write queues PCM for playback, spawning ffplay on first use
func (s *FFplay) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("speaker is closed")
	}
	if s.stdin == nil {
		if err := s.spawnLocked(); err != nil {
			return err
		}
	}
	if _, err := s.stdin.Write(pcm); err != nil {
		s.killLocked()
		return fmt.Errorf("write to ffplay: %w", err)
	}
	return nil
}

// Reset discards everything queued but not yet played
func (s *FFplay) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killLocked()
	return nil
}

// Close stops playback and releases the process
func (s *FFplay) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killLocked()
	s.closed = true
	return nil
}

// spawnLocked starts a fresh ffplay process. Caller holds s.mu.
func (s *FFplay) spawnLocked() error {
	cmd := exec.Command("ffplay",
		"-f", "s16le",
		"-ch_layout", "mono",
		"-ar", strconv.Itoa(s.sampleRate),
		"-nodisp",
		"-loglevel", "quiet",
		"-i", "pipe:0",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffplay stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffplay: %w", err)
	}
	s.logger.Debug("ffplay started", zap.Int("sample_rate", s.sampleRate))

	s.cmd = cmd
	s.stdin = stdin
	go func() {
		if err := cmd.Wait(); err != nil {
			s.logger.Debug("ffplay exited", zap.Error(err))
		}
	}()
	return nil
}

// killLocked tears down the current process. Caller holds s.mu.
func (s *FFplay) killLocked() {
	if s.stdin != nil {
		_ = s.stdin.Close()
		s.stdin = nil
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.cmd = nil
}
