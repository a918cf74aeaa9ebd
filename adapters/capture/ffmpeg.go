package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kurdai/kurdai-server/domain/repositories"
)

// startupProbe is how long we watch a freshly spawned ffmpeg before trusting
// it. Device errors surface within this window.
const startupProbe = 250 * time.Millisecond

// FFmpeg captures microphone audio by spawning ffmpeg and reading raw
// 16-bit little-endian PCM from its stdout
type FFmpeg struct {
	logger *zap.Logger
	binary string
}

// NewFFmpeg creates a capture backend using the ffmpeg binary on PATH
func NewFFmpeg(logger *zap.Logger) *FFmpeg {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpeg{logger: logger, binary: "ffmpeg"}
}

// Start spawns ffmpeg against the configured input device and returns once
// the process survives its startup window
func (f *FFmpeg) Start(ctx context.Context, config repositories.CaptureConfig) (repositories.CaptureSession, error) {
	sampleRate := config.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := config.Channels
	if channels <= 0 {
		channels = 1
	}

	args := inputArgs(config.Device)
	args = append(args,
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-loglevel", "error",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, f.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	f.logger.Debug("ffmpeg started", zap.Strings("args", args))

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return nil, fmt.Errorf("ffmpeg exited during startup: %v: %s", err, bytes.TrimSpace(stderr.Bytes()))
	case <-time.After(startupProbe):
	}

	return &ffmpegSession{
		cmd:    cmd,
		stdout: stdout,
		stderr: &stderr,
		done:   done,
		logger: f.logger,
	}, nil
}

// inputArgs picks the capture demuxer for the host platform
func inputArgs(device string) []string {
	switch runtime.GOOS {
	case "darwin":
		if device == "" {
			device = ":0"
		}
		return []string{"-f", "avfoundation", "-i", device}
	case "windows":
		if device == "" {
			device = "audio=default"
		}
		return []string{"-f", "dshow", "-i", device}
	default:
		if device == "" {
			device = "default"
		}
		return []string{"-f", "alsa", "-i", device}
	}
}

type ffmpegSession struct {
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	stderr   *bytes.Buffer
	done     chan error
	logger   *zap.Logger
	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Stop kills the capture process and unblocks any pending Read. Stopping
// twice is a no-op.
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.stdout.Close()
		if err := <-s.done; err != nil {
			s.logger.Debug("ffmpeg exited", zap.Error(err))
		}
	})
	return s.stopErr
}

func (s *ffmpegSession) Close() error {
	return s.Stop()
}
