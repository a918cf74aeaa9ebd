package repositories

import (
	"context"
	"io"
)

// CaptureConfig configures a microphone capture stream
type CaptureConfig struct {
	// Device selects the input device; empty means the platform default
	Device     string
	SampleRate int
	Channels   int
}

// CaptureSession is one running microphone stream. Read returns raw 16-bit
// little-endian PCM. Stop is idempotent and unblocks any pending Read.
type CaptureSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture opens microphone capture streams
type AudioCapture interface {
	Start(ctx context.Context, config CaptureConfig) (CaptureSession, error)
}

// AudioSink plays raw 16-bit little-endian PCM
type AudioSink interface {
	// Write queues PCM for playback
	Write(pcm []byte) error
	// Reset discards everything queued but not yet played
	Reset() error
	Close() error
}
