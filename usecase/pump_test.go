package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestPumpFramesPreservesOrder(t *testing.T) {
	t.Parallel()

	var input bytes.Buffer
	for i := 0; i < 5; i++ {
		chunk := bytes.Repeat([]byte{byte(i)}, defaultFrameBytes)
		input.Write(chunk)
	}

	session := &fakeLiveSession{}
	if err := pumpFrames(context.Background(), &input, session, defaultFrameBytes, zap.NewNop()); err != nil {
		t.Fatalf("pumpFrames: %v", err)
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if len(session.frames) != 5 {
		t.Fatalf("session received %d frames, want 5", len(session.frames))
	}
	for i, frame := range session.frames {
		if frame[0] != byte(i) {
			t.Errorf("frame %d starts with %d, want %d", i, frame[0], i)
		}
	}
}

func TestPumpFramesStopsOnClosedSession(t *testing.T) {
	t.Parallel()

	input := bytes.NewBuffer(bytes.Repeat([]byte{1}, defaultFrameBytes*3))
	session := &fakeLiveSession{}
	session.closed = true

	if err := pumpFrames(context.Background(), input, session, defaultFrameBytes, zap.NewNop()); err != nil {
		t.Fatalf("pumpFrames on closed session = %v, want nil", err)
	}
}

type faultySession struct {
	err error
}

func (s *faultySession) Send([]byte) error { return s.err }

func (s *faultySession) Close() error { return nil }

func TestPumpFramesPropagatesTransportFaults(t *testing.T) {
	t.Parallel()

	input := bytes.NewBuffer(bytes.Repeat([]byte{1}, defaultFrameBytes*2))
	session := &faultySession{err: &ConnectionError{Err: errors.New("broken pipe")}}

	err := pumpFrames(context.Background(), input, session, defaultFrameBytes, zap.NewNop())
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("pumpFrames = %v, want ConnectionError", err)
	}
}

func TestPumpFramesHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := bytes.NewBuffer(bytes.Repeat([]byte{1}, defaultFrameBytes))
	session := &fakeLiveSession{}
	if err := pumpFrames(ctx, input, session, defaultFrameBytes, zap.NewNop()); err == nil {
		t.Fatal("expected context error")
	}
}
