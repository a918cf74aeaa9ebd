package usecase

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/kurdai/kurdai-server/domain/repositories"
)

// defaultFrameBytes is 20ms of 16 kHz mono 16-bit PCM
const defaultFrameBytes = 640

// pumpFrames forwards microphone audio from capture to the live session until
// the capture stream ends, the session refuses a frame, or ctx is cancelled.
// A single goroutine runs the loop, so frames arrive in capture order.
func pumpFrames(ctx context.Context, capture io.Reader, session repositories.LiveSession, frameBytes int, logger *zap.Logger) error {
	if frameBytes <= 0 {
		frameBytes = defaultFrameBytes
	}
	buf := make([]byte, frameBytes)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := capture.Read(buf)
		if n > 0 {
			frame := make([]byte, n)
			copy(frame, buf[:n])
			if sendErr := session.Send(frame); sendErr != nil {
				var closed *ClosedSessionError
				if errors.As(sendErr, &closed) {
					return nil
				}
				return sendErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				logger.Debug("capture stream ended")
				return nil
			}
			return &DeviceError{Err: err}
		}
	}
}
