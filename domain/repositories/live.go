package repositories

import "context"

// LiveConfig configures one realtime voice session with the model
type LiveConfig struct {
	Model             string
	SystemInstruction string
	Voice             string
	TranscribeInput   bool
	TranscribeOutput  bool
	InputSampleRate   int
}

// ServerEvent is one message from the model during a live session. Fields are
// independently optional: one event may carry audio, transcription text, and
// signals in any combination.
type ServerEvent struct {
	// Audio is raw 16-bit PCM from the model, already base64-decoded
	Audio []byte
	// InputTranscript is a partial transcription of the user's speech
	InputTranscript string
	// OutputTranscript is a partial transcription of the model's speech
	OutputTranscript string
	// TurnComplete signals that the model finished its turn
	TurnComplete bool
	// Interrupted signals that the user barged in over model audio
	Interrupted bool
}

// LiveCallbacks receives session lifecycle and server events. Callbacks are
// invoked from the session's read loop and must not block.
type LiveCallbacks struct {
	OnOpen  func()
	OnEvent func(ServerEvent)
	OnError func(error)
	OnClose func()
}

// LiveTransport opens bidirectional streaming sessions with a voice model
type LiveTransport interface {
	Open(ctx context.Context, config LiveConfig, callbacks LiveCallbacks) (LiveSession, error)
}

// LiveSession is one open streaming connection
type LiveSession interface {
	// Send streams one frame of 16-bit PCM microphone audio to the model
	Send(frame []byte) error
	// Close tears the connection down. Closing twice is a no-op.
	Close() error
}
