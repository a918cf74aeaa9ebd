package usecase

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kurdai/kurdai-server/domain/entities"
	"github.com/kurdai/kurdai-server/domain/repositories"
	"github.com/kurdai/kurdai-server/internal/audio"
)

// Defaults for the live voice session
const (
	DefaultModel             = "models/gemini-2.5-flash-native-audio-preview-12-2025"
	DefaultVoice             = "Zephyr"
	DefaultSystemInstruction = "You are KurdAI, a friendly voice assistant. Always reply in Sorani Kurdish."
)

// EventSink receives session events. Implementations must not block: the
// callbacks run on the transport's read loop.
type EventSink interface {
	OnStatus(status entities.SessionStatus)
	OnPartial(role entities.Role, text string)
	OnEntries(entries []entities.TranscriptEntry)
	OnTurnComplete()
	OnInterrupted()
	OnError(err error)
}

// SessionOptions configures one session started by the manager
type SessionOptions struct {
	Model             string
	Voice             string
	SystemInstruction string
	CaptureDevice     string
}

// ManagerConfig wires a Manager's collaborators. Capture is optional: when
// nil the manager does not pump a local microphone and audio frames arrive
// through SendFrame instead.
type ManagerConfig struct {
	Transport repositories.LiveTransport
	Capture   repositories.AudioCapture
	Sink      repositories.AudioSink
	Events    EventSink
	Clock     Clock
	Logger    *zap.Logger
}

type activeSession struct {
	session    repositories.LiveSession
	capture    repositories.CaptureSession
	player     *Player
	reconciler *TranscriptReconciler
	cancel     context.CancelFunc
}

// Manager owns the live voice session. At most one session runs at a time;
// starting a second one fails until the first is stopped. Stopping tears down
// in order: microphone capture, then the live connection, then playback. The
// committed transcript survives the session that produced it.
type Manager struct {
	transport repositories.LiveTransport
	capture   repositories.AudioCapture
	sink      repositories.AudioSink
	events    EventSink
	clock     Clock
	logger    *zap.Logger

	mu         sync.Mutex
	current    *activeSession
	status     entities.SessionStatus
	transcript *TranscriptReconciler
}

// NewManager creates a session manager. Clock and Logger fall back to the
// wall clock and a no-op logger.
func NewManager(cfg ManagerConfig) *Manager {
	clock := cfg.Clock
	if clock == nil {
		clock = systemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		transport: cfg.Transport,
		capture:   cfg.Capture,
		sink:      cfg.Sink,
		events:    cfg.Events,
		clock:     clock,
		logger:    logger,
		status:    entities.SessionStatusIdle,
	}
}

// Status returns the current session status
func (m *Manager) Status() entities.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Transcript returns the committed transcript of the current or most recent
// session
func (m *Manager) Transcript() []entities.TranscriptEntry {
	m.mu.Lock()
	rec := m.transcript
	m.mu.Unlock()
	if rec == nil {
		return nil
	}
	return rec.Committed()
}

// Start opens a new live session. It fails with ErrSessionActive while a
// session is already running, with DeviceError when the microphone cannot be
// opened, and with ConnectionError when the live connection cannot be
// established.
func (m *Manager) Start(ctx context.Context, opts SessionOptions) error {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Voice == "" {
		opts.Voice = DefaultVoice
	}
	if opts.SystemInstruction == "" {
		opts.SystemInstruction = DefaultSystemInstruction
	}

	// Reserve the session slot before doing any slow work, so a concurrent
	// Start fails instead of opening a second transport.
	as := &activeSession{}
	m.mu.Lock()
	if m.current != nil {
		m.mu.Unlock()
		return ErrSessionActive
	}
	m.current = as
	m.status = entities.SessionStatusConnecting
	m.mu.Unlock()
	m.events.OnStatus(entities.SessionStatusConnecting)

	var captureSession repositories.CaptureSession
	if m.capture != nil {
		cs, err := m.capture.Start(ctx, repositories.CaptureConfig{
			Device:     opts.CaptureDevice,
			SampleRate: audio.InputSampleRate,
			Channels:   audio.Channels,
		})
		if err != nil {
			devErr := &DeviceError{Err: err}
			m.release(as)
			m.setStatus(entities.SessionStatusError)
			m.events.OnError(devErr)
			return devErr
		}
		captureSession = cs
	}

	reconciler := NewTranscriptReconciler(m.clock)
	player := NewPlayer(m.sink, audio.OutputSampleRate, m.clock)
	pumpCtx, cancel := context.WithCancel(context.Background())
	as.capture = captureSession
	as.player = player
	as.reconciler = reconciler
	as.cancel = cancel

	session, err := m.transport.Open(ctx, repositories.LiveConfig{
		Model:             opts.Model,
		SystemInstruction: opts.SystemInstruction,
		Voice:             opts.Voice,
		TranscribeInput:   true,
		TranscribeOutput:  true,
		InputSampleRate:   audio.InputSampleRate,
	}, repositories.LiveCallbacks{
		OnEvent: func(ev repositories.ServerEvent) { m.handleEvent(as, ev) },
		OnError: func(err error) { m.fail(&ConnectionError{Err: err}) },
		OnClose: func() { m.onRemoteClose(as) },
	})
	if err != nil {
		cancel()
		if captureSession != nil {
			_ = captureSession.Stop()
		}
		connErr := &ConnectionError{Err: err}
		m.release(as)
		m.setStatus(entities.SessionStatusError)
		m.events.OnError(connErr)
		return connErr
	}

	m.mu.Lock()
	if m.current != as {
		// The read loop failed the session while Open was still returning;
		// its teardown already ran, so only the fresh connection is left.
		m.mu.Unlock()
		_ = session.Close()
		return &ConnectionError{Err: errors.New("session failed during setup")}
	}
	as.session = session
	m.status = entities.SessionStatusActive
	m.transcript = reconciler
	m.mu.Unlock()
	m.events.OnStatus(entities.SessionStatusActive)
	m.logger.Info("live session started",
		zap.String("model", opts.Model),
		zap.String("voice", opts.Voice),
	)

	if captureSession != nil {
		go func() {
			if err := pumpFrames(pumpCtx, captureSession, session, defaultFrameBytes, m.logger); err != nil && pumpCtx.Err() == nil {
				m.fail(err)
			}
		}()
	}
	return nil
}

// SendFrame encodes one frame of normalized float32 microphone samples and
// streams it to the model. After the session closes it fails with
// ClosedSessionError.
func (m *Manager) SendFrame(samples []float32) error {
	return m.SendPCM(audio.EncodeFrame(samples))
}

// SendPCM streams one frame of already-encoded 16-bit PCM to the model
func (m *Manager) SendPCM(frame []byte) error {
	m.mu.Lock()
	as := m.current
	var session repositories.LiveSession
	if as != nil {
		session = as.session
	}
	m.mu.Unlock()
	if session == nil {
		return &ClosedSessionError{}
	}
	return session.Send(frame)
}

// Stop ends the current session: capture stops first, then the live
// connection closes, then queued playback is cancelled. The committed
// transcript is preserved. Stopping with no session running is a no-op.
func (m *Manager) Stop() error {
	m.mu.Lock()
	as := m.current
	if as == nil {
		m.mu.Unlock()
		return nil
	}
	m.current = nil
	m.status = entities.SessionStatusClosing
	m.mu.Unlock()
	m.events.OnStatus(entities.SessionStatusClosing)

	err := m.teardown(as)

	m.setStatus(entities.SessionStatusClosed)
	m.logger.Info("live session stopped")
	return err
}

func (m *Manager) teardown(as *activeSession) error {
	var err error
	if as.capture != nil {
		err = multierr.Append(err, as.capture.Stop())
	}
	if as.cancel != nil {
		as.cancel()
	}
	if as.session != nil {
		err = multierr.Append(err, as.session.Close())
	}
	if as.player != nil {
		err = multierr.Append(err, as.player.CancelAll())
	}
	return err
}

// release frees the slot reserved by Start when setup fails partway
func (m *Manager) release(as *activeSession) {
	m.mu.Lock()
	if m.current == as {
		m.current = nil
	}
	m.mu.Unlock()
}

func (m *Manager) setStatus(status entities.SessionStatus) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
	m.events.OnStatus(status)
}

func (m *Manager) fail(err error) {
	m.mu.Lock()
	as := m.current
	m.current = nil
	m.status = entities.SessionStatusError
	m.mu.Unlock()

	m.events.OnError(err)
	m.events.OnStatus(entities.SessionStatusError)
	m.logger.Error("live session failed", zap.Error(err))
	if as != nil {
		if terr := m.teardown(as); terr != nil {
			m.logger.Warn("session teardown", zap.Error(terr))
		}
	}
}

// onRemoteClose handles the server hanging up on its own
func (m *Manager) onRemoteClose(as *activeSession) {
	m.mu.Lock()
	if m.current != as {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.status = entities.SessionStatusClosed
	m.mu.Unlock()

	if terr := m.teardown(as); terr != nil {
		m.logger.Warn("session teardown", zap.Error(terr))
	}
	m.events.OnStatus(entities.SessionStatusClosed)
	m.logger.Info("live session closed by server")
}

func (m *Manager) handleEvent(as *activeSession, ev repositories.ServerEvent) {
	if ev.Interrupted {
		if err := as.player.CancelAll(); err != nil {
			m.logger.Warn("cancel playback", zap.Error(err))
		}
		m.events.OnInterrupted()
	}
	if len(ev.Audio) > 0 {
		if err := as.player.Enqueue(ev.Audio); err != nil {
			m.logger.Warn("enqueue audio", zap.Error(err))
		}
	}
	if ev.InputTranscript != "" {
		as.reconciler.AddUserText(ev.InputTranscript)
		m.events.OnPartial(entities.RoleUser, ev.InputTranscript)
	}
	if ev.OutputTranscript != "" {
		as.reconciler.AddModelText(ev.OutputTranscript)
		m.events.OnPartial(entities.RoleModel, ev.OutputTranscript)
	}
	if ev.TurnComplete {
		if sealed := as.reconciler.SealTurn(); len(sealed) > 0 {
			m.events.OnEntries(sealed)
		}
		m.events.OnTurnComplete()
	}
}
