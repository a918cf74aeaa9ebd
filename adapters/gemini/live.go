package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kurdai/kurdai-server/domain/repositories"
	"github.com/kurdai/kurdai-server/usecase"
)

const (
	liveHost = "generativelanguage.googleapis.com"
	livePath = "/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	handshakeTimeout = 15 * time.Second
	writeWait        = 10 * time.Second
	setupWait        = 30 * time.Second
)

// LiveTransport dials the BidiGenerateContent websocket endpoint and speaks
// its JSON framing directly
type LiveTransport struct {
	apiKey string
	logger *zap.Logger
	dialer *websocket.Dialer
}

// NewLiveTransport creates a transport authenticated with apiKey
func NewLiveTransport(apiKey string, logger *zap.Logger) *LiveTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveTransport{
		apiKey: apiKey,
		logger: logger,
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

// Open dials the endpoint, sends the session setup frame, and waits for the
// server's ack before handing the session back
func (t *LiveTransport) Open(ctx context.Context, config repositories.LiveConfig, callbacks repositories.LiveCallbacks) (repositories.LiveSession, error) {
	conn, _, err := t.dialer.DialContext(ctx, liveURL(t.apiKey), nil)
	if err != nil {
		return nil, fmt.Errorf("dial live endpoint: %w", err)
	}

	setup := buildSetup(config)
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(setup); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send setup: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(setupWait))
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("await setup ack: %w", err)
	}
	ack, err := parseServerMessage(data)
	if err != nil || ack.setupComplete == nil {
		conn.Close()
		return nil, fmt.Errorf("unexpected setup response: %s", data)
	}
	conn.SetReadDeadline(time.Time{})

	s := &liveSession{
		conn:      conn,
		callbacks: callbacks,
		logger:    t.logger,
		inputMIME: fmt.Sprintf("audio/pcm;rate=%d", config.InputSampleRate),
	}
	if callbacks.OnOpen != nil {
		callbacks.OnOpen()
	}
	go s.readLoop()

	t.logger.Info("live session opened", zap.String("model", config.Model))
	return s, nil
}

func liveURL(apiKey string) string {
	u := url.URL{
		Scheme:   "wss",
		Host:     liveHost,
		Path:     livePath,
		RawQuery: url.Values{"key": {apiKey}}.Encode(),
	}
	return u.String()
}

type liveSession struct {
	conn      *websocket.Conn
	callbacks repositories.LiveCallbacks
	logger    *zap.Logger
	inputMIME string

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// Send streams one frame of 16-bit PCM as a base64 media chunk
func (s *liveSession) Send(frame []byte) error {
	if s.closed.Load() {
		return &usecase.ClosedSessionError{}
	}
	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			MediaChunks: []mediaChunk{{
				MIMEType: s.inputMIME,
				Data:     base64.StdEncoding.EncodeToString(frame),
			}},
		},
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed.Load() {
		return &usecase.ClosedSessionError{}
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		// The session is still open from the caller's side; a failed write
		// is a transport fault, not a send-after-close
		return &usecase.ConnectionError{Err: err}
	}
	return nil
}

// Close tears the connection down. Closing twice is a no-op.
func (s *liveSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *liveSession) readLoop() {
	defer func() {
		if s.callbacks.OnClose != nil {
			s.callbacks.OnClose()
		}
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.closed.Store(true)
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			if s.callbacks.OnError != nil {
				s.callbacks.OnError(err)
			}
			return
		}

		msg, err := parseServerMessage(data)
		if err != nil {
			// Malformed payloads are dropped; the session keeps running
			s.logger.Warn("drop server message", zap.Error(err))
			continue
		}
		if msg.event != nil && s.callbacks.OnEvent != nil {
			s.callbacks.OnEvent(*msg.event)
		}
	}
}

type parsedMessage struct {
	setupComplete *struct{}
	event         *repositories.ServerEvent
}

func parseServerMessage(data []byte) (parsedMessage, error) {
	var raw serverMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return parsedMessage{}, &usecase.DecodeError{Err: err}
	}

	out := parsedMessage{setupComplete: raw.SetupComplete}
	if raw.ServerContent == nil {
		return out, nil
	}

	ev := repositories.ServerEvent{
		TurnComplete: raw.ServerContent.TurnComplete,
		Interrupted:  raw.ServerContent.Interrupted,
	}
	if tr := raw.ServerContent.InputTranscription; tr != nil {
		ev.InputTranscript = tr.Text
	}
	if tr := raw.ServerContent.OutputTranscription; tr != nil {
		ev.OutputTranscript = tr.Text
	}
	if turn := raw.ServerContent.ModelTurn; turn != nil {
		for _, part := range turn.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return parsedMessage{}, &usecase.DecodeError{Err: err}
			}
			ev.Audio = append(ev.Audio, pcm...)
		}
	}
	out.event = &ev
	return out, nil
}
