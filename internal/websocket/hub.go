package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kurdai/kurdai-server/domain/entities"
	"github.com/kurdai/kurdai-server/domain/repositories"
	"github.com/kurdai/kurdai-server/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio frames

	persistTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// SessionDefaults are applied when a session_start message leaves a field
// empty
type SessionDefaults struct {
	Model             string
	Voice             string
	SystemInstruction string
}

// Hub maintains the set of connected clients and holds the collaborators each
// client's live session needs
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	transport     repositories.LiveTransport
	conversations repositories.ConversationRepository
	defaults      SessionDefaults

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(
	transport repositories.LiveTransport,
	conversations repositories.ConversationRepository,
	defaults SessionDefaults,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		clients:       make(map[string]*Client),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		transport:     transport,
		conversations: conversations,
		defaults:      defaults,
		logger:        logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.clientID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("clientID", client.clientID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.clientID]; ok {
				delete(h.clients, client.clientID)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("clientID", client.clientID))
		}
	}
}

type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between one websocket connection and the live session
// it drives
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan WriteData
	clientID string
	logger   *zap.Logger

	mutex          sync.Mutex
	manager        *usecase.Manager
	conversationID string
}

// HandleWebSocket upgrades an authenticated request and starts the client's
// pumps
func HandleWebSocket(hub *Hub, c echo.Context, clientID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan WriteData, 256),
		clientID: clientID,
		logger:   logger,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection into the session
func (c *Client) readPump() {
	defer func() {
		c.stopSession()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processControlMessage(message)
		case websocket.BinaryMessage:
			c.processAudioFrame(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the session to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue puts an outbound message on the send channel, dropping it when the
// client cannot keep up
func (c *Client) enqueue(data WriteData) {
	select {
	case c.send <- data:
	default:
		c.logger.Warn("Dropping outbound message, send buffer full",
			zap.String("clientID", c.clientID))
	}
}

func (c *Client) enqueueJSON(v interface{}) {
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: marshalMessage(v)})
}

func (c *Client) processControlMessage(message []byte) {
	parsed, err := ParseClientMessage(message)
	if err != nil {
		c.logger.Error("Failed to parse message", zap.Error(err))
		c.enqueueJSON(&ErrorMessage{BaseMessage: stamp(MessageTypeError), Message: err.Error()})
		return
	}

	switch msg := parsed.(type) {
	case *SessionStartMessage:
		c.handleSessionStart(msg)
	case *SessionStopMessage:
		c.stopSession()
	}
}

// processAudioFrame relays one binary frame of 16-bit PCM to the live session
func (c *Client) processAudioFrame(data []byte) {
	c.mutex.Lock()
	manager := c.manager
	c.mutex.Unlock()

	if manager == nil {
		return
	}
	if err := manager.SendPCM(data); err != nil {
		var closed *usecase.ClosedSessionError
		if errors.As(err, &closed) {
			// Frames in flight during teardown are expected; drop them
			return
		}
		c.logger.Error("Failed to relay audio frame",
			zap.String("clientID", c.clientID),
			zap.Error(err))
	}
}

func (c *Client) handleSessionStart(msg *SessionStartMessage) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.manager != nil && c.manager.Status() == entities.SessionStatusActive {
		c.enqueueJSON(&ErrorMessage{
			BaseMessage: stamp(MessageTypeError),
			Message:     usecase.ErrSessionActive.Error(),
		})
		return
	}

	opts := usecase.SessionOptions{
		Model:             msg.Model,
		Voice:             msg.Voice,
		SystemInstruction: msg.SystemInstruction,
	}
	if opts.Model == "" {
		opts.Model = c.hub.defaults.Model
	}
	if opts.Voice == "" {
		opts.Voice = c.hub.defaults.Voice
	}
	if opts.SystemInstruction == "" {
		opts.SystemInstruction = c.hub.defaults.SystemInstruction
	}

	conversationID := ""
	if c.hub.conversations != nil {
		conversation := entities.NewConversation(opts.Model, opts.Voice)
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		err := c.hub.conversations.Create(ctx, conversation)
		cancel()
		if err != nil {
			c.logger.Error("Failed to create conversation record", zap.Error(err))
		} else {
			conversationID = conversation.ID.Hex()
		}
	}

	manager := usecase.NewManager(usecase.ManagerConfig{
		Transport: c.hub.transport,
		Sink:      &clientAudioSink{client: c},
		Events:    &clientEventSink{client: c},
		Logger:    c.logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := manager.Start(ctx, opts); err != nil {
		c.logger.Error("Failed to start live session",
			zap.String("clientID", c.clientID),
			zap.Error(err))
		return
	}

	c.manager = manager
	c.conversationID = conversationID
	c.enqueueJSON(&SessionStartedMessage{
		BaseMessage:    stamp(MessageTypeSessionStarted),
		ConversationID: conversationID,
	})
	c.logger.Info("Live session started for client",
		zap.String("clientID", c.clientID),
		zap.String("conversationID", conversationID))
}

func (c *Client) stopSession() {
	c.mutex.Lock()
	manager := c.manager
	conversationID := c.conversationID
	c.manager = nil
	c.conversationID = ""
	c.mutex.Unlock()

	if manager == nil {
		return
	}
	if err := manager.Stop(); err != nil {
		c.logger.Warn("Session stop reported errors", zap.Error(err))
	}
	if c.hub.conversations != nil && conversationID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := c.hub.conversations.End(ctx, conversationID); err != nil {
			c.logger.Error("Failed to end conversation record", zap.Error(err))
		}
	}
}

// clientAudioSink fans model audio out to the browser as binary frames. The
// browser runs its own playback scheduler, so Reset has nothing to flush
// server-side; the interrupted event tells it to drop its queue.
type clientAudioSink struct {
	client *Client
}

func (s *clientAudioSink) Write(pcm []byte) error {
	s.client.enqueue(WriteData{Type: websocket.BinaryMessage, Payload: pcm})
	return nil
}

func (s *clientAudioSink) Reset() error { return nil }

func (s *clientAudioSink) Close() error { return nil }

// clientEventSink translates session events into control messages and
// persists sealed transcript entries
type clientEventSink struct {
	client *Client
}

func (s *clientEventSink) OnStatus(status entities.SessionStatus) {
	s.client.enqueueJSON(&StatusMessage{BaseMessage: stamp(MessageTypeStatus), Status: status})
}

func (s *clientEventSink) OnPartial(role entities.Role, text string) {
	s.client.enqueueJSON(&TranscriptPartialMessage{
		BaseMessage: stamp(MessageTypeTranscriptPartial),
		Role:        role,
		Text:        text,
	})
}

func (s *clientEventSink) OnEntries(entries []entities.TranscriptEntry) {
	for _, entry := range entries {
		s.client.enqueueJSON(&TranscriptEntryMessage{
			BaseMessage: stamp(MessageTypeTranscriptEntry),
			Role:        entry.Role,
			Text:        entry.Text,
			SpokenAt:    entry.Timestamp,
		})
	}

	c := s.client
	c.mutex.Lock()
	conversationID := c.conversationID
	c.mutex.Unlock()
	if c.hub.conversations == nil || conversationID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := c.hub.conversations.AppendEntries(ctx, conversationID, entries); err != nil {
			c.logger.Error("Failed to persist transcript entries",
				zap.String("conversationID", conversationID),
				zap.Error(err))
		}
	}()
}

func (s *clientEventSink) OnTurnComplete() {
	s.client.enqueueJSON(&BaseMessage{Type: MessageTypeTurnComplete, Timestamp: time.Now().Format(time.RFC3339)})
}

func (s *clientEventSink) OnInterrupted() {
	s.client.enqueueJSON(&BaseMessage{Type: MessageTypeInterrupted, Timestamp: time.Now().Format(time.RFC3339)})
}

func (s *clientEventSink) OnError(err error) {
	s.client.enqueueJSON(&ErrorMessage{BaseMessage: stamp(MessageTypeError), Message: err.Error()})
}
