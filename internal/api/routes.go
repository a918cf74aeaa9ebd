package api

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kurdai/kurdai-server/domain/entities"
	"github.com/kurdai/kurdai-server/domain/repositories"
	"github.com/kurdai/kurdai-server/internal/auth"
	"github.com/kurdai/kurdai-server/internal/websocket"
)

// Handlers bundles the dependencies the HTTP layer needs
type Handlers struct {
	Assistant     repositories.Assistant
	Conversations repositories.ConversationRepository
	Auth          *auth.Manager
	Hub           *websocket.Hub
	Logger        *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, h *Handlers) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "kurdai-server",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/auth/token", h.issueToken)
	v1.POST("/chat", h.chat)
	v1.POST("/translate", h.translate)
	v1.GET("/landmarks/:city", h.landmarks)
	v1.POST("/art", h.generateArt)
	v1.GET("/conversations", h.listConversations)
	v1.GET("/conversations/:id", h.getConversation)

	// WebSocket endpoint with JWT validation
	e.GET("/ws", h.websocketWithAuth)
}

func (h *Handlers) issueToken(c echo.Context) error {
	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	token, clientID, err := h.Auth.Issue(req.ClientID)
	if err != nil {
		h.Logger.Error("Failed to issue token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	return c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		ClientID:  clientID,
	})
}

// chat streams the assistant's reply as plain text chunks
func (h *Handlers) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Message is required",
		})
	}

	chatReq := repositories.ChatRequest{Message: req.Message}
	for _, item := range req.History {
		role := entities.RoleUser
		if item.Role == string(entities.RoleModel) {
			role = entities.RoleModel
		}
		chatReq.History = append(chatReq.History, repositories.ChatMessage{
			Role:    role,
			Content: item.Content,
		})
	}
	if req.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_image",
				Message: "Image payload is not valid base64",
			})
		}
		mimeType := req.ImageMIMEType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		chatReq.Image = &repositories.InlineImage{MIMEType: mimeType, Data: data}
	}

	return h.streamText(c, func(onChunk func(string) error) error {
		return h.Assistant.ChatStream(c.Request().Context(), chatReq, onChunk)
	})
}

// translate streams the translation as plain text chunks
func (h *Handlers) translate(c echo.Context) error {
	var req TranslateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Text is required",
		})
	}

	translateReq := repositories.TranslateRequest{
		Text:   req.Text,
		Tone:   req.Tone,
		Target: req.Target,
	}
	return h.streamText(c, func(onChunk func(string) error) error {
		return h.Assistant.TranslateStream(c.Request().Context(), translateReq, onChunk)
	})
}

// streamText writes generation chunks to the response as they arrive
func (h *Handlers) streamText(c echo.Context, run func(onChunk func(string) error) error) error {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
	resp.WriteHeader(http.StatusOK)

	err := run(func(chunk string) error {
		if _, werr := resp.Write([]byte(chunk)); werr != nil {
			return werr
		}
		resp.Flush()
		return nil
	})
	if err != nil {
		h.Logger.Error("Streaming generation failed", zap.Error(err))
	}
	return nil
}

func (h *Handlers) landmarks(c echo.Context) error {
	city := c.Param("city")
	if city == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "City is required",
		})
	}

	guide, err := h.Assistant.Landmarks(c.Request().Context(), city)
	if err != nil {
		h.Logger.Error("Landmark lookup failed", zap.String("city", city), zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "generation_failed",
			Message: "Failed to generate the city guide",
		})
	}
	return c.JSON(http.StatusOK, guide)
}

func (h *Handlers) generateArt(c echo.Context) error {
	var req ArtRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Prompt == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Prompt is required",
		})
	}

	image, err := h.Assistant.GenerateArt(c.Request().Context(), req.Prompt)
	if err != nil {
		h.Logger.Error("Art generation failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "generation_failed",
			Message: "Failed to generate the image",
		})
	}
	return c.JSON(http.StatusOK, ArtResponse{
		MIMEType:   image.MIMEType,
		DataBase64: base64.StdEncoding.EncodeToString(image.Data),
	})
}

func (h *Handlers) listConversations(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	conversations, err := h.Conversations.ListRecent(c.Request().Context(), limit)
	if err != nil {
		h.Logger.Error("Failed to list conversations", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_error",
			Message: "Failed to list conversations",
		})
	}
	return c.JSON(http.StatusOK, conversations)
}

func (h *Handlers) getConversation(c echo.Context) error {
	conversation, err := h.Conversations.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Conversation not found",
		})
	}
	return c.JSON(http.StatusOK, conversation)
}

// websocketWithAuth handles WebSocket connections with JWT authentication.
// Browsers cannot set headers on websocket dials, so the token is accepted
// from the query string as well.
func (h *Handlers) websocketWithAuth(c echo.Context) error {
	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if token == "" {
		token = c.QueryParam("token")
	}

	if token == "" {
		h.Logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		})
	}

	claims, err := h.Auth.Validate(token)
	if err != nil {
		h.Logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	h.Logger.Info("WebSocket connection authenticated",
		zap.String("client_id", claims.ClientID))

	return websocket.HandleWebSocket(h.Hub, c, claims.ClientID, h.Logger)
}
