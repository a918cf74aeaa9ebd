package api

import (
	"time"

	"github.com/kurdai/kurdai-server/domain/repositories"
)

// TokenRequest represents the request payload for token issuance
type TokenRequest struct {
	ClientID string `json:"client_id,omitempty"`
}

// TokenResponse represents the response payload for token issuance
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ClientID  string    `json:"client_id"`
}

// ChatHistoryItem is one prior message in a chat request
type ChatHistoryItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the request payload for a streamed chat turn
type ChatRequest struct {
	Message       string            `json:"message"`
	History       []ChatHistoryItem `json:"history,omitempty"`
	ImageBase64   string            `json:"image_base64,omitempty"`
	ImageMIMEType string            `json:"image_mime_type,omitempty"`
}

// TranslateRequest represents the request payload for a streamed translation
type TranslateRequest struct {
	Text   string `json:"text"`
	Tone   string `json:"tone,omitempty"`
	Target string `json:"target,omitempty"`
}

// ArtRequest represents the request payload for image generation
type ArtRequest struct {
	Prompt string `json:"prompt"`
}

// ArtResponse represents the response payload for image generation
type ArtResponse struct {
	MIMEType   string `json:"mime_type"`
	DataBase64 string `json:"data_base64"`
}

// LandmarksResponse mirrors the structured city guide
type LandmarksResponse = repositories.CityGuide

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
