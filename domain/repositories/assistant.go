package repositories

import (
	"context"

	"github.com/kurdai/kurdai-server/domain/entities"
)

// ChatMessage is a single message in a text conversation
type ChatMessage struct {
	Role    entities.Role `json:"role"`
	Content string        `json:"content"`
}

// ChatRequest is one turn of the text assistant
type ChatRequest struct {
	History []ChatMessage
	Message string
	// Image is an optional inline attachment for multimodal questions
	Image *InlineImage
}

// InlineImage is an inline binary attachment
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// TranslateRequest asks for a translation into Sorani Kurdish
type TranslateRequest struct {
	Text   string
	Tone   string
	Target string
}

// Landmark is one notable place returned by the landmark lookup
type Landmark struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	ImageQuery  string `json:"imageQuery"`
}

// CityGuide is the structured landmark answer for one city
type CityGuide struct {
	CityNarrative string     `json:"cityNarrative"`
	Landmarks     []Landmark `json:"landmarks"`
}

// Assistant abstracts the non-realtime model operations: streaming text
// generation, translation, structured lookups, and image generation
type Assistant interface {
	// ChatStream generates a reply and delivers it chunk by chunk through
	// onChunk until the stream ends or ctx is cancelled
	ChatStream(ctx context.Context, req ChatRequest, onChunk func(string) error) error
	// TranslateStream translates text and streams the result through onChunk
	TranslateStream(ctx context.Context, req TranslateRequest, onChunk func(string) error) error
	// Landmarks returns a structured guide for a city
	Landmarks(ctx context.Context, city string) (*CityGuide, error)
	// GenerateArt renders a prompt as a PNG image
	GenerateArt(ctx context.Context, prompt string) (*InlineImage, error)
}
