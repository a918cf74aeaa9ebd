package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kurdai/kurdai-server/domain/entities"
	"github.com/kurdai/kurdai-server/domain/repositories"
)

const (
	chatModel = "gemini-3-flash-preview"
	artModel  = "gemini-2.5-flash-image"

	systemPrompt = "You are KurdAI, a knowledgeable and friendly assistant for Kurdish " +
		"language, culture, history, and daily life. Answer in Sorani Kurdish using " +
		"Arabic script unless the user asks for another language. Be warm and concise."
)

// Assistant implements the non-realtime model operations using the Gemini API
type Assistant struct {
	client *genai.Client
	logger *zap.Logger
}

// NewAssistant creates an assistant authenticated with apiKey
func NewAssistant(ctx context.Context, apiKey string, logger *zap.Logger) (*Assistant, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Assistant{client: client, logger: logger}, nil
}

// ChatStream generates a reply to one chat turn and streams it chunk by chunk
func (a *Assistant) ChatStream(ctx context.Context, req repositories.ChatRequest, onChunk func(string) error) error {
	var contents []*genai.Content
	for _, msg := range req.History {
		role := genai.Role(genai.RoleUser)
		if msg.Role == entities.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	parts := []*genai.Part{{Text: req.Message}}
	if req.Image != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: req.Image.MIMEType,
				Data:     req.Image.Data,
			},
		})
	}
	contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	return a.stream(ctx, chatModel, contents, config, onChunk)
}

// TranslateStream translates text into the requested target and streams the
// result
func (a *Assistant) TranslateStream(ctx context.Context, req repositories.TranslateRequest, onChunk func(string) error) error {
	target := req.Target
	if target == "" {
		target = "Sorani Kurdish"
	}
	prompt := fmt.Sprintf("Translate the following text into %s.", target)
	if req.Tone != "" {
		prompt += fmt.Sprintf(" Use a %s tone.", req.Tone)
	}
	prompt += " Reply with the translation only.\n\n" + req.Text

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	return a.stream(ctx, chatModel, contents, nil, onChunk)
}

func (a *Assistant) stream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig, onChunk func(string) error) error {
	for resp, err := range a.client.Models.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			a.logger.Error("generation stream failed", zap.Error(err))
			return fmt.Errorf("generate content: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text == "" {
				continue
			}
			if err := onChunk(part.Text); err != nil {
				return err
			}
		}
	}
	return nil
}

// Landmarks returns a structured guide for a city, answered against a fixed
// JSON schema
func (a *Assistant) Landmarks(ctx context.Context, city string) (*repositories.CityGuide, error) {
	prompt := fmt.Sprintf(
		"Describe the city of %s in Kurdistan for a visitor, in Sorani Kurdish. "+
			"Provide a short narrative and its most notable landmarks.", city)

	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"cityNarrative": {Type: genai.TypeString},
			"landmarks": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":        {Type: genai.TypeString},
						"category":    {Type: genai.TypeString},
						"description": {Type: genai.TypeString},
						"imageQuery":  {Type: genai.TypeString},
					},
					Required: []string{"name", "category", "description", "imageQuery"},
				},
			},
		},
		Required: []string{"cityNarrative", "landmarks"},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := a.client.Models.GenerateContent(ctx, chatModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate landmarks: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty landmarks response for %q", city)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	var guide repositories.CityGuide
	if err := json.Unmarshal([]byte(text.String()), &guide); err != nil {
		return nil, fmt.Errorf("parse landmarks response: %w", err)
	}
	return &guide, nil
}

// GenerateArt renders a prompt as an inline PNG
func (a *Assistant) GenerateArt(ctx context.Context, prompt string) (*repositories.InlineImage, error) {
	contents := []*genai.Content{genai.NewContentFromText(
		"Kurdish-inspired artwork: "+prompt, genai.RoleUser)}

	resp, err := a.client.Models.GenerateContent(ctx, artModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate art: %w", err)
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &repositories.InlineImage{
					MIMEType: part.InlineData.MIMEType,
					Data:     part.InlineData.Data,
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("no image in art response")
}
