package ai

import "context"

// GeminiGenerator wraps GeminiClient with a fixed model.
type GeminiGenerator struct {
	client *GeminiClient
	model  string
}

// NewGeminiGenerator builds a Gemini-based generator.
func NewGeminiGenerator(client *GeminiClient, model string) *GeminiGenerator {
	return &GeminiGenerator{client: client, model: model}
}

// GenerateText implements TextGenerator using Gemini.
func (g *GeminiGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return g.client.GenerateText(ctx, g.model, systemPrompt, userPrompt)
}

// GenerateFromDocument implements DocumentGenerator using Gemini inline data.
func (g *GeminiGenerator) GenerateFromDocument(ctx context.Context, systemPrompt, userPrompt, mimeType string, data []byte) (string, error) {
	return g.client.GenerateFromDocument(ctx, g.model, systemPrompt, userPrompt, mimeType, data)
}
