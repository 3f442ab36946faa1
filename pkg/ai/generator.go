package ai

import "context"

// TextGenerator generates text from a system prompt and user prompt.
// All LLM providers (Gemini, Ollama, OpenAI-compatible) implement this interface.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// DocumentGenerator generates text from a prompt plus an inline document.
// Only providers with native document understanding implement it.
type DocumentGenerator interface {
	GenerateFromDocument(ctx context.Context, systemPrompt, userPrompt, mimeType string, data []byte) (string, error)
}
