package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAICompatGenerator speaks the chat completions dialect shared by
// OpenAI, OpenRouter, vLLM, LiteLLM and most self-hosted gateways.
type OpenAICompatGenerator struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAICompatGenerator builds a TextGenerator against baseURL,
// which must already carry the /v1 prefix. apiKey may be empty for
// local gateways that skip authentication.
func NewOpenAICompatGenerator(baseURL, apiKey, model string) *OpenAICompatGenerator {
	return &OpenAICompatGenerator{
		endpoint:   strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/chat/completions",
		apiKey:     strings.TrimSpace(apiKey),
		model:      strings.TrimSpace(model),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatCompletionResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateText implements TextGenerator via POST /chat/completions.
func (g *OpenAICompatGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.model == "" {
		return "", fmt.Errorf("chat completion model required")
	}
	payload := chatCompletionRequest{Model: g.model}
	if sys := strings.TrimSpace(systemPrompt); sys != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: sys})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: userPrompt})

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("chat completion read: %w", err)
	}
	var completion chatCompletionResponse
	decodeErr := json.Unmarshal(raw, &completion)

	if resp.StatusCode >= 400 {
		if decodeErr == nil && completion.Error != nil && completion.Error.Message != "" {
			return "", fmt.Errorf("chat completion status %d: %s", resp.StatusCode, completion.Error.Message)
		}
		return "", fmt.Errorf("chat completion status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("chat completion decode: %w", decodeErr)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}
	return text, nil
}
