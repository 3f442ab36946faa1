// Package metadata looks up academic metadata for a document from the
// CORE search API. Lookup failures are absorbed into descriptive payloads
// so a metadata outage can never block a plagiarism check.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultCoreBaseURL = "https://core.ac.uk/api-v2"
	// Only a prefix of the document is used for the search query to keep
	// URLs within sane bounds.
	queryPrefixLen = 250
	resultLimit    = 5
)

// CoreClient queries the CORE article search endpoint.
type CoreClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewCoreClient builds a client. An empty baseURL uses the public API.
func NewCoreClient(baseURL, apiKey string) *CoreClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultCoreBaseURL
	}
	return &CoreClient{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Lookup returns metadata for the document as a JSON string. It never
// returns an error: failures become structured error payloads that are
// forwarded to the report generator as-is.
func (c *CoreClient) Lookup(ctx context.Context, documentText string) string {
	if c == nil || c.apiKey == "" {
		return `{"note":"CORE metadata lookup disabled"}`
	}
	query := documentText
	if runes := []rune(query); len(runes) > queryPrefixLen {
		query = string(runes[:queryPrefixLen])
	}
	endpoint := fmt.Sprintf("%s/articles/search/%s?apiKey=%s&limit=%d",
		c.baseURL, url.PathEscape(query), url.QueryEscape(c.apiKey), resultLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errPayload(map[string]any{"error": "Exception during CORE API fetch", "message": err.Error()})
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errPayload(map[string]any{"error": "Exception during CORE API fetch", "message": err.Error()})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errPayload(map[string]any{"error": "Exception during CORE API fetch", "message": err.Error()})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errPayload(map[string]any{
			"error":  "Failed to fetch data from CORE API",
			"status": resp.StatusCode,
			"body":   string(body),
		})
	}
	return string(body)
}

func errPayload(payload map[string]any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return `{"error":"Failed to encode CORE API error"}`
	}
	return string(data)
}
