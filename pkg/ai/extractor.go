package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Extractor turns an uploaded document into plain text.
// An empty result is valid: it means the document body held no readable text.
type Extractor interface {
	Extract(ctx context.Context, doc DataURI) (string, error)
}

// DataURI is a self-describing base64 document blob
// ("data:<mime>;base64,<payload>").
type DataURI struct {
	MimeType string
	Data     []byte
}

// ParseDataURI decodes a data URI into its MIME type and payload.
func ParseDataURI(raw string) (DataURI, error) {
	raw = strings.TrimSpace(raw)
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return DataURI{}, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return DataURI{}, fmt.Errorf("data URI missing payload")
	}
	mimeType, encoding, _ := strings.Cut(meta, ";")
	if !strings.EqualFold(strings.TrimSpace(encoding), "base64") {
		return DataURI{}, fmt.Errorf("data URI must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return DataURI{}, fmt.Errorf("decode data URI payload: %w", err)
	}
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return DataURI{MimeType: mimeType, Data: data}, nil
}

// String re-encodes the blob as a data URI.
func (d DataURI) String() string {
	return "data:" + d.MimeType + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

const extractSystemPrompt = `You are an advanced document processing AI. Your task is to meticulously extract readable text content ONLY from the main body of the provided document.

You MUST EXCLUDE any text found in headers and footers. Do not extract page numbers, document titles from headers, or any running footers.

Focus on: main body paragraphs and headings that are part of the main flow, text within tables and text boxes belonging to the main body, captions embedded in the main flow, and list items. Preserve paragraph structure where possible, but extracting ALL main body text takes priority over preserving structure. There is no limit on the length of the extracted text.

If the document is unprocessable or contains no readable main body text, return an empty string for extractedText; never return error messages or commentary inside it.

Respond with ONLY this JSON object: {"extractedText": "..."}`

// LLMExtractor delegates text extraction to a document-understanding model.
type LLMExtractor struct {
	gen DocumentGenerator
}

// NewLLMExtractor builds an Extractor backed by a DocumentGenerator.
func NewLLMExtractor(gen DocumentGenerator) *LLMExtractor {
	return &LLMExtractor{gen: gen}
}

// Extract implements Extractor. An empty extractedText is a valid,
// non-error response per the extraction contract.
func (e *LLMExtractor) Extract(ctx context.Context, doc DataURI) (string, error) {
	raw, err := e.gen.GenerateFromDocument(ctx, extractSystemPrompt, "Extract the main body text from this document.", doc.MimeType, doc.Data)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	payload := extractJSONObject(raw)
	if payload == "" {
		return "", fmt.Errorf("extract text: model response contains no JSON object")
	}
	var out struct {
		ExtractedText *string `json:"extractedText"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return "", fmt.Errorf("extract text: decode model response: %w", err)
	}
	if out.ExtractedText == nil {
		return "", fmt.Errorf("extract text: model returned no extractedText field")
	}
	return *out.ExtractedText, nil
}
