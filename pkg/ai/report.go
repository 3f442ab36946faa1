package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"plagiax/pkg/domain"
)

const reportSystemPrompt = `You are a plagiarism detection expert with advanced multi-language capabilities. You receive the text content of a document and metadata from the CORE academic search API.

Your task is to:
1. Determine the overall plagiarism percentage (0-100) for the entire document.
2. Identify specific segments within the document that appear to be plagiarized: direct copies, cleverly paraphrased content (synonym swaps, sentence reordering, changes in voice or tense, structural alterations that keep the original meaning), and potentially AI-generated text used to disguise plagiarized ideas.
3. For each identified segment provide the exact snippetFromDocument, the sourceURL if identifiable, the matching sourceSnippet from the source, and a similarityScore (0-100) for that segment considering both lexical and semantic similarity.

When comparing the document text to the CORE metadata, pay close attention to titles, abstracts, and full texts.

Respond with a single JSON object and nothing else:
{"plagiarismPercentage": <number 0-100>, "findings": [{"snippetFromDocument": "...", "sourceURL": "...", "sourceSnippet": "...", "similarityScore": <number 0-100>}]}

If no plagiarism is detected, plagiarismPercentage must be 0 and findings must be an empty array. Do not invent sources or similarity scores that cannot be reasonably determined; if a source is suspected but cannot be pinpointed to a URL, describe the nature of the suspected source instead (e.g. "general web content").`

// ReportGenerator produces a structured plagiarism report by delegating
// the analysis to a text generation model.
type ReportGenerator struct {
	gen TextGenerator
}

// NewReportGenerator binds the report prompt to a TextGenerator.
func NewReportGenerator(gen TextGenerator) *ReportGenerator {
	return &ReportGenerator{gen: gen}
}

// Generate runs one plagiarism analysis. Transport and decode failures are
// returned to the caller; a parseable response with missing optional fields
// degrades to zero defaults instead.
func (r *ReportGenerator) Generate(ctx context.Context, documentText, coreMetadata string) (domain.ReportOutput, error) {
	userPrompt := fmt.Sprintf("CORE Metadata: %s\n\nDocument Text: %s", coreMetadata, documentText)
	raw, err := r.gen.GenerateText(ctx, reportSystemPrompt, userPrompt)
	if err != nil {
		return domain.ReportOutput{}, fmt.Errorf("generate report: %w", err)
	}
	out, err := ParseReportOutput(raw)
	if err != nil {
		return domain.ReportOutput{}, fmt.Errorf("generate report: %w", err)
	}
	return out, nil
}

// ParseReportOutput decodes the model's JSON response into a ReportOutput.
// Missing fields default (findings to empty, percentage to 0) and numeric
// scores are clamped to [0,100]. Unparseable responses are an error.
func ParseReportOutput(raw string) (domain.ReportOutput, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return domain.ReportOutput{}, fmt.Errorf("model response contains no JSON object")
	}
	var out domain.ReportOutput
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return domain.ReportOutput{}, fmt.Errorf("decode model response: %w", err)
	}
	out.PlagiarismPercentage = clampPercent(out.PlagiarismPercentage)
	if out.Findings == nil {
		out.Findings = []domain.Finding{}
	}
	for i := range out.Findings {
		if out.Findings[i].SimilarityScore != nil {
			clamped := clampPercent(*out.Findings[i].SimilarityScore)
			out.Findings[i].SimilarityScore = &clamped
		}
	}
	return out, nil
}

// extractJSONObject strips markdown code fences and surrounding prose,
// returning the outermost {...} block.
func extractJSONObject(raw string) string {
	raw = strings.TrimSpace(raw)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
