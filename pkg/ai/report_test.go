package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) GenerateText(_ context.Context, _, _ string) (string, error) {
	return f.response, f.err
}

func TestParseReportOutput(t *testing.T) {
	out, err := ParseReportOutput(`{"plagiarismPercentage": 42.5, "findings": [{"snippetFromDocument": "abc", "sourceURL": "https://example.com", "similarityScore": 90}]}`)
	require.NoError(t, err)
	require.Equal(t, 42.5, out.PlagiarismPercentage)
	require.Len(t, out.Findings, 1)
	require.Equal(t, "abc", out.Findings[0].SnippetFromDocument)
	require.NotNil(t, out.Findings[0].SimilarityScore)
	require.Equal(t, 90.0, *out.Findings[0].SimilarityScore)
}

func TestParseReportOutputStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"plagiarismPercentage\": 10, \"findings\": []}\n```"
	out, err := ParseReportOutput(raw)
	require.NoError(t, err)
	require.Equal(t, 10.0, out.PlagiarismPercentage)
	require.Empty(t, out.Findings)
}

func TestParseReportOutputDefaultsMissingFields(t *testing.T) {
	out, err := ParseReportOutput(`{}`)
	require.NoError(t, err)
	require.Equal(t, 0.0, out.PlagiarismPercentage)
	require.NotNil(t, out.Findings)
	require.Empty(t, out.Findings)
}

func TestParseReportOutputClampsPercentages(t *testing.T) {
	out, err := ParseReportOutput(`{"plagiarismPercentage": 150, "findings": [{"snippetFromDocument": "x", "similarityScore": -5}]}`)
	require.NoError(t, err)
	require.Equal(t, 100.0, out.PlagiarismPercentage)
	require.Equal(t, 0.0, *out.Findings[0].SimilarityScore)
}

func TestParseReportOutputRejectsNonJSON(t *testing.T) {
	_, err := ParseReportOutput("I could not analyze this document.")
	require.Error(t, err)
}

func TestReportGeneratorSurfacesModelErrors(t *testing.T) {
	boom := errors.New("model unreachable")
	gen := NewReportGenerator(&fakeGenerator{err: boom})
	_, err := gen.Generate(context.Background(), "some text", "{}")
	require.ErrorIs(t, err, boom)
}

func TestReportGeneratorParsesModelResponse(t *testing.T) {
	gen := NewReportGenerator(&fakeGenerator{response: `{"plagiarismPercentage": 7, "findings": []}`})
	out, err := gen.Generate(context.Background(), "some text", "{}")
	require.NoError(t, err)
	require.Equal(t, 7.0, out.PlagiarismPercentage)
}
