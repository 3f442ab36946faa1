package domain

import "time"

// HistoryLimit caps the number of report summaries kept per user.
// The oldest entries are evicted silently once the cap is reached.
const HistoryLimit = 50

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ReportSummary is the compact history record of one plagiarism check.
type ReportSummary struct {
	ID                   string  `json:"id"`
	Timestamp            int64   `json:"timestamp"`
	PlagiarismPercentage float64 `json:"plagiarismPercentage"`
	DocumentTitle        string  `json:"documentTitle"`
	FileName             string  `json:"fileName,omitempty"`
}

// Finding is one plagiarized segment identified by the model.
// Source fields are optional; the model is instructed not to invent them.
type Finding struct {
	SnippetFromDocument string   `json:"snippetFromDocument"`
	SourceURL           string   `json:"sourceURL,omitempty"`
	SourceSnippet       string   `json:"sourceSnippet,omitempty"`
	SimilarityScore     *float64 `json:"similarityScore,omitempty"`
}

// ReportOutput is the structured result of the report-generation capability.
type ReportOutput struct {
	PlagiarismPercentage float64   `json:"plagiarismPercentage"`
	Findings             []Finding `json:"findings"`
}

// FullReport is the complete result of one check. It lives only in the
// transient report cache between submission and the results view.
type FullReport struct {
	AIOutput            ReportOutput `json:"aiOutput"`
	DocumentTitle       string       `json:"documentTitle"`
	DocumentTextContent string       `json:"documentTextContent"`
	FileName            string       `json:"fileName,omitempty"`
	StorageKey          string       `json:"-"`
	SubmissionTimestamp int64        `json:"submissionTimestamp"`
	SubmissionID        string       `json:"submissionId"`
}

// HistoryStats aggregates a user's history for the analytics view.
type HistoryStats struct {
	TotalChecks       int     `json:"totalChecks"`
	AveragePercentage float64 `json:"averagePercentage"`
	MinPercentage     float64 `json:"minPercentage"`
	MaxPercentage     float64 `json:"maxPercentage"`
	PlagiarismFree    int     `json:"plagiarismFree"`
	Detected          int     `json:"detected"`
	HighPlagiarism    int     `json:"highPlagiarism"`
}
