package store

import (
	"context"

	"plagiax/pkg/domain"
)

// Store defines persistence operations for users and report history.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// history: an append-only log of report summaries per user email,
	// newest first, capped at domain.HistoryLimit entries. Entries
	// pushed past the cap are returned so callers can release any
	// resources tied to them.
	AppendHistory(email string, summary domain.ReportSummary) ([]domain.ReportSummary, error)
	ListHistory(email string) ([]domain.ReportSummary, error)
}

// SessionStore issues and resolves session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}

// ReportCache holds full report payloads between submission and the
// results view. Entries expire; this is transient state, not a record.
type ReportCache interface {
	PutReport(ctx context.Context, report domain.FullReport) error
	GetReport(ctx context.Context, submissionID string) (domain.FullReport, bool, error)
}

// prependCapped inserts the newest summary at the head and splits off
// the oldest entries beyond the history limit.
func prependCapped(items []domain.ReportSummary, summary domain.ReportSummary) (kept, evicted []domain.ReportSummary) {
	out := make([]domain.ReportSummary, 0, len(items)+1)
	out = append(out, summary)
	out = append(out, items...)
	if len(out) > domain.HistoryLimit {
		return out[:domain.HistoryLimit], out[domain.HistoryLimit:]
	}
	return out, nil
}
