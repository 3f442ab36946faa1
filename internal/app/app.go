package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"plagiax/internal/util"
	"plagiax/pkg/ai"
	"plagiax/pkg/domain"
	"plagiax/pkg/storage"
	"plagiax/pkg/store"
)

const (
	defaultTitle   = "Untitled Document"
	titlePrefixLen = 70
)

// reportGenerator produces a plagiarism report from document text and
// external metadata context.
type reportGenerator interface {
	Generate(ctx context.Context, documentText, coreMetadata string) (domain.ReportOutput, error)
}

// metadataLookup fetches scholarly metadata context for a document.
// Implementations absorb failures and always return a context string.
type metadataLookup interface {
	Lookup(ctx context.Context, documentText string) string
}

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string

	Store     store.Store
	Sessions  store.SessionStore
	Reports   store.ReportCache
	Objects   storage.ObjectStore
	Extractor ai.Extractor
	Reporter  reportGenerator
	Metadata  metadataLookup
}

// App is the core application service wiring storage, extraction and
// report generation together.
type App struct {
	store     store.Store
	sessions  store.SessionStore
	reports   store.ReportCache
	objects   storage.ObjectStore
	extractor ai.Extractor
	reporter  reportGenerator
	metadata  metadataLookup
	now       func() time.Time
}

// New constructs the application. Reporter and extractor are required;
// the object store is optional and disables document downloads when nil.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if cfg.Reporter == nil {
		return nil, fmt.Errorf("report generator required")
	}
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("document extractor required")
	}
	reports := cfg.Reports
	if reports == nil {
		reports = store.NewMemoryReportCache()
	}
	return &App{
		store:     dataStore,
		sessions:  cfg.Sessions,
		reports:   reports,
		objects:   cfg.Objects,
		extractor: cfg.Extractor,
		reporter:  cfg.Reporter,
		metadata:  cfg.Metadata,
		now:       time.Now,
	}, nil
}

// CheckInput is a plagiarism check submission. Either Text or Document
// must be present; Document wins when both are set.
type CheckInput struct {
	Text     string
	Document *ai.DataURI
	FileName string
	Title    string
}

// SubmitCheck runs the full plagiarism check workflow and returns the
// finished report. userEmail is empty for anonymous submissions, which
// produce no history entry.
func (a *App) SubmitCheck(ctx context.Context, userEmail string, in CheckInput) (domain.FullReport, error) {
	text := in.Text
	if in.Document != nil {
		extracted, err := a.extractor.Extract(ctx, *in.Document)
		if err != nil {
			return domain.FullReport{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		text = extracted
	}
	if strings.TrimSpace(text) == "" {
		return domain.FullReport{}, ErrNoContent
	}

	title := deriveTitle(in.Title, in.FileName, text)

	coreMetadata := ""
	if a.metadata != nil {
		coreMetadata = a.metadata.Lookup(ctx, text)
	}

	output, err := a.reporter.Generate(ctx, text, coreMetadata)
	if err != nil {
		return domain.FullReport{}, fmt.Errorf("%w: %v", ErrReportFailed, err)
	}

	logger := util.LoggerFromContext(ctx)
	now := a.now()
	report := domain.FullReport{
		AIOutput:            output,
		DocumentTitle:       title,
		DocumentTextContent: text,
		FileName:            in.FileName,
		SubmissionTimestamp: now.UnixMilli(),
		SubmissionID:        util.NewSubmissionID(now),
	}

	if in.Document != nil && a.objects != nil {
		key := storage.DocumentKey(report.SubmissionID, in.FileName)
		err := a.objects.Put(ctx, key, bytes.NewReader(in.Document.Data), int64(len(in.Document.Data)), in.Document.MimeType)
		if err != nil {
			logger.Warn("store document failed", "submissionId", report.SubmissionID, "err", err)
		} else {
			report.StorageKey = key
		}
	}

	if err := a.reports.PutReport(ctx, report); err != nil {
		logger.Warn("cache report failed", "submissionId", report.SubmissionID, "err", err)
	}

	if userEmail != "" {
		summary := domain.ReportSummary{
			ID:                   report.SubmissionID,
			Timestamp:            report.SubmissionTimestamp,
			PlagiarismPercentage: output.PlagiarismPercentage,
			DocumentTitle:        title,
			FileName:             in.FileName,
		}
		evicted, err := a.store.AppendHistory(userEmail, summary)
		if err != nil {
			logger.Warn("append history failed", "email", userEmail, "err", err)
		}
		a.releaseEvicted(ctx, evicted)
	}

	return report, nil
}

// releaseEvicted removes the stored documents of history entries that
// rolled past the cap. Their reports stay in the cache until the TTL
// reclaims them.
func (a *App) releaseEvicted(ctx context.Context, evicted []domain.ReportSummary) {
	if a.objects == nil {
		return
	}
	logger := util.LoggerFromContext(ctx)
	for _, old := range evicted {
		if old.FileName == "" {
			continue
		}
		key := storage.DocumentKey(old.ID, old.FileName)
		if err := a.objects.Delete(ctx, key); err != nil {
			logger.Warn("delete evicted document failed", "submissionId", old.ID, "err", err)
		}
	}
}

// GetReport fetches a cached report by submission ID.
func (a *App) GetReport(ctx context.Context, submissionID string) (domain.FullReport, error) {
	report, ok, err := a.reports.GetReport(ctx, submissionID)
	if err != nil {
		return domain.FullReport{}, fmt.Errorf("fetch report: %w", err)
	}
	if !ok {
		return domain.FullReport{}, ErrReportNotFound
	}
	return report, nil
}

// documentURLExpiry bounds how long a presigned download link stays valid.
const documentURLExpiry = 15 * time.Minute

// DocumentURL returns a short-lived direct download URL for the
// submission's stored document. Backends without presign support yield
// an empty URL; callers then fall back to OpenDocument streaming.
func (a *App) DocumentURL(ctx context.Context, submissionID string) (string, error) {
	report, err := a.GetReport(ctx, submissionID)
	if err != nil {
		return "", err
	}
	if report.StorageKey == "" || a.objects == nil {
		return "", ErrReportNotFound
	}
	url, err := a.objects.PresignGet(ctx, report.StorageKey, documentURLExpiry)
	if err != nil {
		return "", nil
	}
	return url, nil
}

// OpenDocument streams the original uploaded file for a submission.
func (a *App) OpenDocument(ctx context.Context, submissionID string) (io.ReadCloser, string, string, error) {
	report, err := a.GetReport(ctx, submissionID)
	if err != nil {
		return nil, "", "", err
	}
	if report.StorageKey == "" || a.objects == nil {
		return nil, "", "", ErrReportNotFound
	}
	rc, contentType, err := a.objects.Get(ctx, report.StorageKey)
	if err != nil {
		return nil, "", "", fmt.Errorf("open document: %w", err)
	}
	return rc, contentType, report.FileName, nil
}

// History lists the user's report summaries, newest first.
func (a *App) History(email string) ([]domain.ReportSummary, error) {
	return a.store.ListHistory(email)
}

// HistoryStats aggregates the user's history into dashboard statistics.
func (a *App) HistoryStats(email string) (domain.HistoryStats, error) {
	items, err := a.store.ListHistory(email)
	if err != nil {
		return domain.HistoryStats{}, err
	}
	stats := domain.HistoryStats{TotalChecks: len(items)}
	if len(items) == 0 {
		return stats, nil
	}
	var sum float64
	stats.MinPercentage = items[0].PlagiarismPercentage
	stats.MaxPercentage = items[0].PlagiarismPercentage
	for _, item := range items {
		pct := item.PlagiarismPercentage
		sum += pct
		if pct < stats.MinPercentage {
			stats.MinPercentage = pct
		}
		if pct > stats.MaxPercentage {
			stats.MaxPercentage = pct
		}
		switch {
		case pct <= 5:
			stats.PlagiarismFree++
		case pct <= 50:
			stats.Detected++
		default:
			stats.HighPlagiarism++
		}
	}
	stats.AveragePercentage = sum / float64(len(items))
	return stats, nil
}

// deriveTitle picks the report title: explicit title, then filename
// without extension, then a text prefix, then a fixed fallback.
func deriveTitle(explicit, fileName, text string) string {
	if t := strings.TrimSpace(explicit); t != "" {
		return t
	}
	if fileName != "" {
		base := strings.TrimSuffix(fileName, path.Ext(fileName))
		if t := strings.TrimSpace(base); t != "" {
			return t
		}
	}
	if t := strings.TrimSpace(text); t != "" {
		runes := []rune(t)
		if len(runes) > titlePrefixLen {
			return string(runes[:titlePrefixLen]) + "..."
		}
		return t
	}
	return defaultTitle
}
