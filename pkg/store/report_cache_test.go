package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"plagiax/pkg/domain"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisReportCacheRoundTrip(t *testing.T) {
	cache := NewRedisReportCache(newTestRedis(t), "", time.Hour)
	ctx := context.Background()

	report := domain.FullReport{
		SubmissionID:        "1700000000000-abcd",
		DocumentTitle:       "Essay on Tides",
		DocumentTextContent: "The tides rise and fall.",
		SubmissionTimestamp: 1700000000000,
		AIOutput: domain.ReportOutput{
			PlagiarismPercentage: 12.5,
			Findings:             []domain.Finding{},
		},
	}
	if err := cache.PutReport(ctx, report); err != nil {
		t.Fatalf("PutReport: %v", err)
	}
	got, ok, err := cache.GetReport(ctx, report.SubmissionID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if !ok {
		t.Fatal("report not found after put")
	}
	if got.DocumentTitle != report.DocumentTitle || got.AIOutput.PlagiarismPercentage != 12.5 {
		t.Fatalf("got %+v, want stored report", got)
	}
}

func TestRedisReportCacheMiss(t *testing.T) {
	cache := NewRedisReportCache(newTestRedis(t), "", time.Hour)
	_, ok, err := cache.GetReport(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if ok {
		t.Fatal("unexpected hit for missing id")
	}
}

func TestRedisReportCacheCorruptEntryReadsMissing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisReportCache(client, "plagiax:report", time.Hour)

	mr.Set("plagiax:report:bad", "{not json")
	_, ok, err := cache.GetReport(context.Background(), "bad")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if ok {
		t.Fatal("corrupt entry reported as hit")
	}
}

func TestRedisReportCacheRejectsEmptyID(t *testing.T) {
	cache := NewRedisReportCache(newTestRedis(t), "", time.Hour)
	if err := cache.PutReport(context.Background(), domain.FullReport{}); err == nil {
		t.Fatal("empty submission id accepted")
	}
}

func TestMemoryReportCacheRoundTrip(t *testing.T) {
	cache := NewMemoryReportCache()
	ctx := context.Background()
	report := domain.FullReport{SubmissionID: "id-1", DocumentTitle: "Untitled Document"}
	if err := cache.PutReport(ctx, report); err != nil {
		t.Fatalf("PutReport: %v", err)
	}
	got, ok, err := cache.GetReport(ctx, "id-1")
	if err != nil || !ok {
		t.Fatalf("GetReport: ok=%v err=%v", ok, err)
	}
	if got.DocumentTitle != "Untitled Document" {
		t.Fatalf("title = %q", got.DocumentTitle)
	}
}
