package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"plagiax/pkg/domain"
)

// RedisReportCache holds full reports between submission and retrieval.
// Entries expire after the configured TTL.
type RedisReportCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisReportCache(client *redis.Client, prefix string, ttl time.Duration) *RedisReportCache {
	if prefix == "" {
		prefix = "plagiax:report"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisReportCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisReportCache) key(id string) string {
	return c.prefix + ":" + id
}

func (c *RedisReportCache) PutReport(ctx context.Context, report domain.FullReport) error {
	if report.SubmissionID == "" {
		return errors.New("report has no submission id")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return c.client.Set(ctx, c.key(report.SubmissionID), data, c.ttl).Err()
}

// GetReport returns the cached report. A corrupt cache entry reads as
// missing rather than failing the request.
func (c *RedisReportCache) GetReport(ctx context.Context, submissionID string) (domain.FullReport, bool, error) {
	data, err := c.client.Get(ctx, c.key(submissionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.FullReport{}, false, nil
	}
	if err != nil {
		return domain.FullReport{}, false, err
	}
	var report domain.FullReport
	if err := json.Unmarshal(data, &report); err != nil {
		return domain.FullReport{}, false, nil
	}
	return report, true, nil
}

// MemoryReportCache is an in-process ReportCache for tests and
// Redis-less deployments. Entries never expire.
type MemoryReportCache struct {
	mu      sync.RWMutex
	reports map[string]domain.FullReport
}

func NewMemoryReportCache() *MemoryReportCache {
	return &MemoryReportCache{reports: make(map[string]domain.FullReport)}
}

func (c *MemoryReportCache) PutReport(_ context.Context, report domain.FullReport) error {
	if report.SubmissionID == "" {
		return errors.New("report has no submission id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[report.SubmissionID] = report
	return nil
}

func (c *MemoryReportCache) GetReport(_ context.Context, submissionID string) (domain.FullReport, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	report, ok := c.reports[submissionID]
	return report, ok, nil
}
