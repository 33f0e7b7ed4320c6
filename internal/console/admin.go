package console

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultPurgeDays is the retention used when PurgeLogs is called with zero.
const DefaultPurgeDays = 30

// DashboardStats are the headline numbers of the admin dashboard.
type DashboardStats struct {
	TotalUsers    int64 `json:"total_users"`
	ActiveUsers   int64 `json:"active_users"`
	TotalRequests int64 `json:"total_requests"`
	TodayRequests int64 `json:"today_requests"`
}

// DatabaseInfo describes the backend's database.
type DatabaseInfo struct {
	Version    string            `json:"version"`
	Size       string            `json:"size"`
	TableSizes map[string]string `json:"table_sizes"`
}

// PurgeResult reports a log purge.
type PurgeResult struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
	Days         int    `json:"days"`
}

// HealthCheck is the result of one dependency check.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health is the backend's health report.
type Health struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]HealthCheck `json:"checks"`
}

// Healthy reports whether the backend considers itself healthy.
func (h Health) Healthy() bool {
	return h.Status == "healthy"
}

func (c *Client) Dashboard(ctx context.Context) (DashboardStats, error) {
	var env struct {
		Stats DashboardStats `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/dashboard", nil, nil, &env); err != nil {
		return DashboardStats{}, err
	}
	return env.Stats, nil
}

func (c *Client) SystemInfo(ctx context.Context) (DatabaseInfo, error) {
	var env struct {
		Database DatabaseInfo `json:"database"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/system", nil, nil, &env); err != nil {
		return DatabaseInfo{}, err
	}
	return env.Database, nil
}

// PurgeLogs deletes request logs older than days. Zero means DefaultPurgeDays.
func (c *Client) PurgeLogs(ctx context.Context, days int) (PurgeResult, error) {
	if days < 0 {
		return PurgeResult{}, fmt.Errorf("invalid retention: %d days", days)
	}
	if days == 0 {
		days = DefaultPurgeDays
	}

	query := struct {
		Days int `url:"days"`
	}{days}

	var result PurgeResult
	if err := c.do(ctx, http.MethodDelete, "/admin/logs/purge", query, nil, &result); err != nil {
		return PurgeResult{}, err
	}
	return result, nil
}

// Health fetches the backend health report. An unhealthy backend answers 503,
// which is returned as an *APIError.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &h)
	return h, err
}

// Snapshot is everything the dashboard view shows at once.
type Snapshot struct {
	Stats    DashboardStats
	Health   Health
	LogStats LogStats
}

// DashboardSnapshot fetches dashboard statistics, health and log statistics
// concurrently. The first failure cancels the remaining calls.
func (c *Client) DashboardSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, err := c.Dashboard(gctx)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		snap.Stats = stats
		return nil
	})
	g.Go(func() error {
		health, err := c.Health(gctx)
		if err != nil {
			return fmt.Errorf("health: %w", err)
		}
		snap.Health = health
		return nil
	})
	g.Go(func() error {
		stats, err := c.LogStats(gctx, "", "")
		if err != nil {
			return fmt.Errorf("log stats: %w", err)
		}
		snap.LogStats = stats
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
