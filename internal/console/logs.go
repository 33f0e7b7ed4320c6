package console

import (
	"context"
	"net/http"
	"time"
)

// DefaultLogLimit is the page size the backend applies when none is given.
const DefaultLogLimit = 50

// ProxyLog is one request recorded by the backend.
type ProxyLog struct {
	ID           int64     `json:"id"`
	UserID       *int64    `json:"user_id,omitempty"`
	RemoteAddr   string    `json:"remote_addr"`
	Method       string    `json:"method"`
	URL          string    `json:"url"`
	Host         string    `json:"host"`
	UserAgent    string    `json:"user_agent"`
	StatusCode   int       `json:"status_code"`
	ResponseSize int64     `json:"response_size"`
	Duration     int64     `json:"duration"`
	Timestamp    time.Time `json:"timestamp"`
}

// LogQuery filters ListLogs. Dates use the backend's YYYY-MM-DD format.
type LogQuery struct {
	Page     int    `url:"page,omitempty"`
	Limit    int    `url:"limit,omitempty"`
	UserID   int64  `url:"user_id,omitempty"`
	Method   string `url:"method,omitempty"`
	Host     string `url:"host,omitempty"`
	FromDate string `url:"from_date,omitempty"`
	ToDate   string `url:"to_date,omitempty"`
}

// LogPage is one page of request logs.
type LogPage struct {
	Logs  []ProxyLog `json:"logs"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

// LogStats aggregates request logs over a date range.
type LogStats struct {
	TotalRequests   int64            `json:"total_requests"`
	MethodStats     map[string]int64 `json:"method_stats"`
	StatusStats     map[string]int64 `json:"status_stats"`
	HostStats       map[string]int64 `json:"host_stats"`
	AvgResponseTime float64          `json:"avg_response_time"`
	FromDate        string           `json:"from_date"`
	ToDate          string           `json:"to_date"`
}

type dateRange struct {
	FromDate string `url:"from_date,omitempty"`
	ToDate   string `url:"to_date,omitempty"`
}

func (c *Client) ListLogs(ctx context.Context, q LogQuery) (LogPage, error) {
	if q.Limit == 0 {
		q.Limit = DefaultLogLimit
	}

	var page LogPage
	if err := c.do(ctx, http.MethodGet, "/logs", q, nil, &page); err != nil {
		return LogPage{}, err
	}
	return page, nil
}

// LogStats returns statistics between from and to (YYYY-MM-DD, both optional).
func (c *Client) LogStats(ctx context.Context, from, to string) (LogStats, error) {
	var stats LogStats
	if err := c.do(ctx, http.MethodGet, "/logs/stats", dateRange{from, to}, nil, &stats); err != nil {
		return LogStats{}, err
	}
	return stats, nil
}
