package database

import (
	"context"
	"database/sql"
	"time"
)

// HealthStatus reports database connectivity, connection pool statistics,
// and the courtroom session census.
type HealthStatus struct {
	Status          string `json:"status"`
	ResponseTime    int64  `json:"response_time_ms"`
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
	Idle            int    `json:"idle"`
	WaitCount       int64  `json:"wait_count"`
	MaxOpenConns    int    `json:"max_open_conns"`

	SessionsByStatus map[string]int `json:"sessions_by_status,omitempty"`
	SessionsTotal    int            `json:"sessions_total"`
}

// Health pings the database, collects pool statistics, and counts sessions
// per lifecycle status.
func Health(ctx context.Context, db *sql.DB) (*HealthStatus, error) {
	start := time.Now()

	if err := db.PingContext(ctx); err != nil {
		return &HealthStatus{
			Status:       "unhealthy",
			ResponseTime: time.Since(start).Milliseconds(),
		}, err
	}

	stats := db.Stats()
	out := &HealthStatus{
		Status:          "healthy",
		ResponseTime:    time.Since(start).Milliseconds(),
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
		MaxOpenConns:    stats.MaxOpenConnections,
	}

	census, err := sessionCensus(ctx, db)
	if err != nil {
		// The ping succeeded; a census failure degrades the report rather
		// than the status.
		return out, nil
	}
	out.SessionsByStatus = census
	for _, n := range census {
		out.SessionsTotal += n
	}
	return out, nil
}

func sessionCensus(ctx context.Context, db *sql.DB) (map[string]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT status, count(*) FROM court_sessions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}
