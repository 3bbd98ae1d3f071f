package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tinytelemetry/vwatch/internal/model"
)

// SeriesPoint aggregates realtime samples into one minute.
type SeriesPoint struct {
	Minute          time.Time `json:"minute"`
	ActiveUsers     int64     `json:"activeUsers"`
	PageViews       int64     `json:"pageViews"`
	Errors          int64     `json:"errors"`
	AvgResponseTime float64   `json:"avgResponseTime"`
}

// DailyPoint is the summed page views of one day across projects.
type DailyPoint struct {
	Day            string `json:"day"`
	PageViews      int64  `json:"pageViews"`
	UniqueVisitors int64  `json:"uniqueVisitors"`
}

// InsertRealtimeBatch appends one realtime batch.
func (s *Store) InsertRealtimeBatch(records []model.RealtimeRecord) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, `INSERT INTO realtime_samples
		(project_id, ts, active_users, page_views, errors, avg_response_time)
		VALUES (?, ?, ?, ?, ?, ?)`, func(stmt *sql.Stmt) error {
		for _, r := range records {
			ts := r.Timestamp
			if ts.IsZero() {
				ts = time.Now()
			}
			if _, err := stmt.ExecContext(ctx, r.ProjectID, ts.UTC(), r.ActiveUsers, r.PageViews, r.Errors, r.AvgResponseTime); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertAnalyticsBatch upserts daily analytics keyed by project and day.
func (s *Store) InsertAnalyticsBatch(records []model.AnalyticsRecord) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, `INSERT OR REPLACE INTO analytics_daily
		(project_id, day, page_views, unique_visitors, bounce_rate, avg_session_duration, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, current_timestamp)`, func(stmt *sql.Stmt) error {
		for _, r := range records {
			if r.Date == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, r.ProjectID, r.Date, r.PageViews, r.UniqueVisitors, r.BounceRate, r.AvgSessionDuration); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, query string, fn func(*sql.Stmt) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	if err := fn(stmt); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return tx.Commit()
}

// RealtimeSeries returns per-minute aggregates since the given time, for one
// project or, with an empty projectID, across all projects.
func (s *Store) RealtimeSeries(projectID string, since time.Time) ([]SeriesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT date_trunc('minute', ts) AS minute,
			SUM(active_users)::BIGINT, SUM(page_views)::BIGINT, SUM(errors)::BIGINT,
			AVG(avg_response_time)
		FROM realtime_samples
		WHERE ts >= ? AND (? = '' OR project_id = ?)
		GROUP BY minute ORDER BY minute`, since.UTC(), projectID, projectID)
	if err != nil {
		return nil, fmt.Errorf("realtime series: %w", err)
	}
	defer rows.Close()

	var out []SeriesPoint
	for rows.Next() {
		var p SeriesPoint
		if err := rows.Scan(&p.Minute, &p.ActiveUsers, &p.PageViews, &p.Errors, &p.AvgResponseTime); err != nil {
			return nil, fmt.Errorf("scan realtime series: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DailyPageViews sums analytics per day from sinceDay (YYYY-MM-DD) onward.
func (s *Store) DailyPageViews(sinceDay string) ([]DailyPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT day, SUM(page_views)::BIGINT, SUM(unique_visitors)::BIGINT
		FROM analytics_daily
		WHERE day >= ?
		GROUP BY day ORDER BY day`, sinceDay)
	if err != nil {
		return nil, fmt.Errorf("daily page views: %w", err)
	}
	defer rows.Close()

	var out []DailyPoint
	for rows.Next() {
		var p DailyPoint
		if err := rows.Scan(&p.Day, &p.PageViews, &p.UniqueVisitors); err != nil {
			return nil, fmt.Errorf("scan daily page views: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SampleCount returns the number of stored realtime samples.
func (s *Store) SampleCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM realtime_samples`).Scan(&n)
	return n, err
}

// DeleteBefore removes realtime samples older than cutoff and daily
// analytics for days before it. It returns the number of rows deleted.
func (s *Store) DeleteBefore(cutoff time.Time) (int64, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM realtime_samples WHERE ts < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete realtime samples: %w", err)
	}
	samples, _ := res.RowsAffected()

	res, err = s.db.ExecContext(ctx, `DELETE FROM analytics_daily WHERE day < ?`, cutoff.UTC().Format("2006-01-02"))
	if err != nil {
		return samples, fmt.Errorf("delete daily analytics: %w", err)
	}
	days, _ := res.RowsAffected()
	return samples + days, nil
}
