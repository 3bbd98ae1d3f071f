package model

import "time"

// RealtimeRecord is a single timestamped sample of live traffic for a project.
type RealtimeRecord struct {
	ProjectID       string    `json:"projectId"`
	Timestamp       time.Time `json:"timestamp"`
	ActiveUsers     int64     `json:"activeUsers"`
	PageViews       int64     `json:"pageViews"`
	Errors          int64     `json:"errors"`
	AvgResponseTime float64   `json:"avgResponseTime"` // ms
}

// CoreWebVitals carries raw LCP, FID and CLS values without classification.
type CoreWebVitals struct {
	LCP float64 `json:"lcp"`
	FID float64 `json:"fid"`
	CLS float64 `json:"cls"`
}

// PerformanceRecord holds one day of performance figures for a project.
type PerformanceRecord struct {
	ProjectID       string        `json:"projectId"`
	Date            string        `json:"date"`
	AvgResponseTime float64       `json:"avgResponseTime"`
	P95ResponseTime float64       `json:"p95ResponseTime"`
	ErrorRate       float64       `json:"errorRate"`
	Uptime          float64       `json:"uptime"`
	CoreWebVitals   CoreWebVitals `json:"coreWebVitals"`
}

// Envelope is the JSON wrapper used by every enveloped API response.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
