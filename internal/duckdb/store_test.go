package duckdb

import (
	"context"
	"testing"
	"time"

	"github.com/tinytelemetry/vwatch/internal/model"
	"github.com/tinytelemetry/vwatch/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore(\"\") failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStoreOnDisk(t *testing.T) {
	path := t.TempDir() + "/nested/history.duckdb"
	s, err := NewStore(path, 5*time.Second)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()
	if s.Path() != path || s.QueryTimeout != 5*time.Second {
		t.Errorf("path=%q timeout=%s", s.Path(), s.QueryTimeout)
	}
}

func TestRealtimeSeries(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().UTC().Truncate(time.Minute).Add(-5 * time.Minute)

	batch := []model.RealtimeRecord{
		{ProjectID: "a", Timestamp: base.Add(10 * time.Second), ActiveUsers: 3, PageViews: 10, Errors: 1, AvgResponseTime: 100},
		{ProjectID: "b", Timestamp: base.Add(20 * time.Second), ActiveUsers: 2, PageViews: 5, AvgResponseTime: 300},
		{ProjectID: "a", Timestamp: base.Add(70 * time.Second), ActiveUsers: 7, PageViews: 1},
	}
	if err := s.InsertRealtimeBatch(batch); err != nil {
		t.Fatalf("InsertRealtimeBatch: %v", err)
	}

	n, err := s.SampleCount()
	if err != nil || n != 3 {
		t.Fatalf("SampleCount = %d, %v", n, err)
	}

	all, err := s.RealtimeSeries("", base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("RealtimeSeries: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d minutes, want 2", len(all))
	}
	if all[0].ActiveUsers != 5 || all[0].PageViews != 15 || all[0].AvgResponseTime != 200 {
		t.Errorf("first minute = %+v", all[0])
	}
	if !all[0].Minute.Equal(base) {
		t.Errorf("minute = %s, want %s", all[0].Minute, base)
	}

	onlyA, err := s.RealtimeSeries("a", base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("RealtimeSeries(a): %v", err)
	}
	if len(onlyA) != 2 || onlyA[0].ActiveUsers != 3 || onlyA[1].ActiveUsers != 7 {
		t.Errorf("series(a) = %+v", onlyA)
	}
}

func TestDailyPageViewsUpserts(t *testing.T) {
	s := newTestStore(t)
	first := []model.AnalyticsRecord{
		{ProjectID: "a", Date: "2024-05-01", PageViews: 10, UniqueVisitors: 4},
		{ProjectID: "b", Date: "2024-05-01", PageViews: 5, UniqueVisitors: 1},
		{ProjectID: "a", Date: "2024-05-02", PageViews: 7, UniqueVisitors: 2},
		{ProjectID: "a", Date: "", PageViews: 99},
	}
	if err := s.InsertAnalyticsBatch(first); err != nil {
		t.Fatalf("InsertAnalyticsBatch: %v", err)
	}
	// A refreshed value for the same project and day replaces the old row.
	if err := s.InsertAnalyticsBatch([]model.AnalyticsRecord{{ProjectID: "a", Date: "2024-05-02", PageViews: 8, UniqueVisitors: 3}}); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	days, err := s.DailyPageViews("2024-05-01")
	if err != nil {
		t.Fatalf("DailyPageViews: %v", err)
	}
	want := []DailyPoint{{"2024-05-01", 15, 5}, {"2024-05-02", 8, 3}}
	if len(days) != len(want) {
		t.Fatalf("days = %+v", days)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("[%d] = %+v, want %+v", i, days[i], want[i])
		}
	}

	later, err := s.DailyPageViews("2024-05-02")
	if err != nil || len(later) != 1 {
		t.Errorf("since filter = %+v, %v", later, err)
	}
}

func TestDeleteBefore(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	if err := s.InsertRealtimeBatch([]model.RealtimeRecord{
		{ProjectID: "a", Timestamp: now.Add(-48 * time.Hour)},
		{ProjectID: "a", Timestamp: now},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertAnalyticsBatch([]model.AnalyticsRecord{
		{ProjectID: "a", Date: now.AddDate(0, 0, -5).Format("2006-01-02")},
		{ProjectID: "a", Date: now.Format("2006-01-02")},
	}); err != nil {
		t.Fatal(err)
	}

	deleted, err := s.DeleteBefore(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	if n, _ := s.SampleCount(); n != 1 {
		t.Errorf("SampleCount = %d, want 1", n)
	}
}

func TestRecorderWritesStoreBatches(t *testing.T) {
	db := newTestStore(t)
	state := store.New()
	rec := NewRecorder(db, state, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	// Wait until the recorder has subscribed before writing.
	deadline := time.Now().Add(5 * time.Second)
	for {
		state.SetRealtimeData([]model.RealtimeRecord{{ProjectID: "a", Timestamp: time.Now()}})
		if n, _ := db.SampleCount(); n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("recorder never wrote a realtime batch")
		}
		time.Sleep(20 * time.Millisecond)
	}

	state.SetAnalyticsData([]model.AnalyticsRecord{{ProjectID: "a", Date: "2024-05-01", PageViews: 4}})
	for {
		days, _ := db.DailyPageViews("2024-01-01")
		if len(days) == 1 && days[0].PageViews == 4 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("recorder never wrote an analytics batch")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run = %v", err)
	}
}
