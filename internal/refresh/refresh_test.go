package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/tinytelemetry/vwatch/internal/model"
	"github.com/tinytelemetry/vwatch/internal/store"
)

type fakeGateway struct {
	mu          sync.Mutex
	projects    model.ProjectResult
	analytics   []model.AnalyticsRecord
	performance []model.PerformanceRecord
	realtime    []model.RealtimeRecord
	err         error
	block       chan struct{}
	calls       atomic.Int32
	batchIDs    []string
}

func (f *fakeGateway) GetProjects(ctx context.Context) model.ProjectResult {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projects
}

func (f *fakeGateway) wait(ctx context.Context) error {
	if f.block == nil {
		return nil
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeGateway) GetAnalytics(ctx context.Context, id string, r model.TimeRange) ([]model.AnalyticsRecord, error) {
	return f.GetBatchAnalytics(ctx, []string{id}, r)
}

func (f *fakeGateway) GetBatchAnalytics(ctx context.Context, ids []string, r model.TimeRange) ([]model.AnalyticsRecord, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchIDs = append([]string(nil), ids...)
	return f.analytics, f.err
}

func (f *fakeGateway) GetPerformance(ctx context.Context, id string, r model.TimeRange) ([]model.PerformanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.performance, f.err
}

func (f *fakeGateway) GetRealtimeData(ctx context.Context, id string) ([]model.RealtimeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.realtime, f.err
}

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

func TestLoadProjects(t *testing.T) {
	t.Parallel()
	st := store.New()
	gw := &fakeGateway{projects: model.ProjectResult{Projects: []model.Project{{ID: "a"}}, Source: "live"}}
	l := NewLoader(st, gw, quietLogger())

	if err := l.LoadProjects(context.Background()); err != nil {
		t.Fatalf("LoadProjects: %v", err)
	}
	snap := st.Snapshot()
	if len(snap.Projects) != 1 || snap.Loading.Projects || snap.Error != "" {
		t.Errorf("state = %+v", snap)
	}
}

func TestLoadProjectsDegradedEmptySetsError(t *testing.T) {
	t.Parallel()
	st := store.New()
	st.SetProjects([]model.Project{{ID: "old"}})
	gw := &fakeGateway{projects: model.ProjectResult{Projects: []model.Project{}, Source: "fallback", Degraded: errors.New("boom")}}
	l := NewLoader(st, gw, quietLogger())

	if err := l.LoadProjects(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	snap := st.Snapshot()
	if snap.Error != MsgProjectsFailed {
		t.Errorf("Error = %q", snap.Error)
	}
	if len(snap.Projects) != 1 || snap.Projects[0].ID != "old" {
		t.Errorf("projects replaced on failure: %+v", snap.Projects)
	}
	if snap.Loading.Projects {
		t.Error("loading flag left on")
	}
}

func TestLoadProjectsDegradedWithFallbackData(t *testing.T) {
	t.Parallel()
	st := store.New()
	gw := &fakeGateway{projects: model.ProjectResult{Projects: []model.Project{{ID: "project-1"}}, Source: "fallback", Degraded: errors.New("boom")}}
	l := NewLoader(st, gw, quietLogger())

	if err := l.LoadProjects(context.Background()); err != nil {
		t.Fatalf("LoadProjects: %v", err)
	}
	if snap := st.Snapshot(); snap.Error != "" || len(snap.Projects) != 1 {
		t.Errorf("state = %+v", snap)
	}
}

func TestDatasetFailureKeepsDataAndClearsFlag(t *testing.T) {
	t.Parallel()
	st := store.New()
	st.SetAnalyticsData([]model.AnalyticsRecord{{ProjectID: "kept"}})
	st.SetRealtimeData([]model.RealtimeRecord{{ProjectID: "kept"}})
	gw := &fakeGateway{err: errors.New("upstream down")}
	l := NewLoader(st, gw, quietLogger())
	ctx := context.Background()

	if err := l.LoadAnalytics(ctx, []string{"a"}, model.Range7Days); err == nil {
		t.Fatal("expected analytics error")
	}
	snap := st.Snapshot()
	if snap.Error != MsgAnalyticsFailed || len(snap.AnalyticsData) != 1 || snap.Loading.Analytics {
		t.Errorf("after analytics failure: %+v", snap)
	}

	if err := l.LoadRealtime(ctx, []string{"a"}); err == nil {
		t.Fatal("expected realtime error")
	}
	snap = st.Snapshot()
	if snap.Error != MsgRealtimeFailed {
		t.Errorf("error slot not overwritten: %q", snap.Error)
	}
	if len(snap.RealtimeData) != 1 || snap.Loading.Realtime {
		t.Errorf("after realtime failure: %+v", snap)
	}

	if err := l.LoadPerformance(ctx, []string{"a"}, model.Range7Days); err == nil {
		t.Fatal("expected performance error")
	}
	if got := st.Snapshot().Error; got != MsgPerformanceFailed {
		t.Errorf("Error = %q", got)
	}
}

func TestCancelledLoadClearsFlagWithoutError(t *testing.T) {
	t.Parallel()
	st := store.New()
	gw := &fakeGateway{block: make(chan struct{})}
	l := NewLoader(st, gw, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.LoadAnalytics(ctx, []string{"a"}, model.Range7Days) }()

	deadline := time.Now().Add(2 * time.Second)
	for !st.Snapshot().Loading.Analytics {
		if time.Now().After(deadline) {
			t.Fatal("loading flag never raised")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	snap := st.Snapshot()
	if snap.Loading.Analytics {
		t.Error("loading flag stuck after cancellation")
	}
	if snap.Error != "" {
		t.Errorf("cancellation wrote error %q", snap.Error)
	}
}

func TestRefreshAllUsesFilteredProjects(t *testing.T) {
	t.Parallel()
	st := store.New()
	st.SetError("stale")
	st.SetSelectedProjects([]string{"b"})
	gw := &fakeGateway{
		projects:    model.ProjectResult{Projects: []model.Project{{ID: "a"}, {ID: "b"}}, Source: "live"},
		analytics:   []model.AnalyticsRecord{{ProjectID: "b", PageViews: 3}},
		performance: []model.PerformanceRecord{{ProjectID: "b"}},
		realtime:    []model.RealtimeRecord{{ProjectID: "b", ActiveUsers: 2}},
	}
	l := NewLoader(st, gw, quietLogger())

	if err := l.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	snap := st.Snapshot()
	if snap.Error != "" {
		t.Errorf("Error = %q, want cleared", snap.Error)
	}
	if len(snap.AnalyticsData) != 1 || len(snap.PerformanceData) != 1 || len(snap.RealtimeData) != 1 {
		t.Errorf("datasets = %+v", snap)
	}
	if snap.Loading.Any() {
		t.Errorf("loading = %+v", snap.Loading)
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if len(gw.batchIDs) != 1 || gw.batchIDs[0] != "b" {
		t.Errorf("batch ids = %v, want [b]", gw.batchIDs)
	}
}

func TestSchedulerFollowsSettings(t *testing.T) {
	t.Parallel()
	st := store.New()
	gw := &fakeGateway{projects: model.ProjectResult{Projects: []model.Project{{ID: "a"}}}}
	s := NewScheduler(NewLoader(st, gw, quietLogger()), st, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, func() bool { d, on := s.Interval(); return on && d == 30*time.Second })
	waitFor(t, func() bool { return gw.calls.Load() >= 1 })

	off := false
	st.SetSettings(store.SettingsPatch{AutoRefresh: &off})
	waitFor(t, func() bool { _, on := s.Interval(); return !on })

	on, every := true, 1
	st.SetSettings(store.SettingsPatch{AutoRefresh: &on, RefreshInterval: &every})
	waitFor(t, func() bool { d, on := s.Interval(); return on && d == time.Second })
	before := gw.calls.Load()
	waitFor(t, func() bool { return gw.calls.Load() > before })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	s.Stop()
}

func TestTriggerRacingStop(t *testing.T) {
	t.Parallel()
	st := store.New()
	gw := &fakeGateway{projects: model.ProjectResult{Projects: []model.Project{{ID: "a"}}}}
	s := NewScheduler(NewLoader(st, gw, quietLogger()), st, quietLogger())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				s.Trigger()
			}
		}()
	}
	s.Stop()
	wg.Wait()

	after := gw.calls.Load()
	s.Trigger()
	time.Sleep(20 * time.Millisecond)
	if got := gw.calls.Load(); got != after {
		t.Errorf("Trigger after Stop ran a refresh: calls %d -> %d", after, got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
