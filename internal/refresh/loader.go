// Package refresh runs the dashboard load actions against the gateway and
// schedules them on the user's auto-refresh interval.
package refresh

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tinytelemetry/vwatch/internal/model"
	"github.com/tinytelemetry/vwatch/internal/store"
	"golang.org/x/sync/errgroup"
)

// Messages written to the store's error slot.
const (
	MsgProjectsFailed    = "failed to load projects"
	MsgAnalyticsFailed   = "failed to load analytics"
	MsgPerformanceFailed = "failed to load performance data"
	MsgRealtimeFailed    = "failed to load realtime data"
)

// Loader performs the load actions. Each action raises its loading flag,
// calls the gateway, replaces the collection only on success and always
// lowers the flag again, including when ctx is cancelled.
type Loader struct {
	store *store.Store
	gw    model.Gateway
	log   logrus.FieldLogger
}

// NewLoader creates a loader writing into st.
func NewLoader(st *store.Store, gw model.Gateway, log logrus.FieldLogger) *Loader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loader{store: st, gw: gw, log: log.WithField("component", "loader")}
}

func (l *Loader) begin(key model.LoadingKey) func() {
	_ = l.store.SetLoading(key, true)
	return func() { _ = l.store.SetLoading(key, false) }
}

func (l *Loader) fail(msg string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	l.log.WithError(err).Warn(msg)
	l.store.SetError(msg)
	return fmt.Errorf("%s: %w", msg, err)
}

// LoadProjects resolves the project list. The gateway never fails outright;
// the error slot is set only when it degraded and produced nothing.
func (l *Loader) LoadProjects(ctx context.Context) error {
	defer l.begin(model.LoadingProjects)()

	res := l.gw.GetProjects(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	if res.Degraded != nil {
		l.log.WithError(res.Degraded).WithField("source", res.Source).Info("project list degraded")
		if len(res.Projects) == 0 {
			return l.fail(MsgProjectsFailed, res.Degraded)
		}
	}
	l.store.SetProjects(res.Projects)
	return nil
}

// LoadAnalytics fetches analytics for ids with a single batch call.
func (l *Loader) LoadAnalytics(ctx context.Context, ids []string, r model.TimeRange) error {
	defer l.begin(model.LoadingAnalytics)()

	records, err := l.gw.GetBatchAnalytics(ctx, ids, r)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return l.fail(MsgAnalyticsFailed, err)
	}
	l.store.SetAnalyticsData(records)
	return nil
}

// LoadPerformance fetches performance records project by project.
func (l *Loader) LoadPerformance(ctx context.Context, ids []string, r model.TimeRange) error {
	defer l.begin(model.LoadingPerformance)()

	var all []model.PerformanceRecord
	for _, id := range ids {
		records, err := l.gw.GetPerformance(ctx, id, r)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			return l.fail(MsgPerformanceFailed, err)
		}
		all = append(all, records...)
	}
	l.store.SetPerformanceData(all)
	return nil
}

// LoadRealtime fetches the latest realtime sample batch for ids.
func (l *Loader) LoadRealtime(ctx context.Context, ids []string) error {
	defer l.begin(model.LoadingRealtime)()

	var all []model.RealtimeRecord
	for _, id := range ids {
		records, err := l.gw.GetRealtimeData(ctx, id)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			return l.fail(MsgRealtimeFailed, err)
		}
		all = append(all, records...)
	}
	l.store.SetRealtimeData(all)
	return nil
}

// RefreshAll clears the error slot, loads projects, then loads the three
// datasets concurrently for the filtered projects. The first dataset error
// is returned after all loads finish.
func (l *Loader) RefreshAll(ctx context.Context) error {
	l.store.ClearError()
	if err := l.LoadProjects(ctx); err != nil {
		return err
	}

	st := l.store.Snapshot()
	projects := st.FilteredProjects()
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	tr := st.Filters.TimeRange

	var g errgroup.Group
	g.Go(func() error { return l.LoadAnalytics(ctx, ids, tr) })
	g.Go(func() error { return l.LoadPerformance(ctx, ids, tr) })
	g.Go(func() error { return l.LoadRealtime(ctx, ids) })
	return g.Wait()
}
