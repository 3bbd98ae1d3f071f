package duckdb

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/tinytelemetry/vwatch/internal/store"
)

// Recorder appends every realtime and analytics batch written to the
// dashboard store into the history tables.
type Recorder struct {
	db    *Store
	state *store.Store
	log   logrus.FieldLogger
}

// NewRecorder creates a recorder. Call Run to start observing.
func NewRecorder(db *Store, state *store.Store, log logrus.FieldLogger) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{db: db, state: state, log: log.WithField("component", "recorder")}
}

// Run records batches until ctx is done.
func (r *Recorder) Run(ctx context.Context) error {
	sub := r.state.Subscribe(64)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-sub.C:
			if !ok {
				return nil
			}
			r.handle(c.Field)
		}
	}
}

func (r *Recorder) handle(field store.Field) {
	switch field {
	case store.FieldRealtime:
		batch := r.state.Snapshot().RealtimeData
		if err := r.db.InsertRealtimeBatch(batch); err != nil {
			r.log.WithError(err).Warn("failed to record realtime batch")
		}
	case store.FieldAnalytics:
		batch := r.state.Snapshot().AnalyticsData
		if err := r.db.InsertAnalyticsBatch(batch); err != nil {
			r.log.WithError(err).Warn("failed to record analytics batch")
		}
	}
}
