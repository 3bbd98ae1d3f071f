// Package store holds the observable dashboard state.
//
// Every mutation is a wholesale replacement or a shallow merge applied under
// a single lock, so concurrent writers resolve last-write-wins per field.
// Subscribers receive one Change per mutation.
package store

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tinytelemetry/vwatch/internal/format"
	"github.com/tinytelemetry/vwatch/internal/model"
)

// ErrUnknownLoadingKey is returned by SetLoading for keys other than the four
// known resources.
var ErrUnknownLoadingKey = errors.New("unknown loading key")

// Field names the part of the state a Change touched.
type Field string

const (
	FieldProjects         Field = "projects"
	FieldSelectedProjects Field = "selectedProjects"
	FieldAnalytics        Field = "analyticsData"
	FieldPerformance      Field = "performanceData"
	FieldRealtime         Field = "realtimeData"
	FieldFilters          Field = "filters"
	FieldSettings         Field = "settings"
	FieldLoading          Field = "loading"
	FieldError            Field = "error"
)

// Change is published after every mutation. Seq increases monotonically.
type Change struct {
	Seq   uint64    `json:"seq"`
	Field Field     `json:"field"`
	At    time.Time `json:"at"`
}

// Option configures a Store.
type Option func(*Store)

// WithTimeRangeFiltering makes FilteredAnalytics and FilteredPerformance also
// drop records whose date falls outside the selected time range.
func WithTimeRangeFiltering(enabled bool) Option {
	return func(s *Store) { s.filterByTime = enabled }
}

// WithClock overrides the clock used for change timestamps and time-range
// filtering.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSettings seeds the initial user settings.
func WithSettings(settings model.UserSettings) Option {
	return func(s *Store) { s.state.Settings = settings }
}

// Store is the dashboard state container.
type Store struct {
	mu           sync.RWMutex
	state        State
	seq          uint64
	filterByTime bool
	now          func() time.Time

	subMu  sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// New creates a store holding the default state.
func New(opts ...Option) *Store {
	s := &Store{
		state: initialState(),
		now:   time.Now,
		subs:  make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Store) mutate(field Field, fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.seq++
	s.publish(Change{Seq: s.seq, Field: field, At: s.now()})
}

// SetProjects replaces the project list. No validation or dedup is applied.
func (s *Store) SetProjects(projects []model.Project) {
	s.mutate(FieldProjects, func(st *State) { st.Projects = slices.Clone(projects) })
}

// SetSelectedProjects replaces the project selection.
func (s *Store) SetSelectedProjects(ids []string) {
	s.mutate(FieldSelectedProjects, func(st *State) { st.SelectedProjects = slices.Clone(ids) })
}

// SetAnalyticsData replaces the analytics dataset.
func (s *Store) SetAnalyticsData(records []model.AnalyticsRecord) {
	s.mutate(FieldAnalytics, func(st *State) { st.AnalyticsData = slices.Clone(records) })
}

// SetPerformanceData replaces the performance dataset.
func (s *Store) SetPerformanceData(records []model.PerformanceRecord) {
	s.mutate(FieldPerformance, func(st *State) { st.PerformanceData = slices.Clone(records) })
}

// SetRealtimeData replaces the realtime dataset with the latest batch.
func (s *Store) SetRealtimeData(records []model.RealtimeRecord) {
	s.mutate(FieldRealtime, func(st *State) { st.RealtimeData = slices.Clone(records) })
}

// SetFilters merges patch into the current filters.
func (s *Store) SetFilters(patch FilterPatch) {
	s.mutate(FieldFilters, func(st *State) { st.Filters = patch.apply(st.Filters) })
}

// SetSettings merges patch into the current settings.
func (s *Store) SetSettings(patch SettingsPatch) {
	s.mutate(FieldSettings, func(st *State) { st.Settings = patch.apply(st.Settings) })
}

// SetLoading sets exactly one loading flag.
func (s *Store) SetLoading(key model.LoadingKey, loading bool) error {
	var target func(st *State) *bool
	switch key {
	case model.LoadingProjects:
		target = func(st *State) *bool { return &st.Loading.Projects }
	case model.LoadingAnalytics:
		target = func(st *State) *bool { return &st.Loading.Analytics }
	case model.LoadingPerformance:
		target = func(st *State) *bool { return &st.Loading.Performance }
	case model.LoadingRealtime:
		target = func(st *State) *bool { return &st.Loading.Realtime }
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLoadingKey, key)
	}
	s.mutate(FieldLoading, func(st *State) { *target(st) = loading })
	return nil
}

// SetError overwrites the single error slot. An empty message clears it.
func (s *Store) SetError(msg string) {
	s.mutate(FieldError, func(st *State) { st.Error = msg })
}

// ClearError empties the error slot.
func (s *Store) ClearError() { s.SetError("") }

// FilteredProjects returns every project when the selection is empty,
// otherwise the selected projects in their original order.
func (s *Store) FilteredProjects() []model.Project {
	return s.Snapshot().FilteredProjects()
}

// FilteredAnalytics returns the analytics records matching the filters.
func (s *Store) FilteredAnalytics() []model.AnalyticsRecord {
	st := s.Snapshot()
	return st.FilteredAnalytics(s.dateFilter(st.Filters))
}

// FilteredPerformance returns the performance records matching the filters.
func (s *Store) FilteredPerformance() []model.PerformanceRecord {
	st := s.Snapshot()
	return st.FilteredPerformance(s.dateFilter(st.Filters))
}

// dateFilter returns nil when time-range filtering is disabled.
func (s *Store) dateFilter(f model.FilterOptions) func(date string) bool {
	if !s.filterByTime {
		return nil
	}
	start, end := format.TimeRangeBounds(f.TimeRange, f.CustomStartDate, f.CustomEndDate, s.now())
	lo, hi := start.Format(format.DateLayout), end.Format(format.DateLayout)
	return func(date string) bool {
		if len(date) > len(format.DateLayout) {
			date = date[:len(format.DateLayout)]
		}
		return date >= lo && date <= hi
	}
}

// FilteredProjects applies the selection to a snapshot.
func (st State) FilteredProjects() []model.Project {
	if len(st.SelectedProjects) == 0 {
		return slices.Clone(st.Projects)
	}
	sel := toSet(st.SelectedProjects)
	out := make([]model.Project, 0, len(st.SelectedProjects))
	for _, p := range st.Projects {
		if _, ok := sel[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

// FilteredAnalytics applies the project filter, and inDate when non-nil.
func (st State) FilteredAnalytics(inDate func(string) bool) []model.AnalyticsRecord {
	ids := toSet(st.Filters.Projects)
	out := make([]model.AnalyticsRecord, 0, len(st.AnalyticsData))
	for _, r := range st.AnalyticsData {
		if !matches(ids, r.ProjectID) || (inDate != nil && !inDate(r.Date)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilteredPerformance applies the project filter, and inDate when non-nil.
func (st State) FilteredPerformance(inDate func(string) bool) []model.PerformanceRecord {
	ids := toSet(st.Filters.Projects)
	out := make([]model.PerformanceRecord, 0, len(st.PerformanceData))
	for _, r := range st.PerformanceData {
		if !matches(ids, r.ProjectID) || (inDate != nil && !inDate(r.Date)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matches(ids map[string]struct{}, id string) bool {
	if len(ids) == 0 {
		return true
	}
	_, ok := ids[id]
	return ok
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
