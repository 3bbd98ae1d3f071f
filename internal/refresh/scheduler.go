package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/tinytelemetry/vwatch/internal/model"
	"github.com/tinytelemetry/vwatch/internal/store"
)

// Scheduler runs Loader.RefreshAll every settings.RefreshInterval seconds
// while settings.AutoRefresh is on, and follows settings changes.
type Scheduler struct {
	loader *Loader
	store  *store.Store
	cron   *cron.Cron
	log    logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	entry    cron.EntryID
	interval int
	enabled  bool
	stopped  bool

	runs     sync.WaitGroup
	stopOnce sync.Once
}

// NewScheduler creates a scheduler. Overlapping runs are skipped.
func NewScheduler(loader *Loader, st *store.Store, log logrus.FieldLogger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		loader: loader,
		store:  st,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:    log.WithField("component", "scheduler"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run performs an initial refresh, starts the cron loop and reschedules on
// settings changes until ctx is done. It always returns nil after stopping.
func (s *Scheduler) Run(ctx context.Context) error {
	sub := s.store.Subscribe(16)
	defer sub.Close()

	s.apply(s.store.Snapshot().Settings)
	s.cron.Start()
	s.Trigger()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return nil
		case <-s.ctx.Done():
			s.Stop()
			return nil
		case c, ok := <-sub.C:
			if !ok {
				s.Stop()
				return nil
			}
			if c.Field == store.FieldSettings {
				s.apply(s.store.Snapshot().Settings)
			}
		}
	}
}

// apply installs or removes the cron entry to match settings.
func (s *Scheduler) apply(settings model.UserSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled := settings.AutoRefresh && settings.RefreshInterval > 0
	if enabled == s.enabled && settings.RefreshInterval == s.interval {
		return
	}
	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
	}
	s.enabled = enabled
	s.interval = settings.RefreshInterval
	if !enabled {
		s.log.Info("auto-refresh disabled")
		return
	}

	spec := fmt.Sprintf("@every %ds", settings.RefreshInterval)
	id, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		s.log.WithError(err).Errorf("failed to schedule refresh %q", spec)
		s.enabled = false
		return
	}
	s.entry = id
	s.log.Infof("auto-refresh scheduled: %s", spec)
}

func (s *Scheduler) run() {
	if s.ctx.Err() != nil {
		return
	}
	if err := s.loader.RefreshAll(s.ctx); err != nil {
		s.log.WithError(err).Debug("refresh finished with errors")
	}
}

// Trigger starts a refresh immediately without waiting for the next tick.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	if s.stopped || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.runs.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.runs.Done()
		s.run()
	}()
}

// Interval reports the active refresh period, and false when auto-refresh
// is off.
func (s *Scheduler) Interval() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.interval) * time.Second, s.enabled
}

// Stop cancels in-flight loads and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.cancel()
		<-s.cron.Stop().Done()
		s.runs.Wait()
	})
}
