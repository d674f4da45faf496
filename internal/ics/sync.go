package ics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "taskcal/internal/log"
	"taskcal/internal/model"
	"taskcal/internal/schedule"
)

// HolidaySink receives the merged feed holidays after each sync.
type HolidaySink interface {
	SetFeedHolidays(h schedule.Holidays)
}

// Syncer fetches every feed, expands its all-day events over a window
// around today and hands the result to the sink.
type Syncer struct {
	fetcher *Fetcher
	sources []Source
	sink    HolidaySink
	loc     *time.Location
	now     func() time.Time

	// WindowDays is how far before and after today holidays are expanded.
	WindowDays int

	mu   sync.Mutex
	cron *cron.Cron
}

func NewSyncer(fetcher *Fetcher, sources []Source, sink HolidaySink, loc *time.Location) *Syncer {
	if loc == nil {
		loc = time.Local
	}
	return &Syncer{
		fetcher:    fetcher,
		sources:    sources,
		sink:       sink,
		loc:        loc,
		now:        time.Now,
		WindowDays: 366,
	}
}

// Sync runs one refresh. Feeds that fail are skipped; the holidays of the
// others are still applied. The returned error joins the per-feed errors.
func (s *Syncer) Sync(ctx context.Context) error {
	if len(s.sources) == 0 {
		return nil
	}

	today := model.Today(s.now(), s.loc)
	from, to := today.AddDays(-s.WindowDays), today.AddDays(s.WindowDays)

	results, errs := s.fetcher.FetchAll(ctx, s.sources)
	var all []Holiday
	for _, res := range results {
		events, err := ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		all = append(all, ExpandHolidays(events, from, to)...)
	}

	set := HolidaySet(all)
	s.sink.SetFeedHolidays(set)
	appLog.Info("holiday feeds synced", "feeds", len(results), "holidays", len(set), "errors", len(errs))
	return errors.Join(errs...)
}

// Start runs Sync once and then on the cron spec until Stop. An invalid
// spec is returned before anything runs.
func (s *Syncer) Start(ctx context.Context, spec string) error {
	c := cron.New(cron.WithLocation(s.loc))
	if _, err := c.AddFunc(spec, func() {
		if err := s.Sync(ctx); err != nil {
			appLog.Error("scheduled holiday sync failed", err)
		}
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	go func() {
		if err := s.Sync(ctx); err != nil {
			appLog.Error("initial holiday sync failed", err)
		}
	}()
	c.Start()
	appLog.Info("holiday sync scheduled", "spec", spec, "feeds", len(s.sources))
	return nil
}

// Stop halts the schedule and waits for a running sync to finish.
func (s *Syncer) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
