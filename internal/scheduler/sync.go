package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"remindbot/internal/caldav"
	"remindbot/internal/remind"
	logx "remindbot/pkg/logx"
)

// SyncConfig configures the periodic synchronization.
type SyncConfig struct {
	// Schedule is a Go duration ("30m"), a cron descriptor ("@every 30m")
	// or a cron expression ("*/30 * * * *").
	Schedule string

	// Window is the forward-looking event fetch horizon.
	Window time.Duration

	// DefaultOffset, when set, synthesizes one reminder before the start
	// of events that carry no explicit alarms.
	DefaultOffset *time.Duration

	// CalendarIDs selects the subscribed calendars.
	CalendarIDs []string
}

// Sync periodically refreshes the reminder queue from the source and
// hands materially different results to the Dispatch scheduler.
type Sync struct {
	cfg  SyncConfig
	src  Source
	disp *Dispatch
	log  logx.Logger
	now  func() time.Time

	// exactly one of every/schedule is set, decided at construction
	every    time.Duration
	schedule cron.Schedule

	mu   sync.Mutex
	cals []caldav.Calendar
}

// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func NewSync(cfg SyncConfig, src Source, disp *Dispatch, log logx.Logger) (*Sync, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Sync{cfg: cfg, src: src, disp: disp, log: log, now: time.Now}

	raw := strings.TrimSpace(cfg.Schedule)
	if raw == "" {
		return nil, errors.New("sync schedule is empty")
	}
	if d, err := time.ParseDuration(raw); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("sync schedule %q must be positive", raw)
		}
		s.every = d
		return s, nil
	}
	sched, err := scheduleParser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("sync schedule %q: %w", raw, err)
	}
	s.schedule = sched
	return s, nil
}

// Prime fetches and caches the calendar list. It runs once at startup,
// before the scheduling core starts; a failure here is fatal.
func (s *Sync) Prime(ctx context.Context) error {
	_, err := s.calendars(ctx)
	return err
}

// Run executes the first sync immediately and unconditionally, then
// re-runs on the configured schedule forever. A failed pass is logged
// and changes nothing; the next run is always scheduled.
func (s *Sync) Run(ctx context.Context) error {
	for {
		if err := s.syncOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Error("sync pass failed", logx.Err(err))
		}

		t := time.NewTimer(s.untilNext(s.now()))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// syncOnce fetches events for the window, extracts the candidate queue
// and swaps it in if it differs structurally from the live queue.
func (s *Sync) syncOnce(ctx context.Context) error {
	cals, err := s.calendars(ctx)
	if err != nil {
		return fmt.Errorf("fetch calendars: %w", err)
	}
	subscribed := filterCalendars(cals, s.cfg.CalendarIDs)
	if len(subscribed) == 0 {
		// Warned once when the calendar list was cached; the list never
		// refreshes, so an error here would repeat every pass.
		s.log.Debug("no subscribed calendars on server, nothing to sync")
		return nil
	}

	from := s.now()
	events, err := s.src.Events(ctx, subscribed, from, from.Add(s.cfg.Window))
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}

	next := remind.Extract(events, s.now(), s.cfg.DefaultOffset)
	if remind.EqualQueues(next, s.disp.Queue()) {
		s.log.Debug("sync complete, no change", logx.Int("pending", len(next)))
		return nil
	}

	s.log.Info("sync complete, queue replaced",
		logx.Int("events", len(events)), logx.Int("pending", len(next)))
	s.disp.ReplaceQueue(next)
	return nil
}

// calendars returns the cached calendar list, fetching it on first use.
// The list is cached for the process lifetime.
func (s *Sync) calendars(ctx context.Context) ([]caldav.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cals != nil {
		return s.cals, nil
	}
	cals, err := s.src.Calendars(ctx)
	if err != nil {
		return nil, err
	}
	s.cals = cals
	s.logUnknownIDs(cals)
	return cals, nil
}

func (s *Sync) logUnknownIDs(cals []caldav.Calendar) {
	for _, id := range s.cfg.CalendarIDs {
		found := false
		for _, c := range cals {
			if c.ID == id {
				found = true
				break
			}
		}
		if !found {
			s.log.Warn("subscribed calendar not found on server", logx.String("calendar", id))
		}
	}
}

func (s *Sync) untilNext(now time.Time) time.Duration {
	if s.every > 0 {
		return s.every
	}
	wait := s.schedule.Next(now).Sub(now)
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}

func filterCalendars(cals []caldav.Calendar, ids []string) []caldav.Calendar {
	var out []caldav.Calendar
	for _, c := range cals {
		for _, id := range ids {
			if c.ID == id {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
