// Package caldav implements the calendar data-source collaborator: a
// thin adapter over a CalDAV client that logs in once, lists calendar
// collections, and maps windowed VEVENT query results into the
// extractor's event model.
package caldav

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"remindbot/internal/remind"
	logx "remindbot/pkg/logx"
)

type Config struct {
	URL      string
	Username string
	Password string

	// Location is the configured timezone. Date-only and floating event
	// times are interpreted here, never in UTC.
	Location *time.Location
}

// Client talks to one CalDAV server. Login must succeed before
// Calendars or Events are used.
type Client struct {
	cfg  Config
	log  logx.Logger
	dav  *caldav.Client
	base *url.URL

	homeSet string
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("caldav url is empty")
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("caldav url: %w", err)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	// Constructing the client causes no server communication; the
	// credentials are validated by Login.
	hc := webdav.HTTPClientWithBasicAuth(nil, cfg.Username, cfg.Password)
	dav, err := caldav.NewClient(hc, cfg.URL)
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, log: log, dav: dav, base: base}, nil
}

// Login resolves the current-user principal and calendar home set. A
// failure here (bad credentials, unreachable server) is a fatal startup
// error for the daemon.
func (c *Client) Login(ctx context.Context) error {
	c.log.Debug("fetching principal", logx.String("url", c.cfg.URL), logx.String("user", c.cfg.Username))
	principal, err := c.dav.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	home, err := c.dav.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return fmt.Errorf("calendar home set: %w", err)
	}
	c.homeSet = home
	c.log.Debug("logged in", logx.String("principal", principal), logx.String("home", home))
	return nil
}

// Calendars lists the calendar collections under the home set.
func (c *Client) Calendars(ctx context.Context) ([]Calendar, error) {
	if c.homeSet == "" {
		return nil, errors.New("not logged in")
	}
	found, err := c.dav.FindCalendars(ctx, c.homeSet)
	if err != nil {
		return nil, err
	}
	cals := make([]Calendar, 0, len(found))
	for _, f := range found {
		cal := Calendar{
			ID:   path.Base(strings.TrimSuffix(f.Path, "/")),
			Name: f.Name,
			Path: f.Path,
		}
		cals = append(cals, cal)
		c.log.Debug("found calendar", logx.String("id", cal.ID), logx.String("name", cal.Name))
	}
	return cals, nil
}

// Events runs a time-range calendar-query against each calendar and
// maps the returned VEVENTs. Servers commonly answer the time-range
// filter with the unexpanded master of a recurring event, so recurring
// events are expanded into their occurrences within [from, to) here.
func (c *Client) Events(ctx context.Context, cals []Calendar, from, to time.Time) ([]remind.Event, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			Comps: []caldav.CalendarCompRequest{{
				Name:     ical.CompEvent,
				AllProps: true,
				AllComps: true,
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: from,
				End:   to,
			}},
		},
	}

	var events []remind.Event
	for _, cal := range cals {
		c.log.Debug("searching for events",
			logx.String("calendar", cal.ID), logx.Time("from", from), logx.Time("to", to))
		objs, err := c.dav.QueryCalendar(ctx, cal.Path, query)
		if err != nil {
			return nil, fmt.Errorf("query calendar %s: %w", cal.ID, err)
		}
		for _, obj := range objs {
			if obj.Data == nil {
				continue
			}
			target := c.base.ResolveReference(&url.URL{Path: obj.Path}).String()
			for _, ve := range obj.Data.Events() {
				evs, err := c.expandEvent(ve, target, from, to)
				if err != nil {
					c.log.Warn("skipping unmappable event", logx.String("calendar", cal.ID), logx.Err(err))
					continue
				}
				events = append(events, evs...)
			}
		}
	}
	c.log.Debug("fetched events", logx.Int("count", len(events)))
	return events, nil
}

// expandEvent maps one VEVENT into zero or more dated events. A plain
// event maps to itself. A recurring master is expanded via its RRULE
// set into the occurrences intersecting [from, to): relative alarm
// triggers resolve against each occurrence's start, absolute DATE-TIME
// triggers fire once and attach to the first occurrence only.
func (c *Client) expandEvent(ve ical.Event, target string, from, to time.Time) ([]remind.Event, error) {
	master, rel, abs, err := c.mapEvent(ve, target)
	if err != nil {
		return nil, err
	}
	rset, err := ve.RecurrenceSet(c.cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("recurrence set: %w", err)
	}

	starts := []time.Time{master.Ref.Start}
	if rset != nil {
		starts = starts[:0]
		for _, occ := range rset.Between(from, to, true) {
			starts = append(starts, occ.In(c.cfg.Location))
		}
	}

	events := make([]remind.Event, 0, len(starts))
	for i, start := range starts {
		ev := master
		ev.Ref.Start = start
		ev.Triggers = make([]time.Time, 0, len(rel)+len(abs))
		for _, d := range rel {
			ev.Triggers = append(ev.Triggers, start.Add(d))
		}
		if i == 0 {
			ev.Triggers = append(ev.Triggers, abs...)
		}
		events = append(events, ev)
	}
	return events, nil
}

// mapEvent normalizes one VEVENT: date-only starts become midnight in
// the configured zone, floating times are localized there, and VALARM
// triggers are split into start-relative durations and absolute times.
func (c *Client) mapEvent(ve ical.Event, target string) (remind.Event, []time.Duration, []time.Time, error) {
	startProp := ve.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return remind.Event{}, nil, nil, errors.New("event has no DTSTART")
	}
	start, err := startProp.DateTime(c.cfg.Location)
	if err != nil {
		return remind.Event{}, nil, nil, fmt.Errorf("DTSTART: %w", err)
	}
	start = start.In(c.cfg.Location)

	ev := remind.Event{
		Ref: remind.EventRef{
			UID:         textProp(ve, ical.PropUID),
			Summary:     textProp(ve, ical.PropSummary),
			Description: textProp(ve, ical.PropDescription),
			Location:    textProp(ve, ical.PropLocation),
			Start:       start,
		},
		URL: target,
	}

	var rel []time.Duration
	var abs []time.Time
	for _, child := range ve.Children {
		if child.Name != ical.CompAlarm {
			continue
		}
		trig := child.Props.Get(ical.PropTrigger)
		if trig == nil {
			continue
		}
		if !strings.EqualFold(trig.Params.Get(ical.ParamValue), "DATE-TIME") {
			if d, err := trig.Duration(); err == nil {
				rel = append(rel, d)
				continue
			}
		}
		t, err := trig.DateTime(c.cfg.Location)
		if err != nil {
			c.log.Warn("skipping unparsable alarm trigger",
				logx.String("event", ev.Ref.Summary), logx.Err(err))
			continue
		}
		abs = append(abs, t.In(c.cfg.Location))
	}
	return ev, rel, abs, nil
}

func textProp(ve ical.Event, name string) string {
	p := ve.Props.Get(name)
	if p == nil {
		return ""
	}
	s, err := p.Text()
	if err != nil {
		return p.Value
	}
	return s
}
