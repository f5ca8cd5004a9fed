// Package app wires the daemon together: configuration, logging, the
// calendar source, the notification sink, the optional history store,
// and the scheduling core.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"remindbot/internal/caldav"
	"remindbot/internal/config"
	"remindbot/internal/notify"
	"remindbot/internal/runtime/supervisor"
	"remindbot/internal/scheduler"
	"remindbot/internal/storage"
	"remindbot/internal/transport"
	"remindbot/internal/transport/telegram"
	logx "remindbot/pkg/logx"
)

type App struct {
	cfg *config.Config
	log logx.Logger

	cal      *caldav.Client
	sink     *telegram.Adapter
	store    storage.Store
	renderer *notify.Renderer
	disp     *scheduler.Dispatch
	sync     *scheduler.Sync

	sup *supervisor.Supervisor
}

// New builds the whole object graph from the config file. Any error is
// a fatal startup error; nothing background has started yet.
func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}

	cal, err := caldav.New(caldav.Config{
		URL:      cfg.CalDAV.URL,
		Username: cfg.CalDAV.Username,
		Password: cfg.CalDAV.Password,
		Location: loc,
	}, log.With(logx.String("comp", "caldav")))
	if err != nil {
		return nil, err
	}

	sink, err := telegram.New(telegram.Config{
		Token:      cfg.Telegram.Token,
		RatePerSec: cfg.Telegram.RatePerSec,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	store, err := openStorage(cfg, log)
	if err != nil {
		return nil, err
	}

	renderer := notify.NewRenderer(cfg.TemplatePath, log.With(logx.String("comp", "template")))
	target := transport.Target{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID}
	dispatcher := notify.NewDispatcher(sink, target, renderer, store, log.With(logx.String("comp", "dispatcher")))

	disp := scheduler.NewDispatch(dispatcher, log.With(logx.String("comp", "dispatch")))

	syncCfg, err := mapSyncConfig(cfg)
	if err != nil {
		return nil, err
	}
	syncCtl, err := scheduler.NewSync(syncCfg, cal, disp, log.With(logx.String("comp", "sync")))
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		log:      log.With(logx.String("comp", "app")),
		cal:      cal,
		sink:     sink,
		store:    store,
		renderer: renderer,
		disp:     disp,
		sync:     syncCtl,
	}, nil
}

// Start authenticates against the source, primes the calendar cache and
// launches the scheduling core. Errors before the core starts are fatal.
func (a *App) Start(ctx context.Context) error {
	if err := a.cal.Login(ctx); err != nil {
		return err
	}
	if err := a.sync.Prime(ctx); err != nil {
		return fmt.Errorf("fetch calendars: %w", err)
	}

	a.sup = supervisor.New(ctx, a.log)
	a.disp.Start(a.sup.Context())
	a.sup.Go("sync", a.sync.Run)
	a.sup.Go("template-watch", a.renderer.Watch)

	// No-op outside systemd.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("started",
		logx.String("schedule", a.cfg.Sync.Schedule),
		logx.Int("window_days", a.cfg.Sync.WindowDays))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	var err error
	if a.sup != nil {
		err = a.sup.Stop(ctx)
	}
	a.disp.Stop()
	if a.store != nil {
		if cerr := a.store.Close(); err == nil {
			err = cerr
		}
	}
	a.log.Info("stopped")
	return err
}

func openStorage(cfg *config.Config, log logx.Logger) (storage.Store, error) {
	if cfg.Storage == nil || !cfg.Storage.Enabled {
		return nil, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	retention, err := config.ParseDurationOrDefault("storage.retention", cfg.Storage.Retention, 720*time.Hour)
	if err != nil {
		return nil, err
	}
	st, err := storage.Open(storage.Config{
		Enabled:     true,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
		Retention:   retention,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	log.Info("dispatch history enabled", logx.String("path", cfg.Storage.Path))
	return st, nil
}

func mapSyncConfig(cfg *config.Config) (scheduler.SyncConfig, error) {
	out := scheduler.SyncConfig{
		Schedule:    cfg.Sync.Schedule,
		Window:      time.Duration(cfg.Sync.WindowDays) * 24 * time.Hour,
		CalendarIDs: cfg.CalDAV.CalendarIDs,
	}
	if cfg.Sync.DefaultReminder != "" {
		d, err := config.ParseDurationField("sync.default_reminder", cfg.Sync.DefaultReminder)
		if err != nil {
			return scheduler.SyncConfig{}, err
		}
		out.DefaultOffset = &d
	}
	return out, nil
}
