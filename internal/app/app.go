// Package app assembles the bot: config, logging, storage, the Telegram
// adapter, the poll orchestrator and the web API.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"volleybot/internal/bot"
	"volleybot/internal/calendar"
	"volleybot/internal/config"
	"volleybot/internal/poller"
	"volleybot/internal/storage"
	"volleybot/internal/transport/telegram"
	"volleybot/internal/web"
	"volleybot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	store   storage.Store
	adapter *telegram.Adapter
	poller  *poller.Service
	bot     *bot.Bot
	web     *web.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	bootLog := logx.NewConsole("INFO")

	cfgm := config.NewManager(cfgPath, bootLog)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// A broken edit must never survive the watcher either.
	cfgm.SetValidator(func(_ context.Context, c *config.Config) error {
		return c.Validate()
	})

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("component", "app"))

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, logSvc.Logger().With(logx.String("component", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		RatePerSec:  cfg.Telegram.RatePerSec,
	}, logSvc.Logger())
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	pollSvc := poller.New(poller.Config{
		TickTime: cfg.Poller.TickTime,
		Location: loc,
	}, store, adapter, logSvc.Logger())

	botUI := bot.New(adapter.Bot(), store, pollSvc, adapter, cfg.Telegram.AdminUserIDs, logSvc.Logger())

	var webSrv *web.Server
	if cfg.Web.Enabled {
		accessTTL, err := config.ParseDurationOrDefault("web.access_ttl", cfg.Web.AccessTTL, 15*time.Minute)
		if err != nil {
			return nil, err
		}
		refreshTTL, err := config.ParseDurationOrDefault("web.refresh_ttl", cfg.Web.RefreshTTL, 30*24*time.Hour)
		if err != nil {
			return nil, err
		}
		webSrv = web.NewServer(web.Config{
			Addr:         cfg.Web.Addr,
			BotToken:     cfg.Telegram.Token,
			JWTSecret:    cfg.Web.JWTSecret,
			AllowOrigins: cfg.Web.AllowOrigins,
			AccessTTL:    accessTTL,
			RefreshTTL:   refreshTTL,
		}, store, calendar.New(store, logSvc.Logger()), logSvc.Logger())
	}

	return &App{
		cfgm:    cfgm,
		logs:    logSvc,
		log:     log,
		store:   store,
		adapter: adapter,
		poller:  pollSvc,
		bot:     botUI,
		web:     webSrv,
	}, nil
}

// Start brings everything up and returns once the services are running.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if err := a.seedAdmins(ctx); err != nil {
		return err
	}
	if err := a.poller.Start(ctx); err != nil {
		return err
	}

	a.run(func() { a.adapter.Start(ctx) })
	a.run(func() { a.bot.Start(ctx) })
	a.run(func() { _ = a.cfgm.Watch(ctx) })
	a.run(func() { a.followConfig(ctx) })
	if a.web != nil {
		a.run(func() {
			if err := a.web.Run(ctx); err != nil {
				a.log.Error("web server stopped", logx.Err(err))
			}
		})
	}

	a.log.Info("started")
	return nil
}

func (a *App) run(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

// seedAdmins merges config-file admin ids into the stored list so a fresh
// database starts with working admins.
func (a *App) seedAdmins(ctx context.Context) error {
	cfg := a.cfgm.Get()
	for _, id := range cfg.Telegram.AdminUserIDs {
		if err := a.store.AddAdminID(ctx, id); err != nil {
			return fmt.Errorf("seed admin %d: %w", id, err)
		}
	}
	return nil
}

// followConfig applies hot-reloadable settings: log level/sinks and the
// poller tick time. Everything else requires a restart.
func (a *App) followConfig(ctx context.Context) {
	sub := a.cfgm.Subscribe()
	defer a.cfgm.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			a.logs.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			if err := a.poller.Apply(ctx, cfg.Poller.TickTime); err != nil {
				a.log.Warn("tick time not applied", logx.Err(err))
			}
			a.log.Info("config applied",
				logx.String("log_level", cfg.Logging.Level),
				logx.String("tick_time", cfg.Poller.TickTime))
		}
	}
}

// Stop shuts the services down and waits for their goroutines.
func (a *App) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.poller.Stop()
	a.wg.Wait()
	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close", logx.Err(err))
	}
	_ = a.logs.Close()
	a.log.Info("stopped")
}
