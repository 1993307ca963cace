package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"vacancywatch/internal/audit"
	"vacancywatch/internal/bot"
	"vacancywatch/internal/config"
	"vacancywatch/internal/engine"
	"vacancywatch/internal/flow"
	"vacancywatch/internal/runtime/supervisor"
	"vacancywatch/internal/subscriber"
	kit "vacancywatch/internal/transport"
	telegram "vacancywatch/internal/transport/telegram"
	"vacancywatch/internal/usajobs"
	logx "vacancywatch/pkg/logx"
)

// App wires the config manager, transport, store, poll engine and command
// router together and owns their lifecycle.
type App struct {
	cfgPath string
	creds   config.Credentials

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	adapter kit.Adapter
	store   *subscriber.Store
	probe   *watchProbe
	auditor audit.Log

	engine *engine.Engine
	router *bot.Router

	messages chan kit.Message
}

// watchProbe adapts the USAJobs client to the engine's probe interface and
// lets a config reload swap the query without restarting the poll loop.
type watchProbe struct {
	mu     sync.Mutex
	client *usajobs.Client
	query  usajobs.Search
}

func (p *watchProbe) Check(ctx context.Context) (bool, error) {
	p.mu.Lock()
	client, query := p.client, p.query
	p.mu.Unlock()
	return client.CheckPosting(ctx, query)
}

func (p *watchProbe) swap(client *usajobs.Client, query usajobs.Search) {
	p.mu.Lock()
	p.client = client
	p.query = query
	p.mu.Unlock()
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       creds.TelegramToken,
		PollTimeout: pollTimeout,
		RatePerSec:  cfg.Telegram.RatePerSec,
	}, logSvc.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	store := subscriber.NewStore(subscribersPath(cfg), logSvc.Logger().With(logx.String("comp", "store")))
	store.Load()

	probeCfg, query, interval, err := mapWatchConfig(cfg, creds)
	if err != nil {
		return nil, err
	}
	probe := &watchProbe{
		client: usajobs.NewClient(probeCfg, logSvc.Logger().With(logx.String("comp", "probe"))),
		query:  query,
	}

	auditor, err := openAudit(cfg, logSvc.Logger().With(logx.String("comp", "audit")))
	if err != nil {
		return nil, err
	}
	if auditor != nil {
		log.Info("audit enabled", logx.String("driver", cfg.Audit.Driver))
	}

	eng := engine.New(engine.Options{
		Probe:    probe,
		Store:    store,
		Send:     ad,
		Audit:    auditor,
		Log:      logSvc.Logger().With(logx.String("comp", "engine")),
		Interval: interval,
	})

	fl := flow.NewManager(store, logSvc.Logger().With(logx.String("comp", "flow")))
	router := bot.NewRouter(store, fl, eng, ad, logSvc.Logger().With(logx.String("comp", "bot")))

	return &App{
		cfgPath:  cfgPath,
		creds:    creds,
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		adapter:  ad,
		store:    store,
		probe:    probe,
		auditor:  auditor,
		engine:   eng,
		router:   router,
		messages: make(chan kit.Message, 256),
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	if err := a.adapter.Start(a.sup.Context(), a.messages); err != nil {
		return err
	}

	a.sup.Go0("engine.poll", func(c context.Context) {
		a.engine.Run(c)
	})
	a.sup.Go0("bot.dispatch", func(c context.Context) {
		a.router.Run(c, a.messages)
	})

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyReload(c, newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	// Best-effort; a no-op outside systemd units.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	if wd, err := daemon.SdWatchdogEnabled(false); err == nil && wd > 0 {
		a.sup.Go0("systemd.watchdog", func(c context.Context) {
			t := time.NewTicker(wd / 2)
			defer t.Stop()
			for {
				select {
				case <-c.Done():
					return
				case <-t.C:
					_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
				}
			}
		})
	}

	a.log.Info("app started")
	return nil
}

// applyReload pushes a committed config into the running components.
// Changes that would need a reconnect (transport, store path, audit driver)
// only log a restart-required warning.
func (a *App) applyReload(ctx context.Context, cfg *config.Config) {
	a.logs.Apply(mapLogConfig(cfg))

	probeCfg, query, interval, err := mapWatchConfig(cfg, a.creds)
	if err != nil {
		a.log.Warn("invalid watch config; keeping previous", logx.Err(err))
	} else {
		a.probe.swap(usajobs.NewClient(probeCfg, a.logs.Logger().With(logx.String("comp", "probe"))), query)
		a.engine.Reschedule(ctx, interval)
	}

	if subscribersPath(cfg) != a.store.Path() {
		a.log.Warn("subscribers.path changed; restart required for changes to take effect")
	}

	a.log.Info("config applied")
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	a.log.Info("stopping")

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// Bound each shutdown step so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}
		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()
		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name))
		}
	}

	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	if a.auditor != nil {
		step("audit", 1*time.Second, func(context.Context) error { return a.auditor.Close() })
	}

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}
