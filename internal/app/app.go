// Package app wires configuration, acquisition, audit modules, mail and
// observability into one daemon lifecycle.
package app

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"workguard/internal/ai"
	"workguard/internal/audit/closedtask"
	"workguard/internal/audit/commentquality"
	"workguard/internal/audit/housekeeping"
	"workguard/internal/audit/taskhierarchy"
	"workguard/internal/audit/tasktime"
	"workguard/internal/audit/worktime"
	"workguard/internal/config"
	"workguard/internal/eventbus"
	"workguard/internal/httpx"
	"workguard/internal/megaplan"
	"workguard/internal/metrics"
	"workguard/internal/notify"
	"workguard/internal/observability/pprof"
	"workguard/internal/schedule"
)

type App struct {
	mgr *config.Manager
	log zerolog.Logger
	bus eventbus.Bus

	svc    *megaplan.Service
	oracle *ai.Client
	mailer notify.Notifier

	mu    sync.Mutex
	sched *schedule.Scheduler

	metricsSrv *metrics.Server
	pprofSrv   *pprof.Service

	wg sync.WaitGroup
}

// New loads and validates the config file, then builds every component.
// All dependencies are injected through constructors; nothing global.
func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath, zerolog.Nop())
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.Logging)
	mgr.SetLogger(log.With().Str("comp", "config").Logger())

	a := &App{
		mgr: mgr,
		log: log,
		bus: eventbus.New(),
	}
	if err := a.build(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config) error {
	apiTimeout, err := config.DurationOrDefault("api.timeout", cfg.API.Timeout, 30*time.Second)
	if err != nil {
		return err
	}
	apiRetryBase, err := config.DurationOrDefault("api.retry_base", cfg.API.RetryBase, time.Second)
	if err != nil {
		return err
	}

	client := httpx.New(httpx.Config{
		MaxAttempts: cfg.API.MaxAttempts,
		BaseDelay:   apiRetryBase,
		Timeout:     apiTimeout,
	}, a.log.With().Str("comp", "http").Logger())
	client.OnAttempt(func(retry bool) {
		metrics.HTTPAttempts.Inc()
		if retry {
			metrics.HTTPRetries.Inc()
		}
	})

	svc, err := megaplan.NewService(megaplan.Config{
		BaseURL:           cfg.API.BaseURL,
		APIKey:            cfg.API.APIKey,
		EmailDomain:       cfg.API.EmailDomain,
		Timezone:          cfg.API.Timezone,
		PageSize:          cfg.API.PageSize,
		BatchSize:         cfg.API.BatchSize,
		Workers:           cfg.API.Workers,
		QueueSize:         cfg.API.QueueSize,
		MaxPages:          cfg.API.MaxPages,
		SubtaskRatePerSec: float64(cfg.API.SubtaskRatePerSec),
	}, client, a.log.With().Str("comp", "megaplan").Logger())
	if err != nil {
		return err
	}
	a.svc = svc

	smtpRetryBase, err := config.DurationOrDefault("smtp.retry_base", cfg.SMTP.RetryBase, 500*time.Millisecond)
	if err != nil {
		return err
	}
	a.mailer = notify.NewEmailNotifier(notify.SMTPConfig{
		Host:               cfg.SMTP.Host,
		Port:               cfg.SMTP.Port,
		Username:           cfg.SMTP.Username,
		Password:           cfg.SMTP.Password,
		From:               cfg.SMTP.From,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		RetryCount:         cfg.SMTP.RetryCount,
		RetryBase:          smtpRetryBase,
		RatePerMinute:      cfg.SMTP.RatePerMinute,
	}, a.log.With().Str("comp", "mail").Logger())

	aiRetryDelay, err := config.DurationOrDefault("ai.retry_delay", cfg.AI.RetryDelay, 2*time.Second)
	if err != nil {
		return err
	}
	a.oracle = ai.NewClient(ai.Config{
		URL:          cfg.AI.URL,
		Model:        cfg.AI.Model,
		MaxAttempts:  cfg.AI.MaxAttempts,
		RetryDelay:   aiRetryDelay,
		HTTPAttempts: cfg.AI.HTTPAttempts,
	}, client, a.log.With().Str("comp", "ai").Logger())

	sched, err := a.buildScheduler(cfg)
	if err != nil {
		return err
	}
	a.sched = sched

	a.metricsSrv = metrics.NewServer(metrics.Config{
		Enabled: cfg.Metrics.Enabled,
		Addr:    cfg.Metrics.Addr,
	}, a.log.With().Str("comp", "metrics").Logger())

	pprofRead, _ := config.DurationOrDefault("pprof.read_timeout", cfg.Pprof.ReadTimeout, 0)
	pprofWrite, _ := config.DurationOrDefault("pprof.write_timeout", cfg.Pprof.WriteTimeout, 0)
	pprofIdle, _ := config.DurationOrDefault("pprof.idle_timeout", cfg.Pprof.IdleTimeout, 0)
	a.pprofSrv = pprof.New(pprof.Config{
		Enabled:       cfg.Pprof.Enabled,
		Addr:          cfg.Pprof.Addr,
		Prefix:        cfg.Pprof.Prefix,
		Token:         cfg.Pprof.Token,
		AllowInsecure: cfg.Pprof.AllowInsecure,
		ReadTimeout:   pprofRead,
		WriteTimeout:  pprofWrite,
		IdleTimeout:   pprofIdle,
	}, a.log.With().Str("comp", "pprof").Logger())

	return nil
}

// cadenceOr falls back to the stock audit timetable when a module block
// leaves its cadence empty.
func cadenceOr(spec, def string) string {
	if spec == "" {
		return def
	}
	return spec
}

// buildScheduler assembles the module registry and a scheduler around it.
// Called at boot and again when a hot reload touches audit or scheduler
// settings.
func (a *App) buildScheduler(cfg *config.Config) (*schedule.Scheduler, error) {
	var loc *time.Location
	if cfg.Scheduler.Timezone != "" {
		l, err := time.LoadLocation(cfg.Scheduler.Timezone)
		if err != nil {
			return nil, fmt.Errorf("scheduler.timezone: %w", err)
		}
		loc = l
	}
	stopTimeout, err := config.DurationOrDefault("scheduler.stop_timeout", cfg.Scheduler.StopTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}

	lookback := func(path, raw string) (time.Duration, error) {
		return config.DurationOrDefault(path, raw, 24*time.Hour)
	}
	wtLookback, err := lookback("audit.worktime.lookback", cfg.Audit.WorkTime.Lookback)
	if err != nil {
		return nil, err
	}
	thLookback, err := lookback("audit.taskhierarchy.lookback", cfg.Audit.TaskHierarchy.Lookback)
	if err != nil {
		return nil, err
	}
	ttLookback, err := lookback("audit.tasktime.lookback", cfg.Audit.TaskTime.Lookback)
	if err != nil {
		return nil, err
	}
	ctLookback, err := lookback("audit.closedtask.lookback", cfg.Audit.ClosedTask.Lookback)
	if err != nil {
		return nil, err
	}
	cqLookback, err := lookback("audit.commentquality.lookback", cfg.Audit.CommentQuality.Lookback)
	if err != nil {
		return nil, err
	}

	domain := cfg.API.EmailDomain
	reg := schedule.NewRegistry(a.log.With().Str("comp", "registry").Logger())
	reg.Register(
		worktime.NewModule(worktime.ModuleConfig{
			Cadence:  cadenceOr(cfg.Audit.WorkTime.Cadence, "0 55 9 * * *"),
			Enabled:  cfg.Audit.WorkTime.Enabled,
			Lookback: wtLookback,
			Domain:   domain,
		}, a.svc, a.mailer, a.bus, a.log.With().Str("module", "worktime").Logger()),

		commentquality.NewModule(commentquality.ModuleConfig{
			Cadence:  cadenceOr(cfg.Audit.CommentQuality.Cadence, "0 55 10 * * *"),
			Enabled:  cfg.Audit.CommentQuality.Enabled,
			Lookback: cqLookback,
			MinHours: cfg.Audit.CommentQuality.MinHours,
			Domain:   domain,
		}, a.svc, a.oracle, a.mailer, a.bus, a.log.With().Str("module", "commentquality").Logger()),

		tasktime.NewModule(tasktime.ModuleConfig{
			Cadence:          cadenceOr(cfg.Audit.TaskTime.Cadence, "0 55 11 * * *"),
			Enabled:          cfg.Audit.TaskTime.Enabled,
			Lookback:         ttLookback,
			ExcludePatterns:  cfg.Audit.TaskTime.ExcludePatterns,
			AllowDepartments: cfg.Audit.TaskTime.AllowDepartments,
			Domain:           domain,
		}, a.svc, a.mailer, a.bus, a.log.With().Str("module", "tasktime").Logger()),

		taskhierarchy.NewModule(taskhierarchy.ModuleConfig{
			Cadence:     cadenceOr(cfg.Audit.TaskHierarchy.Cadence, "0 55 12 * * *"),
			Enabled:     cfg.Audit.TaskHierarchy.Enabled,
			Lookback:    thLookback,
			MaxHoursGap: cfg.Audit.TaskHierarchy.MaxHoursGap,
			AdminEmail:  cfg.Audit.TaskHierarchy.AdminEmail,
		}, a.svc, a.mailer, a.bus, a.log.With().Str("module", "taskhierarchy").Logger()),

		closedtask.NewModule(closedtask.ModuleConfig{
			Cadence:  cadenceOr(cfg.Audit.ClosedTask.Cadence, "0 55 13 * * *"),
			Enabled:  cfg.Audit.ClosedTask.Enabled,
			Lookback: ctLookback,
			Domain:   domain,
		}, a.svc, a.mailer, a.bus, a.log.With().Str("module", "closedtask").Logger()),

		housekeeping.NewModule(housekeeping.ModuleConfig{
			Cadence: cadenceOr(cfg.Audit.Housekeeping.Cadence, "0 0 * * * *"),
			Enabled: cfg.Audit.Housekeeping.Enabled,
		}, a.svc.Cache(), a.log.With().Str("module", "housekeeping").Logger()),
	)

	return schedule.New(schedule.Config{
		Workers:     cfg.Scheduler.Workers,
		QueueSize:   cfg.Scheduler.QueueSize,
		StopTimeout: stopTimeout,
		Location:    loc,
	}, reg, a.bus, a.log.With().Str("comp", "scheduler").Logger()), nil
}

// Run starts everything and blocks until ctx is cancelled, then shuts
// down in reverse dependency order.
func (a *App) Run(ctx context.Context) error {
	if err := a.sched.Start(ctx); err != nil {
		return err
	}
	if err := a.metricsSrv.Start(); err != nil {
		a.log.Error().Err(err).Msg("metrics server failed to start")
	}
	if err := a.pprofSrv.Start(ctx); err != nil {
		a.log.Error().Err(err).Msg("pprof failed to start")
	}

	a.wg.Add(3)
	go func() {
		defer a.wg.Done()
		metrics.Observe(ctx, a.bus)
	}()
	go func() {
		defer a.wg.Done()
		_ = a.mgr.Watch(ctx)
	}()
	go func() {
		defer a.wg.Done()
		a.watchReloads(ctx)
	}()
	go runWatchdog(ctx, a.log)

	notifyReady(a.log)
	a.log.Info().Msg("daemon started")

	<-ctx.Done()
	notifyStopping(a.log)
	a.shutdown()
	return nil
}

// watchReloads applies hot config changes. Only the audit and scheduler
// sections are applied live (by swapping the scheduler); everything else
// requires a restart and is logged as such.
func (a *App) watchReloads(ctx context.Context) {
	ch := a.mgr.Subscribe(1)
	defer a.mgr.Unsubscribe(ch)

	prev := a.mgr.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-ch:
			if !ok || cfg == nil {
				return
			}
			auditChanged := !reflect.DeepEqual(cfg.Audit, prev.Audit) ||
				!reflect.DeepEqual(cfg.Scheduler, prev.Scheduler)
			otherChanged := !reflect.DeepEqual(cfg.API, prev.API) ||
				!reflect.DeepEqual(cfg.SMTP, prev.SMTP) ||
				!reflect.DeepEqual(cfg.AI, prev.AI)
			prev = cfg

			if otherChanged {
				a.log.Warn().Msg("api/smtp/ai config changed, restart required to apply")
			}
			if !auditChanged {
				continue
			}
			if err := a.swapScheduler(ctx, cfg); err != nil {
				a.log.Error().Err(err).Msg("scheduler reload failed, previous schedule kept")
				continue
			}
			a.log.Info().Msg("audit schedule reloaded")
		}
	}
}

func (a *App) swapScheduler(ctx context.Context, cfg *config.Config) error {
	next, err := a.buildScheduler(cfg)
	if err != nil {
		return err
	}
	if err := next.Start(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	old := a.sched
	a.sched = next
	a.mu.Unlock()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	old.Stop(stopCtx)
	cancel()
	return nil
}

func (a *App) shutdown() {
	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a.mu.Lock()
	sched := a.sched
	a.mu.Unlock()
	sched.Stop(stopCtx)

	a.svc.Stop()
	a.pprofSrv.Stop(stopCtx)
	a.metricsSrv.Stop(stopCtx)
	a.wg.Wait()
	a.log.Info().Msg("daemon stopped")
}
