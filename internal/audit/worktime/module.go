package worktime

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"workguard/internal/eventbus"
	"workguard/internal/megaplan"
	"workguard/internal/notify"
)

const moduleName = "WorkTimeAuditor"

type ModuleConfig struct {
	Cadence  string
	Enabled  bool
	Lookback time.Duration
	Domain   string // recipient email domain restriction
}

// Module wires the checker to acquisition and notification on a cadence.
type Module struct {
	cfg      ModuleConfig
	svc      *megaplan.Service
	notifier *Notifier
	bus      eventbus.Bus
	log      zerolog.Logger
	now      func() time.Time
}

func NewModule(cfg ModuleConfig, svc *megaplan.Service, sender notify.Notifier, bus eventbus.Bus, log zerolog.Logger) *Module {
	return &Module{
		cfg:      cfg,
		svc:      svc,
		notifier: &Notifier{sender: sender, svc: svc, domain: cfg.Domain, log: log},
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

func (m *Module) Name() string    { return moduleName }
func (m *Module) Cadence() string { return m.cfg.Cadence }
func (m *Module) Enabled() bool   { return m.cfg.Enabled }

func (m *Module) Run(ctx context.Context) error {
	tasks, err := m.svc.FetchRecentTasksWithSubtasks(ctx)
	if err != nil {
		return err
	}

	violations := Checker{Lookback: m.cfg.Lookback}.Check(tasks, m.now())
	m.bus.Publish(eventbus.Event{
		Type: eventbus.TypeViolations,
		Data: eventbus.Violations{Rule: "worktime", Count: len(violations)},
	})
	if len(violations) == 0 {
		m.log.Info().Msg("no time-tracking inconsistencies found")
		return nil
	}

	m.log.Info().Int("violations", len(violations)).Msg("time-tracking inconsistencies found")
	m.notifier.SendAll(ctx, violations, m.now())
	return nil
}
