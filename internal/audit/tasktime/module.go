package tasktime

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"workguard/internal/eventbus"
	"workguard/internal/megaplan"
	"workguard/internal/notify"
)

const moduleName = "TaskTimeAuditor"

type ModuleConfig struct {
	Cadence          string
	Enabled          bool
	Lookback         time.Duration
	ExcludePatterns  []string
	AllowDepartments []string
	Domain           string
}

// Module wires the overrun checker to acquisition and notification.
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

	checker := Checker{
		Lookback:         m.cfg.Lookback,
		ExcludePatterns:  m.cfg.ExcludePatterns,
		AllowDepartments: m.cfg.AllowDepartments,
	}
	violations := checker.Check(tasks, m.now())
	m.bus.Publish(eventbus.Event{
		Type: eventbus.TypeViolations,
		Data: eventbus.Violations{Rule: "tasktime", Count: len(violations)},
	})
	if len(violations) == 0 {
		m.log.Info().Msg("no estimate overruns found")
		return nil
	}

	m.log.Info().Int("violations", len(violations)).Msg("estimate overruns found")
	m.notifier.SendAll(violations, m.now())
	return nil
}
