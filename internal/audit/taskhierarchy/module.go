package taskhierarchy

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"workguard/internal/eventbus"
	"workguard/internal/megaplan"
	"workguard/internal/notify"
)

const moduleName = "TaskHierarchyAuditor"

type ModuleConfig struct {
	Cadence     string
	Enabled     bool
	Lookback    time.Duration
	MaxHoursGap int64
	AdminEmail  string // digest recipient
}

// Module wires the checker to acquisition and the admin digest.
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
		notifier: &Notifier{sender: sender, svc: svc, admin: cfg.AdminEmail, log: log},
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

	checker := Checker{Lookback: m.cfg.Lookback, MaxHoursGap: m.cfg.MaxHoursGap}
	violations := checker.Check(tasks, m.now())
	m.bus.Publish(eventbus.Event{
		Type: eventbus.TypeViolations,
		Data: eventbus.Violations{Rule: "taskhierarchy", Count: len(violations)},
	})
	if len(violations) == 0 {
		m.log.Info().Msg("no hierarchy date anomalies found")
		return nil
	}

	m.log.Info().Int("violations", len(violations)).Msg("hierarchy date anomalies found")
	m.notifier.SendDigest(violations, checker.maxGap(), m.now())
	return nil
}
