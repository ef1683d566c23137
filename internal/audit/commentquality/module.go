package commentquality

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"workguard/internal/eventbus"
	"workguard/internal/megaplan"
	"workguard/internal/notify"
)

const moduleName = "CommentQualityAuditor"

type ModuleConfig struct {
	Cadence  string
	Enabled  bool
	Lookback time.Duration
	MinHours float64
	Domain   string
}

// Module runs the oracle-backed scoring over the full task list.
type Module struct {
	cfg      ModuleConfig
	svc      *megaplan.Service
	oracle   Analyzer
	notifier *Notifier
	bus      eventbus.Bus
	log      zerolog.Logger
	now      func() time.Time
}

func NewModule(cfg ModuleConfig, svc *megaplan.Service, oracle Analyzer, sender notify.Notifier, bus eventbus.Bus, log zerolog.Logger) *Module {
	return &Module{
		cfg:      cfg,
		svc:      svc,
		oracle:   oracle,
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
	tasks, err := m.svc.FetchAllTasks(ctx)
	if err != nil {
		return err
	}

	checker := Checker{
		Oracle:      m.oracle,
		Lookback:    m.cfg.Lookback,
		MinHours:    m.cfg.MinHours,
		PositionFor: m.positionFor,
		Log:         m.log,
	}
	violations := checker.Check(ctx, tasks, m.now())
	m.bus.Publish(eventbus.Event{
		Type: eventbus.TypeViolations,
		Data: eventbus.Violations{Rule: "commentquality", Count: len(violations)},
	})
	if len(violations) == 0 {
		m.log.Info().Msg("no low-quality work descriptions found")
		return nil
	}

	m.log.Info().Int("violations", len(violations)).Msg("low-quality work descriptions found")
	m.notifier.SendAll(ctx, violations, m.now())
	return nil
}

func (m *Module) positionFor(ctx context.Context, authorID string) string {
	if authorID == "" {
		return ""
	}
	emp, err := m.svc.FetchEmployeeByID(ctx, authorID)
	if err != nil || emp == nil {
		return ""
	}
	return emp.Position
}
