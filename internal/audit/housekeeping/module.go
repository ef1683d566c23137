// Package housekeeping clears the employee cache on a cadence so the
// daemon never serves day-old records.
package housekeeping

import (
	"context"

	"github.com/rs/zerolog"

	"workguard/internal/megaplan"
)

const moduleName = "CacheCleanup"

type ModuleConfig struct {
	Cadence string
	Enabled bool
}

type Module struct {
	cfg   ModuleConfig
	cache *megaplan.EmployeeCache
	log   zerolog.Logger
}

func NewModule(cfg ModuleConfig, cache *megaplan.EmployeeCache, log zerolog.Logger) *Module {
	return &Module{cfg: cfg, cache: cache, log: log}
}

func (m *Module) Name() string    { return moduleName }
func (m *Module) Cadence() string { return m.cfg.Cadence }
func (m *Module) Enabled() bool   { return m.cfg.Enabled }

func (m *Module) Run(ctx context.Context) error {
	n := m.cache.Clear()
	m.log.Debug().Int("evicted", n).Msg("employee cache cleared")
	return nil
}
