package schedule

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Module is one independently scheduled audit unit.
//
// Cadence returns a six-field schedule string, or "" for modules that run
// once at startup instead of on a schedule. Run is invoked on a scheduler
// worker; errors and panics are contained by the scheduler and never reach
// the tick loop.
type Module interface {
	Name() string
	Cadence() string
	Enabled() bool
	Run(ctx context.Context) error
}

// Registry holds named modules. Registering a duplicate name is a warning
// and a no-op, not an error.
type Registry struct {
	mu      sync.Mutex
	order   []string
	modules map[string]Module
	log     zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		modules: map[string]Module{},
		log:     log,
	}
}

func (r *Registry) Register(mods ...Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range mods {
		name := m.Name()
		if _, ok := r.modules[name]; ok {
			r.log.Warn().Str("module", name).Msg("module already registered, ignoring")
			continue
		}
		r.modules[name] = m
		r.order = append(r.order, name)
		r.log.Info().Str("module", name).Str("cadence", m.Cadence()).Msg("module registered")
	}
}

// All returns modules in registration order.
func (r *Registry) All() []Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Module, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.modules[name])
	}
	return out
}

// Get returns the module registered under name, or nil.
func (r *Registry) Get(name string) Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modules[name]
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.modules)
}
