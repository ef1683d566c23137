package schedule

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"workguard/internal/eventbus"
)

type Config struct {
	Workers     int           // scheduler worker pool size
	QueueSize   int           // dispatch queue capacity
	StopTimeout time.Duration // bounded await before force-cancel on Stop
	Location    *time.Location
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 5 * time.Second
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

// Scheduler ticks once per second and dispatches due modules onto its own
// worker pool. The tick goroutine only enqueues; it never blocks on module
// execution. A module whose previous run is still executing is skipped
// rather than dispatched again.
type Scheduler struct {
	mu  sync.Mutex
	cfg Config
	reg *Registry
	log zerolog.Logger
	bus eventbus.Bus

	matchers map[string]*Cadence
	running  map[string]bool

	queue     chan Module
	stopCh    chan struct{}
	runCancel context.CancelFunc
	workerWG  sync.WaitGroup
	tickerWG  sync.WaitGroup

	now func() time.Time // clock hook for tests
}

func New(cfg Config, reg *Registry, bus eventbus.Bus, log zerolog.Logger) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		cfg:      cfg,
		reg:      reg,
		bus:      bus,
		log:      log,
		matchers: map[string]*Cadence{},
		running:  map[string]bool{},
		now:      func() time.Time { return time.Now().In(cfg.Location) },
	}
}

// Start parses every cadence, runs enabled no-cadence modules once, then
// begins the 1-second tick. Invalid cadences fail Start; nothing is left
// running in that case.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return nil
	}

	for _, m := range s.reg.All() {
		spec := m.Cadence()
		if spec == "" {
			continue
		}
		c, err := ParseCadence(spec)
		if err != nil {
			return fmt.Errorf("module %s: %w", m.Name(), err)
		}
		s.matchers[m.Name()] = c
	}

	s.stopCh = make(chan struct{})
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.runCancel = cancel
	s.queue = make(chan Module, s.cfg.QueueSize)

	stopCh := s.stopCh
	queue := s.queue

	s.workerWG.Add(s.cfg.Workers)
	for i := 0; i < s.cfg.Workers; i++ {
		go func() {
			defer s.workerWG.Done()
			s.worker(runCtx, stopCh, queue)
		}()
	}

	// Modules without a cadence run once at startup.
	for _, m := range s.reg.All() {
		if !m.Enabled() {
			continue
		}
		if m.Cadence() == "" {
			s.log.Info().Str("module", m.Name()).Msg("module has no cadence, running once")
			s.dispatchLocked(m)
		}
	}

	s.tickerWG.Add(1)
	go func() {
		defer s.tickerWG.Done()
		s.tickLoop(stopCh)
	}()

	s.log.Info().
		Int("workers", s.cfg.Workers).
		Int("modules", s.reg.Len()).
		Str("tz", s.cfg.Location.String()).
		Msg("scheduler started")
	return nil
}

// Stop requests orderly shutdown: the tick loop exits, workers drain, and
// after StopTimeout any still-running module is force-cancelled via its
// context.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	stopCh := s.stopCh
	cancel := s.runCancel
	s.stopCh = nil
	s.runCancel = nil
	s.mu.Unlock()

	start := time.Now()
	close(stopCh)
	s.tickerWG.Wait()

	done := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.StopTimeout):
		s.log.Warn().Msg("stop timeout exceeded, cancelling running modules")
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	cancel()
	s.log.Info().Dur("took", time.Since(start)).Msg("scheduler stopped")
}

func (s *Scheduler) tickLoop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.tick(s.now())
		}
	}
}

// tick evaluates every enabled module with a cadence against now.
func (s *Scheduler) tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh == nil {
		return
	}
	for _, m := range s.reg.All() {
		if !m.Enabled() {
			continue
		}
		c, ok := s.matchers[m.Name()]
		if !ok || !c.Matches(now) {
			continue
		}
		if s.running[m.Name()] {
			s.log.Warn().Str("module", m.Name()).Msg("previous run still executing, skipping dispatch")
			s.bus.Publish(eventbus.Event{Type: eventbus.TypeModuleSkipped, Data: m.Name()})
			continue
		}
		s.dispatchLocked(m)
	}
}

func (s *Scheduler) dispatchLocked(m Module) {
	s.running[m.Name()] = true
	select {
	case s.queue <- m:
	default:
		s.running[m.Name()] = false
		s.log.Warn().Str("module", m.Name()).Msg("dispatch queue full, dropping run")
	}
}

func (s *Scheduler) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan Module) {
	for {
		select {
		case <-stopCh:
			return
		case m := <-queue:
			s.execute(ctx, m)
		}
	}
}

// execute wraps a module run with panic recovery and error containment so
// one module can never take down the tick loop or its siblings.
func (s *Scheduler) execute(ctx context.Context, m Module) {
	start := time.Now()
	log := s.log.With().Str("module", m.Name()).Logger()
	log.Info().Msg("module starting")

	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("panic: %v", r)
				log.Error().Any("panic", r).Str("stack", string(debug.Stack())).Msg("panic in module")
			}
		}()
		runErr = m.Run(ctx)
	}()

	s.mu.Lock()
	s.running[m.Name()] = false
	s.mu.Unlock()

	ev := eventbus.ModuleRun{Module: m.Name(), Duration: time.Since(start)}
	if runErr != nil {
		ev.Err = runErr.Error()
		log.Error().Err(runErr).Dur("took", ev.Duration).Msg("module failed")
	} else {
		log.Info().Dur("took", ev.Duration).Msg("module finished")
	}
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeModuleRun, Data: ev})
}
