package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workguard/internal/eventbus"
)

type fakeModule struct {
	name    string
	cadence string
	enabled bool

	started chan struct{}
	release chan struct{}
	err     error
	panics  bool
}

func (m *fakeModule) Name() string    { return m.name }
func (m *fakeModule) Cadence() string { return m.cadence }
func (m *fakeModule) Enabled() bool   { return m.enabled }

func (m *fakeModule) Run(ctx context.Context) error {
	if m.started != nil {
		close(m.started)
	}
	if m.panics {
		panic("boom")
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

func newTestScheduler(t *testing.T, bus eventbus.Bus, mods ...Module) *Scheduler {
	t.Helper()
	reg := NewRegistry(zerolog.Nop())
	reg.Register(mods...)
	return New(Config{Workers: 2, QueueSize: 8, StopTimeout: time.Second}, reg, bus, zerolog.Nop())
}

func waitEvent(t *testing.T, ch <-chan eventbus.Event, typ string) eventbus.Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event", typ)
		}
	}
}

func TestSchedulerSkipsWhileModuleStillRunning(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	m := &fakeModule{
		name:    "slow",
		cadence: "0 0 12 * * *",
		enabled: true,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newTestScheduler(t, bus, m)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	fire := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.tick(fire)
	<-m.started

	s.tick(fire.AddDate(0, 0, 1))
	ev := waitEvent(t, events, eventbus.TypeModuleSkipped)
	assert.Equal(t, "slow", ev.Data)

	close(m.release)
	run := waitEvent(t, events, eventbus.TypeModuleRun)
	data, ok := run.Data.(eventbus.ModuleRun)
	require.True(t, ok)
	assert.Equal(t, "slow", data.Module)
	assert.Empty(t, data.Err)
}

func TestSchedulerRecoversFromModulePanic(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	m := &fakeModule{name: "explosive", cadence: "0 0 12 * * *", enabled: true, panics: true}
	s := newTestScheduler(t, bus, m)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	s.tick(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	run := waitEvent(t, events, eventbus.TypeModuleRun)
	data, ok := run.Data.(eventbus.ModuleRun)
	require.True(t, ok)
	assert.Contains(t, data.Err, "panic")

	// The scheduler must keep dispatching after a panic.
	s.tick(time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC))
	waitEvent(t, events, eventbus.TypeModuleRun)
}

func TestSchedulerRunsCadencelessModuleOnce(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	m := &fakeModule{name: "oneshot", enabled: true}
	s := newTestScheduler(t, bus, m)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	run := waitEvent(t, events, eventbus.TypeModuleRun)
	data, ok := run.Data.(eventbus.ModuleRun)
	require.True(t, ok)
	assert.Equal(t, "oneshot", data.Module)
}

func TestSchedulerSkipsDisabledModules(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	m := &fakeModule{name: "dormant", cadence: "0 0 12 * * *", enabled: false}
	s := newTestScheduler(t, bus, m)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	s.tick(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s", ev.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSchedulerStartFailsOnBadCadence(t *testing.T) {
	bus := eventbus.New()
	m := &fakeModule{name: "broken", cadence: "*/5 * * * * *", enabled: true}
	s := newTestScheduler(t, bus, m)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "broken")
}

func TestSchedulerPropagatesModuleError(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	m := &fakeModule{name: "failing", enabled: true, err: errors.New("acquisition failed")}
	s := newTestScheduler(t, bus, m)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	run := waitEvent(t, events, eventbus.TypeModuleRun)
	data, ok := run.Data.(eventbus.ModuleRun)
	require.True(t, ok)
	assert.Equal(t, "acquisition failed", data.Err)
}

func TestRegistryIgnoresDuplicateNames(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	reg.Register(
		&fakeModule{name: "dup", enabled: true},
		&fakeModule{name: "dup", enabled: false},
	)
	assert.Equal(t, 1, reg.Len())
	require.NotNil(t, reg.Get("dup"))
	assert.True(t, reg.Get("dup").Enabled())
}
