package metrics

import (
	"context"

	"workguard/internal/eventbus"
)

// Observe subscribes to the event bus and feeds module lifecycle and
// violation events into the collectors. Blocks until ctx is done.
func Observe(ctx context.Context, bus eventbus.Bus) {
	ch, unsub := bus.Subscribe(64)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch ev.Type {
			case eventbus.TypeModuleRun:
				run, ok := ev.Data.(eventbus.ModuleRun)
				if !ok {
					continue
				}
				outcome := "ok"
				if run.Err != "" {
					outcome = "error"
				}
				ModuleRuns.WithLabelValues(run.Module, outcome).Inc()
				ModuleDuration.WithLabelValues(run.Module).Observe(run.Duration.Seconds())
			case eventbus.TypeModuleSkipped:
				if name, ok := ev.Data.(string); ok {
					ModuleSkips.WithLabelValues(name).Inc()
				}
			case eventbus.TypeViolations:
				v, ok := ev.Data.(eventbus.Violations)
				if !ok {
					continue
				}
				Violations.WithLabelValues(v.Rule).Add(float64(v.Count))
			}
		}
	}
}
