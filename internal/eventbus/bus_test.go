package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFanout(t *testing.T) {
	b := New()
	a, unsubA := b.Subscribe(4)
	defer unsubA()
	c, unsubC := b.Subscribe(4)
	defer unsubC()

	b.Publish(Event{Type: TypeViolations, Data: Violations{Rule: "worktime", Count: 2}})

	for _, ch := range []<-chan Event{a, c} {
		ev := <-ch
		assert.Equal(t, TypeViolations, ev.Type)
		assert.False(t, ev.Time.IsZero())
		require.IsType(t, Violations{}, ev.Data)
		assert.Equal(t, 2, ev.Data.(Violations).Count)
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	// Second publish overflows the buffer and is dropped.
	b.Publish(Event{Type: TypeModuleSkipped, Data: "first"})
	b.Publish(Event{Type: TypeModuleSkipped, Data: "second"})

	ev := <-ch
	assert.Equal(t, "first", ev.Data)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(4)
	unsub()
	unsub() // idempotent

	b.Publish(Event{Type: TypeModuleRun, Data: ModuleRun{Module: "x"}})

	_, ok := <-ch
	assert.False(t, ok)
}
