package runtime_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/playground/internal/runtime"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestEngine_LifecycleHooks(t *testing.T) {
	var mu sync.Mutex
	events := map[domain.EventType][]string{}
	record := func(_ context.Context, e *domain.RunEvent) {
		mu.Lock()
		events[e.Type] = append(events[e.Type], e.NodeID)
		mu.Unlock()
	}
	var propagated []*domain.PropagateEvent

	hooks := domain.LifecycleHooks{
		OnRunStart:   record,
		OnRunSuccess: record,
		OnRunError:   record,
		OnPropagate: func(_ context.Context, e *domain.PropagateEvent) {
			mu.Lock()
			propagated = append(propagated, e)
			mu.Unlock()
		},
	}

	f := newFixture(t, runtime.WithLifecycleHooks(hooks))
	f.add(t, "a", "source", map[string]any{"value": "X1"})
	f.add(t, "b", "fail", nil)
	f.connect(t, "a", "b", "address")
	f.settle(t)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b"}, events[domain.EventRunStart])
	assert.Equal(t, []string{"a"}, events[domain.EventRunSuccess])
	assert.Equal(t, []string{"b"}, events[domain.EventRunError])

	// a may fire before or after the edge exists.
	var last *domain.PropagateEvent
	for _, p := range propagated {
		if p.NodeID == "a" {
			last = p
		}
	}
	if assert.NotNil(t, last) && len(last.Targets) > 0 {
		assert.Equal(t, []string{"b"}, last.Targets)
	}
}
