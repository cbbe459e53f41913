package store

import (
	"context"
	"sync"
)

// MemoryMarkerBus simulates the shared storage of one browser profile. Each Tab sees
// writes made by the other tabs only, the way storage events are never fired in the
// tab that made the change.
type MemoryMarkerBus struct {
	mu    sync.Mutex
	value string
	tabs  []*MemoryTab
}

func NewMemoryMarkerBus() *MemoryMarkerBus {
	return &MemoryMarkerBus{}
}

type MemoryTab struct {
	bus       *MemoryMarkerBus
	mu        sync.Mutex
	listeners []func(string)
}

// Tab opens a new handle on the bus.
func (b *MemoryMarkerBus) Tab() *MemoryTab {
	tab := &MemoryTab{bus: b}
	b.mu.Lock()
	b.tabs = append(b.tabs, tab)
	b.mu.Unlock()
	return tab
}

func (t *MemoryTab) Read(ctx context.Context) (string, error) {
	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()
	return t.bus.value, nil
}

func (t *MemoryTab) Write(ctx context.Context, value string) error {
	t.bus.mu.Lock()
	t.bus.value = value
	others := make([]*MemoryTab, 0, len(t.bus.tabs))
	for _, tab := range t.bus.tabs {
		if tab != t {
			others = append(others, tab)
		}
	}
	t.bus.mu.Unlock()

	for _, tab := range others {
		tab.notify(value)
	}
	return nil
}

func (t *MemoryTab) Watch(ctx context.Context, onChange func(value string)) error {
	t.mu.Lock()
	t.listeners = append(t.listeners, onChange)
	idx := len(t.listeners) - 1
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		t.listeners[idx] = nil
		t.mu.Unlock()
	}()
	return nil
}

func (t *MemoryTab) notify(value string) {
	t.mu.Lock()
	listeners := make([]func(string), 0, len(t.listeners))
	for _, fn := range t.listeners {
		if fn != nil {
			listeners = append(listeners, fn)
		}
	}
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(value)
	}
}
