package local

import (
	"context"
	"errors"
	"sync"
)

// ErrSlotUnavailable is returned by MemorySlots while Fail is set
var ErrSlotUnavailable = errors.New("slot medium unavailable")

// MemorySlots is an in-process slot medium
type MemorySlots struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
	puts int
}

func NewMemorySlots() *MemorySlots {
	return &MemorySlots{data: make(map[string][]byte)}
}

func (m *MemorySlots) Slot(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, ErrSlotUnavailable
	}
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemorySlots) PutSlot(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return ErrSlotUnavailable
	}
	m.data[key] = append([]byte(nil), value...)
	m.puts++
	return nil
}

// Fail makes every subsequent access fail until cleared
func (m *MemorySlots) Fail(on bool) {
	m.mu.Lock()
	m.fail = on
	m.mu.Unlock()
}

// Puts counts successful writes
func (m *MemorySlots) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}
