package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/tessera/internal/types"
)

// EventType represents the type of store event
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

// StoreEvent represents a change in the memory store
type StoreEvent struct {
	Type      EventType
	TypeName  string
	Timestamp time.Time
}

// MemoryStore keeps component definitions in memory
type MemoryStore struct {
	nodes    map[string]types.ComponentNode
	mutex    sync.RWMutex
	watchers []chan StoreEvent

	open atomic.Int64
}

// NewMemoryStore creates a store seeded with nodes
func NewMemoryStore(nodes ...types.ComponentNode) *MemoryStore {
	s := &MemoryStore{
		nodes:    make(map[string]types.ComponentNode, len(nodes)),
		watchers: make([]chan StoreEvent, 0),
	}
	for _, node := range nodes {
		s.nodes[node.TypeName] = node.Clone()
	}
	return s
}

// Put adds or replaces a component definition
func (s *MemoryStore) Put(node types.ComponentNode) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	eventType := EventTypeAdded
	if _, exists := s.nodes[node.TypeName]; exists {
		eventType = EventTypeUpdated
	}
	s.nodes[node.TypeName] = node.Clone()
	s.notify(eventType, node.TypeName)
}

// Delete removes a component definition
func (s *MemoryStore) Delete(typeName string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.nodes[typeName]; !exists {
		return
	}
	delete(s.nodes, typeName)
	s.notify(EventTypeRemoved, typeName)
}

// must hold s.mutex
func (s *MemoryStore) notify(eventType EventType, typeName string) {
	event := StoreEvent{Type: eventType, TypeName: typeName, Timestamp: time.Now()}
	for _, watcher := range s.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// Watch returns a channel that receives store events
func (s *MemoryStore) Watch() <-chan StoreEvent {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ch := make(chan StoreEvent, 100)
	s.watchers = append(s.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (s *MemoryStore) UnWatch(ch <-chan StoreEvent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, watcher := range s.watchers {
		if watcher == ch {
			close(watcher)
			s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of stored definitions
func (s *MemoryStore) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.nodes)
}

// OpenSessions returns the number of sessions not yet closed.
func (s *MemoryStore) OpenSessions() int64 {
	return s.open.Load()
}

// Open implements Store.
func (s *MemoryStore) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.open.Add(1)
	return &memorySession{store: s}, nil
}

type memorySession struct {
	store  *MemoryStore
	closed atomic.Bool
}

func (m *memorySession) Component(_ context.Context, typeName string) (types.ComponentNode, bool, error) {
	m.store.mutex.RLock()
	defer m.store.mutex.RUnlock()

	node, ok := m.store.nodes[typeName]
	if !ok {
		return types.ComponentNode{}, false, nil
	}
	return node.Clone(), true, nil
}

func (m *memorySession) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		m.store.open.Add(-1)
	}
	return nil
}
