package watcher

import (
	"context"
	"sort"
	"sync"

	"github.com/conneroisu/tessera/internal/errors"
	"github.com/conneroisu/tessera/internal/logging"
)

// Invalidator is notified when anything in the store may have changed.
type Invalidator interface {
	InvalidateAll()
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func()

// InvalidateAll calls f.
func (f InvalidatorFunc) InvalidateAll() { f() }

// Notifier fans change batches out to registered invalidators. Malformed
// registrations are the only errors it returns.
type Notifier struct {
	mutex        sync.RWMutex
	invalidators map[string]Invalidator
	logger       logging.Logger
}

// NewNotifier creates an empty notifier
func NewNotifier(logger logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Notifier{
		invalidators: make(map[string]Invalidator),
		logger:       logger.WithComponent("notifier"),
	}
}

// Register adds inv under name.
func (n *Notifier) Register(name string, inv Invalidator) error {
	if name == "" {
		return errors.NewRegistrationError(errors.ErrCodeInvalidName, "invalidator name must not be empty")
	}
	if inv == nil {
		return errors.NewRegistrationError(errors.ErrCodeNilInvalidator, "invalidator must not be nil").
			WithContext("name", name)
	}

	n.mutex.Lock()
	defer n.mutex.Unlock()

	if _, exists := n.invalidators[name]; exists {
		return errors.NewRegistrationError(errors.ErrCodeDuplicateName, "invalidator already registered").
			WithContext("name", name)
	}
	n.invalidators[name] = inv
	return nil
}

// Unregister removes the invalidator registered under name.
func (n *Notifier) Unregister(name string) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if _, exists := n.invalidators[name]; !exists {
		return errors.NewRegistrationError(errors.ErrCodeNotRegistered, "no invalidator registered").
			WithContext("name", name)
	}
	delete(n.invalidators, name)
	return nil
}

// Names returns the registered names, sorted.
func (n *Notifier) Names() []string {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	names := make([]string, 0, len(n.invalidators))
	for name := range n.invalidators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Notify invalidates every registered invalidator once per batch, in name
// order. Empty batches are ignored.
func (n *Notifier) Notify(ctx context.Context, events []ChangeEvent) {
	if len(events) == 0 {
		return
	}

	names := n.Names()
	n.mutex.RLock()
	targets := make([]Invalidator, 0, len(names))
	for _, name := range names {
		if inv, ok := n.invalidators[name]; ok {
			targets = append(targets, inv)
		}
	}
	n.mutex.RUnlock()

	n.logger.Info(ctx, "Component definitions changed",
		"events", len(events), "first", events[0].Path, "invalidators", len(targets))
	for _, inv := range targets {
		inv.InvalidateAll()
	}
}

// Handler adapts Notify to a ChangeHandler for a FileWatcher.
func (n *Notifier) Handler(ctx context.Context) ChangeHandler {
	return func(events []ChangeEvent) error {
		n.Notify(ctx, events)
		return nil
	}
}
