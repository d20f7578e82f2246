package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/tessera/internal/configuration"
	"github.com/conneroisu/tessera/internal/types"
)

// ExecutionContext carries per-render state shared by processors.
type ExecutionContext struct {
	// ID identifies the render in logs
	ID uuid.UUID
	// Resource is the component instance being rendered
	Resource types.Resource
	// Resolver answers configuration lookups for the component type
	Resolver *configuration.Resolver
	// StartedAt is when the render began
	StartedAt time.Time

	mutex      sync.RWMutex
	attributes map[string]any
	executed   []string
}

// NewExecutionContext starts a render of resource.
func NewExecutionContext(resource types.Resource, resolver *configuration.Resolver) *ExecutionContext {
	return &ExecutionContext{
		ID:         uuid.New(),
		Resource:   resource,
		Resolver:   resolver,
		StartedAt:  time.Now(),
		attributes: make(map[string]any),
	}
}

// Configuration returns the configuration view for the resource's type.
func (e *ExecutionContext) Configuration(ctx context.Context) *configuration.Configuration {
	return e.Resolver.For(ctx, e.Resource.TypeName)
}

// Categories returns the MERGE-resolved categories of the resource's type.
func (e *ExecutionContext) Categories(ctx context.Context) []string {
	if e.Resolver == nil {
		return nil
	}
	return e.Configuration(ctx).StringsIn(CategoriesProperty, types.ModeMerge)
}

// Set stores an attribute visible to later processors.
func (e *ExecutionContext) Set(name string, value any) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.attributes[name] = value
}

// Get reads an attribute.
func (e *ExecutionContext) Get(name string) (any, bool) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	v, ok := e.attributes[name]
	return v, ok
}

// Executed lists the processors that ran, in order.
func (e *ExecutionContext) Executed() []string {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return append([]string(nil), e.executed...)
}

func (e *ExecutionContext) markExecuted(name string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.executed = append(e.executed, name)
}
