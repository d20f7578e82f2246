// Package configuration resolves component configuration through the
// super-type hierarchy.
//
// A Resolver builds a Chain per leaf type by walking super types in the
// backing store until it reaches a type without a configuration marker, and
// caches it. The cache is shared by every concurrent render and is cleared
// as a whole by InvalidateAll.
package configuration

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/conneroisu/tessera/internal/errors"
	"github.com/conneroisu/tessera/internal/logging"
	"github.com/conneroisu/tessera/internal/metrics"
	"github.com/conneroisu/tessera/internal/store"
	"github.com/conneroisu/tessera/internal/types"
)

// Resolver resolves and caches configuration chains
type Resolver struct {
	store       store.Store
	logger      logging.Logger
	recorder    metrics.Recorder
	defaultMode types.Mode

	mutex      sync.RWMutex
	chains     map[string]Chain
	generation uint64

	hits          atomic.Int64
	misses        atomic.Int64
	stale         atomic.Int64
	invalidations atomic.Int64
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLogger sets the resolver logger
func WithLogger(logger logging.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger.WithComponent("resolver")
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(recorder metrics.Recorder) Option {
	return func(r *Resolver) {
		if recorder != nil {
			r.recorder = recorder
		}
	}
}

// WithDefaultMode overrides the mode used by mode-default accessors
func WithDefaultMode(mode types.Mode) Option {
	return func(r *Resolver) {
		r.defaultMode = mode
	}
}

// NewResolver creates a resolver reading from s
func NewResolver(s store.Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:       s,
		logger:      logging.Nop(),
		recorder:    metrics.NoopRecorder{},
		defaultMode: types.DefaultMode,
		chains:      make(map[string]Chain),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultMode returns the mode used by mode-default accessors
func (r *Resolver) DefaultMode() types.Mode {
	return r.defaultMode
}

// ResolveChain returns a copy of the configuration chain for typeName.
// Concurrent misses for the same key may each walk the store; the last
// writer wins.
func (r *Resolver) ResolveChain(ctx context.Context, typeName string) Chain {
	return r.cachedChain(ctx, typeName).Clone()
}

// cachedChain returns the chain shared with the cache. Callers must not
// modify it.
func (r *Resolver) cachedChain(ctx context.Context, typeName string) Chain {
	r.mutex.RLock()
	chain, ok := r.chains[typeName]
	generation := r.generation
	r.mutex.RUnlock()

	if ok {
		r.hits.Add(1)
		r.recorder.IncCache(metrics.CacheHit)
		return chain
	}
	r.misses.Add(1)
	r.recorder.IncCache(metrics.CacheMiss)

	chain, err := r.walk(ctx, typeName)
	if err != nil {
		errors.Absorb(ctx, r.logger, err, "Resolving configuration chain")
		return chain
	}

	r.mutex.Lock()
	if r.generation == generation {
		r.chains[typeName] = chain
	} else {
		r.stale.Add(1)
		r.recorder.IncCache(metrics.CacheStale)
	}
	r.mutex.Unlock()

	return chain
}

// walk builds the chain inside one store session. A non-nil error means
// the result is incomplete and must not be cached.
func (r *Resolver) walk(ctx context.Context, typeName string) (Chain, error) {
	session, err := r.store.Open(ctx)
	if err != nil {
		return Chain{}, errors.NewLookupError(errors.ErrCodeStoreUnavailable, "open store session", err).
			WithComponent(typeName)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			r.logger.Warn(ctx, cerr, "Closing store session", "type", typeName)
		}
	}()

	chain := Chain{}
	seen := make(map[string]struct{})
	for name := typeName; name != ""; {
		if _, dup := seen[name]; dup {
			r.logger.Debug(ctx, "Super-type cycle ends chain walk",
				"type", typeName, "repeated", name, "code", errors.ErrCodeSuperTypeCycle)
			break
		}
		seen[name] = struct{}{}

		node, found, err := session.Component(ctx, name)
		if err != nil {
			return Chain{}, errors.NewLookupError(errors.ErrCodeStoreRead, "read component", err).
				WithComponent(name)
		}
		if !found || !node.HasConfig {
			break
		}
		chain = append(chain, node)
		name = node.SuperType
	}
	return chain, nil
}

// ValuesFor resolves property on typeName under mode.
func (r *Resolver) ValuesFor(ctx context.Context, typeName, property string, mode types.Mode) []types.Value {
	return r.cachedChain(ctx, typeName).Values(property, mode)
}

// Names returns the sorted visible property names; shallow restricts to
// the leaf type.
func (r *Resolver) Names(ctx context.Context, typeName string, shallow bool) []string {
	return r.cachedChain(ctx, typeName).Names(shallow)
}

// DistilledMap maps every visible name to its value under mode.
func (r *Resolver) DistilledMap(ctx context.Context, typeName string, mode types.Mode, flatten bool) map[string]any {
	return r.cachedChain(ctx, typeName).Distill(mode, flatten)
}

// HasConfig reports whether typeName itself carries a configuration marker.
func (r *Resolver) HasConfig(ctx context.Context, typeName string) bool {
	return len(r.cachedChain(ctx, typeName)) > 0
}

// Component returns the definition of typeName itself. The cached chain is
// used when its leaf is typeName; otherwise the store is read directly.
func (r *Resolver) Component(ctx context.Context, typeName string) (types.ComponentNode, bool) {
	if chain := r.cachedChain(ctx, typeName); len(chain) > 0 && chain[0].TypeName == typeName {
		return chain[0].Clone(), true
	}

	session, err := r.store.Open(ctx)
	if err != nil {
		errors.Absorb(ctx, r.logger, errors.NewLookupError(errors.ErrCodeStoreUnavailable, "open store session", err).
			WithComponent(typeName), "Reading component")
		return types.ComponentNode{}, false
	}
	defer session.Close()

	node, found, err := session.Component(ctx, typeName)
	if err != nil {
		errors.Absorb(ctx, r.logger, errors.NewLookupError(errors.ErrCodeStoreRead, "read component", err).
			WithComponent(typeName), "Reading component")
		return types.ComponentNode{}, false
	}
	return node, found
}

// InvalidateAll discards every cached chain. Chains being built while it
// runs are returned to their callers but never cached.
func (r *Resolver) InvalidateAll() {
	r.mutex.Lock()
	r.chains = make(map[string]Chain)
	r.generation++
	r.mutex.Unlock()

	r.invalidations.Add(1)
	r.recorder.IncInvalidation()
}

// Stats is a snapshot of cache counters
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Stale         int64 `json:"stale"`
	Invalidations int64 `json:"invalidations"`
	Entries       int   `json:"entries"`
}

// Stats returns current cache counters
func (r *Resolver) Stats() Stats {
	r.mutex.RLock()
	entries := len(r.chains)
	r.mutex.RUnlock()

	return Stats{
		Hits:          r.hits.Load(),
		Misses:        r.misses.Load(),
		Stale:         r.stale.Load(),
		Invalidations: r.invalidations.Load(),
		Entries:       entries,
	}
}
