// Package metrics defines the observability hooks used by the resolver,
// pipeline engine and renderer.
package metrics

import "time"

// CacheResult labels a chain cache lookup.
type CacheResult string

const (
	CacheHit  CacheResult = "hit"
	CacheMiss CacheResult = "miss"
	// CacheStale marks a computed chain dropped because an invalidation
	// happened while it was being built.
	CacheStale CacheResult = "stale"
)

// Recorder receives resolver and render measurements. Implementations must
// be safe for concurrent use.
type Recorder interface {
	IncCache(result CacheResult)
	IncInvalidation()
	ObserveProcessor(name string, d time.Duration, ok bool)
	ObserveRender(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncCache(CacheResult)                         {}
func (NoopRecorder) IncInvalidation()                             {}
func (NoopRecorder) ObserveProcessor(string, time.Duration, bool) {}
func (NoopRecorder) ObserveRender(time.Duration)                  {}
