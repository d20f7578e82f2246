// Package internal contains the core implementation packages for tessera.
//
// # Package Organization
//
//   - types: component nodes, typed values, resolution modes and resources
//   - store: backing stores of component definitions (YAML files, memory)
//   - configuration: super-type chain resolution with a shared cache
//   - contentmodel: the scoped, nested content model a render writes to
//   - pipeline: the prioritized processor engine and execution context
//   - processors: built-in processors and configurable expression rules
//   - renderer: component output with the embedded model
//   - watcher: definition change detection and invalidation fan-out
//   - server: HTTP and websocket surface
//   - config: file, environment and flag configuration
//   - logging, errors, metrics, version: ambient support
//
// # Data Flow
//
// A render builds a fresh content model, resolves the component's
// configuration chain through the resolver cache and runs every accepting
// processor in priority order. Definition changes on disk reach the
// resolver through the watcher's notifier, which clears the cache before
// live clients are told to refetch.
package internal
