package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/tessera/internal/contentmodel"
	"github.com/conneroisu/tessera/internal/errors"
	"github.com/conneroisu/tessera/internal/logging"
	"github.com/conneroisu/tessera/internal/metrics"
)

// ProcessError reports a processor whose Process call failed.
type ProcessError struct {
	Processor string
	TypeName  string
	Err       error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("processor %s failed for %s: %v", e.Processor, e.TypeName, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// AcceptsError reports a processor whose Accepts call failed.
type AcceptsError struct {
	Processor string
	TypeName  string
	Err       error
}

func (e *AcceptsError) Error() string {
	return fmt.Sprintf("processor %s could not evaluate %s: %v", e.Processor, e.TypeName, e.Err)
}

func (e *AcceptsError) Unwrap() error { return e.Err }

// Engine runs registered processors in priority order
type Engine struct {
	mutex      sync.RWMutex
	processors []Processor
	names      map[string]struct{}
	logger     logging.Logger
	recorder   metrics.Recorder
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger.WithComponent("pipeline")
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(recorder metrics.Recorder) Option {
	return func(e *Engine) {
		if recorder != nil {
			e.recorder = recorder
		}
	}
}

// NewEngine creates an engine with no processors
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		names:    make(map[string]struct{}),
		logger:   logging.Nop(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds processors. Names must be unique and non-empty. A batch
// is registered whole or not at all.
func (e *Engine) Register(processors ...Processor) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	batch := make(map[string]struct{}, len(processors))
	for _, p := range processors {
		if p == nil {
			return errors.NewValidationError(errors.ErrCodeInvalidName, "nil processor")
		}
		name := p.Name()
		if name == "" {
			return errors.NewValidationError(errors.ErrCodeInvalidName, "processor name must not be empty")
		}
		_, registered := e.names[name]
		_, repeated := batch[name]
		if registered || repeated {
			return errors.NewValidationError(errors.ErrCodeDuplicateName, "processor already registered").
				WithContext("processor", name)
		}
		batch[name] = struct{}{}
	}

	for _, p := range processors {
		e.names[p.Name()] = struct{}{}
		e.processors = append(e.processors, p)
	}

	// Sort by priority (higher numbers first), then by name
	sort.SliceStable(e.processors, func(i, j int) bool {
		pi, pj := e.processors[i].Priority(), e.processors[j].Priority()
		if pi != pj {
			return pi > pj
		}
		return e.processors[i].Name() < e.processors[j].Name()
	})
	return nil
}

// Processors returns the registered processors in execution order
func (e *Engine) Processors() []Processor {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return append([]Processor(nil), e.processors...)
}

// Execute runs every accepting processor against model, one at a time. It
// stops at the first failure or when ctx is done.
func (e *Engine) Execute(ctx context.Context, exec *ExecutionContext, model *contentmodel.Model) error {
	processors := e.Processors()
	logger := e.logger.With("render", exec.ID.String(), "type", exec.Resource.TypeName)

	for _, p := range processors {
		if err := ctx.Err(); err != nil {
			return err
		}

		accepted, err := p.Accepts(ctx, exec)
		if err != nil {
			return &AcceptsError{
				Processor: p.Name(),
				TypeName:  exec.Resource.TypeName,
				Err:       errors.NewProcessError(errors.ErrCodeAcceptsFailed, "accepts", err),
			}
		}
		if !accepted {
			continue
		}

		start := time.Now()
		err = p.Process(ctx, exec, model)
		elapsed := time.Since(start)
		e.recorder.ObserveProcessor(p.Name(), elapsed, err == nil)
		if err != nil {
			logger.Error(ctx, err, "Processor failed", "processor", p.Name(), "duration", elapsed.String())
			return &ProcessError{
				Processor: p.Name(),
				TypeName:  exec.Resource.TypeName,
				Err:       errors.NewProcessError(errors.ErrCodeProcessFailed, "process", err),
			}
		}
		exec.markExecuted(p.Name())
		logger.Debug(ctx, "Processor completed", "processor", p.Name(), "duration", elapsed.String())
	}
	return nil
}
