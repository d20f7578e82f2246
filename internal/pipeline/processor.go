// Package pipeline orders and runs content processors for one component
// render.
//
// Processors are registered explicitly with an Engine. For each render the
// engine asks every processor, highest priority first, whether it accepts
// the component and runs the ones that do against a shared content model.
package pipeline

import (
	"context"

	"github.com/conneroisu/tessera/internal/contentmodel"
)

// Priority levels. Higher runs first.
const (
	HighestPriority = 100
	HighPriority    = 75
	MediumPriority  = 50
	LowPriority     = 25
	LowestPriority  = 0
)

// CategoriesProperty is the configuration property processors are
// selected by. It is resolved with MERGE.
const CategoriesProperty = "categories"

// Processor contributes properties to a component's content model.
type Processor interface {
	// Name returns the unique name of the processor
	Name() string

	// Priority returns the execution priority (higher numbers execute first)
	Priority() int

	// Accepts reports whether the processor applies to the component
	Accepts(ctx context.Context, exec *ExecutionContext) (bool, error)

	// Process writes into model
	Process(ctx context.Context, exec *ExecutionContext, model *contentmodel.Model) error
}

// CategoryProcessor implements Accepts from category sets. Embed it and
// fill in the sets.
type CategoryProcessor struct {
	// AnyOf accepts components carrying at least one of these categories
	AnyOf []string
	// AllOf accepts components carrying every one of these categories
	AllOf []string
	// NoneOf rejects components carrying any of these categories
	NoneOf []string
}

// Accepts implements Processor.
func (c CategoryProcessor) Accepts(ctx context.Context, exec *ExecutionContext) (bool, error) {
	return c.Matches(exec.Categories(ctx)), nil
}

// Matches applies the category sets to categories. Empty sets impose no
// constraint.
func (c CategoryProcessor) Matches(categories []string) bool {
	have := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		have[category] = struct{}{}
	}

	for _, category := range c.NoneOf {
		if _, ok := have[category]; ok {
			return false
		}
	}
	for _, category := range c.AllOf {
		if _, ok := have[category]; !ok {
			return false
		}
	}
	if len(c.AnyOf) == 0 {
		return true
	}
	for _, category := range c.AnyOf {
		if _, ok := have[category]; ok {
			return true
		}
	}
	return false
}

// Func adapts plain functions into a Processor, mostly for tests and
// one-off wiring.
type Func struct {
	ProcessorName     string
	ProcessorPriority int
	CategoryProcessor
	Fn func(ctx context.Context, exec *ExecutionContext, model *contentmodel.Model) error
}

func (f *Func) Name() string  { return f.ProcessorName }
func (f *Func) Priority() int { return f.ProcessorPriority }

func (f *Func) Process(ctx context.Context, exec *ExecutionContext, model *contentmodel.Model) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx, exec, model)
}

var _ Processor = (*Func)(nil)
