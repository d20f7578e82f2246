// Package renderer turns a component instance into output.
//
// For every render a fresh content model is seeded with the page data, a
// component scope is pushed, and the pipeline engine runs against it. The
// result is either written as a templ component wrapping the model JSON or
// returned as JSON alone.
package renderer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/tessera/internal/configuration"
	"github.com/conneroisu/tessera/internal/contentmodel"
	"github.com/conneroisu/tessera/internal/errors"
	"github.com/conneroisu/tessera/internal/logging"
	"github.com/conneroisu/tessera/internal/metrics"
	"github.com/conneroisu/tessera/internal/pipeline"
	"github.com/conneroisu/tessera/internal/processors"
	"github.com/conneroisu/tessera/internal/types"
)

// ClassesPath is where the wrapper reads its class attribute from.
const ClassesPath = processors.StylingKey + ".classes"

// ComponentRenderer renders components through a pipeline engine
type ComponentRenderer struct {
	engine   *pipeline.Engine
	resolver *configuration.Resolver
	pageData map[string]any
	logger   logging.Logger
	recorder metrics.Recorder
}

// Option configures a ComponentRenderer
type Option func(*ComponentRenderer)

// WithLogger sets the renderer logger
func WithLogger(logger logging.Logger) Option {
	return func(r *ComponentRenderer) {
		if logger != nil {
			r.logger = logger.WithComponent("renderer")
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(recorder metrics.Recorder) Option {
	return func(r *ComponentRenderer) {
		if recorder != nil {
			r.recorder = recorder
		}
	}
}

// WithPageData seeds the root scope of every model, e.g. with
// {"wcm": {"editMode": true}}.
func WithPageData(data map[string]any) Option {
	return func(r *ComponentRenderer) {
		r.pageData = data
	}
}

// NewComponentRenderer creates a renderer
func NewComponentRenderer(engine *pipeline.Engine, resolver *configuration.Resolver, opts ...Option) *ComponentRenderer {
	r := &ComponentRenderer{
		engine:   engine,
		resolver: resolver,
		logger:   logging.Nop(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Model runs the pipeline for resource and returns the populated model
// with the component scope still pushed.
func (r *ComponentRenderer) Model(ctx context.Context, resource types.Resource) (*contentmodel.Model, *pipeline.ExecutionContext, error) {
	if err := validateTypeName(resource.TypeName); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	defer func() { r.recorder.ObserveRender(time.Since(start)) }()

	exec := pipeline.NewExecutionContext(resource, r.resolver)
	model := contentmodel.New(r.pageData).ExtendScope()

	if err := r.engine.Execute(ctx, exec, model); err != nil {
		r.logger.Warn(ctx, err, "Render failed", "type", resource.TypeName, "path", resource.Path, "render", exec.ID.String())
		return nil, exec, fmt.Errorf("render %s: %w", resource.TypeName, err)
	}
	r.logger.Debug(ctx, "Rendered component",
		"type", resource.TypeName,
		"path", resource.Path,
		"render", exec.ID.String(),
		"processors", strings.Join(exec.Executed(), ","),
	)
	return model, exec, nil
}

// Component renders resource into a templ component.
func (r *ComponentRenderer) Component(ctx context.Context, resource types.Resource) (templ.Component, error) {
	model, _, err := r.Model(ctx, resource)
	if err != nil {
		return nil, err
	}
	return Wrapper(resource, model), nil
}

// Render writes the rendered component to w.
func (r *ComponentRenderer) Render(ctx context.Context, w io.Writer, resource types.Resource) error {
	component, err := r.Component(ctx, resource)
	if err != nil {
		return err
	}
	return component.Render(ctx, w)
}

// RenderJSON returns the model JSON. With keys only those paths are
// projected.
func (r *ComponentRenderer) RenderJSON(ctx context.Context, resource types.Resource, keys ...string) ([]byte, error) {
	model, _, err := r.Model(ctx, resource)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return model.MarshalJSON()
	}
	projected := contentmodel.New(model.ToJSONObjectKeys(keys...))
	return json.Marshal(projected)
}

// Wrapper is the component markup: a div carrying the styling classes and
// type, holding the model as a JSON script block.
func Wrapper(resource types.Resource, model *contentmodel.Model) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<div")
		if classes := model.GetString(ClassesPath); classes != "" {
			b.WriteString(` class="` + templ.EscapeString(classes) + `"`)
		}
		b.WriteString(` data-type="` + templ.EscapeString(resource.TypeName) + `"`)
		if resource.Path != "" {
			b.WriteString(` data-path="` + templ.EscapeString(resource.Path) + `"`)
		}
		b.WriteString(">")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}

		if err := templ.JSONScript(scriptID(resource), model).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</div>")
		return err
	})
}

func scriptID(resource types.Resource) string {
	if resource.Path == "" {
		return "model-" + processors.NoContentID
	}
	return "model-" + processors.ContentID(resource.Path)
}

// validateTypeName rejects names that could not come from a store.
func validateTypeName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidName, "component type must not be empty")
	}
	cleanName := filepath.Clean(name)
	if strings.Contains(cleanName, "..") {
		return errors.NewValidationError(errors.ErrCodeInvalidName, "path traversal in component type").
			WithComponent(name)
	}
	if strings.ContainsAny(name, "<>\"'&\\") {
		return errors.NewValidationError(errors.ErrCodeInvalidName, "invalid characters in component type").
			WithComponent(name)
	}
	return nil
}
