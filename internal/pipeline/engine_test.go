package pipeline

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/tessera/internal/configuration"
	"github.com/conneroisu/tessera/internal/contentmodel"
	"github.com/conneroisu/tessera/internal/errors"
	"github.com/conneroisu/tessera/internal/store"
	"github.com/conneroisu/tessera/internal/types"
)

func recording(name string, priority int, order *[]string) *Func {
	return &Func{
		ProcessorName:     name,
		ProcessorPriority: priority,
		Fn: func(_ context.Context, _ *ExecutionContext, model *contentmodel.Model) error {
			*order = append(*order, name)
			model.Set("last", name)
			return nil
		},
	}
}

func newExec(t *testing.T, categories ...any) *ExecutionContext {
	t.Helper()
	s := store.NewMemoryStore(types.ComponentNode{
		TypeName:  "site/teaser",
		HasConfig: true,
		Config:    map[string][]types.Value{CategoriesProperty: types.Values(categories...)},
	})
	resolver := configuration.NewResolver(s)
	return NewExecutionContext(types.Resource{Path: "/content/home/teaser", TypeName: "site/teaser"}, resolver)
}

func TestEngine_Register(t *testing.T) {
	e := NewEngine()
	var order []string

	require.NoError(t, e.Register(recording("a", LowPriority, &order)))

	err := e.Register(recording("a", HighPriority, &order))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	assert.Error(t, e.Register(nil))
	assert.Error(t, e.Register(recording("", LowPriority, &order)))
	assert.Len(t, e.Processors(), 1)
}

func TestEngine_RegisterRejectsWholeBatch(t *testing.T) {
	e := NewEngine()
	var order []string

	err := e.Register(
		recording("low", LowPriority, &order),
		recording("high", HighPriority, &order),
		recording("low", MediumPriority, &order),
	)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Empty(t, e.Processors())

	require.NoError(t, e.Register(
		recording("low", LowPriority, &order),
		recording("high", HighPriority, &order),
	))
	assert.Error(t, e.Register(recording("mid", MediumPriority, &order), nil))

	names := make([]string, 0, 2)
	for _, p := range e.Processors() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"high", "low"}, names)
}

func TestEngine_OrderByPriorityThenName(t *testing.T) {
	e := NewEngine()
	var order []string

	require.NoError(t, e.Register(
		recording("low", LowPriority, &order),
		recording("zeta", HighestPriority, &order),
		recording("alpha", HighestPriority, &order),
		recording("mid", MediumPriority, &order),
	))

	names := make([]string, 0, 4)
	for _, p := range e.Processors() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"alpha", "zeta", "mid", "low"}, names)

	exec := newExec(t)
	model := contentmodel.New(nil)
	require.NoError(t, e.Execute(context.Background(), exec, model))
	assert.Equal(t, names, order)
	assert.Equal(t, names, exec.Executed())
	assert.Equal(t, "low", model.GetString("last"))
}

func TestEngine_AcceptsByCategory(t *testing.T) {
	e := NewEngine()
	var order []string

	styled := recording("styled", MediumPriority, &order)
	styled.AnyOf = []string{"styling"}
	content := recording("content", MediumPriority, &order)
	content.AllOf = []string{"content", "teaser"}
	excluded := recording("excluded", MediumPriority, &order)
	excluded.NoneOf = []string{"teaser"}

	require.NoError(t, e.Register(styled, content, excluded))
	require.NoError(t, e.Execute(context.Background(), newExec(t, "content", "teaser"), contentmodel.New(nil)))
	assert.Equal(t, []string{"content"}, order)
}

func TestCategoryProcessor_Matches(t *testing.T) {
	tests := []struct {
		name       string
		processor  CategoryProcessor
		categories []string
		want       bool
	}{
		{"no constraints", CategoryProcessor{}, nil, true},
		{"any of hit", CategoryProcessor{AnyOf: []string{"a", "b"}}, []string{"b"}, true},
		{"any of miss", CategoryProcessor{AnyOf: []string{"a"}}, []string{"c"}, false},
		{"all of partial", CategoryProcessor{AllOf: []string{"a", "b"}}, []string{"a"}, false},
		{"none of", CategoryProcessor{AnyOf: []string{"a"}, NoneOf: []string{"x"}}, []string{"a", "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.processor.Matches(tt.categories))
		})
	}
}

type failingAccepts struct{ Func }

func (failingAccepts) Accepts(context.Context, *ExecutionContext) (bool, error) {
	return false, stderrors.New("no categories today")
}

func TestEngine_Errors(t *testing.T) {
	cause := stderrors.New("boom")

	t.Run("process error stops the run", func(t *testing.T) {
		e := NewEngine()
		var order []string
		require.NoError(t, e.Register(
			&Func{ProcessorName: "broken", ProcessorPriority: HighPriority, Fn: func(context.Context, *ExecutionContext, *contentmodel.Model) error {
				return cause
			}},
			recording("after", LowPriority, &order),
		))

		exec := newExec(t)
		err := e.Execute(context.Background(), exec, contentmodel.New(nil))
		require.Error(t, err)

		var perr *ProcessError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "broken", perr.Processor)
		assert.Equal(t, "site/teaser", perr.TypeName)
		assert.ErrorIs(t, err, cause)
		assert.True(t, errors.IsProcess(err))
		assert.Empty(t, order)
		assert.Empty(t, exec.Executed())
	})

	t.Run("accepts error", func(t *testing.T) {
		e := NewEngine()
		require.NoError(t, e.Register(&failingAccepts{Func{ProcessorName: "picky"}}))

		err := e.Execute(context.Background(), newExec(t), contentmodel.New(nil))
		var aerr *AcceptsError
		require.ErrorAs(t, err, &aerr)
		assert.Equal(t, "picky", aerr.Processor)
	})

	t.Run("cancelled context", func(t *testing.T) {
		e := NewEngine()
		var order []string
		require.NoError(t, e.Register(recording("never", LowPriority, &order)))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := e.Execute(ctx, newExec(t), contentmodel.New(nil))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, order)
	})
}

func TestExecutionContext_Attributes(t *testing.T) {
	exec := NewExecutionContext(types.Resource{TypeName: "x"}, nil)
	assert.Nil(t, exec.Categories(context.Background()))

	exec.Set("seen", true)
	v, ok := exec.Get("seen")
	assert.True(t, ok)
	assert.Equal(t, true, v)

	_, ok = exec.Get("missing")
	assert.False(t, ok)
	assert.NotEmpty(t, exec.ID.String())
}
