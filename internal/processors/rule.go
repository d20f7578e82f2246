package processors

import (
	"context"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/conneroisu/tessera/internal/contentmodel"
	"github.com/conneroisu/tessera/internal/errors"
	"github.com/conneroisu/tessera/internal/pipeline"
)

// RuleSpec declares a Rule.
type RuleSpec struct {
	Name     string   `mapstructure:"name" yaml:"name" json:"name"`
	Priority int      `mapstructure:"priority" yaml:"priority" json:"priority"`
	AnyOf    []string `mapstructure:"any_of" yaml:"any_of" json:"any_of"`
	AllOf    []string `mapstructure:"all_of" yaml:"all_of" json:"all_of"`
	NoneOf   []string `mapstructure:"none_of" yaml:"none_of" json:"none_of"`
	// When is an optional boolean expression; an empty When always applies
	When string `mapstructure:"when" yaml:"when" json:"when"`
	// Value is the expression whose result is written
	Value string `mapstructure:"value" yaml:"value" json:"value"`
	// Set is the model path written to
	Set string `mapstructure:"set" yaml:"set" json:"set"`
	// Locality is closest, root or isolated
	Locality string `mapstructure:"locality" yaml:"locality" json:"locality"`
}

// Rule evaluates a configured expression against the render and writes the
// result into the model.
//
// Expressions see these variables:
//
//	model       the content model as a JSON object
//	config      the distilled configuration (default mode, flattened)
//	categories  the MERGE-resolved categories
//	typeName    the component type name
//	path        the content path
type Rule struct {
	pipeline.CategoryProcessor
	spec     RuleSpec
	locality contentmodel.Locality
	when     *vm.Program
	value    *vm.Program
}

// NewRule compiles spec. Compile errors are reported here, not at render
// time.
func NewRule(spec RuleSpec) (*Rule, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidName, "rule name must not be empty")
	}
	if strings.TrimSpace(spec.Set) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeRuleCompile, "rule set path must not be empty").
			WithContext("rule", spec.Name)
	}
	if strings.TrimSpace(spec.Value) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeRuleCompile, "rule value must not be empty").
			WithContext("rule", spec.Name)
	}

	locality, err := contentmodel.ParseLocality(spec.Locality)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeRuleCompile, err.Error()).
			WithContext("rule", spec.Name)
	}

	r := &Rule{
		CategoryProcessor: pipeline.CategoryProcessor{AnyOf: spec.AnyOf, AllOf: spec.AllOf, NoneOf: spec.NoneOf},
		spec:              spec,
		locality:          locality,
	}
	if spec.When != "" {
		if r.when, err = compile(spec.Name, spec.When); err != nil {
			return nil, err
		}
	}
	if r.value, err = compile(spec.Name, spec.Value); err != nil {
		return nil, err
	}
	return r, nil
}

func compile(rule, source string) (*vm.Program, error) {
	program, err := expr.Compile(source,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeRuleCompile, fmt.Sprintf("compile %q: %v", source, err)).
			WithContext("rule", rule)
	}
	return program, nil
}

func (r *Rule) Name() string  { return r.spec.Name }
func (r *Rule) Priority() int { return r.spec.Priority }

// Spec returns the declaration the rule was built from.
func (r *Rule) Spec() RuleSpec { return r.spec }

func (r *Rule) Process(ctx context.Context, exec *pipeline.ExecutionContext, model *contentmodel.Model) error {
	env := r.environment(ctx, exec, model)

	if r.when != nil {
		result, err := expr.Run(r.when, env)
		if err != nil {
			return fmt.Errorf("evaluate when %q: %w", r.spec.When, err)
		}
		applies, isBool := result.(bool)
		if !isBool {
			return fmt.Errorf("when %q returned %T, want bool", r.spec.When, result)
		}
		if !applies {
			return nil
		}
	}

	value, err := expr.Run(r.value, env)
	if err != nil {
		return fmt.Errorf("evaluate value %q: %w", r.spec.Value, err)
	}
	model.SetIn(r.spec.Set, value, r.locality)
	return nil
}

func (r *Rule) environment(ctx context.Context, exec *pipeline.ExecutionContext, model *contentmodel.Model) map[string]any {
	categories := exec.Categories(ctx)
	list := make([]any, len(categories))
	for i, c := range categories {
		list[i] = c
	}

	config := map[string]any{}
	if exec.Resolver != nil {
		config = exec.Configuration(ctx).ToMap()
	}
	return map[string]any{
		"model":      model.ToJSONObject(),
		"config":     config,
		"categories": list,
		"typeName":   exec.Resource.TypeName,
		"path":       exec.Resource.Path,
	}
}

var _ pipeline.Processor = (*Rule)(nil)
