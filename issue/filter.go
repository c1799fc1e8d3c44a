package issue

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// Filter represents criteria for selecting issues. Empty fields match everything.
type Filter struct {
	// Priorities keeps issues with one of these priorities.
	Priorities []Priority `json:"priorities,omitempty" yaml:"priorities,omitempty"`

	// MinPriority keeps issues at least this severe.
	MinPriority Priority `json:"min_priority,omitempty" yaml:"min_priority,omitempty"`

	// Categories keeps issues with one of these categories.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// Types keeps issues with one of these type keys.
	Types []string `json:"types,omitempty" yaml:"types,omitempty"`

	// PathPrefix keeps issues whose path starts with this prefix.
	PathPrefix string `json:"path_prefix,omitempty" yaml:"path_prefix,omitempty"`

	// Expression is a CEL boolean expression over the issue variables
	// path, line, end_line, type_key, category, package_name, origin,
	// message, priority and weight. type and package are reserved in CEL.
	// Example: `priority == "high" && path.startsWith("src/")`.
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// Validate checks if the filter configuration is valid.
func (f *Filter) Validate() error {
	for _, p := range f.Priorities {
		if !p.IsValid() {
			return fmt.Errorf("invalid priority in filter: %s", p)
		}
	}
	if f.MinPriority != "" && !f.MinPriority.IsValid() {
		return fmt.Errorf("invalid min_priority in filter: %s", f.MinPriority)
	}
	if f.Expression != "" {
		if _, err := CompileExpression(f.Expression); err != nil {
			return err
		}
	}
	return nil
}

// Compile validates the filter and returns a predicate usable with Collection.Filter.
func (f *Filter) Compile() (func(Issue) bool, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var expr *Expression
	if f.Expression != "" {
		compiled, err := CompileExpression(f.Expression)
		if err != nil {
			return nil, err
		}
		expr = compiled
	}

	return func(i Issue) bool {
		if !f.matchesFields(i) {
			return false
		}
		if expr != nil {
			return expr.Matches(i)
		}
		return true
	}, nil
}

func (f *Filter) matchesFields(i Issue) bool {
	if len(f.Priorities) > 0 && !contains(f.Priorities, i.priority) {
		return false
	}
	if f.MinPriority != "" && ComparePriority(i.priority, f.MinPriority) < 0 {
		return false
	}
	if len(f.Categories) > 0 && !contains(f.Categories, i.category) {
		return false
	}
	if len(f.Types) > 0 && !contains(f.Types, i.typ) {
		return false
	}
	if f.PathPrefix != "" && !strings.HasPrefix(i.path, f.PathPrefix) {
		return false
	}
	return true
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// Expression is a compiled CEL issue predicate. It is safe for concurrent use.
type Expression struct {
	source  string
	program cel.Program
}

var celEnvOptions = []cel.EnvOption{
	cel.Variable("path", cel.StringType),
	cel.Variable("line", cel.IntType),
	cel.Variable("end_line", cel.IntType),
	cel.Variable("type_key", cel.StringType),
	cel.Variable("category", cel.StringType),
	cel.Variable("package_name", cel.StringType),
	cel.Variable("origin", cel.StringType),
	cel.Variable("message", cel.StringType),
	cel.Variable("priority", cel.StringType),
	cel.Variable("weight", cel.IntType),
}

// CompileExpression compiles a CEL expression that must evaluate to bool.
func CompileExpression(source string) (*Expression, error) {
	env, err := cel.NewEnv(celEnvOptions...)
	if err != nil {
		return nil, fmt.Errorf("create filter environment: %w", err)
	}

	ast, iss := env.Compile(source)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile filter %q: %w", source, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter %q must evaluate to bool, got %s", source, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("plan filter %q: %w", source, err)
	}
	return &Expression{source: source, program: prg}, nil
}

// String returns the expression source.
func (e *Expression) String() string {
	return e.source
}

// Matches evaluates the expression against an issue. Evaluation errors
// (e.g. a failing string function) count as no match.
func (e *Expression) Matches(i Issue) bool {
	out, _, err := e.program.Eval(map[string]any{
		"path":         i.path,
		"line":         int64(i.lines.Start),
		"end_line":     int64(i.lines.End),
		"type_key":     i.typ,
		"category":     i.category,
		"package_name": i.packageName,
		"origin":       i.origin,
		"message":      i.message,
		"priority":     i.priority.String(),
		"weight":       int64(i.priority.Weight()),
	})
	if err != nil {
		return false
	}
	matched, ok := out.Value().(bool)
	return ok && matched
}
