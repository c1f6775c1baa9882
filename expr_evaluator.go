package settings

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/goliatone/go-settings/internal/codec"
)

// ExprEvaluatorOption configures an expr gate evaluator.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr evaluator.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprEvaluator compiles gate rules with github.com/expr-lang/expr.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator constructs a GateEvaluator backed by expr-lang/expr. It
// is the default engine for dispatch gates.
func NewExprEvaluator(opts ...ExprEvaluatorOption) GateEvaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Compile parses rule into a reusable gate. Setting names referenced by the
// rule bind against GateContext.Snapshot at evaluation time, so the rule is
// compiled with undefined variables allowed.
func (e *exprEvaluator) Compile(rule string) (Gate, error) {
	if rule == "" {
		return nil, wrapRuleError("expr", rule, fmt.Errorf("rule must not be empty"))
	}
	program, err := e.loadOrCompile(rule)
	if err != nil {
		return nil, err
	}
	return &exprGate{evaluator: e, program: program, rule: rule}, nil
}

func (e *exprEvaluator) loadOrCompile(rule string) (*exprvm.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(rule); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if e.registry != nil {
		for _, name := range e.registry.Names() {
			fn := name
			options = append(options, exprlang.Function(fn, func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			}))
		}
	}
	program, err := exprlang.Compile(rule, options...)
	if err != nil {
		return nil, wrapRuleError("expr", rule, err)
	}
	if e.cache != nil {
		e.cache.Set(rule, program)
	}
	return program, nil
}

type exprGate struct {
	evaluator *exprEvaluator
	program   *exprvm.Program
	rule      string
}

// Allow runs the rule against the context and reduces the result to its
// truthiness, so a rule naming a single setting works unchanged.
func (g *exprGate) Allow(ctx GateContext) (bool, error) {
	ctx = ctx.withDefaults()
	env := g.evaluator.environment(ctx)
	result, err := exprlang.Run(g.program, env)
	if err != nil {
		return false, wrapRuleError("expr", g.rule, err)
	}
	return codec.Truthy(result), nil
}

func (e *exprEvaluator) environment(ctx GateContext) map[string]any {
	env := map[string]any{
		"now":  ctx.timestamp(),
		"args": ctx.Args,
		"user": ctx.UserID,
	}
	for key, value := range ctx.Snapshot {
		env[key] = value
	}
	if e.registry != nil {
		env["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
	}
	return env
}
