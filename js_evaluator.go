//go:build js_eval

package settings

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/goliatone/go-settings/internal/codec"
)

// jsEvaluator compiles gate rules as JavaScript expressions, matching the
// language the host extension's own rules are written in.
type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSEvaluator constructs a GateEvaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) GateEvaluator {
	cfg := applyJSEvaluatorOptions(opts)
	return &jsEvaluator{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (e *jsEvaluator) Compile(rule string) (Gate, error) {
	if rule == "" {
		return nil, wrapRuleError("js", rule, fmt.Errorf("rule must not be empty"))
	}
	program, err := e.loadOrCompile(rule)
	if err != nil {
		return nil, err
	}
	return &jsGate{evaluator: e, rule: rule, program: program}, nil
}

func (e *jsEvaluator) loadOrCompile(rule string) (*goja.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(rule); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", wrapJSRule(rule), false)
	if err != nil {
		return nil, wrapRuleError("js", rule, err)
	}
	if e.cache != nil {
		e.cache.Set(rule, program)
	}
	return program, nil
}

type jsGate struct {
	evaluator *jsEvaluator
	rule      string
	program   *goja.Program
}

func (g *jsGate) Allow(ctx GateContext) (bool, error) {
	ctx = ctx.withDefaults()
	vm := goja.New()
	g.evaluator.injectContext(vm, ctx)
	value, err := vm.RunProgram(g.program)
	if err != nil {
		return false, wrapRuleError("js", g.rule, err)
	}
	return codec.Truthy(value.Export()), nil
}

func (e *jsEvaluator) injectContext(vm *goja.Runtime, ctx GateContext) {
	vm.Set("now", ctx.timestamp())
	vm.Set("args", ctx.Args)
	vm.Set("user", ctx.UserID)
	for key, value := range ctx.Snapshot {
		vm.Set(key, value)
	}
	if e.registry != nil {
		vm.Set("call", func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		})
	}
}

func wrapJSRule(rule string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", rule)
}

func jsEvaluatorAvailable() bool {
	return true
}
