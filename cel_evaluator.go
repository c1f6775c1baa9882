package settings

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/goliatone/go-settings/internal/codec"
)

// CELEvaluatorOption configures the CEL gate evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

// NewCELEvaluator constructs a GateEvaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) GateEvaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Compile returns a gate for rule. CEL declares variables up front, so the
// program itself is built lazily once the first snapshot reveals which
// setting names are in play.
func (e *celEvaluator) Compile(rule string) (Gate, error) {
	if rule == "" {
		return nil, wrapRuleError("cel", rule, fmt.Errorf("rule must not be empty"))
	}
	return &celGate{evaluator: e, rule: rule}, nil
}

type celGate struct {
	evaluator *celEvaluator
	rule      string
}

func (g *celGate) Allow(ctx GateContext) (bool, error) {
	ctx = ctx.withDefaults()
	bundle, err := g.evaluator.loadOrCompile(g.rule, ctx.Snapshot)
	if err != nil {
		return false, err
	}
	out, _, err := bundle.program.Eval(g.evaluator.activation(ctx))
	if err != nil {
		return false, wrapRuleError("cel", g.rule, err)
	}
	return codec.Truthy(out.Value()), nil
}

func (e *celEvaluator) loadOrCompile(rule string, snapshot map[string]any) (*celProgram, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(rule); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(snapshot)
	if err != nil {
		return nil, wrapRuleError("cel", rule, err)
	}
	ast, issues := env.Parse(rule)
	if issues != nil && issues.Err() != nil {
		return nil, wrapRuleError("cel", rule, issues.Err())
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, wrapRuleError("cel", rule, issues.Err())
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, wrapRuleError("cel", rule, err)
	}

	bundle := &celProgram{env: env, program: prg}
	if e.cache != nil {
		e.cache.Set(rule, bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(snapshot map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("user", celgo.StringType),
	}
	for key := range snapshot {
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType},
			celgo.DynType,
			celgo.FunctionBinding(e.callBinding()),
		)))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(ctx GateContext) map[string]any {
	activation := map[string]any{
		"now":  ctx.timestamp(),
		"args": ctx.Args,
		"user": ctx.UserID,
	}
	for key, value := range ctx.Snapshot {
		activation[key] = value
	}
	if e.registry != nil {
		activation["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
	}
	return activation
}

func (e *celEvaluator) callBinding() func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		if e.registry == nil {
			return types.NewErr("settings: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("settings: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("settings: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
