// Package dispatch routes inbound typed requests onto settings mutations.
// Each recognized request persists one value, optionally triggers a host
// hook behind a gate, and never surfaces a failure to the sender: errors go
// to the report sink and the handler acknowledges receipt regardless.
package dispatch

import (
	"context"
	"time"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/pkg/project"
	"github.com/goliatone/go-settings/pkg/report"
)

// Host exposes the callbacks the dispatcher triggers on the embedding
// application: timer rearms and checker restarts it cannot perform itself.
type Host interface {
	SetNannyTimer(ctx context.Context) error
	StartCheckingUserState(ctx context.Context) error
	StartCheckingDayEnd(ctx context.Context, enabled bool) error
}

type noopHost struct{}

func (noopHost) SetNannyTimer(context.Context) error          { return nil }
func (noopHost) StartCheckingUserState(context.Context) error { return nil }
func (noopHost) StartCheckingDayEnd(context.Context, bool) error {
	return nil
}

// Option configures a Dispatcher.
type Option func(*config)

type config struct {
	identity  settings.Identity
	emitter   *report.Emitter
	evaluator settings.GateEvaluator
	logger    settings.Logger
}

// WithIdentity supplies the current-user provider used for per-user keys
// and report attribution.
func WithIdentity(identity settings.Identity) Option {
	return func(cfg *config) {
		cfg.identity = identity
	}
}

// WithEmitter routes handling failures to the given report emitter.
func WithEmitter(emitter *report.Emitter) Option {
	return func(cfg *config) {
		cfg.emitter = emitter
	}
}

// WithGateEvaluator swaps the engine that compiles gate rules. The default
// is the expr engine.
func WithGateEvaluator(evaluator settings.GateEvaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = evaluator
	}
}

// WithLogger attaches a logger for dispatch outcomes.
func WithLogger(logger settings.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// Dispatcher owns the request table, compiled gates, and the collaborators
// a dispatch touches.
type Dispatcher struct {
	store    *settings.Store
	host     Host
	identity settings.Identity
	emitter  *report.Emitter
	logger   settings.Logger
	projects *project.Resolver
	gates    map[string]settings.Gate
}

// New builds a Dispatcher over store and host. Gate rules compile once
// here; a rule that fails to compile is a construction error, not a
// dispatch-time one.
func New(store *settings.Store, host Host, opts ...Option) (*Dispatcher, error) {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if host == nil {
		host = noopHost{}
	}
	if cfg.identity == nil {
		cfg.identity = settings.NoIdentity
	}
	if cfg.evaluator == nil {
		cfg.evaluator = settings.NewExprEvaluator()
	}
	if cfg.logger == nil {
		cfg.logger = settings.LoggerFunc(nil)
	}

	gates := make(map[string]settings.Gate)
	for kind, ent := range table {
		if ent.gateRule == "" {
			continue
		}
		gate, err := cfg.evaluator.Compile(ent.gateRule)
		if err != nil {
			return nil, err
		}
		gates[kind] = gate
	}

	return &Dispatcher{
		store:    store,
		host:     host,
		identity: cfg.identity,
		emitter:  cfg.emitter,
		logger:   cfg.logger,
		projects: project.NewResolver(store, cfg.identity),
		gates:    gates,
	}, nil
}

// Handle processes one inbound message. It always acknowledges receipt:
// unknown types are ignored, and any failure along the way is forwarded to
// the report sink instead of the sender.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) bool {
	request, ok, err := ParseRequest(msg)
	if !ok {
		return true
	}
	if err != nil {
		d.logger.Log(settings.LogEvent{Op: "dispatch." + msg.Type, Err: err})
	} else {
		err = d.dispatch(ctx, request)
	}
	if err != nil {
		d.report(ctx, msg.Type, err)
	}
	return true
}

func (d *Dispatcher) dispatch(ctx context.Context, request Request) error {
	started := time.Now()
	ent := table[request.Kind]

	key := ent.key
	if ent.keyFn != nil {
		var err error
		key, err = ent.keyFn(d.identity.CurrentUserID())
		if err != nil {
			return err
		}
	}

	value := request.Value
	if ent.transform != nil {
		value = ent.transform(value)
	}

	opts, err := d.updateOptions(ctx, request.Kind, ent, value)
	if err != nil {
		return err
	}
	err = d.store.Update(ctx, key, value, opts...)
	if err == nil && ent.after != nil {
		err = ent.after(ctx, d, value)
	}

	d.logger.Log(settings.LogEvent{
		Op:       "dispatch." + request.Kind,
		Key:      key,
		Duration: time.Since(started),
		Err:      err,
	})
	return err
}

// updateOptions assembles the hook callback and its gate. Rule gates read
// their settings fresh here, one suspension before the decision, so a
// toggle racing ahead of a timing change is honored.
func (d *Dispatcher) updateOptions(ctx context.Context, kind string, ent entry, value any) ([]settings.UpdateOption, error) {
	if ent.hook == nil {
		return nil, nil
	}
	opts := []settings.UpdateOption{
		settings.WithCallback(func(ctx context.Context) error {
			return ent.hook(ctx, d.host)
		}),
	}
	if ent.gateRule == "" {
		// valueGate entries rely on Update's default truthiness gate.
		return opts, nil
	}

	snapshot, err := d.snapshot(ctx, ent.gateKeys)
	if err != nil {
		return nil, err
	}
	allowed, err := d.gates[kind].Allow(settings.GateContext{
		Snapshot: snapshot,
		Args:     map[string]any{"state": value},
		UserID:   d.identity.CurrentUserID(),
	})
	if err != nil {
		return nil, err
	}
	return append(opts, settings.WithCondition(allowed)), nil
}

// snapshot fetches the named settings, falling back to their defaults for
// keys the backend has not materialized yet.
func (d *Dispatcher) snapshot(ctx context.Context, keys []string) (map[string]any, error) {
	defaults := d.store.Defaults()
	snapshot := make(map[string]any, len(keys))
	for _, key := range keys {
		value, err := d.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if value == nil {
			value = defaults[key]
		}
		snapshot[key] = value
	}
	return snapshot, nil
}

func (d *Dispatcher) report(ctx context.Context, op string, err error) {
	if !d.emitter.Enabled() {
		return
	}
	// A failing sink has nowhere else to report to; drop its error.
	_ = d.emitter.Emit(ctx, report.Event{
		Op:     op,
		UserID: d.identity.CurrentUserID(),
		Err:    err,
	})
}
