package settings

import (
	"context"
	"time"

	"github.com/goliatone/go-settings/pkg/report"
)

// Backend is the synchronized key/value service the store persists through.
// Implementations fetch and write raw JSON-serializable values; the store
// never assumes more than eventual cross-device consistency from them.
type Backend interface {
	Get(ctx context.Context, keys []string) (map[string]any, error)
	Set(ctx context.Context, values map[string]any) error
}

// Identity exposes the current user of the host application. An empty
// identifier means no user is signed in.
type Identity interface {
	CurrentUserID() string
}

// IdentityFunc adapts a function to Identity.
type IdentityFunc func() string

// CurrentUserID implements Identity.
func (f IdentityFunc) CurrentUserID() string {
	if f == nil {
		return ""
	}
	return f()
}

// NoIdentity is an Identity with no signed-in user.
var NoIdentity Identity = IdentityFunc(func() string { return "" })

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	userDefaults map[string]any
	coreDefaults map[string]any
	logger       Logger
	emitter      *report.Emitter
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithDefaults replaces the built-in user-facing and core default tables.
// Both maps are flattened into one namespace; a key present in both is a
// construction error.
func WithDefaults(user, core map[string]any) Option {
	return func(cfg *storeConfig) {
		cfg.userDefaults = user
		cfg.coreDefaults = core
	}
}

// WithReportEmitter attaches a report emitter that receives per-key failures
// from LoadAll and other background work.
func WithReportEmitter(emitter *report.Emitter) Option {
	return func(cfg *storeConfig) {
		cfg.emitter = emitter
	}
}

// GateContext carries the inputs a compiled gate rule evaluates against.
type GateContext struct {
	// Snapshot holds setting values fetched at decision time, keyed by
	// setting name. Gates must never see stale cached values.
	Snapshot map[string]any
	// Args carries request-scoped bindings, typically the inbound payload.
	Args   map[string]any
	UserID string
	Now    *time.Time
}

func (ctx GateContext) withDefaults() GateContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

func (ctx GateContext) timestamp() time.Time {
	ctx = ctx.withDefaults()
	return *ctx.Now
}

// Gate is a compiled boolean rule. Allow reports whether the gated side
// effect should run for the given context.
type Gate interface {
	Allow(ctx GateContext) (bool, error)
}

// GateEvaluator compiles rule expressions into reusable gates.
type GateEvaluator interface {
	Compile(rule string) (Gate, error)
}

// ProgramCache stores compiled rule programs keyed by their source text.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}
