package settings

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-settings/internal/codec"
	"github.com/goliatone/go-settings/pkg/report"
)

// Store is the single source of truth for durable configuration. It layers
// default fallback and legacy-format tolerance over an external synchronized
// backend.
type Store struct {
	backend  Backend
	defaults map[string]any
	coreKeys map[string]struct{}
	logger   Logger
	emitter  *report.Emitter

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs a Store over the given backend. Without WithDefaults the
// built-in user-facing and core tables apply.
func New(backend Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("settings: backend is required")
	}
	cfg := applyOptions(opts)
	user := cfg.userDefaults
	core := cfg.coreDefaults
	if user == nil && core == nil {
		user = UserDefaults()
		core = CoreDefaults()
	}
	merged, err := mergeDefaults(user, core)
	if err != nil {
		return nil, err
	}
	logger := cfg.logger
	if logger == nil {
		logger = noopLogger{}
	}
	coreKeys := make(map[string]struct{}, len(core))
	for key := range core {
		coreKeys[key] = struct{}{}
	}
	return &Store{
		backend:  backend,
		defaults: merged,
		coreKeys: coreKeys,
		logger:   logger,
		emitter:  cfg.emitter,
		locks:    map[string]*sync.Mutex{},
	}, nil
}

// Defaults returns a copy of the flattened default table.
func (s *Store) Defaults() map[string]any {
	out := make(map[string]any, len(s.defaults))
	for key, value := range s.defaults {
		out[key] = value
	}
	return out
}

// Get reads one key from the backend. Legacy string-encoded booleans decode
// to their boolean values; everything else returns as stored. A key the
// backend has never seen returns nil with no error, and unlike Load, Get
// never writes.
func (s *Store) Get(ctx context.Context, key string) (any, error) {
	values, err := s.backend.Get(ctx, []string{key})
	if err != nil {
		return nil, wrapBackendError("get", []string{key}, err)
	}
	raw, ok := values[key]
	if !ok {
		return nil, nil
	}
	return codec.DecodeLegacyBool(raw), nil
}

// Set writes one key through to the backend unconditionally.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	if err := s.backend.Set(ctx, map[string]any{key: value}); err != nil {
		return wrapBackendError("set", []string{key}, err)
	}
	return nil
}

// Load resolves key against defaultValue and materializes the result into
// the backend, so the namespace is eventually complete even on fresh
// installs. Resolution order:
//   - absent value: use defaultValue
//   - boolean default with a stored value: decode the stored value through
//     JSON, so a legacy string survives as its boolean
//   - falsy stored value with a non-boolean default: use defaultValue
//
// Load always writes the resolved value back, even when the read already
// matched.
func (s *Store) Load(ctx context.Context, key string, defaultValue any) (any, error) {
	start := time.Now()
	value, err := s.load(ctx, key, defaultValue)
	s.logger.Log(LogEvent{Op: "load", Key: key, Duration: time.Since(start), Err: err})
	return value, err
}

func (s *Store) load(ctx context.Context, key string, defaultValue any) (any, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	value := raw
	if raw == nil {
		value = defaultValue
	} else if _, isBool := defaultValue.(bool); isBool {
		value, err = codec.CoerceJSON(raw)
		if err != nil {
			return nil, err
		}
	} else if !codec.Truthy(raw) {
		value = defaultValue
	}

	if err := s.Set(ctx, key, value); err != nil {
		return nil, err
	}
	return value, nil
}

// LoadAll materializes every recognized key. Each key loads independently;
// one key's failure is logged, reported, and skipped, never aborting the
// rest. Iteration order is unspecified since no key depends on another's
// presence. The joined per-key errors are returned for callers that want
// them; callers that must not block run LoadAll on their own goroutine.
func (s *Store) LoadAll(ctx context.Context) error {
	var errs []error
	for key, defaultValue := range s.defaults {
		if _, err := s.Load(ctx, key, defaultValue); err != nil {
			errs = append(errs, err)
			if s.emitter != nil {
				_ = s.emitter.Emit(ctx, report.Event{Op: "loadAll", Key: key, Err: err})
			}
		}
	}
	return errors.Join(errs...)
}

// UpdateOption configures one Update call.
type UpdateOption func(*updateConfig)

type updateConfig struct {
	callback  func(context.Context) error
	condition *bool
}

// WithCallback attaches a side-effecting callback that fires after the write
// when the update's gate holds.
func WithCallback(fn func(context.Context) error) UpdateOption {
	return func(cfg *updateConfig) {
		cfg.callback = fn
	}
}

// WithCondition overrides the gate for the callback. Without it, the written
// value's own truthiness gates the callback. The condition never affects
// whether the value persists.
func WithCondition(condition bool) UpdateOption {
	return func(cfg *updateConfig) {
		cfg.condition = &condition
	}
}

// Update writes value to key, then runs the attached callback when the gate
// holds. A callback failure surfaces to the caller after the value has
// already persisted.
func (s *Store) Update(ctx context.Context, key string, value any, opts ...UpdateOption) error {
	cfg := updateConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if err := s.Set(ctx, key, value); err != nil {
		return err
	}

	allowed := codec.Truthy(value)
	if cfg.condition != nil {
		allowed = *cfg.condition
	}
	if allowed && cfg.callback != nil {
		if err := cfg.callback(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Mutate performs a serialized read-modify-write on one key: fn receives the
// current value (nil when absent) and returns the replacement, which Mutate
// writes back. Calls for the same key hold a per-key mutex across the whole
// sequence, so concurrent mutations of a shared mapping cannot silently
// discard each other within this process. Across processes the backend
// stays last-writer-wins; it offers no conditional write.
func (s *Store) Mutate(ctx context.Context, key string, fn func(raw any) (any, error)) (any, error) {
	if fn == nil {
		return nil, errors.New("settings: mutator is required")
	}
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	raw, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	next, err := fn(raw)
	if err != nil {
		return nil, err
	}
	if err := s.Set(ctx, key, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Store) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}
