package settings

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-settings/internal/codec"
)

// ErrMalformedValue indicates a stored value that should decode as JSON does
// not, e.g. a corrupted scoped-defaults string.
var ErrMalformedValue = codec.ErrMalformed

// ErrDefaultCollision indicates the user-facing and core default tables
// declare the same key.
var ErrDefaultCollision = errors.New("settings: default tables collide")

// BackendError reports a failed read or write against the key/value service.
type BackendError struct {
	Op   string
	Keys []string
	Err  error
}

func (e *BackendError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("settings: backend %s %v: %v", e.Op, e.Keys, e.Err)
}

func (e *BackendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapBackendError(op string, keys []string, err error) error {
	if err == nil {
		return nil
	}
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return err
	}
	return &BackendError{Op: op, Keys: keys, Err: err}
}

// RuleError captures gate-engine metadata alongside the originating error.
type RuleError struct {
	Engine string
	Rule   string
	Err    error
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("settings: %s gate rule=%q: %v", e.Engine, e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapRuleError(engine, rule string, err error) error {
	if err == nil {
		return nil
	}
	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		if ruleErr.Engine == "" {
			ruleErr.Engine = engine
		}
		if ruleErr.Rule == "" {
			ruleErr.Rule = rule
		}
		return ruleErr
	}
	return &RuleError{Engine: engine, Rule: rule, Err: err}
}
