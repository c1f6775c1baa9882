// Package project picks the project a new time entry should default to,
// layering per-scope overrides over a per-user global default. Both layers
// persist through the settings store under per-user keys.
package project

import (
	"context"
	"errors"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/internal/codec"
)

// ErrNoCurrentUser indicates a mutation was attempted with nobody signed in.
var ErrNoCurrentUser = errors.New("project: no current user")

// Resolver resolves and mutates default projects for the current user.
type Resolver struct {
	store    *settings.Store
	identity settings.Identity
}

// NewResolver constructs a Resolver. A nil identity behaves as signed-out.
func NewResolver(store *settings.Store, identity settings.Identity) *Resolver {
	if identity == nil {
		identity = settings.NoIdentity
	}
	return &Resolver{store: store, identity: identity}
}

// SetDefault records projectID as the default for scope. An empty scope
// overwrites the user's global default; otherwise the scoped mapping is
// read, extended, and written back JSON-encoded in one serialized sequence.
func (r *Resolver) SetDefault(ctx context.Context, projectID int, scope string) error {
	userID := r.identity.CurrentUserID()
	if userID == "" {
		return ErrNoCurrentUser
	}

	if scope == "" {
		return r.store.Set(ctx, StorageKey(LevelGlobal, userID), projectID)
	}

	_, err := r.store.Mutate(ctx, StorageKey(LevelScoped, userID), func(raw any) (any, error) {
		scoped, err := codec.DecodeIntMap(raw)
		if err != nil {
			return nil, err
		}
		scoped[scope] = projectID
		return codec.EncodeMap(scoped)
	})
	return err
}

// Default returns the applicable default project id for scope. Zero means
// "no default": it is returned when nobody is signed in, and a scoped
// override of exactly zero falls through to the global default. That makes
// zero both a valid id and the unset sentinel; the ambiguity is inherited
// from the persisted format and deliberately preserved.
func (r *Resolver) Default(ctx context.Context, scope string) (int, error) {
	userID := r.identity.CurrentUserID()
	if userID == "" {
		return 0, nil
	}

	raw, err := r.store.Get(ctx, StorageKey(LevelGlobal, userID))
	if err != nil {
		return 0, err
	}
	global := codec.ParseInt(raw)

	if scope == "" {
		return global, nil
	}

	scopedRaw, err := r.store.Get(ctx, StorageKey(LevelScoped, userID))
	if err != nil {
		return 0, err
	}
	if scopedRaw == nil {
		return global, nil
	}
	scoped, err := codec.DecodeIntMap(scopedRaw)
	if err != nil {
		return 0, err
	}
	if projectID := scoped[scope]; projectID != 0 {
		return projectID, nil
	}
	return global, nil
}

// Reset clears the scoped-defaults mapping for the current user. The host
// invokes it when the remember-project-per mode changes, because existing
// scopes no longer mean what they did. Signed-out is a no-op.
func (r *Resolver) Reset(ctx context.Context) error {
	userID := r.identity.CurrentUserID()
	if userID == "" {
		return nil
	}
	return r.store.Set(ctx, StorageKey(LevelScoped, userID), nil)
}
