// Package origins maps visited domains onto the catalogue of services time
// can be tracked against. Resolution runs in two stages: a user-maintained
// override map redirects a domain first, then the candidate is matched
// against the catalogue, stripping subdomain labels from the left until a
// known origin remains.
package origins

import (
	"context"
	"strings"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/internal/codec"
)

// OverridesKey is the reserved setting under which the override map lives.
// The literal is part of the persisted namespace shared with existing
// installs and must not change.
const OverridesKey = "TogglButton-origins"

// scriptExt is appended to integration filenames derived from display names.
const scriptExt = ".js"

// Integration describes one catalogue entry: the origin's display name and,
// optionally, an explicit integration script filename.
type Integration struct {
	Name string
	File string
}

// Catalogue is the static, read-only table of known origins.
type Catalogue map[string]Integration

// Resolver resolves domains against a catalogue and the user's stored
// override map.
type Resolver struct {
	store     *settings.Store
	catalogue Catalogue
}

// NewResolver constructs a Resolver over the given store and catalogue.
func NewResolver(store *settings.Store, catalogue Catalogue) *Resolver {
	return &Resolver{store: store, catalogue: catalogue}
}

// Resolve maps domain to the origin it should be tracked under. The second
// return is false when no origin governs the domain, which is the normal
// outcome for most of the web, not an error.
func (r *Resolver) Resolve(ctx context.Context, domain string) (string, bool, error) {
	overrides, err := r.overrides(ctx)
	if err != nil {
		return "", false, err
	}

	candidate := domain
	if redirected, ok := overrides[domain]; ok && redirected != "" {
		candidate = redirected
	}

	if _, ok := r.catalogue[candidate]; ok {
		return candidate, true, nil
	}

	// Tracked services are frequently reached via subdomains
	// (web.any.do, sub1.sub2.any.do); drop labels from the left until the
	// catalogue recognizes the remainder.
	labels := strings.Split(candidate, ".")
	for len(labels) > 0 {
		labels = labels[1:]
		joined := strings.Join(labels, ".")
		if _, ok := r.catalogue[joined]; ok {
			return joined, true, nil
		}
	}
	return "", false, nil
}

// FileName returns the integration script filename for domain. When the
// catalogue entry carries no explicit file, the name derives from the
// display name: lowercased, with only the first space replaced by a hyphen.
// Existing integration scripts were shipped under exactly those names, so
// the asymmetry is load-bearing.
func (r *Resolver) FileName(ctx context.Context, domain string) (string, bool, error) {
	origin, ok, err := r.Resolve(ctx, domain)
	if err != nil || !ok {
		return "", false, err
	}
	item := r.catalogue[origin]
	if item.File != "" {
		return item.File, true, nil
	}
	return strings.Replace(strings.ToLower(item.Name), " ", "-", 1) + scriptExt, true, nil
}

// Override returns the raw override for domain without catalogue matching.
func (r *Resolver) Override(ctx context.Context, domain string) (string, bool, error) {
	overrides, err := r.overrides(ctx)
	if err != nil {
		return "", false, err
	}
	origin, ok := overrides[domain]
	if !ok || origin == "" {
		return "", false, nil
	}
	return origin, true, nil
}

// SetOverride records that domain should be tracked as originKey. The whole
// map rewrites through a serialized read-modify-write, so concurrent
// overrides for different domains all persist.
func (r *Resolver) SetOverride(ctx context.Context, domain, originKey string) error {
	_, err := r.store.Mutate(ctx, OverridesKey, func(raw any) (any, error) {
		overrides, err := codec.DecodeStringMap(raw)
		if err != nil {
			return nil, err
		}
		overrides[domain] = originKey
		return overrides, nil
	})
	return err
}

// RemoveOverride deletes the override for domain, if any.
func (r *Resolver) RemoveOverride(ctx context.Context, domain string) error {
	_, err := r.store.Mutate(ctx, OverridesKey, func(raw any) (any, error) {
		overrides, err := codec.DecodeStringMap(raw)
		if err != nil {
			return nil, err
		}
		delete(overrides, domain)
		return overrides, nil
	})
	return err
}

// All returns a copy of the full override map.
func (r *Resolver) All(ctx context.Context) (map[string]string, error) {
	return r.overrides(ctx)
}

func (r *Resolver) overrides(ctx context.Context) (map[string]string, error) {
	raw, err := r.store.Get(ctx, OverridesKey)
	if err != nil {
		return nil, err
	}
	return codec.DecodeStringMap(raw)
}
