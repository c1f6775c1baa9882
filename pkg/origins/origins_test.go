package origins_test

import (
	"context"
	"sync"
	"testing"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/pkg/origins"
)

func newResolver(t *testing.T, catalogue origins.Catalogue) (*origins.Resolver, *settings.Store) {
	t.Helper()
	store, err := settings.New(settings.NewMemoryBackend())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return origins.NewResolver(store, catalogue), store
}

func TestResolveStripsSubdomains(t *testing.T) {
	resolver, _ := newResolver(t, origins.Catalogue{
		"any.do": {Name: "Any.do"},
	})
	ctx := context.Background()

	cases := []struct {
		domain string
		want   string
		found  bool
	}{
		{"any.do", "any.do", true},
		{"web.any.do", "any.do", true},
		{"sub1.sub2.any.do", "any.do", true},
		{"unknown.tld", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.domain, func(t *testing.T) {
			got, ok, err := resolver.Resolve(ctx, tc.domain)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if ok != tc.found || got != tc.want {
				t.Fatalf("Resolve(%q) = %q, %v; want %q, %v", tc.domain, got, ok, tc.want, tc.found)
			}
		})
	}
}

func TestResolveFollowsOverride(t *testing.T) {
	resolver, _ := newResolver(t, origins.Catalogue{
		"tracker.example": {Name: "Tracker"},
	})
	ctx := context.Background()

	if err := resolver.SetOverride(ctx, "internal.corp", "tracker.example"); err != nil {
		t.Fatalf("set override: %v", err)
	}

	got, ok, err := resolver.Resolve(ctx, "internal.corp")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !ok || got != "tracker.example" {
		t.Fatalf("expected override to redirect, got %q, %v", got, ok)
	}
}

func TestResolveDanglingOverrideStillSuffixMatches(t *testing.T) {
	resolver, _ := newResolver(t, origins.Catalogue{
		"any.do": {Name: "Any.do"},
	})
	ctx := context.Background()

	// Override points at something the catalogue does not know; resolution
	// falls back to suffix matching on the redirected candidate.
	if err := resolver.SetOverride(ctx, "web.any.do", "nowhere.example"); err != nil {
		t.Fatalf("set override: %v", err)
	}

	got, ok, err := resolver.Resolve(ctx, "web.any.do")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ok || got != "" {
		t.Fatalf("expected dangling override to resolve nothing, got %q, %v", got, ok)
	}
}

func TestFileNameDerivation(t *testing.T) {
	resolver, _ := newResolver(t, origins.Catalogue{
		"explicit.example": {Name: "Explicit", File: "custom.js"},
		"myapp.example":    {Name: "My App"},
		"twospace.example": {Name: "My App Two"},
	})
	ctx := context.Background()

	cases := []struct {
		domain string
		want   string
	}{
		{"explicit.example", "custom.js"},
		{"myapp.example", "my-app.js"},
		// Only the first space becomes a hyphen.
		{"twospace.example", "my-app two.js"},
	}
	for _, tc := range cases {
		t.Run(tc.domain, func(t *testing.T) {
			got, ok, err := resolver.FileName(ctx, tc.domain)
			if err != nil {
				t.Fatalf("filename: %v", err)
			}
			if !ok || got != tc.want {
				t.Fatalf("FileName(%q) = %q, %v; want %q", tc.domain, got, ok, tc.want)
			}
		})
	}

	if _, ok, err := resolver.FileName(ctx, "unknown.tld"); err != nil || ok {
		t.Fatalf("expected not-found for unknown domain, got ok=%v err=%v", ok, err)
	}
}

func TestSetAndRemoveOverride(t *testing.T) {
	resolver, _ := newResolver(t, origins.Catalogue{})
	ctx := context.Background()

	if err := resolver.SetOverride(ctx, "a.example", "origin-a"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := resolver.SetOverride(ctx, "b.example", "origin-a"); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := resolver.Override(ctx, "a.example")
	if err != nil || !ok || got != "origin-a" {
		t.Fatalf("Override = %q, %v, %v", got, ok, err)
	}

	if err := resolver.RemoveOverride(ctx, "a.example"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := resolver.Override(ctx, "a.example"); ok {
		t.Fatalf("expected override removed")
	}

	all, err := resolver.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 || all["b.example"] != "origin-a" {
		t.Fatalf("unexpected override map: %v", all)
	}
}

func TestConcurrentOverridesAllPersist(t *testing.T) {
	resolver, _ := newResolver(t, origins.Catalogue{})
	ctx := context.Background()

	domains := []string{"a.example", "b.example", "c.example", "d.example", "e.example"}
	var wg sync.WaitGroup
	for _, domain := range domains {
		wg.Add(1)
		go func(domain string) {
			defer wg.Done()
			if err := resolver.SetOverride(ctx, domain, "shared.origin"); err != nil {
				t.Errorf("set %q: %v", domain, err)
			}
		}(domain)
	}
	wg.Wait()

	all, err := resolver.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	for _, domain := range domains {
		if all[domain] != "shared.origin" {
			t.Fatalf("lost update for %q; map holds %v", domain, all)
		}
	}
}
