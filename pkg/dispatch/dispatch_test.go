package dispatch_test

import (
	"context"
	"errors"
	"testing"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/pkg/dispatch"
	"github.com/goliatone/go-settings/pkg/project"
	"github.com/goliatone/go-settings/pkg/report"
)

type recordingHost struct {
	nannyTimer   int
	userState    int
	dayEnd       int
	dayEndStates []bool
	err          error
}

func (h *recordingHost) SetNannyTimer(context.Context) error {
	h.nannyTimer++
	return h.err
}

func (h *recordingHost) StartCheckingUserState(context.Context) error {
	h.userState++
	return h.err
}

func (h *recordingHost) StartCheckingDayEnd(_ context.Context, enabled bool) error {
	h.dayEnd++
	h.dayEndStates = append(h.dayEndStates, enabled)
	return h.err
}

type fixture struct {
	backend    *settings.MemoryBackend
	store      *settings.Store
	host       *recordingHost
	capture    *report.CaptureHook
	dispatcher *dispatch.Dispatcher
}

func newFixture(t *testing.T, userID string) *fixture {
	t.Helper()
	backend := settings.NewMemoryBackend()
	store, err := settings.New(backend)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	host := &recordingHost{}
	capture := &report.CaptureHook{}
	emitter := report.NewEmitter(report.Hooks{capture}, report.Config{Enabled: true})
	dispatcher, err := dispatch.New(store, host,
		dispatch.WithIdentity(settings.IdentityFunc(func() string { return userID })),
		dispatch.WithEmitter(emitter),
	)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return &fixture{backend: backend, store: store, host: host, capture: capture, dispatcher: dispatcher}
}

func (f *fixture) handle(t *testing.T, msg dispatch.Message) {
	t.Helper()
	if !f.dispatcher.Handle(context.Background(), msg) {
		t.Fatalf("Handle must always acknowledge receipt")
	}
}

func TestUnknownTypeIsSilentlyIgnored(t *testing.T) {
	f := newFixture(t, "u1")

	f.handle(t, dispatch.Message{Type: "toggle-hyperdrive", State: true})

	if n := len(f.backend.Snapshot()); n != 0 {
		t.Fatalf("expected no writes for unknown type, backend holds %d keys", n)
	}
	if n := len(f.capture.Captured()); n != 0 {
		t.Fatalf("unknown type must not be reported, got %d events", n)
	}
}

func TestTogglePopupPersists(t *testing.T) {
	f := newFixture(t, "u1")

	f.handle(t, dispatch.Message{Type: "toggle-popup", State: false})

	if got := f.backend.Snapshot()["showPostPopup"]; got != false {
		t.Fatalf("showPostPopup = %v, want false", got)
	}
}

func TestToggleNannyGatesHookOnNewValue(t *testing.T) {
	f := newFixture(t, "u1")

	f.handle(t, dispatch.Message{Type: "toggle-nanny", State: true})
	if f.host.nannyTimer != 1 {
		t.Fatalf("expected timer rearm on enable, got %d calls", f.host.nannyTimer)
	}

	f.handle(t, dispatch.Message{Type: "toggle-nanny", State: false})
	if f.host.nannyTimer != 1 {
		t.Fatalf("disable must persist without rearming, got %d calls", f.host.nannyTimer)
	}
	if got := f.backend.Snapshot()["nannyCheckEnabled"]; got != false {
		t.Fatalf("nannyCheckEnabled = %v, want false", got)
	}
}

func TestNannyIntervalClampAndFreshGate(t *testing.T) {
	f := newFixture(t, "u1")
	ctx := context.Background()

	// Nanny check defaults to enabled, so the fresh-read gate holds.
	f.handle(t, dispatch.Message{Type: "toggle-nanny-interval", State: 200})
	if got := f.backend.Snapshot()["nannyInterval"]; got != 1000 {
		t.Fatalf("interval = %v, want clamp to 1000", got)
	}
	if f.host.nannyTimer != 1 {
		t.Fatalf("expected rearm while nanny enabled, got %d calls", f.host.nannyTimer)
	}

	if err := f.store.Set(ctx, "nannyCheckEnabled", false); err != nil {
		t.Fatalf("disable nanny: %v", err)
	}
	f.handle(t, dispatch.Message{Type: "toggle-nanny-interval", State: 5000})
	if got := f.backend.Snapshot()["nannyInterval"]; got != 5000 {
		t.Fatalf("interval = %v, want 5000 persisted despite closed gate", got)
	}
	if f.host.nannyTimer != 1 {
		t.Fatalf("gate must read the disabled flag fresh, got %d calls", f.host.nannyTimer)
	}
}

func TestNannyFromToReadsGateFresh(t *testing.T) {
	f := newFixture(t, "u1")
	ctx := context.Background()

	if err := f.store.Set(ctx, "nannyCheckEnabled", false); err != nil {
		t.Fatalf("disable nanny: %v", err)
	}
	f.handle(t, dispatch.Message{Type: "toggle-nanny-from-to", State: "08:30-16:30"})

	if got := f.backend.Snapshot()["nannyFromTo"]; got != "08:30-16:30" {
		t.Fatalf("nannyFromTo = %v", got)
	}
	if f.host.nannyTimer != 0 {
		t.Fatalf("timer must not rearm while disabled, got %d calls", f.host.nannyTimer)
	}
}

func TestStopAtDayEndHookRunsUnconditionally(t *testing.T) {
	f := newFixture(t, "u1")

	f.handle(t, dispatch.Message{Type: "toggle-stop-at-day-end", State: false})

	if got := f.backend.Snapshot()["stopAtDayEnd"]; got != false {
		t.Fatalf("stopAtDayEnd = %v, want false", got)
	}
	if f.host.dayEnd != 1 || len(f.host.dayEndStates) != 1 || f.host.dayEndStates[0] != false {
		t.Fatalf("day-end checker must restart even on disable, calls=%d states=%v",
			f.host.dayEnd, f.host.dayEndStates)
	}
}

func TestRememberProjectPerResetsScopedDefaults(t *testing.T) {
	f := newFixture(t, "u1")
	ctx := context.Background()

	resolver := project.NewResolver(f.store, settings.IdentityFunc(func() string { return "u1" }))
	if err := resolver.SetDefault(ctx, 42, ""); err != nil {
		t.Fatalf("seed global: %v", err)
	}
	if err := resolver.SetDefault(ctx, 7, "tabA"); err != nil {
		t.Fatalf("seed scoped: %v", err)
	}

	f.handle(t, dispatch.Message{Type: "change-remember-project-per", State: "tab"})

	if got := f.backend.Snapshot()["rememberProjectPer"]; got != "tab" {
		t.Fatalf("rememberProjectPer = %v", got)
	}
	if got, _ := resolver.Default(ctx, "tabA"); got != 42 {
		t.Fatalf("scoped default must be cleared, resolved %d", got)
	}
}

func TestChangeDefaultProjectUsesUserKey(t *testing.T) {
	f := newFixture(t, "u1")

	f.handle(t, dispatch.Message{Type: "change-default-project", State: 42})

	if got := f.backend.Snapshot()["u1-defaultProject"]; got != 42 {
		t.Fatalf("u1-defaultProject = %v, want 42", got)
	}
}

func TestChangeDefaultProjectSignedOutIsReported(t *testing.T) {
	f := newFixture(t, "")

	f.handle(t, dispatch.Message{Type: "change-default-project", State: 42})

	if n := len(f.backend.Snapshot()); n != 0 {
		t.Fatalf("expected no write without a user, backend holds %d keys", n)
	}
	events := f.capture.Captured()
	if len(events) != 1 || !errors.Is(events[0].Err, project.ErrNoCurrentUser) {
		t.Fatalf("expected ErrNoCurrentUser report, got %v", events)
	}
}

func TestUpdatePrefixedKeysDerive(t *testing.T) {
	f := newFixture(t, "u1")

	f.handle(t, dispatch.Message{Type: "update-dont-show-permissions", State: true})
	f.handle(t, dispatch.Message{Type: "update-settings-active-tab", State: 2})

	snapshot := f.backend.Snapshot()
	if got := snapshot["dont-show-permissions"]; got != true {
		t.Fatalf("dont-show-permissions = %v", got)
	}
	if got := snapshot["settings-active-tab"]; got != 2 {
		t.Fatalf("settings-active-tab = %v", got)
	}
}

func TestMalformedPayloadIsReportedNotStored(t *testing.T) {
	f := newFixture(t, "u1")

	f.handle(t, dispatch.Message{Type: "toggle-popup", State: 5})

	if n := len(f.backend.Snapshot()); n != 0 {
		t.Fatalf("malformed payload must not persist, backend holds %d keys", n)
	}
	events := f.capture.Captured()
	if len(events) != 1 || !errors.Is(events[0].Err, dispatch.ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload report, got %v", events)
	}
}

func TestLegacyStringBooleanPayloadAccepted(t *testing.T) {
	f := newFixture(t, "u1")

	f.handle(t, dispatch.Message{Type: "toggle-popup", State: "true"})

	if got := f.backend.Snapshot()["showPostPopup"]; got != true {
		t.Fatalf("showPostPopup = %v, want decoded true", got)
	}
}

func TestHostFailureIsCapturedAndAcknowledged(t *testing.T) {
	f := newFixture(t, "u1")
	f.host.err = errors.New("timer wiring broke")

	f.handle(t, dispatch.Message{Type: "toggle-nanny", State: true})

	// The value persisted before the hook failed.
	if got := f.backend.Snapshot()["nannyCheckEnabled"]; got != true {
		t.Fatalf("nannyCheckEnabled = %v, want true", got)
	}
	events := f.capture.Captured()
	if len(events) != 1 {
		t.Fatalf("expected 1 report, got %d", len(events))
	}
	if events[0].Op != "toggle-nanny" || events[0].UserID != "u1" {
		t.Fatalf("report attribution wrong: %+v", events[0])
	}
}

func TestParseRequestBoundary(t *testing.T) {
	if _, ok, err := dispatch.ParseRequest(dispatch.Message{Type: "nope"}); ok || err != nil {
		t.Fatalf("unknown type: ok=%v err=%v", ok, err)
	}
	if _, ok, err := dispatch.ParseRequest(dispatch.Message{Type: "toggle-nanny-interval", State: "abc"}); !ok || !errors.Is(err, dispatch.ErrBadPayload) {
		t.Fatalf("bad interval: ok=%v err=%v", ok, err)
	}
	request, ok, err := dispatch.ParseRequest(dispatch.Message{Type: "toggle-nanny-interval", State: float64(4000)})
	if !ok || err != nil {
		t.Fatalf("good interval: ok=%v err=%v", ok, err)
	}
	if request.Value != 4000 {
		t.Fatalf("decoded value = %v, want 4000", request.Value)
	}
}
