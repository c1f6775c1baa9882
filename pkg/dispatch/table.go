package dispatch

import (
	"context"
	"strings"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/pkg/project"
)

// entry describes how one request type maps onto a store mutation, an
// optional gated host hook, and an optional unconditional follow-up.
type entry struct {
	// key is the target setting; keyFn supplies it when it depends on the
	// current user.
	key   string
	keyFn func(userID string) (string, error)

	decode    func(any) (any, error)
	transform func(any) any

	// valueGate runs the hook when the decoded value is truthy. gateRule
	// instead compiles to a rule evaluated against a snapshot of gateKeys
	// fetched at dispatch time, never from a cached read.
	valueGate bool
	gateRule  string
	gateKeys  []string
	hook      func(ctx context.Context, host Host) error

	// after runs after the value persists, whatever the gate said.
	after func(ctx context.Context, d *Dispatcher, value any) error
}

// The two nanny timing entries only rearm the timer while the nanny check
// itself is on, so they gate on that setting read fresh.
var nannyGate = struct {
	rule string
	keys []string
}{
	rule: settings.KeyNannyCheckEnabled,
	keys: []string{settings.KeyNannyCheckEnabled},
}

var table = map[string]entry{
	KindTogglePopup: {key: settings.KeyShowPostPopup, decode: decodeBool},
	KindToggleNanny: {
		key:       settings.KeyNannyCheckEnabled,
		decode:    decodeBool,
		valueGate: true,
		hook:      func(ctx context.Context, host Host) error { return host.SetNannyTimer(ctx) },
	},
	KindToggleNannyFromTo: {
		key:      settings.KeyNannyFromTo,
		decode:   decodeString,
		gateRule: nannyGate.rule,
		gateKeys: nannyGate.keys,
		hook:     func(ctx context.Context, host Host) error { return host.SetNannyTimer(ctx) },
	},
	KindToggleNannyInterval: {
		key:       settings.KeyNannyInterval,
		decode:    decodeInt,
		transform: clampNannyInterval,
		gateRule:  nannyGate.rule,
		gateKeys:  nannyGate.keys,
		hook:      func(ctx context.Context, host Host) error { return host.SetNannyTimer(ctx) },
	},
	KindToggleIdle: {
		key:       settings.KeyIdleDetectionEnabled,
		decode:    decodeBool,
		valueGate: true,
		hook:      func(ctx context.Context, host Host) error { return host.StartCheckingUserState(ctx) },
	},
	KindTogglePomodoro:         {key: settings.KeyPomodoroModeEnabled, decode: decodeBool},
	KindTogglePomodoroSound:    {key: settings.KeyPomodoroSoundEnabled, decode: decodeBool},
	KindTogglePomodoroInterval: {key: settings.KeyPomodoroInterval, decode: decodeInt},
	KindTogglePomodoroStopTime: {key: settings.KeyPomodoroStopOnTimeUp, decode: decodeBool},
	KindUpdatePomodoroVolume:   {key: settings.KeyPomodoroSoundVolume, decode: decodeFloat},
	KindToggleRightClickButton: {key: settings.KeyShowRightClickButton, decode: decodeBool},
	KindToggleStartAutomatically: {
		key:    settings.KeyStartAutomatically,
		decode: decodeBool,
	},
	KindToggleStopAutomatically: {
		key:    settings.KeyStopAutomatically,
		decode: decodeBool,
	},
	KindToggleStopAtDayEnd: {
		key:    settings.KeyStopAtDayEnd,
		decode: decodeBool,
		after: func(ctx context.Context, d *Dispatcher, value any) error {
			enabled, _ := value.(bool)
			return d.host.StartCheckingDayEnd(ctx, enabled)
		},
	},
	KindToggleDayEndTime: {key: settings.KeyDayEndTime, decode: decodeString},
	KindChangeDefaultProject: {
		keyFn: func(userID string) (string, error) {
			if userID == "" {
				return "", project.ErrNoCurrentUser
			}
			return project.GlobalKey(userID), nil
		},
		decode: decodeInt,
	},
	KindChangeRememberProjectPer: {
		key:    settings.KeyRememberProjectPer,
		decode: decodeString,
		after: func(ctx context.Context, d *Dispatcher, _ any) error {
			// Scoped defaults keyed under the old mode no longer apply.
			return d.projects.Reset(ctx)
		},
	},
	KindUpdateDontShowPerms:     {key: updateKey(KindUpdateDontShowPerms), decode: decodeBool},
	KindUpdateSettingsActiveTab: {key: updateKey(KindUpdateSettingsActiveTab), decode: decodeInt},
	KindUpdateSendUsageStats:    {key: settings.KeySendUsageStatistics, decode: decodeBool},
	KindUpdateSendErrorReports:  {key: settings.KeySendErrorReports, decode: decodeBool},
	KindUpdateEnableAutoTagging: {key: settings.KeyEnableAutoTagging, decode: decodeBool},
}

// updateKey derives the setting key for the two update-* requests whose key
// is the request type minus its "update-" prefix.
func updateKey(kind string) string {
	return strings.TrimPrefix(kind, "update-")
}

// clampNannyInterval enforces the one-second floor on the reminder timer.
func clampNannyInterval(value any) any {
	interval, ok := value.(int)
	if !ok {
		return value
	}
	if interval < 1000 {
		return 1000
	}
	return interval
}
