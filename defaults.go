package settings

import "fmt"

// Setting keys recognized by the store. The dispatch table and resolvers
// refer to these instead of repeating the literals.
const (
	KeyStartAutomatically   = "startAutomatically"
	KeyStopAutomatically    = "stopAutomatically"
	KeyShowRightClickButton = "showRightClickButton"
	KeyShowPostPopup        = "showPostPopup"
	KeyNannyCheckEnabled    = "nannyCheckEnabled"
	KeyNannyInterval        = "nannyInterval"
	KeyNannyFromTo          = "nannyFromTo"
	KeyIdleDetectionEnabled = "idleDetectionEnabled"
	KeyPomodoroModeEnabled  = "pomodoroModeEnabled"
	KeyPomodoroSoundFile    = "pomodoroSoundFile"
	KeyPomodoroSoundEnabled = "pomodoroSoundEnabled"
	KeyPomodoroSoundVolume  = "pomodoroSoundVolume"
	KeyPomodoroStopOnTimeUp = "pomodoroStopTimeTrackingWhenTimerEnds"
	KeyPomodoroInterval     = "pomodoroInterval"
	KeyStopAtDayEnd         = "stopAtDayEnd"
	KeyDayEndTime           = "dayEndTime"
	KeyDefaultProject       = "defaultProject"
	KeyProjects             = "projects"
	KeyRememberProjectPer   = "rememberProjectPer"
	KeyEnableAutoTagging    = "enableAutoTagging"
	KeyDontShowPermissions  = "dont-show-permissions"
	KeyShowPermissionsInfo  = "show-permissions-info"
	KeySettingsActiveTab    = "settings-active-tab"
	KeySendErrorReports     = "sendErrorReports"
	KeySendUsageStatistics  = "sendUsageStatistics"
)

// UserDefaults returns the default table for user-facing settings. Callers
// receive a fresh map on every invocation.
func UserDefaults() map[string]any {
	return map[string]any{
		KeyStartAutomatically:   false,
		KeyStopAutomatically:    false,
		KeyShowRightClickButton: true,
		KeyShowPostPopup:        true,
		KeyNannyCheckEnabled:    true,
		KeyNannyInterval:        3600000,
		KeyNannyFromTo:          "09:00-17:00",
		KeyIdleDetectionEnabled: false,
		KeyPomodoroModeEnabled:  false,
		KeyPomodoroSoundFile:    "sounds/time_is_up_1.mp3",
		KeyPomodoroSoundEnabled: true,
		KeyPomodoroSoundVolume:  1.0,
		KeyPomodoroStopOnTimeUp: true,
		KeyPomodoroInterval:     25,
		KeyStopAtDayEnd:         false,
		KeyDayEndTime:           "17:00",
		KeyDefaultProject:       0,
		KeyProjects:             "",
		KeyRememberProjectPer:   "false",
		KeyEnableAutoTagging:    false,
	}
}

// CoreDefaults returns the default table for core settings. These back the
// extension's own plumbing rather than user-visible behaviour.
func CoreDefaults() map[string]any {
	return map[string]any{
		KeyDontShowPermissions: false,
		KeyShowPermissionsInfo: 0,
		KeySettingsActiveTab:   0,
		KeySendErrorReports:    true,
		KeySendUsageStatistics: true,
	}
}

// mergeDefaults flattens the two tiers into one namespace. The tiers are
// kept separate for documentation and tooling, but at runtime every key is
// equal; a collision between them is a programming error.
func mergeDefaults(user, core map[string]any) (map[string]any, error) {
	merged := make(map[string]any, len(user)+len(core))
	for key, value := range user {
		merged[key] = value
	}
	for key, value := range core {
		if _, exists := merged[key]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDefaultCollision, key)
		}
		merged[key] = value
	}
	return merged, nil
}
