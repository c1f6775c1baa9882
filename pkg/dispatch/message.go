package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/goliatone/go-settings/internal/codec"
)

// Message is the inbound request envelope from the UI and content-script
// layer: a type tag plus an untyped payload.
type Message struct {
	Type  string `json:"type"`
	State any    `json:"state"`
}

// Request types the dispatcher reacts to. Anything else is ignored.
const (
	KindTogglePopup              = "toggle-popup"
	KindToggleNanny              = "toggle-nanny"
	KindToggleNannyFromTo        = "toggle-nanny-from-to"
	KindToggleNannyInterval      = "toggle-nanny-interval"
	KindToggleIdle               = "toggle-idle"
	KindTogglePomodoro           = "toggle-pomodoro"
	KindTogglePomodoroSound      = "toggle-pomodoro-sound"
	KindTogglePomodoroInterval   = "toggle-pomodoro-interval"
	KindTogglePomodoroStopTime   = "toggle-pomodoro-stop-time"
	KindUpdatePomodoroVolume     = "update-pomodoro-sound-volume"
	KindToggleRightClickButton   = "toggle-right-click-button"
	KindToggleStartAutomatically = "toggle-start-automatically"
	KindToggleStopAutomatically  = "toggle-stop-automatically"
	KindToggleStopAtDayEnd       = "toggle-stop-at-day-end"
	KindToggleDayEndTime         = "toggle-day-end-time"
	KindChangeDefaultProject     = "change-default-project"
	KindChangeRememberProjectPer = "change-remember-project-per"
	KindUpdateDontShowPerms      = "update-dont-show-permissions"
	KindUpdateSettingsActiveTab  = "update-settings-active-tab"
	KindUpdateSendUsageStats     = "update-send-usage-statistics"
	KindUpdateSendErrorReports   = "update-send-error-reports"
	KindUpdateEnableAutoTagging  = "update-enable-auto-tagging"
)

// ErrBadPayload indicates a recognized request type carrying a payload of
// the wrong shape.
var ErrBadPayload = errors.New("dispatch: malformed payload")

// Request is a validated inbound message: the kind is known and the value
// has been decoded into the shape that kind's setting stores.
type Request struct {
	Kind  string
	Value any
}

// ParseRequest validates msg against the dispatch table. An unknown type
// returns ok=false with no error; that is the silent-ignore contract for
// message types newer UI code may send. A known type with an undecodable
// payload returns an error wrapping ErrBadPayload.
func ParseRequest(msg Message) (Request, bool, error) {
	entry, ok := table[msg.Type]
	if !ok {
		return Request{}, false, nil
	}
	value, err := entry.decode(msg.State)
	if err != nil {
		return Request{}, true, fmt.Errorf("%w: %s: %v", ErrBadPayload, msg.Type, err)
	}
	return Request{Kind: msg.Type, Value: value}, true, nil
}

// decodeBool accepts JSON booleans plus the legacy "true"/"false" string
// encoding older storage produced.
func decodeBool(raw any) (any, error) {
	switch v := codec.DecodeLegacyBool(raw).(type) {
	case bool:
		return v, nil
	default:
		return nil, fmt.Errorf("want bool, got %T", raw)
	}
}

func decodeString(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("want string, got %T", raw)
	}
	return s, nil
}

// decodeInt is strict where codec.ParseInt is tolerant: the boundary rejects
// garbage instead of silently zeroing it.
func decodeInt(raw any) (any, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("want integer, got %q", v.String())
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("want integer, got %q", v)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("want integer, got %T", raw)
	}
}

func decodeFloat(raw any) (any, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("want number, got %q", v.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("want number, got %q", v)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("want number, got %T", raw)
	}
}
