package project

import "fmt"

// Level identifies the precedence of a stored default. Scoped values
// override the global value when layering.
type Level int

const (
	// LevelUnknown guards against misconfiguration so call sites can detect
	// missing metadata.
	LevelUnknown Level = iota
	// LevelGlobal is the per-user fallback default.
	LevelGlobal
	// LevelScoped is a per-scope override (a domain, a tab, whatever the
	// caller partitions by).
	LevelScoped
)

func (l Level) String() string {
	switch l {
	case LevelGlobal:
		return "global"
	case LevelScoped:
		return "scoped"
	default:
		return "unknown"
	}
}

// Storage-key suffixes. The singular/plural pair is part of the persisted
// namespace shared with existing installs.
const (
	globalSuffix = "-defaultProject"
	scopedSuffix = "-defaultProjects"
)

// StorageKey returns the backend key holding the given level's value for a
// user. The global level stores a bare integer, the scoped level a
// JSON-encoded mapping of scope to project id.
func StorageKey(level Level, userID string) string {
	switch level {
	case LevelScoped:
		return userID + scopedSuffix
	default:
		return userID + globalSuffix
	}
}

// GlobalKey is shorthand for the global-default storage key of a user. The
// dispatch layer derives the same key when a default-project change arrives
// over the message protocol.
func GlobalKey(userID string) string {
	return StorageKey(LevelGlobal, userID)
}

// Chain is the fixed layering order for default-project resolution,
// strongest first.
func Chain() []Level {
	return []Level{LevelScoped, LevelGlobal}
}

// Ref names one stored default for trace and error messages.
type Ref struct {
	Level  Level
	UserID string
	Scope  string
}

func (r Ref) String() string {
	if r.Level == LevelScoped {
		return fmt.Sprintf("%s/%s/%s", r.Level, r.UserID, r.Scope)
	}
	return fmt.Sprintf("%s/%s", r.Level, r.UserID)
}
