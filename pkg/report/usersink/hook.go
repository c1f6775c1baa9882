// Package usersink forwards failure reports into a go-users activity sink so
// the host's existing audit trail doubles as the error-reporting service.
package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-settings/pkg/report"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts report events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event report.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := report.NormalizeEvent(event)
	if normalized.Err == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	data := map[string]any{
		"error": normalized.Err.Error(),
	}
	if normalized.Key != "" {
		data["key"] = normalized.Key
	}
	for key, value := range normalized.Metadata {
		data[key] = value
	}

	objectID := normalized.Op
	if objectID == "" {
		objectID = normalized.Key
	}
	if objectID == "" {
		objectID = "settings"
	}

	record := usertypes.ActivityRecord{
		UserID:     parseUUID(normalized.UserID),
		Verb:       "settings.failed",
		ObjectType: "settings",
		ObjectID:   objectID,
		Channel:    normalized.Channel,
		Data:       data,
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}

	return h.Sink.Log(ctx, record)
}

func parseUUID(input string) uuid.UUID {
	value := strings.TrimSpace(input)
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil
	}
	return id
}
