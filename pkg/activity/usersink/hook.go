// Package usersink forwards filter activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-filters/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// Now overrides the clock used when an event has no timestamp.
	Now func() time.Time
}

// Notify maps event into an ActivityRecord and logs it on the sink. Events
// missing required fields are ignored.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = activity.NormalizeEvent(event)
	if !event.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = h.now()
	}

	return h.Sink.Log(ctx, usertypes.ActivityRecord{
		ActorID:    parseID(event.ActorID),
		UserID:     parseID(event.UserID),
		TenantID:   parseID(event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       recordData(event),
		OccurredAt: occurredAt,
	})
}

func (h Hook) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// recordData keeps the filter metadata and stores identifiers that are not
// UUIDs under raw_* keys so they are not lost.
func recordData(event activity.Event) map[string]any {
	data := map[string]any{}
	for key, value := range event.Metadata {
		data[key] = value
	}
	for key, raw := range map[string]string{
		"raw_actor_id":  event.ActorID,
		"raw_user_id":   event.UserID,
		"raw_tenant_id": event.TenantID,
	} {
		if raw != "" && parseID(raw) == uuid.Nil {
			data[key] = raw
		}
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

func parseID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
