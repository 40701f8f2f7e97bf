// Package usersink forwards version notifications into a go-users activity
// feed, so an upgrade shows up next to the account events of the same user.
package usersink

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-stamp/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook is an activity.ActivityHook writing to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// TenantID scopes every record; empty leaves it nil.
	TenantID string
}

// Notify records version events. Other verbs and incomplete events are
// ignored. Actor and user ids that are not UUIDs map to uuid.Nil; the raw
// actor is kept under data["actor"] so device ids survive.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil || !event.Complete() {
		return nil
	}
	payload, ok := activity.ParseUpdate(event)
	if !ok {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	event = activity.NormalizeEvent(event)
	data := map[string]any{
		"old_version": payload.OldVersion,
		"new_version": payload.NewVersion,
		"event_id":    event.ID,
	}
	if payload.Outcome != "" {
		data["outcome"] = payload.Outcome
	}
	for key, value := range event.Metadata {
		if _, taken := data[key]; !taken {
			data[key] = value
		}
	}
	actorID, actorOK := parseUUID(event.ActorID)
	if !actorOK && event.ActorID != "" {
		data["actor"] = event.ActorID
	}
	userID, _ := parseUUID(event.UserID)
	tenantID, _ := parseUUID(h.TenantID)

	record := usertypes.ActivityRecord{
		ActorID:    actorID,
		UserID:     userID,
		TenantID:   tenantID,
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       data,
		OccurredAt: event.OccurredAt,
	}
	if err := h.Sink.Log(ctx, record); err != nil {
		return fmt.Errorf("usersink: log %s %s: %w", event.Verb, event.ObjectID, err)
	}
	return nil
}

func parseUUID(input string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
