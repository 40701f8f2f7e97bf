package activity

import (
	"strings"
	"time"
)

const (
	// VerbAppUpdated is emitted after any upgrade has been stamped.
	VerbAppUpdated = "app.updated"
	// VerbAppMajorUpdate is emitted when an upgrade wiped all feature data.
	VerbAppMajorUpdate = "app.major_update"
	// ObjectTypeAppVersion is the object type of version notifications.
	ObjectTypeAppVersion = "app.version"
)

// UpdateInput describes the common fields for version notifications.
type UpdateInput struct {
	ActorID    string
	UserID     string
	Channel    string
	OldVersion string
	NewVersion string
	Outcome    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// UpdatePayload is the decoded view of a version notification.
type UpdatePayload struct {
	OldVersion string
	NewVersion string
	Outcome    string
	OccurredAt time.Time
}

// BuildAppUpdatedEvent constructs the ordinary version bump notification.
func BuildAppUpdatedEvent(input UpdateInput) Event {
	return buildVersionEvent(VerbAppUpdated, input)
}

// BuildMajorUpdateEvent constructs the destructive version bump notification.
func BuildMajorUpdateEvent(input UpdateInput) Event {
	return buildVersionEvent(VerbAppMajorUpdate, input)
}

// ParseUpdate extracts the version payload from a notification built by
// this package. ok is false for any other event.
func ParseUpdate(event Event) (UpdatePayload, bool) {
	if event.Verb != VerbAppUpdated && event.Verb != VerbAppMajorUpdate {
		return UpdatePayload{}, false
	}
	oldVersion, _ := event.Metadata["old_version"].(string)
	newVersion, _ := event.Metadata["new_version"].(string)
	outcome, _ := event.Metadata["outcome"].(string)
	return UpdatePayload{
		OldVersion: oldVersion,
		NewVersion: newVersion,
		Outcome:    outcome,
		OccurredAt: event.OccurredAt,
	}, true
}

func buildVersionEvent(verb string, input UpdateInput) Event {
	metadata := ensureMetadata(cloneMap(input.Metadata))
	metadata["old_version"] = strings.TrimSpace(input.OldVersion)
	metadata["new_version"] = strings.TrimSpace(input.NewVersion)
	if input.Outcome != "" {
		metadata["outcome"] = input.Outcome
	}
	if !input.OccurredAt.IsZero() {
		metadata["timestamp"] = input.OccurredAt.UnixMilli()
	}

	objectID := strings.TrimSpace(input.NewVersion)
	if objectID == "" {
		objectID = ObjectTypeAppVersion
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		ObjectType: ObjectTypeAppVersion,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
