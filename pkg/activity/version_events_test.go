package activity

import (
	"context"
	"testing"
	"time"
)

func TestBuildAppUpdatedEventCarriesVersions(t *testing.T) {
	at := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	meta := map[string]any{"source": "bootstrap"}
	event := BuildAppUpdatedEvent(UpdateInput{
		OldVersion: " 2.0.5 ",
		NewVersion: "2.1.0",
		Outcome:    "minor_upgrade",
		Metadata:   meta,
		OccurredAt: at,
	})

	if event.Verb != VerbAppUpdated || event.ObjectType != ObjectTypeAppVersion || event.ObjectID != "2.1.0" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.Metadata["old_version"] != "2.0.5" || event.Metadata["new_version"] != "2.1.0" {
		t.Fatalf("expected version metadata, got %+v", event.Metadata)
	}
	if event.Metadata["timestamp"] != at.UnixMilli() {
		t.Fatalf("expected millisecond timestamp, got %v", event.Metadata["timestamp"])
	}
	if event.Metadata["source"] != "bootstrap" {
		t.Fatalf("expected caller metadata kept, got %+v", event.Metadata)
	}
	if _, ok := meta["old_version"]; ok {
		t.Fatalf("expected input metadata untouched")
	}

	payload, ok := ParseUpdate(event)
	if !ok {
		t.Fatalf("expected payload to parse")
	}
	if payload.OldVersion != "2.0.5" || payload.NewVersion != "2.1.0" || payload.Outcome != "minor_upgrade" || !payload.OccurredAt.Equal(at) {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestBuildMajorUpdateEventFallbackObjectID(t *testing.T) {
	event := BuildMajorUpdateEvent(UpdateInput{OldVersion: "1.5.0"})
	if event.Verb != VerbAppMajorUpdate {
		t.Fatalf("expected verb %s, got %s", VerbAppMajorUpdate, event.Verb)
	}
	if event.ObjectID != ObjectTypeAppVersion {
		t.Fatalf("expected fallback object id, got %q", event.ObjectID)
	}
	if _, ok := event.Metadata["timestamp"]; ok {
		t.Fatalf("expected no timestamp without OccurredAt")
	}
}

func TestParseUpdateRejectsOtherVerbs(t *testing.T) {
	if _, ok := ParseUpdate(Event{Verb: "expense.created"}); ok {
		t.Fatalf("expected unrelated event to be rejected")
	}
}

func TestVersionEventsWorkWithHooks(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}

	if err := hooks.Notify(context.Background(), BuildMajorUpdateEvent(UpdateInput{OldVersion: "1.5.0", NewVersion: "2.0.0"})); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got := capture.Verbs(); len(got) != 1 || got[0] != VerbAppMajorUpdate {
		t.Fatalf("unexpected verbs: %v", got)
	}
}
